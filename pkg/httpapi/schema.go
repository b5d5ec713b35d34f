package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
)

// resourceSchemas maps the public names under GET /schemas/{resource} to the
// request type whose shape is reflected into a JSON schema document. Lets a
// client integration check its payloads against the store's actual wire
// shapes instead of guessing.
var resourceSchemas = map[string]func() (map[string]interface{}, error){
	"breadcrumb.create":  generateSchema[createBreadcrumbRequest],
	"breadcrumb.replace": generateSchema[replaceBreadcrumbRequest],
	"schema.definition":  generateSchema[breadcrumb.SchemaDefinition],
	"blacklist.entry":    generateSchema[breadcrumb.BlacklistEntry],
}

func listSchemas(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(resourceSchemas))
	for name := range resourceSchemas {
		names = append(names, name)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"resources": names})
}

func getSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "resource")
	gen, ok := resourceSchemas[name]
	if !ok {
		writeError(w, breadcrumb.NewError(breadcrumb.KindNotFound, "unknown schema resource: "+name), false)
		return
	}
	doc, err := gen()
	if err != nil {
		writeError(w, breadcrumb.NewError(breadcrumb.KindInternal, "failed to build schema"), false)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// generateSchema reflects a Go request/payload type into a JSON schema
// document, the properties/required subset an agent needs to validate a
// raw request body against.
func generateSchema[T any]() (map[string]interface{}, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	delete(result, "$schema")
	delete(result, "$id")
	return result, nil
}
