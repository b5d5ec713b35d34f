package breadcrumb

import "encoding/json"

// decodeInto round-trips a breadcrumb's context map through JSON into a
// typed struct. Breadcrumb context is stored as arbitrary JSON; schemas the
// core interprets (agent.def.v1, schema.def.v1) decode it this way rather
// than trusting a caller-asserted type.
func decodeInto[T any](context map[string]interface{}) (T, error) {
	var out T
	raw, err := json.Marshal(context)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
