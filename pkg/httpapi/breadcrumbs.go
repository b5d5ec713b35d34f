package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rcrtd/rcrt/pkg/auth"
	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/store"
)

type createBreadcrumbRequest struct {
	Schema    string                    `json:"schema_name"`
	Title     string                    `json:"title"`
	Tags      []string                  `json:"tags"`
	Context   map[string]interface{}    `json:"context"`
	TTLType   breadcrumb.TTLType        `json:"ttl_type,omitempty"`
	TTLConfig *breadcrumb.TTLConfig     `json:"ttl_config,omitempty"`
	ACL       []breadcrumb.ACLEntry     `json:"acl,omitempty"`
}

type createBreadcrumbResponse struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

func createBreadcrumb(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())

		var req createBreadcrumbRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, breadcrumb.NewError(breadcrumb.KindValidation, "malformed request body"), false)
			return
		}

		if isCuratorOnlySchema(req.Schema) && !claims.IsCurator() {
			writeError(w, breadcrumb.ErrForbidden, true)
			return
		}

		id, version, err := deps.Store.Create(r.Context(), claims.TenantID, claims.AgentID, store.CreateInput{
			Schema:    req.Schema,
			Title:     req.Title,
			Tags:      req.Tags,
			Context:   req.Context,
			TTLType:   req.TTLType,
			TTLConfig: req.TTLConfig,
			ACL:       req.ACL,
		}, r.Header.Get("Idempotency-Key"))
		if err != nil {
			writeError(w, err, false)
			return
		}
		writeJSON(w, http.StatusCreated, createBreadcrumbResponse{ID: id, Version: version})
	}
}

// isCuratorOnlySchema reports whether schema is one of the system
// policy schemas (blacklists, schema definitions) that only a curator
// may author, regardless of the generic create route's emitter floor.
func isCuratorOnlySchema(schema string) bool {
	switch schema {
	case breadcrumb.SchemaBlacklist, breadcrumb.SchemaDef:
		return true
	default:
		return false
	}
}

func listBreadcrumbs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())
		q := r.URL.Query()

		summaries, err := deps.Store.List(r.Context(), claims.TenantID, store.ListFilters{
			Schema: q.Get("schema_name"),
			Tag:    q.Get("tag"),
		}, atoiDefault(q.Get("limit"), 50), atoiDefault(q.Get("offset"), 0))
		if err != nil {
			writeError(w, err, false)
			return
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func searchBreadcrumbs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())
		q := r.URL.Query()

		includeContext := q.Get("include_context") == "true"
		nn := atoiDefault(q.Get("nn"), 20)
		query := q.Get("q")
		qvec, _ := parseQVec(q.Get("qvec"))

		filters := store.SearchFilters{
			Schema: q.Get("schema_name"),
			Tag:    q.Get("tag"),
		}

		results, err := deps.Store.SemanticSearch(r.Context(), claims.TenantID, query, qvec, nn, filters, includeContext)
		if err != nil {
			writeError(w, err, false)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func getBreadcrumbView(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())
		view, err := deps.Store.GetView(r.Context(), claims.TenantID, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err, false)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func getBreadcrumbRaw(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())
		b, err := deps.Store.GetRaw(r.Context(), claims.TenantID, claims.AgentID, claims.IsCurator(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err, errors.Is(err, breadcrumb.ErrForbidden))
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

type replaceBreadcrumbRequest struct {
	Title   string                 `json:"title"`
	Tags    []string               `json:"tags"`
	Context map[string]interface{} `json:"context"`
}

func replaceBreadcrumb(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())

		expectedVersion, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get("If-Match")), 10, 64)
		if err != nil {
			writeError(w, breadcrumb.NewError(breadcrumb.KindValidation, "If-Match header with the current version is required"), false)
			return
		}

		var req replaceBreadcrumbRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, breadcrumb.NewError(breadcrumb.KindValidation, "malformed request body"), false)
			return
		}

		b, err := deps.Store.Replace(r.Context(), claims.TenantID, chi.URLParam(r, "id"), expectedVersion, req.Title, req.Tags, req.Context)
		if err != nil {
			writeError(w, err, false)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

func addTags(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())
		var req tagsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, breadcrumb.NewError(breadcrumb.KindValidation, "malformed request body"), false)
			return
		}
		b, err := deps.Store.AddTags(r.Context(), claims.TenantID, chi.URLParam(r, "id"), req.Tags)
		if err != nil {
			writeError(w, err, false)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func removeTags(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())
		var req tagsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, breadcrumb.NewError(breadcrumb.KindValidation, "malformed request body"), false)
			return
		}
		b, err := deps.Store.RemoveTags(r.Context(), claims.TenantID, chi.URLParam(r, "id"), req.Tags)
		if err != nil {
			writeError(w, err, false)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

type mergeContextRequest struct {
	Context map[string]interface{} `json:"context"`
}

func mergeContext(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())
		var req mergeContextRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, breadcrumb.NewError(breadcrumb.KindValidation, "malformed request body"), false)
			return
		}
		b, err := deps.Store.MergeContext(r.Context(), claims.TenantID, chi.URLParam(r, "id"), req.Context)
		if err != nil {
			writeError(w, err, false)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

type reviewRequest struct {
	Reason string `json:"reason"`
}

func approveBreadcrumb(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())
		var req reviewRequest
		_ = decodeJSON(r, &req)
		b, err := deps.Store.Approve(r.Context(), claims.TenantID, chi.URLParam(r, "id"), req.Reason)
		if err != nil {
			writeError(w, err, false)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func rejectBreadcrumb(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())
		var req reviewRequest
		_ = decodeJSON(r, &req)
		b, err := deps.Store.Reject(r.Context(), claims.TenantID, chi.URLParam(r, "id"), req.Reason)
		if err != nil {
			writeError(w, err, false)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func deleteBreadcrumb(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())
		if err := deps.Store.Delete(r.Context(), claims.TenantID, chi.URLParam(r, "id")); err != nil {
			writeError(w, err, false)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
