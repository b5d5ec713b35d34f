package graph

import (
	"github.com/rcrtd/rcrt/pkg/breadcrumb"
)

// Infer derives the edges a newly created or updated breadcrumb implies,
// by inspecting a small set of well-known context field names. It never
// interprets schema-specific payload shape beyond these fields, matching
// the spec's "typed records keyed by schema_name" design note: edge
// inference is the one place the core looks inside arbitrary context, and
// it does so structurally (a field is present or it isn't), never by
// schema-specific branching.
func Infer(b *breadcrumb.Breadcrumb) []breadcrumb.Edge {
	var edges []breadcrumb.Edge

	if createdBy, ok := stringField(b.Context, "created_by"); ok && createdBy != b.ID {
		edges = append(edges, breadcrumb.Edge{
			SrcID: createdBy, DstID: b.ID, Kind: breadcrumb.EdgeCreates, Weight: 1.0,
		})
	}

	if configID, ok := stringField(b.Context, "config_id"); ok && configID != b.ID {
		edges = append(edges, breadcrumb.Edge{
			SrcID: b.ID, DstID: configID, Kind: breadcrumb.EdgeUsesConfig, Weight: 0.8,
		})
	}
	if llmConfigID, ok := stringField(b.Context, "llm_config_id"); ok && llmConfigID != b.ID {
		edges = append(edges, breadcrumb.Edge{
			SrcID: b.ID, DstID: llmConfigID, Kind: breadcrumb.EdgeUsesConfig, Weight: 0.8,
		})
	}

	for _, id := range toolRequestIDs(b.Context) {
		if id == b.ID {
			continue
		}
		edges = append(edges, breadcrumb.Edge{
			SrcID: b.ID, DstID: id, Kind: breadcrumb.EdgeCreates, Weight: 0.6,
		})
	}

	return edges
}

func stringField(ctx map[string]interface{}, field string) (string, bool) {
	v, ok := ctx[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// toolRequestIDs extracts ids referenced by a "tool_requests" array field,
// which may hold either bare id strings or objects carrying an "id" key.
func toolRequestIDs(ctx map[string]interface{}) []string {
	raw, ok := ctx["tool_requests"]
	if !ok {
		return nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case map[string]interface{}:
			if id, ok := stringField(v, "id"); ok {
				out = append(out, id)
			}
		}
	}
	return out
}
