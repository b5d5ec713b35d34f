package assembly

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/transform"
)

// formatSections implements §4.4.f: group the selected set by canonical
// order (TRIGGER, then each always-source label in the consumer's declared
// order, then remaining results grouped by schema name), rendering each
// breadcrumb through ETS's view.
func formatSections(trigger *breadcrumb.Breadcrumb, selected []*breadcrumb.Breadcrumb, set *seedSet, cfg breadcrumb.ConsumerConfig, ets *transform.Service) string {
	byID := make(map[string]*breadcrumb.Breadcrumb, len(selected))
	for _, b := range selected {
		byID[b.ID] = b
	}

	var out strings.Builder
	rendered := make(map[string]bool, len(selected))

	if b, ok := byID[trigger.ID]; ok {
		writeSection(&out, "TRIGGER", []*breadcrumb.Breadcrumb{b}, ets)
		rendered[b.ID] = true
	}

	labelOrder := make([]string, 0, len(cfg.ContextSources.Always))
	seenLabel := make(map[string]bool)
	for _, src := range cfg.ContextSources.Always {
		label := src.EffectiveLabel()
		if !seenLabel[label] {
			seenLabel[label] = true
			labelOrder = append(labelOrder, label)
		}
	}
	for _, label := range labelOrder {
		var group []*breadcrumb.Breadcrumb
		for _, b := range selected {
			if rendered[b.ID] {
				continue
			}
			if set.labels[b.ID] == label {
				group = append(group, b)
			}
		}
		if len(group) == 0 {
			continue
		}
		writeSection(&out, label, group, ets)
		for _, b := range group {
			rendered[b.ID] = true
		}
	}

	bySchema := make(map[string][]*breadcrumb.Breadcrumb)
	for _, b := range selected {
		if rendered[b.ID] {
			continue
		}
		bySchema[b.Schema] = append(bySchema[b.Schema], b)
	}
	schemas := make([]string, 0, len(bySchema))
	for schema := range bySchema {
		schemas = append(schemas, schema)
	}
	sort.Strings(schemas)
	for _, schema := range schemas {
		writeSection(&out, schema, bySchema[schema], ets)
	}

	return out.String()
}

func writeSection(out *strings.Builder, label string, group []*breadcrumb.Breadcrumb, ets *transform.Service) {
	fmt.Fprintf(out, "=== %s ===\n", strings.ToUpper(label))
	for _, b := range group {
		view := ets.View(b)
		raw, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			continue
		}
		out.Write(raw)
		out.WriteByte('\n')
	}
}

// truncationSection is emitted in place of the normal body when even the
// trigger alone doesn't fit the budget.
func truncationSection(trigger *breadcrumb.Breadcrumb, ets *transform.Service) string {
	var out strings.Builder
	writeSection(&out, "TRIGGER", []*breadcrumb.Breadcrumb{trigger}, ets)
	out.WriteString("=== TRUNCATED ===\ncontext budget exceeded; only the trigger is included\n")
	return out.String()
}
