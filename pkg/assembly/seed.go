package assembly

import (
	"context"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/store"
	"github.com/rcrtd/rcrt/pkg/transform"
)

// seedSet is the result of seed collection: every discovered breadcrumb,
// deduplicated by id, plus the "always" source label assigned to the
// breadcrumbs that source produced (used by section formatting; breadcrumbs
// absent from labels fall back to schema-name grouping).
type seedSet struct {
	nodes  map[string]*breadcrumb.Breadcrumb
	labels map[string]string
	ids    []string // discovery order, trigger first
}

func (s *seedSet) add(b *breadcrumb.Breadcrumb, label string) {
	if b == nil {
		return
	}
	if _, exists := s.nodes[b.ID]; exists {
		return
	}
	s.nodes[b.ID] = b
	s.ids = append(s.ids, b.ID)
	if label != "" {
		s.labels[b.ID] = label
	}
}

// collectSeeds implements §4.4.c: the trigger itself, every
// context_sources.always entry resolved per its method, and semantic seeds
// from a hybrid search over the trigger's pointer set.
func collectSeeds(ctx context.Context, st *store.Store, ets *transform.Service, tenantID string, trigger *breadcrumb.Breadcrumb, cfg breadcrumb.ConsumerConfig, semanticSeedK int) (*seedSet, error) {
	set := &seedSet{
		nodes:  make(map[string]*breadcrumb.Breadcrumb),
		labels: make(map[string]string),
	}
	set.add(trigger, "")

	for _, src := range cfg.ContextSources.Always {
		var limit int
		switch src.Method {
		case breadcrumb.MethodLatest:
			limit = 1
		case breadcrumb.MethodRecentN:
			limit = src.Count
			if limit <= 0 {
				limit = 1
			}
		case breadcrumb.MethodAll:
			limit = 500 // safety cap; "all" still bounded
		default:
			limit = 1
		}

		summaries, err := st.List(ctx, tenantID, store.ListFilters{Schema: src.SchemaName}, limit, 0)
		if err != nil {
			return nil, err
		}
		for _, sum := range summaries {
			full, err := st.GetInternal(ctx, tenantID, sum.ID)
			if err != nil {
				continue // best-effort: a concurrently deleted seed just doesn't seed
			}
			set.add(full, src.EffectiveLabel())
		}
	}

	embeddingText, _ := ets.EmbeddingText(trigger)
	hits, err := st.HybridSearch(ctx, tenantID, embeddingText, trigger.Tags, semanticSeedK, true)
	if err == nil {
		for _, hit := range hits {
			if st.IsBlacklisted(hit.Schema) {
				continue
			}
			full, err := st.GetInternal(ctx, tenantID, hit.ID)
			if err != nil {
				continue
			}
			set.add(full, "")
		}
	}

	return set, nil
}
