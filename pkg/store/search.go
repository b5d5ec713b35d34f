package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/graph"
	"github.com/rcrtd/rcrt/pkg/transform"
)

// ScoredSummary is a search hit: a breadcrumb summary plus the score it was
// ranked by.
type ScoredSummary struct {
	breadcrumb.Summary
	Score float64 `json:"score"`
}

// SearchFilters narrows semantic_search the same way ListFilters narrows
// List: schema filter by exact match, tag filter by set-containment, both
// applied inside the index scan rather than blended into the score.
type SearchFilters struct {
	Schema string
	Tag    string
}

func (f SearchFilters) matches(b *breadcrumb.Breadcrumb) bool {
	if f.Schema != "" && b.Schema != f.Schema {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range b.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// oversampleFactor widens a vector-store topK request when filters are
// present, since the index itself isn't filter-aware (§9 OQ3: the vector
// backend is not contractual) and matching candidates have to be found by
// over-fetching and filtering in process.
const oversampleFactor = 5

// SemanticSearch ranks breadcrumbs by cosine similarity descending against
// either a caller-supplied query vector (the qvec path) or one freshly
// embedded from queryText, per §4.1's `{query_text | query_vector}`
// contract. Schema/tag filters are applied inside the index scan (the
// fallback's SQL WHERE clause, or a post-fetch filter against the vector
// store's hits) rather than blended into the ranking score. It delegates to
// the attached VectorStore when configured, else falls back to an
// in-process linear scan.
func (s *Store) SemanticSearch(ctx context.Context, tenantID, queryText string, queryVec []float32, topK int, filters SearchFilters, includeContext bool) ([]ScoredSummary, error) {
	start := time.Now()
	var err error
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.RecordStoreOp(ctx, "semantic_search", outcome, time.Since(start))
	}()

	if topK <= 0 || topK > 200 {
		topK = 20
	}

	if len(queryVec) == 0 {
		var ok bool
		queryVec, ok, err = s.ets.Embed(queryText)
		if err != nil {
			err = breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("embed query: %v", err))
			return nil, err
		}
		if !ok {
			err = breadcrumb.NewError(breadcrumb.KindConfigMissing, "no embedder configured")
			return nil, err
		}
	}

	if s.vs != nil {
		return s.semanticSearchVectorStore(ctx, tenantID, queryVec, topK, filters, includeContext)
	}

	candidates, fetchErr := s.fetchEmbedded(ctx, tenantID, filters)
	if fetchErr != nil {
		err = fetchErr
		return nil, err
	}

	scored := make([]ScoredSummary, 0, len(candidates))
	for _, b := range candidates {
		if len(b.Embedding) == 0 {
			continue
		}
		scored = append(scored, ScoredSummary{
			Summary: b.ToSummary(includeContext),
			Score:   graph.CosineSimilarity(queryVec, b.Embedding),
		})
	}
	sortScored(scored)
	return truncate(scored, topK), nil
}

func (s *Store) semanticSearchVectorStore(ctx context.Context, tenantID string, queryVec []float32, topK int, filters SearchFilters, includeContext bool) ([]ScoredSummary, error) {
	fetchK := topK
	if filters.Schema != "" || filters.Tag != "" {
		fetchK = topK * oversampleFactor
		if fetchK > 200 {
			fetchK = 200
		}
	}

	hits, err := s.vs.Search(ctx, vsCollection(tenantID), queryVec, fetchK)
	if err != nil {
		return nil, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("vector store search: %v", err))
	}
	out := make([]ScoredSummary, 0, len(hits))
	for _, h := range hits {
		b, fetchErr := s.fetch(ctx, tenantID, h.ID)
		if fetchErr != nil {
			// The vector index and the store can drift (e.g. a delete that
			// hasn't propagated yet); skip rather than fail the whole search.
			continue
		}
		if !filters.matches(b) {
			continue
		}
		out = append(out, ScoredSummary{Summary: b.ToSummary(includeContext), Score: float64(h.Score)})
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

// HybridSearch mixes semantic similarity with tag/keyword overlap: a fixed
// 60% vector weight and 40% keyword-Jaccard weight, ties broken by most
// recently updated.
func (s *Store) HybridSearch(ctx context.Context, tenantID, queryText string, queryTags []string, topK int, includeContext bool) ([]ScoredSummary, error) {
	start := time.Now()
	var err error
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.RecordStoreOp(ctx, "hybrid_search", outcome, time.Since(start))
	}()

	if topK <= 0 || topK > 200 {
		topK = 20
	}

	const vectorWeight = 0.6
	const keywordWeight = 0.4

	queryVec, _, embedErr := s.ets.Embed(queryText)
	if embedErr != nil {
		err = breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("embed query: %v", embedErr))
		return nil, err
	}
	queryKeywords := transform.DeriveKeywords(queryTags, queryText)
	querySet := make(map[string]bool, len(queryKeywords))
	for _, k := range queryKeywords {
		querySet[k] = true
	}

	candidates, fetchErr := s.fetchEmbedded(ctx, tenantID, SearchFilters{})
	if fetchErr != nil {
		err = fetchErr
		return nil, err
	}

	scored := make([]ScoredSummary, 0, len(candidates))
	for _, b := range candidates {
		cos := graph.CosineSimilarity(queryVec, b.Embedding)
		nodeSet := make(map[string]bool, len(b.EntityKeywords))
		for _, k := range b.EntityKeywords {
			nodeSet[k] = true
		}
		jac := transform.Jaccard(nodeSet, querySet)
		score := vectorWeight*cos + keywordWeight*jac
		scored = append(scored, ScoredSummary{Summary: b.ToSummary(includeContext), Score: score})
	}
	sortScored(scored)
	return truncate(scored, topK), nil
}

// fetchEmbedded returns every breadcrumb for tenantID matching filters, used
// by the in-process fallback search path. Schema/tag filters are applied as
// SQL WHERE clauses (the same tagContainsClause List uses) so they narrow
// the scan itself rather than the post-hoc score. A production deployment
// is expected to attach a VectorStore so this scan stays bounded to small
// tenants and tests.
func (s *Store) fetchEmbedded(ctx context.Context, tenantID string, filters SearchFilters) ([]*breadcrumb.Breadcrumb, error) {
	clauses := []string{"tenant_id = " + s.placeholder(1)}
	args := []interface{}{tenantID}
	n := 2
	if filters.Schema != "" {
		clauses = append(clauses, "schema_name = "+s.placeholder(n))
		args = append(args, filters.Schema)
		n++
	}
	if filters.Tag != "" {
		clauses = append(clauses, s.tagContainsClause(n))
		args = append(args, s.tagContainsArg(filters.Tag))
		n++
	}

	query := fmt.Sprintf("SELECT %s FROM breadcrumbs WHERE %s", selectColumnsSQL(), joinAnd(clauses))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("fetch embedded: %v", err))
	}
	defer rows.Close()

	var out []*breadcrumb.Breadcrumb
	for rows.Next() {
		b, err := scanBreadcrumb(rows.Scan)
		if err != nil {
			return nil, breadcrumb.NewError(breadcrumb.KindInternal, fmt.Sprintf("fetch embedded scan: %v", err))
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func sortScored(scored []ScoredSummary) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].UpdatedAt.After(scored[j].UpdatedAt)
	})
}

func truncate(scored []ScoredSummary, topK int) []ScoredSummary {
	if len(scored) > topK {
		return scored[:topK]
	}
	return scored
}

// vsCollection maps a tenant to its VectorStore collection name, keeping
// every tenant's vectors in a separate collection so cross-tenant leakage
// through the index is structurally impossible.
func vsCollection(tenantID string) string {
	return "rcrt_" + tenantID
}
