package store_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/config"
	"github.com/rcrtd/rcrt/pkg/store"
	"github.com/rcrtd/rcrt/pkg/testutils"
	"github.com/rcrtd/rcrt/pkg/transform"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.DatabaseConfig{Driver: "sqlite3", Database: ":memory:"}
	ets := transform.New(testutils.FakeEmbedder{}, nil)
	st := store.New(db, cfg, ets)
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestCreate_PersistsAndReturnsVersionOne(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, version, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
		Schema:  "note.v1",
		Title:   "hello",
		Tags:    []string{"draft"},
		Context: map[string]interface{}{"body": "hi"},
	}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, int64(1), version)

	b, err := st.GetInternal(ctx, "tenant-a", id)
	require.NoError(t, err)
	assert.Equal(t, "hello", b.Title)
	assert.Equal(t, []string{"draft"}, b.Tags)
}

func TestCreate_IdempotencyKeyReplaysPriorResult(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id1, v1, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{Schema: "note.v1", Title: "first"}, "idem-key-1")
	require.NoError(t, err)

	id2, v2, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{Schema: "note.v1", Title: "second"}, "idem-key-1")
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "replaying the same idempotency key must return the original breadcrumb")
	assert.Equal(t, v1, v2)

	b, err := st.GetInternal(ctx, "tenant-a", id1)
	require.NoError(t, err)
	assert.Equal(t, "first", b.Title, "the replayed create must not overwrite the original")
}

func TestCreate_FillsTTLFromSchemaDefault(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	hourNanos := int64(3600 * 1e9)
	_, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
		Schema: breadcrumb.SchemaDef,
		Title:  "tool.code.v1",
		Context: map[string]interface{}{
			"schema_name":        "tool.code.v1",
			"default_ttl_type":   string(breadcrumb.TTLDuration),
			"default_ttl_config": map[string]interface{}{"duration": hourNanos},
		},
	}, "")
	require.NoError(t, err)

	id, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{Schema: "tool.code.v1", Title: "x"}, "")
	require.NoError(t, err)

	b, err := st.GetInternal(ctx, "tenant-a", id)
	require.NoError(t, err)
	assert.Equal(t, breadcrumb.TTLDuration, b.TTLType)
}

func TestReplace_EnforcesVersionConflict(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, version, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{Schema: "note.v1", Title: "v1"}, "")
	require.NoError(t, err)

	_, err = st.Replace(ctx, "tenant-a", id, version, "v2", nil, nil)
	require.NoError(t, err)

	_, err = st.Replace(ctx, "tenant-a", id, version, "v3-stale", nil, nil)
	assert.ErrorIs(t, err, breadcrumb.ErrVersionConflict)
}

func TestAddTags_RemoveTags_AreAtomicAndIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
		Schema: "note.v1", Title: "x", Tags: []string{"draft"},
	}, "")
	require.NoError(t, err)

	b, err := st.AddTags(ctx, "tenant-a", id, []string{"urgent", "draft"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"draft", "urgent"}, b.Tags)

	// Re-adding an already-present tag is a no-op on the tag set but still
	// succeeds rather than erroring.
	b, err = st.AddTags(ctx, "tenant-a", id, []string{"urgent"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"draft", "urgent"}, b.Tags)

	b, err = st.RemoveTags(ctx, "tenant-a", id, []string{"draft"})
	require.NoError(t, err)
	assert.Equal(t, []string{"urgent"}, b.Tags)
}

func TestMergeContext_ObjectsMergeKeyWise(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
		Schema:  "tool.code.v1",
		Title:   "x",
		Context: map[string]interface{}{"limits": map[string]interface{}{"timeout": float64(30000)}},
	}, "")
	require.NoError(t, err)

	b, err := st.MergeContext(ctx, "tenant-a", id, map[string]interface{}{
		"limits": map[string]interface{}{"timeout_ms": float64(120000)},
	})
	require.NoError(t, err)

	limits, ok := b.Context["limits"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(30000), limits["timeout"], "the pre-existing key must survive the merge")
	assert.Equal(t, float64(120000), limits["timeout_ms"], "the patched key must be present")
}

func TestMergeContext_ArraysReplaceWholesale(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
		Schema:  "note.v1",
		Title:   "x",
		Context: map[string]interface{}{"tags": []interface{}{float64(1)}},
	}, "")
	require.NoError(t, err)

	b, err := st.MergeContext(ctx, "tenant-a", id, map[string]interface{}{
		"tags": []interface{}{float64(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{float64(2)}, b.Context["tags"])
}

func TestApprove_ClearsPriorStateTagAndRecordsReason(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
		Schema: "tool.catalog.v1", Title: "x", Tags: []string{"draft", "browser-automation"},
	}, "")
	require.NoError(t, err)

	b, err := st.Approve(ctx, "tenant-a", id, "looks good")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"approved", "browser-automation"}, b.Tags)

	review, ok := b.Context["review"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "approved", review["state"])
	assert.Equal(t, "looks good", review["reason"])
}

func TestReject_SetsRejectedState(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
		Schema: "tool.catalog.v1", Title: "x", Tags: []string{"draft"},
	}, "")
	require.NoError(t, err)

	b, err := st.Reject(ctx, "tenant-a", id, "needs work")
	require.NoError(t, err)
	assert.Contains(t, b.Tags, "rejected")
	assert.NotContains(t, b.Tags, "draft")
}

func TestDelete_RemovesRowAndIsNotFoundAfter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{Schema: "note.v1", Title: "x"}, "")
	require.NoError(t, err)

	require.NoError(t, st.Delete(ctx, "tenant-a", id))

	_, err = st.GetInternal(ctx, "tenant-a", id)
	assert.ErrorIs(t, err, breadcrumb.ErrNotFound)
}

func TestDelete_MissingRowIsNotFound(t *testing.T) {
	st := newTestStore(t)
	err := st.Delete(context.Background(), "tenant-a", "does-not-exist")
	assert.ErrorIs(t, err, breadcrumb.ErrNotFound)
}

func TestList_FiltersBySchemaAndTag(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{Schema: "note.v1", Title: "a", Tags: []string{"x"}}, "")
	require.NoError(t, err)
	_, _, err = st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{Schema: "tool.code.v1", Title: "b", Tags: []string{"y"}}, "")
	require.NoError(t, err)

	bySchema, err := st.List(ctx, "tenant-a", store.ListFilters{Schema: "note.v1"}, 50, 0)
	require.NoError(t, err)
	assert.Len(t, bySchema, 1)
	assert.Equal(t, "a", bySchema[0].Title)

	byTag, err := st.List(ctx, "tenant-a", store.ListFilters{Tag: "y"}, 50, 0)
	require.NoError(t, err)
	assert.Len(t, byTag, 1)
	assert.Equal(t, "b", byTag[0].Title)
}

func TestList_IsolatesTenants(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{Schema: "note.v1", Title: "a"}, "")
	require.NoError(t, err)
	_, _, err = st.Create(ctx, "tenant-b", "writer-1", store.CreateInput{Schema: "note.v1", Title: "b"}, "")
	require.NoError(t, err)

	results, err := st.List(ctx, "tenant-a", store.ListFilters{}, 50, 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Title)
}

func TestSemanticSearch_RanksByCosineSimilarity(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
		Schema: "note.v1", Title: "first", Context: map[string]interface{}{"embedding_text": "alpha"},
	}, "")
	require.NoError(t, err)

	results, err := st.SemanticSearch(ctx, "tenant-a", "alpha", nil, 10, store.SearchFilters{}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6, "the fake embedder returns an identical vector for any text")
}

func TestSemanticSearch_ExcludesNoEmbedSchemas(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
		Schema: breadcrumb.SchemaDef, Title: "schema.def.v1",
		Context: map[string]interface{}{"schema_name": "schema.def.v1"},
	}, "")
	require.NoError(t, err)

	results, err := st.SemanticSearch(ctx, "tenant-a", "anything", nil, 10, store.SearchFilters{}, false)
	require.NoError(t, err)
	assert.Empty(t, results, "schema.def.v1 breadcrumbs must never be embedded or returned by semantic search")
}

// TestSemanticSearch_SchemaFilter covers §8 scenario S4: searching with a
// schema_name filter returns only hits of that schema even when another
// schema's breadcrumbs score just as well on the same query text.
func TestSemanticSearch_SchemaFilter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
			Schema: "user.message.v1", Title: "msg",
			Context: map[string]interface{}{"embedding_text": "API key"},
		}, "")
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
			Schema: "tool.response.v1", Title: "resp",
			Context: map[string]interface{}{"embedding_text": "API key"},
		}, "")
		require.NoError(t, err)
	}

	results, err := st.SemanticSearch(ctx, "tenant-a", "API key", nil, 5,
		store.SearchFilters{Schema: "user.message.v1"}, false)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, "user.message.v1", r.Schema)
	}
}

// TestSemanticSearch_TagFilter ensures the tag filter is a set-containment
// predicate (only breadcrumbs carrying the tag come back), not a blend into
// the score the way HybridSearch treats queryTags.
func TestSemanticSearch_TagFilter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
		Schema: "note.v1", Title: "tagged", Tags: []string{"browser-automation"},
		Context: map[string]interface{}{"embedding_text": "alpha"},
	}, "")
	require.NoError(t, err)
	_, _, err = st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
		Schema: "note.v1", Title: "untagged",
		Context: map[string]interface{}{"embedding_text": "alpha"},
	}, "")
	require.NoError(t, err)

	results, err := st.SemanticSearch(ctx, "tenant-a", "alpha", nil, 10,
		store.SearchFilters{Tag: "browser-automation"}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "tagged", results[0].Title)
}

// TestSemanticSearch_QueryVector covers the qvec path: a caller-supplied
// vector is used directly instead of embedding queryText.
func TestSemanticSearch_QueryVector(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
		Schema: "note.v1", Title: "first", Context: map[string]interface{}{"embedding_text": "alpha"},
	}, "")
	require.NoError(t, err)

	queryVec, err := testutils.FakeEmbedder{}.Embed("anything")
	require.NoError(t, err)

	results, err := st.SemanticSearch(ctx, "tenant-a", "", queryVec, 10, store.SearchFilters{}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestHybridSearch_CombinesVectorAndKeywordScores(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, _, err := st.Create(ctx, "tenant-a", "writer-1", store.CreateInput{
		Schema: "note.v1", Title: "x", Tags: []string{"browser-automation"},
		Context: map[string]interface{}{"embedding_text": "automation task"},
	}, "")
	require.NoError(t, err)

	results, err := st.HybridSearch(ctx, "tenant-a", "automation task", []string{"browser-automation"}, 10, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Greater(t, results[0].Score, 0.0)
}
