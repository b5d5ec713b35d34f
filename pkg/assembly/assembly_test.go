package assembly_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcrtd/rcrt/pkg/assembly"
	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/config"
	"github.com/rcrtd/rcrt/pkg/eventbus"
	"github.com/rcrtd/rcrt/pkg/graph"
	"github.com/rcrtd/rcrt/pkg/store"
	"github.com/rcrtd/rcrt/pkg/testutils"
	"github.com/rcrtd/rcrt/pkg/transform"
)

// newTestRig wires a Store, an edge graph, and an event bus the way cmd/rcrtd
// does, but against an in-memory sqlite database so the test never touches
// the network or disk.
func newTestRig(t *testing.T) (*store.Store, *eventbus.Bus) {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.DatabaseConfig{Driver: "sqlite3", Database: ":memory:"}
	ets := transform.New(testutils.FakeEmbedder{}, nil)
	edges := graph.NewStore()
	eb := eventbus.New()
	st := store.New(db, cfg, ets, store.WithEventBus(eb), store.WithEdgeStore(edges))
	require.NoError(t, st.Migrate(context.Background()))
	return st, eb
}

// TestAssembly_BasicFanout grounds scenario S1: a "chat" consumer with a
// trigger selector on user.message.v1 and an always-source pointing at the
// latest tool.catalog.v1 breadcrumb. Publishing a matching message must
// produce exactly one agent.context.v1 breadcrumb tagged consumer:chat with
// a TRIGGER section.
func TestAssembly_BasicFanout(t *testing.T) {
	st, eb := newTestRig(t)
	ctx := context.Background()

	_, _, err := st.Create(ctx, "tenant-a", "system", store.CreateInput{
		Schema: breadcrumb.SchemaConsumer,
		Title:  "chat",
		Context: map[string]interface{}{
			"consumer_id": "chat",
			"context_trigger": map[string]interface{}{
				"schema_name": "user.message.v1",
			},
			"context_sources": map[string]interface{}{
				"always": []interface{}{
					map[string]interface{}{"schema_name": "tool.catalog.v1", "method": "latest"},
				},
			},
		},
	}, "")
	require.NoError(t, err)

	_, _, err = st.Create(ctx, "tenant-a", "system", store.CreateInput{
		Schema:  "tool.catalog.v1",
		Title:   "catalog",
		Context: map[string]interface{}{"tools": []interface{}{"browser", "shell"}},
	}, "")
	require.NoError(t, err)

	svc, err := assembly.New(st, transform.New(testutils.FakeEmbedder{}, nil), graph.NewStore(), eb, config.AssemblyConfig{})
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go svc.Run(runCtx)

	_, _, err = st.Create(ctx, "tenant-a", "user-1", store.CreateInput{
		Schema:  "user.message.v1",
		Title:   "hi",
		Tags:    []string{"session:abc"},
		Context: map[string]interface{}{"content": "hello there"},
	}, "")
	require.NoError(t, err)

	var results []breadcrumb.Summary
	require.Eventually(t, func() bool {
		results, err = st.List(ctx, "tenant-a", store.ListFilters{Schema: breadcrumb.SchemaContext}, 10, 0)
		require.NoError(t, err)
		return len(results) == 1
	}, 5*time.Second, 20*time.Millisecond, "expected exactly one agent.context.v1 breadcrumb to be published")

	assert.Contains(t, results[0].Tags, "consumer:chat")
	assert.Contains(t, results[0].Tags, "session:abc")

	full, err := st.GetInternal(ctx, "tenant-a", results[0].ID)
	require.NoError(t, err)
	formatted, _ := full.Context["formatted_context"].(string)
	assert.Contains(t, formatted, "=== TRIGGER ===")
}

// TestAssembly_NonMatchingEventProducesNoContext grounds the trigger
// selector as a gate: an event on a schema the consumer never declared as
// its trigger must not fan out at all.
func TestAssembly_NonMatchingEventProducesNoContext(t *testing.T) {
	st, eb := newTestRig(t)
	ctx := context.Background()

	_, _, err := st.Create(ctx, "tenant-a", "system", store.CreateInput{
		Schema: breadcrumb.SchemaConsumer,
		Title:  "chat",
		Context: map[string]interface{}{
			"consumer_id":     "chat",
			"context_trigger": map[string]interface{}{"schema_name": "user.message.v1"},
			"context_sources": map[string]interface{}{},
		},
	}, "")
	require.NoError(t, err)

	svc, err := assembly.New(st, transform.New(testutils.FakeEmbedder{}, nil), graph.NewStore(), eb, config.AssemblyConfig{})
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go svc.Run(runCtx)

	_, _, err = st.Create(ctx, "tenant-a", "tool-1", store.CreateInput{Schema: "tool.response.v1", Title: "x"}, "")
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	results, err := st.List(ctx, "tenant-a", store.ListFilters{Schema: breadcrumb.SchemaContext}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}
