package hygiene

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/config"
	"github.com/rcrtd/rcrt/pkg/store"
	"github.com/rcrtd/rcrt/pkg/transform"
)

// fakeEmbedder is a deterministic stand-in for a real embedding provider so
// the hygiene tests never touch the network.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(text string) ([]float32, error) { return []float32{0.1, 0.2, 0.3}, nil }
func (fakeEmbedder) GetDimension() int                     { return 3 }
func (fakeEmbedder) GetModelName() string                  { return "fake" }
func (fakeEmbedder) Close() error                           { return nil }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.DatabaseConfig{Driver: "sqlite3", Database: ":memory:"}
	ets := transform.New(fakeEmbedder{}, nil)
	st := store.New(db, cfg, ets)
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func createBreadcrumb(t *testing.T, st *store.Store, tenantID, schema string, ttlType breadcrumb.TTLType, ttlCfg *breadcrumb.TTLConfig) string {
	t.Helper()
	id, _, err := st.Create(context.Background(), tenantID, "test-writer", store.CreateInput{
		Schema:    schema,
		Title:     "t",
		TTLType:   ttlType,
		TTLConfig: ttlCfg,
	}, "")
	require.NoError(t, err)
	return id
}

func TestReaper_Cycle_NeverPolicySurvives(t *testing.T) {
	st := newTestStore(t)
	createBreadcrumb(t, st, "tenant-a", "note.v1", breadcrumb.TTLNever, nil)

	r := New(st, config.HygieneConfig{})
	stats, err := r.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scanned)
	assert.Equal(t, 0, stats.Expired)
}

func TestReaper_Cycle_DurationPolicyExpires(t *testing.T) {
	st := newTestStore(t)
	expired := time.Duration(0) // any elapsed time satisfies a zero duration
	id := createBreadcrumb(t, st, "tenant-a", "note.v1", breadcrumb.TTLDuration, &breadcrumb.TTLConfig{Duration: &expired})

	r := New(st, config.HygieneConfig{})
	stats, err := r.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Expired)
	assert.Equal(t, 1, stats.ByPolicy[breadcrumb.TTLDuration])

	_, err = st.GetInternal(context.Background(), "tenant-a", id)
	assert.ErrorIs(t, err, breadcrumb.ErrNotFound)
}

func TestReaper_Cycle_UsagePolicyExpiresOnReadCount(t *testing.T) {
	st := newTestStore(t)
	max := 2
	id := createBreadcrumb(t, st, "tenant-a", "note.v1", breadcrumb.TTLUsage, &breadcrumb.TTLConfig{MaxReads: &max})

	ctx := context.Background()
	_, err := st.GetView(ctx, "tenant-a", id)
	require.NoError(t, err)
	_, err = st.GetView(ctx, "tenant-a", id)
	require.NoError(t, err)

	r := New(st, config.HygieneConfig{})
	stats, err := r.Cycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Expired)
}

func TestReaper_Cycle_PublishesHygieneReportPerTenant(t *testing.T) {
	st := newTestStore(t)
	expired := time.Duration(0)
	createBreadcrumb(t, st, "tenant-a", "note.v1", breadcrumb.TTLDuration, &breadcrumb.TTLConfig{Duration: &expired})
	createBreadcrumb(t, st, "tenant-b", "note.v1", breadcrumb.TTLDuration, &breadcrumb.TTLConfig{Duration: &expired})

	r := New(st, config.HygieneConfig{})
	_, err := r.Cycle(context.Background())
	require.NoError(t, err)

	reportsA, err := st.List(context.Background(), "tenant-a", store.ListFilters{Schema: breadcrumb.SchemaHygiene}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, reportsA, 1)

	reportsB, err := st.List(context.Background(), "tenant-b", store.ListFilters{Schema: breadcrumb.SchemaHygiene}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, reportsB, 1)
}

func TestReaper_Cycle_RespectsBatchSize(t *testing.T) {
	st := newTestStore(t)
	zero := time.Duration(0)
	for i := 0; i < 5; i++ {
		createBreadcrumb(t, st, "tenant-a", "note.v1", breadcrumb.TTLDuration, &breadcrumb.TTLConfig{Duration: &zero})
	}

	r := New(st, config.HygieneConfig{BatchSize: 2})
	stats, err := r.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Expired)

	// second cycle picks up from the cursor and reaps the rest
	stats2, err := r.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats2.Expired)
}
