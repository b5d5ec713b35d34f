// Package store is the Breadcrumb Store (BS): the durable, transactional,
// tenant-isolated core of RCRT. It owns CRUD, optimistic concurrency,
// atomic partial mutations, the raw-vs-view read distinction, and tagged
// and semantic search, delegating embedding/keyword derivation to
// pkg/transform and publishing an event for every mutation through
// pkg/eventbus.
//
// Every exported method that reads or writes breadcrumbs on behalf of a
// caller takes tenantID as an explicit, non-optional parameter and its SQL
// predicates on it. The one read that spans tenants is HygieneBatch, which
// serves the hygiene reaper's sweep.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/config"
	"github.com/rcrtd/rcrt/pkg/eventbus"
	"github.com/rcrtd/rcrt/pkg/graph"
	"github.com/rcrtd/rcrt/pkg/observability"
	"github.com/rcrtd/rcrt/pkg/transform"
	"github.com/rcrtd/rcrt/pkg/vectorstore"
)

// Store is the breadcrumb store. Construct with New and call Migrate once
// before serving traffic.
type Store struct {
	db      *sql.DB
	dialect string

	ets   *transform.Service
	eb    *eventbus.Bus
	edges *graph.Store
	vs    vectorstore.VectorStore

	idemWindow time.Duration
	log        *slog.Logger
	metrics    *observability.Metrics

	mu          sync.RWMutex
	schemaDefs  map[string]breadcrumb.SchemaDefinition
	blacklist   map[string]bool
	sqliteWrite sync.Mutex // serializes writes on the sqlite dialect, which has no row-level locking
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithVectorStore attaches an external ANN index that semantic search
// delegates to when set. Without one, semantic search falls back to an
// in-process linear scan with cosine similarity computed in Go; hybrid
// search always uses that scan.
func WithVectorStore(vs vectorstore.VectorStore) Option {
	return func(s *Store) { s.vs = vs }
}

// WithEventBus attaches the bus mutations are published to. Without one,
// Publish is a no-op (useful for isolated store-layer tests).
func WithEventBus(eb *eventbus.Bus) Option { return func(s *Store) { s.eb = eb } }

// WithEdgeStore attaches the in-memory edge graph that recordEdges
// populates on every create and update and the CAE's Pathfinder reads.
func WithEdgeStore(g *graph.Store) Option { return func(s *Store) { s.edges = g } }

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option { return func(s *Store) { s.log = log } }

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *observability.Metrics) Option { return func(s *Store) { s.metrics = m } }

// WithIdempotencyWindow overrides the retention window for idempotency
// keys. Default 24h.
func WithIdempotencyWindow(d time.Duration) Option {
	return func(s *Store) { s.idemWindow = d }
}

// New opens db (already sql.Open'd against cfg's driver) and wraps it as a
// Store. ets must be non-nil; it is the only path embeddings and keywords
// are derived through.
func New(db *sql.DB, cfg *config.DatabaseConfig, ets *transform.Service, opts ...Option) *Store {
	s := &Store{
		db:         db,
		dialect:    cfg.Dialect(),
		ets:        ets,
		idemWindow: 24 * time.Hour,
		log:        slog.Default(),
		schemaDefs: make(map[string]breadcrumb.SchemaDefinition),
		blacklist:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the breadcrumbs, edges, and idempotency_keys tables if
// they don't already exist. Idempotent; safe to call on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.migrationStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) migrationStatements() []string {
	textType := "TEXT"
	timestampType := "TIMESTAMP"
	if s.dialect == "mysql" {
		// MySQL's TEXT columns can't carry a PRIMARY KEY / index without a
		// prefix length; breadcrumb/edge ids are ulids (26 chars) so VARCHAR
		// is the natural column type for key fields.
		textType = "TEXT"
		timestampType = "DATETIME"
	}
	idType := "VARCHAR(64)"

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS breadcrumbs (
			tenant_id %s NOT NULL,
			id %s NOT NULL,
			schema_name VARCHAR(255) NOT NULL,
			title %s NOT NULL,
			tags %s NOT NULL,
			context %s NOT NULL,
			version BIGINT NOT NULL,
			created_at %s NOT NULL,
			updated_at %s NOT NULL,
			embedding %s,
			entity_keywords %s NOT NULL,
			ttl_type VARCHAR(32),
			ttl_config %s,
			read_count BIGINT NOT NULL DEFAULT 0,
			acl %s,
			llm_hints %s,
			PRIMARY KEY (tenant_id, id)
		)`, idType, idType, textType, textType, textType, timestampType, timestampType, textType, textType, textType, textType, textType),

		`CREATE INDEX IF NOT EXISTS idx_breadcrumbs_tenant_schema_updated ON breadcrumbs (tenant_id, schema_name, updated_at)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS edges (
			tenant_id %s NOT NULL,
			src_id %s NOT NULL,
			dst_id %s NOT NULL,
			kind VARCHAR(32) NOT NULL,
			weight DOUBLE PRECISION NOT NULL,
			created_at %s NOT NULL,
			PRIMARY KEY (tenant_id, src_id, dst_id, kind)
		)`, idType, idType, idType, timestampType),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS idempotency_keys (
			tenant_id %s NOT NULL,
			idem_key VARCHAR(255) NOT NULL,
			breadcrumb_id %s NOT NULL,
			version BIGINT NOT NULL,
			created_at %s NOT NULL,
			PRIMARY KEY (tenant_id, idem_key)
		)`, idType, idType, timestampType),
	}
}

// Ping checks the underlying database connection is reachable, for
// /readyz.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// placeholder returns the dialect's bind-parameter syntax for the n-th
// (1-indexed) argument of a query.
func (s *Store) placeholder(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// refreshSchemaCache updates the in-process schema-default and blacklist
// caches from a just-committed schema.def.v1 or context.blacklist.v1
// breadcrumb. Called synchronously on the write path (not via the event
// bus) so the very next read sees the new policy. It is the only thing
// that updates these caches; other process replicas are not notified.
func (s *Store) refreshSchemaCache(b *breadcrumb.Breadcrumb) {
	switch b.Schema {
	case breadcrumb.SchemaDef:
		def, err := breadcrumb.SchemaDefinitionFromContext(b.Context)
		if err != nil {
			s.log.Warn("store: malformed schema.def.v1, skipping cache update", "breadcrumb_id", b.ID, "error", err)
			return
		}
		if def.SchemaName == "" {
			def.SchemaName = b.Title
		}
		s.mu.Lock()
		s.schemaDefs[def.SchemaName] = def
		s.mu.Unlock()
		if s.ets != nil {
			s.ets.SetSchemaDefault(def.SchemaName, def.DefaultLLMHints)
		}
	case breadcrumb.SchemaBlacklist:
		entry, err := breadcrumb.BlacklistEntryFromContext(b.Context)
		if err != nil {
			s.log.Warn("store: malformed context.blacklist.v1, skipping cache update", "breadcrumb_id", b.ID, "error", err)
			return
		}
		s.mu.Lock()
		for _, name := range entry.SchemaNames {
			s.blacklist[name] = true
		}
		s.mu.Unlock()
	}
}

// schemaDefault returns the cached SchemaDefinition for schemaName, if any.
func (s *Store) schemaDefault(schemaName string) (breadcrumb.SchemaDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.schemaDefs[schemaName]
	return def, ok
}

// isBlacklisted reports whether schemaName is in the no-embed set, either
// by system default or via a context.blacklist.v1 entry.
func (s *Store) isBlacklisted(schemaName string) bool {
	if breadcrumb.NoEmbedSchemas[schemaName] {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blacklist[schemaName]
}

// IsBlacklisted is the exported form of isBlacklisted, for callers outside
// this package (the CAE's semantic-seed filtering) that need to honor the
// same system-default-plus-runtime-blacklist.v1 policy this package
// enforces on the write path.
func (s *Store) IsBlacklisted(schemaName string) bool {
	return s.isBlacklisted(schemaName)
}

// blacklistSnapshot returns a copy of the runtime blacklist, for callers
// (the CAE) that need a point-in-time set rather than a per-schema check.
func (s *Store) blacklistSnapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.blacklist))
	for k := range s.blacklist {
		out[k] = true
	}
	return out
}

// publish emits evt on the event bus, if one is attached.
func (s *Store) publish(ctx context.Context, evt breadcrumb.Event) {
	if s.eb == nil {
		return
	}
	s.eb.Publish(ctx, evt)
}

// recordEdges feeds b's inferred edges to the attached edge store, if any.
func (s *Store) recordEdges(tenantID string, b *breadcrumb.Breadcrumb) {
	if s.edges == nil {
		return
	}
	for _, e := range graph.Infer(b) {
		s.edges.AddEdge(tenantID, e)
	}
}
