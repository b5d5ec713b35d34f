// Package assembly is the Context Assembly Engine (CAE): on every
// breadcrumb event, it finds the consumers whose trigger selector matches,
// seeds a semantic+graph search, walks the edge graph under a token budget
// via the Pathfinder, applies per-schema view transforms, and publishes one
// agent.context.v1 breadcrumb per matching consumer.
package assembly

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/config"
	"github.com/rcrtd/rcrt/pkg/eventbus"
	"github.com/rcrtd/rcrt/pkg/graph"
	"github.com/rcrtd/rcrt/pkg/observability"
	"github.com/rcrtd/rcrt/pkg/store"
	"github.com/rcrtd/rcrt/pkg/transform"
	"github.com/rcrtd/rcrt/pkg/utils"
)

// invalidatingSchemas are the schemas whose events drop the consumer-config
// cache slice affected, per §4.4.3.
var invalidatingSchemas = map[string]bool{
	breadcrumb.SchemaConsumer:   true,
	breadcrumb.SchemaDef:        true,
	breadcrumb.SchemaBlacklist:  true,
	breadcrumb.SchemaToolConfig: true,
}

// Service is the CAE. Construct with New and drive it with Run.
type Service struct {
	store *store.Store
	ets   *transform.Service
	edges *graph.Store
	eb    *eventbus.Bus

	cfg     config.AssemblyConfig
	tokens  *utils.TokenCounter
	log     *slog.Logger
	metrics *observability.Metrics

	consumers *consumerCache
	sem       *semaphore.Weighted
}

// Option configures a Service at construction time.
type Option func(*Service)

func WithLogger(log *slog.Logger) Option           { return func(s *Service) { s.log = log } }
func WithMetrics(m *observability.Metrics) Option { return func(s *Service) { s.metrics = m } }

// New builds a CAE over st (for reads/publishes), ets (for pointer
// extraction and view rendering), edges (the in-memory edge graph), and eb
// (the subscription source). cfg's zero fields are filled with the spec's
// documented defaults.
func New(st *store.Store, ets *transform.Service, edges *graph.Store, eb *eventbus.Bus, cfg config.AssemblyConfig, opts ...Option) (*Service, error) {
	cfg.SetDefaults()
	counter, err := utils.NewTokenCounter("gpt-4o")
	if err != nil {
		return nil, fmt.Errorf("assembly: build token counter: %w", err)
	}
	s := &Service{
		store:     st,
		ets:       ets,
		edges:     edges,
		eb:        eb,
		cfg:       cfg,
		tokens:    counter,
		log:       slog.Default(),
		consumers: newConsumerCache(),
		sem:       semaphore.NewWeighted(int64(cfg.WorkerConcurrency)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run subscribes to every tenant's events and processes them until ctx is
// cancelled. It is meant to be run in its own goroutine for the life of the
// process.
func (s *Service) Run(ctx context.Context) error {
	sub := s.eb.Subscribe("", breadcrumb.Selector{}, eventbus.KindDurable)
	defer s.eb.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-sub.Events():
			if !ok {
				return nil
			}
			s.handleEvent(ctx, evt)
		}
	}
}

// handleEvent runs the invalidation step then dispatches matching consumer
// assemblies, bounding in-flight assemblies to cfg.WorkerConcurrency.
func (s *Service) handleEvent(ctx context.Context, evt breadcrumb.Event) {
	if invalidatingSchemas[evt.Schema] {
		s.consumers.Invalidate(evt.TenantID)
	}
	if isLoopback(evt) {
		return
	}

	configs, err := s.consumers.Consumers(ctx, s.store, evt.TenantID)
	if err != nil {
		s.log.Warn("assembly: failed to load consumer configs", "tenant_id", evt.TenantID, "error", err)
		return
	}

	var matched []breadcrumb.ConsumerConfig
	for _, cfg := range configs {
		if cfg.ContextTrigger.Matches(evt) {
			matched = append(matched, cfg)
		}
	}
	if len(matched) == 0 {
		return
	}

	trigger, err := s.store.GetInternal(ctx, evt.TenantID, evt.ID)
	if err != nil {
		s.log.Warn("assembly: failed to load trigger breadcrumb", "tenant_id", evt.TenantID, "breadcrumb_id", evt.ID, "error", err)
		return
	}
	if breadcrumb.NoEmbedSchemas[trigger.Schema] {
		return // system/blacklisted schemas never trigger an assembly
	}

	for _, cfg := range matched {
		cfg := cfg
		go s.runAssembly(ctx, evt.TenantID, trigger, evt.Version, cfg)
	}
}

// isLoopback implements the loop-prevention rule: a breadcrumb this engine
// itself produced never re-triggers an assembly.
func isLoopback(evt breadcrumb.Event) bool {
	return evt.Schema == breadcrumb.SchemaContext
}

// runAssembly acquires a worker slot, enforces the per-assembly deadline,
// and runs one consumer's assembly to completion, emitting an
// agent.error.v1 breadcrumb on any failure.
func (s *Service) runAssembly(ctx context.Context, tenantID string, trigger *breadcrumb.Breadcrumb, triggerVersion int64, cfg breadcrumb.ConsumerConfig) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer s.sem.Release(1)

	deadlineCtx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()

	start := time.Now()
	err := s.assemble(deadlineCtx, tenantID, trigger, triggerVersion, cfg)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		cause := causeOf(err)
		if deadlineCtx.Err() == context.DeadlineExceeded {
			cause = "Timeout"
		}
		s.metrics.RecordAssemblyError(ctx, cfg.ConsumerID, cause)
		s.emitError(ctx, tenantID, trigger, cfg, cause, err)
		s.log.Warn("assembly: run failed", "consumer_id", cfg.ConsumerID, "tenant_id", tenantID, "breadcrumb_id", trigger.ID, "cause", cause, "error", err)
	}
	s.metrics.RecordAssembly(ctx, cfg.ConsumerID, outcome, time.Since(start), 0, 0)
}

// emitError publishes an agent.error.v1 breadcrumb per §4.4's failure
// semantics. Uses the outer (non-deadline) ctx so a timed-out assembly can
// still report itself.
func (s *Service) emitError(ctx context.Context, tenantID string, trigger *breadcrumb.Breadcrumb, cfg breadcrumb.ConsumerConfig, cause string, causeErr error) {
	_, _, err := s.store.Create(ctx, tenantID, "cae", store.CreateInput{
		Schema: breadcrumb.SchemaError,
		Title:  "assembly failed for " + cfg.ConsumerID,
		Tags:   []string{"agent:error", "consumer:" + cfg.ConsumerID},
		Context: map[string]interface{}{
			"consumer_id":      cfg.ConsumerID,
			"trigger_event_id": trigger.ID,
			"cause":            cause,
			"message":          causeErr.Error(),
		},
		TTLType: breadcrumb.TTLDuration,
		TTLConfig: &breadcrumb.TTLConfig{
			Duration: durationPtr(24 * time.Hour),
		},
	}, "")
	if err != nil {
		s.log.Error("assembly: failed to publish agent.error.v1", "consumer_id", cfg.ConsumerID, "tenant_id", tenantID, "error", err)
	}
}

func durationPtr(d time.Duration) *time.Duration { return &d }
