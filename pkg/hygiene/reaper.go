// Package hygiene is the Admission/TTL/Hygiene reaper described in the
// core's lifecycle model: a background cycle that sweeps every tenant's
// breadcrumbs, expires the ones whose TTL policy says they're due, and
// emits one system.hygiene.v1 breadcrumb per affected tenant summarizing
// the cycle.
package hygiene

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/config"
	"github.com/rcrtd/rcrt/pkg/observability"
	"github.com/rcrtd/rcrt/pkg/store"
)

// Reaper runs the periodic TTL sweep. Construct with New and drive it with
// Run, or call Cycle directly (e.g. from a test or an admin endpoint) for a
// single on-demand pass.
type Reaper struct {
	store *store.Store
	cfg   config.HygieneConfig

	log     *slog.Logger
	metrics *observability.Metrics

	mu                     sync.Mutex
	cursorTenant, cursorID string
}

// Option configures a Reaper at construction time.
type Option func(*Reaper)

func WithLogger(log *slog.Logger) Option          { return func(r *Reaper) { r.log = log } }
func WithMetrics(m *observability.Metrics) Option { return func(r *Reaper) { r.metrics = m } }

// New builds a Reaper over st. cfg's zero fields are filled with the
// documented defaults (30s interval, batch size 500).
func New(st *store.Store, cfg config.HygieneConfig, opts ...Option) *Reaper {
	cfg.SetDefaults()
	r := &Reaper{
		store: st,
		cfg:   cfg,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drives the reaper's cadence until ctx is cancelled: a cron schedule
// when CycleCron is set, otherwise a fixed-interval ticker. Meant to run in
// its own goroutine for the life of the process.
func (r *Reaper) Run(ctx context.Context) error {
	if r.cfg.CycleCron != "" {
		return r.runCron(ctx)
	}
	return r.runTicker(ctx)
}

func (r *Reaper) runTicker(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.CycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.runCycleLogged(ctx)
		}
	}
}

func (r *Reaper) runCron(ctx context.Context) error {
	sched, err := cron.ParseStandard(r.cfg.CycleCron)
	if err != nil {
		return err
	}
	c := cron.New()
	c.Schedule(sched, cron.FuncJob(func() { r.runCycleLogged(ctx) }))
	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

func (r *Reaper) runCycleLogged(ctx context.Context) {
	start := time.Now()
	stats, err := r.Cycle(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		r.log.Error("hygiene: cycle failed", "error", err)
	}
	r.metrics.RecordHygieneCycle(ctx, outcome, time.Since(start))
	if stats.Expired > 0 {
		r.log.Info("hygiene: cycle complete", "scanned", stats.Scanned, "expired", stats.Expired, "duration", time.Since(start))
	}
}

// Stats aggregates a single Cycle's activity, and per tenant the body
// published as each tenant's system.hygiene.v1 breadcrumb.
type Stats struct {
	Scanned  int
	Expired  int
	ByPolicy map[breadcrumb.TTLType]int
}

type tenantStats struct {
	scanned  int
	expired  int
	byPolicy map[breadcrumb.TTLType]int
}

// Cycle runs one sweep-and-expire pass, bounded by cfg.BatchSize expired
// breadcrumbs, and publishes one system.hygiene.v1 breadcrumb per tenant
// that had activity. It is safe to call concurrently with Run (e.g. from an
// admin-triggered manual cycle), serialized by an internal mutex around
// cursor state.
func (r *Reaper) Cycle(ctx context.Context) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := Stats{ByPolicy: make(map[breadcrumb.TTLType]int)}
	perTenant := make(map[string]*tenantStats)

	const pageSize = 200
	for total.Expired < r.cfg.BatchSize {
		batch, err := r.store.HygieneBatch(ctx, r.cursorTenant, r.cursorID, pageSize)
		if err != nil {
			return total, err
		}
		if len(batch) == 0 {
			// reached the end of the table; wrap the sweep for next cycle
			r.cursorTenant, r.cursorID = "", ""
			break
		}

		for _, b := range batch {
			r.cursorTenant, r.cursorID = b.TenantID, b.ID
			total.Scanned++

			ts, ok := perTenant[b.TenantID]
			if !ok {
				ts = &tenantStats{byPolicy: make(map[breadcrumb.TTLType]int)}
				perTenant[b.TenantID] = ts
			}
			ts.scanned++

			ttlType, ttlConfig := r.store.EffectiveTTL(b)
			if !isExpired(ttlType, ttlConfig, b) {
				continue
			}

			deleted, err := r.store.ExpireIfUnchanged(ctx, b)
			if err != nil {
				r.log.Warn("hygiene: expire failed", "tenant_id", b.TenantID, "breadcrumb_id", b.ID, "error", err)
				continue
			}
			if !deleted {
				continue // lost the race to a concurrent write; leave it for the next cycle
			}

			total.Expired++
			total.ByPolicy[ttlType]++
			ts.expired++
			ts.byPolicy[ttlType]++
			r.metrics.RecordHygieneExpired(ctx, string(ttlType), 1)

			if total.Expired >= r.cfg.BatchSize {
				break
			}
		}

		if len(batch) < pageSize && total.Expired < r.cfg.BatchSize {
			r.cursorTenant, r.cursorID = "", ""
			break
		}
	}

	for tenantID, ts := range perTenant {
		r.publishHygieneReport(ctx, tenantID, ts)
	}

	return total, nil
}

// isExpired evaluates b against its effective TTL policy's delete
// condition.
func isExpired(ttlType breadcrumb.TTLType, cfg *breadcrumb.TTLConfig, b *breadcrumb.Breadcrumb) bool {
	switch ttlType {
	case breadcrumb.TTLNever, "":
		return false
	case breadcrumb.TTLDatetime:
		return cfg != nil && cfg.Datetime != nil && !time.Now().Before(*cfg.Datetime)
	case breadcrumb.TTLDuration:
		return cfg != nil && cfg.Duration != nil && time.Since(b.CreatedAt) >= *cfg.Duration
	case breadcrumb.TTLUsage:
		return cfg != nil && cfg.MaxReads != nil && b.ReadCount >= int64(*cfg.MaxReads)
	case breadcrumb.TTLHybrid:
		byDatetime := cfg != nil && cfg.Datetime != nil && !time.Now().Before(*cfg.Datetime)
		byUsage := cfg != nil && cfg.MaxReads != nil && b.ReadCount >= int64(*cfg.MaxReads)
		return byDatetime || byUsage
	default:
		return false
	}
}

// publishHygieneReport creates tenantID's system.hygiene.v1 breadcrumb for
// this cycle. Best-effort: a publish failure is logged, not propagated,
// since losing an observability record must never fail the reaper.
func (r *Reaper) publishHygieneReport(ctx context.Context, tenantID string, ts *tenantStats) {
	byPolicy := make(map[string]int, len(ts.byPolicy))
	for k, v := range ts.byPolicy {
		byPolicy[string(k)] = v
	}

	_, _, err := r.store.Create(ctx, tenantID, "hygiene", store.CreateInput{
		Schema: breadcrumb.SchemaHygiene,
		Title:  "hygiene cycle report",
		Tags:   []string{"system:hygiene"},
		Context: map[string]interface{}{
			"scanned":    ts.scanned,
			"expired":    ts.expired,
			"by_policy":  byPolicy,
			"cycle_time": time.Now().UTC().Format(time.RFC3339),
		},
		TTLType: breadcrumb.TTLDuration,
		TTLConfig: &breadcrumb.TTLConfig{
			Duration: durationPtr(6 * time.Hour),
		},
	}, "")
	if err != nil {
		r.log.Warn("hygiene: failed to publish system.hygiene.v1", "tenant_id", tenantID, "error", err)
	}
}

func durationPtr(d time.Duration) *time.Duration { return &d }
