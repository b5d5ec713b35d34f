package assembly

import (
	"context"
	"sync"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/store"
)

// consumerCache holds the per-tenant set of agent.def.v1 consumer configs,
// loaded lazily on first use and dropped wholesale on the next event for
// that tenant whose schema is in invalidatingSchemas — simple over precise,
// since consumer counts per tenant are expected to stay small.
type consumerCache struct {
	mu      sync.RWMutex
	tenants map[string][]breadcrumb.ConsumerConfig
}

func newConsumerCache() *consumerCache {
	return &consumerCache{tenants: make(map[string][]breadcrumb.ConsumerConfig)}
}

// Consumers returns tenantID's consumer configs, loading them from st on a
// cache miss.
func (c *consumerCache) Consumers(ctx context.Context, st *store.Store, tenantID string) ([]breadcrumb.ConsumerConfig, error) {
	c.mu.RLock()
	cached, ok := c.tenants[tenantID]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	summaries, err := st.List(ctx, tenantID, store.ListFilters{Schema: breadcrumb.SchemaConsumer}, 500, 0)
	if err != nil {
		return nil, err
	}
	configs := make([]breadcrumb.ConsumerConfig, 0, len(summaries))
	for _, s := range summaries {
		cfg, err := breadcrumb.ConsumerConfigFromContext(s.Context)
		if err != nil {
			continue
		}
		if cfg.ConsumerID == "" {
			cfg.ConsumerID = s.ID
		}
		configs = append(configs, cfg)
	}

	c.mu.Lock()
	c.tenants[tenantID] = configs
	c.mu.Unlock()
	return configs, nil
}

// Invalidate drops tenantID's cached consumer set.
func (c *consumerCache) Invalidate(tenantID string) {
	c.mu.Lock()
	delete(c.tenants, tenantID)
	c.mu.Unlock()
}
