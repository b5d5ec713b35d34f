// Package testutils provides shared test fixtures for RCRT's packages.
package testutils

import (
	"context"
	"time"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/config"
)

// TestConfig returns a minimal valid configuration for testing: a SQLite
// breadcrumb database and no external vector store or embedder, so a test
// suite can construct a store without any network dependency.
func TestConfig() *config.Config {
	cfg := &config.Config{
		Tenant: "test",
		Database: config.DatabaseConfig{
			Driver:   "sqlite",
			Database: ":memory:",
		},
	}
	cfg.SetDefaults()
	return cfg
}

// TestBreadcrumb returns a minimal valid breadcrumb for testing.
func TestBreadcrumb(tenantID, schema string) *breadcrumb.Breadcrumb {
	now := time.Now()
	return &breadcrumb.Breadcrumb{
		TenantID:  tenantID,
		Schema:    schema,
		Context:   map[string]interface{}{"note": "test breadcrumb"},
		Tags:      []string{"test"},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FakeEmbedder is a deterministic stand-in for a real embedding provider so
// tests never touch the network. Embed ignores its input and always
// returns the same small fixed vector.
type FakeEmbedder struct{}

func (FakeEmbedder) Embed(text string) ([]float32, error) { return []float32{0.1, 0.2, 0.3}, nil }
func (FakeEmbedder) GetDimension() int                     { return 3 }
func (FakeEmbedder) GetModelName() string                  { return "fake" }
func (FakeEmbedder) Close() error                           { return nil }

// TestContext returns a context with a 5s timeout for testing.
func TestContext() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = cancel // the context self-expires; tests don't need to cancel early
	return ctx
}

// TestContextWithTimeout returns a context with a custom timeout for testing.
func TestContextWithTimeout(timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	_ = cancel
	return ctx
}
