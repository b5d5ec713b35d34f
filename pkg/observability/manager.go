package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// Manager owns the lifecycle of the tracer and metrics registry and hands
// out nil-safe accessors so callers never need to branch on whether
// observability is enabled.
type Manager struct {
	config  *Config
	tracer  *Tracer
	metrics *Metrics
}

// NewManager creates a new observability Manager from configuration.
func NewManager(ctx context.Context, cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	m := &Manager{config: cfg}

	tracer, err := NewTracer(ctx, &cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	m.tracer = tracer
	if cfg.Tracing.Enabled {
		slog.Info("observability: tracing initialized",
			"exporter", cfg.Tracing.Exporter,
			"endpoint", cfg.Tracing.Endpoint,
			"sampling_rate", cfg.Tracing.SamplingRate,
		)
	}

	if cfg.Metrics.Enabled {
		metrics, err := NewMetrics(&cfg.Metrics)
		if err != nil {
			_ = m.tracer.Shutdown(ctx)
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		m.metrics = metrics
		slog.Info("observability: metrics initialized",
			"endpoint", cfg.Metrics.Endpoint,
			"namespace", cfg.Metrics.Namespace,
		)
	}

	return m, nil
}

// Tracer returns the tracer instance; nil only when m is nil.
func (m *Manager) Tracer() *Tracer {
	if m == nil {
		return nil
	}
	return m.tracer
}

// Metrics returns the metrics instance, or nil if metrics are disabled.
// Every Metrics method tolerates a nil receiver.
func (m *Manager) Metrics() *Metrics {
	if m == nil {
		return nil
	}
	return m.metrics
}

// MetricsHandler returns an HTTP handler for the metrics endpoint.
func (m *Manager) MetricsHandler() http.Handler {
	if m == nil || m.metrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics not enabled"))
		})
	}
	return m.metrics.Handler()
}

// MetricsEndpoint returns the configured metrics endpoint path.
func (m *Manager) MetricsEndpoint() string {
	if m == nil || m.config == nil {
		return DefaultMetricsPath
	}
	return m.config.Metrics.Endpoint
}

func (m *Manager) TracingEnabled() bool {
	return m != nil && m.config != nil && m.config.Tracing.Enabled
}

func (m *Manager) MetricsEnabled() bool {
	return m != nil && m.metrics != nil
}

// Shutdown gracefully shuts down all observability components.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	if err := m.tracer.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer shutdown: %w", err)
	}
	return nil
}

// NewFromConfig creates a Manager with defaults from a configuration
// pointer that may be nil.
func NewFromConfig(ctx context.Context, cfg *Config) (*Manager, error) {
	return NewManager(ctx, cfg)
}
