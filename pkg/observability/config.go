// Package observability wires OpenTelemetry tracing and Prometheus metrics
// for the breadcrumb runtime.
package observability

import (
	"fmt"
	"time"
)

// Config configures the observability system.
type Config struct {
	Tracing TracingConfig `yaml:"tracing,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled        bool    `yaml:"enabled,omitempty"`
	Exporter       string  `yaml:"exporter,omitempty"`
	Endpoint       string  `yaml:"endpoint,omitempty"`
	SamplingRate   float64 `yaml:"sampling_rate,omitempty"`
	ServiceName    string  `yaml:"service_name,omitempty"`
	ServiceVersion string  `yaml:"service_version,omitempty"`
	Insecure       *bool   `yaml:"insecure,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled     bool              `yaml:"enabled,omitempty"`
	Endpoint    string            `yaml:"endpoint,omitempty"`
	Namespace   string            `yaml:"namespace,omitempty"`
	Subsystem   string            `yaml:"subsystem,omitempty"`
	ConstLabels map[string]string `yaml:"const_labels,omitempty"`
}

func (c *Config) SetDefaults() {
	c.Tracing.SetDefaults()
	c.Metrics.SetDefaults()
}

func (c *Config) Validate() error {
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

func (c *TracingConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.SamplingRate == 0 {
		c.SamplingRate = DefaultSamplingRate
	}
	if c.Exporter == "" {
		c.Exporter = "otlp"
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultOTLPEndpoint
	}
	if c.Insecure == nil {
		insecure := true
		c.Insecure = &insecure
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

func (c *TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when tracing is enabled")
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("sampling_rate must be between 0 and 1, got %f", c.SamplingRate)
	}
	validExporters := map[string]bool{"otlp": true, "stdout": true}
	if !validExporters[c.Exporter] {
		return fmt.Errorf("invalid exporter %q (valid: otlp, stdout)", c.Exporter)
	}
	return nil
}

func (c *TracingConfig) IsInsecure() bool {
	if c.Insecure == nil {
		return true
	}
	return *c.Insecure
}

func (c *MetricsConfig) SetDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultMetricsPath
	}
	if c.Namespace == "" {
		c.Namespace = DefaultServiceName
	}
}

func (c *MetricsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when metrics are enabled")
	}
	return nil
}
