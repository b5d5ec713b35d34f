package config

import (
	"fmt"
	"time"
)

// ServerConfig configures the HTTP API surface.
type ServerConfig struct {
	// Host to bind to.
	Host string `yaml:"host,omitempty"`

	// Port to listen on.
	Port int `yaml:"port,omitempty"`

	// ReadTimeout bounds how long reading a request may take.
	ReadTimeout time.Duration `yaml:"read_timeout,omitempty"`

	// WriteTimeout bounds how long writing a response may take. Streaming
	// endpoints (the SSE event subscription) are exempt.
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`

	// IdleTimeout bounds how long a keep-alive connection may idle.
	IdleTimeout time.Duration `yaml:"idle_timeout,omitempty"`

	// RequestDeadline bounds the per-request context deadline applied to
	// every handler except the SSE stream. A store call cut off by it fails
	// with the Infra taxonomy category; the Timeout category is not used
	// for it.
	RequestDeadline time.Duration `yaml:"request_deadline,omitempty"`

	// ShutdownTimeout bounds graceful shutdown's wait for in-flight
	// requests to drain.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`

	// MaxBodyBytes bounds request payload size; a request declaring a
	// larger Content-Length fails admission with the PayloadSize taxonomy
	// category.
	MaxBodyBytes int64 `yaml:"max_body_bytes,omitempty"`

	// TLS configures TLS termination.
	TLS *TLSConfig `yaml:"tls,omitempty"`

	// CORS configures cross-origin access.
	CORS *CORSConfig `yaml:"cors,omitempty"`

	// Auth configures JWT-based authentication.
	Auth *AuthConfig `yaml:"auth,omitempty"`

	// RateLimit configures per-tenant admission rate limiting.
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// TLSConfig configures TLS termination.
type TLSConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`
}

// CORSConfig configures CORS.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins,omitempty"`
	AllowedMethods   []string `yaml:"allowed_methods,omitempty"`
	AllowedHeaders   []string `yaml:"allowed_headers,omitempty"`
	AllowCredentials *bool    `yaml:"allow_credentials,omitempty"`
}

// RateLimitConfig configures the per-tenant admission token bucket.
type RateLimitConfig struct {
	// Enabled turns on rate limiting.
	Enabled bool `yaml:"enabled,omitempty"`

	// RequestsPerSecond is the steady-state per-tenant rate.
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`

	// Burst is the per-tenant burst allowance.
	Burst int `yaml:"burst,omitempty"`
}

// SetDefaults applies default values.
func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.RequestDeadline == 0 {
		c.RequestDeadline = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 15 * time.Second
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 1 << 20 // 1 MiB, generous for a single breadcrumb
	}
	if c.CORS == nil {
		c.CORS = &CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		}
	}
	if c.Auth != nil {
		c.Auth.SetDefaults()
	}
	if c.RateLimit == nil {
		c.RateLimit = &RateLimitConfig{}
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 50
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 100
	}
}

// Validate checks the server configuration for errors.
func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Port)
	}
	if c.Auth != nil {
		if err := c.Auth.Validate(); err != nil {
			return err
		}
	}
	if c.TLS != nil && c.TLS.Enabled != nil && *c.TLS.Enabled {
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls: cert_file and key_file are required when tls is enabled")
		}
	}
	return nil
}
