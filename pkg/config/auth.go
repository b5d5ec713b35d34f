package config

import (
	"fmt"
	"time"
)

// AuthConfig configures JWT-based authentication for the HTTP API.
//
// Every request (other than /healthz, /readyz, /schemas, the metrics
// endpoint, and the dev-only /auth/token shortcut) carries a bearer token
// whose claims name the caller's tenant_id, agent_id, and roles.
//
// Example:
//
//	server:
//	  auth:
//	    enabled: true
//	    jwks_url: "https://auth.example.com/.well-known/jwks.json"
//	    issuer: "https://auth.example.com"
//	    audience: "rcrt-api"
type AuthConfig struct {
	// Enabled controls whether authentication is enforced.
	// Default: false (useful for local development only).
	Enabled bool `yaml:"enabled,omitempty"`

	// JWKSURL is the URL to fetch the JSON Web Key Set from, refreshed on
	// RefreshInterval. Required when Enabled and SigningKey is empty.
	JWKSURL string `yaml:"jwks_url,omitempty"`

	// SigningKey is a static PEM-encoded key used instead of a JWKS
	// endpoint, and to mint tokens for the /auth/token development
	// shortcut. Mutually exclusive with JWKSURL in production but both
	// may be set so /auth/token can mint tokens the JWKS also verifies.
	SigningKey string `yaml:"signing_key,omitempty"`

	// Issuer is the expected token issuer (iss claim).
	Issuer string `yaml:"issuer,omitempty"`

	// Audience is the expected token audience (aud claim).
	Audience string `yaml:"audience,omitempty"`

	// RefreshInterval is how often the JWKS cache refreshes.
	// Default: 15m.
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"`

	// ExcludedPaths bypass authentication entirely.
	// Default: ["/healthz", "/readyz"].
	ExcludedPaths []string `yaml:"excluded_paths,omitempty"`

	// DevTokenEndpoint enables POST /auth/token, which mints a short-lived
	// token for local testing. Never enable in production.
	DevTokenEndpoint bool `yaml:"dev_token_endpoint,omitempty"`
}

// SetDefaults applies default values to AuthConfig.
func (c *AuthConfig) SetDefaults() {
	if c.RefreshInterval == 0 {
		c.RefreshInterval = 15 * time.Minute
	}
	if len(c.ExcludedPaths) == 0 {
		c.ExcludedPaths = []string{"/healthz", "/readyz"}
	}
}

// Validate checks the AuthConfig for errors.
func (c *AuthConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.JWKSURL == "" && c.SigningKey == "" {
		return fmt.Errorf("auth: one of jwks_url or signing_key is required when auth is enabled")
	}
	if c.Issuer == "" {
		return fmt.Errorf("auth: issuer is required when auth is enabled")
	}
	if c.Audience == "" {
		return fmt.Errorf("auth: audience is required when auth is enabled")
	}
	if c.RefreshInterval < time.Minute {
		return fmt.Errorf("auth: refresh_interval must be at least 1 minute")
	}
	if c.DevTokenEndpoint && c.SigningKey == "" {
		return fmt.Errorf("auth: dev_token_endpoint requires a signing_key to mint tokens with")
	}
	return nil
}

// IsEnabled reports whether authentication is configured and active.
func (c *AuthConfig) IsEnabled() bool {
	return c != nil && c.Enabled
}
