// Package config loads and validates RCRT's deployment configuration:
// breadcrumb store persistence, vector/embedder backends, auth, the HTTP
// server, the Context Assembly Engine's budgets, and the hygiene reaper's
// cadence.
//
// Config is YAML, loaded with koanf from a file and optionally overlaid
// from a consul key for multi-instance deployments. Every section follows
// the SetDefaults()/Validate() convention: load, apply defaults, then
// validate before any component is constructed from it.
package config

import (
	"fmt"

	"github.com/rcrtd/rcrt/pkg/observability"
)

// Config is the root configuration structure.
type Config struct {
	// Tenant is this deployment's operator-facing name. serve also uses it
	// as the tenant id of the system.startup.v1 breadcrumb it records.
	Tenant string `yaml:"tenant,omitempty"`

	// Database configures the breadcrumb store's backing SQL database.
	Database DatabaseConfig `yaml:"database"`

	// VectorStores defines named external vector index backends the
	// breadcrumb store's semantic search can delegate to.
	VectorStores map[string]*VectorStoreConfig `yaml:"vector_stores,omitempty"`

	// Embedders defines named embedding backends for the Embedding &
	// Transform Service.
	Embedders map[string]*EmbedderProviderConfig `yaml:"embedders,omitempty"`

	// DefaultVectorStore names the VectorStores entry the breadcrumb store
	// uses for every tenant's semantic search.
	DefaultVectorStore string `yaml:"default_vector_store,omitempty"`

	// DefaultEmbedder names the Embedders entry new tenants use.
	DefaultEmbedder string `yaml:"default_embedder,omitempty"`

	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server,omitempty"`

	// Assembly configures the Context Assembly Engine's Pathfinder.
	Assembly AssemblyConfig `yaml:"assembly,omitempty"`

	// Hygiene configures the TTL reaper.
	Hygiene HygieneConfig `yaml:"hygiene,omitempty"`

	// Logger configures structured logging.
	Logger LoggerConfig `yaml:"logger,omitempty"`

	// Observability configures tracing and metrics.
	Observability observability.Config `yaml:"observability,omitempty"`
}

// SetDefaults applies default values to every section.
func (c *Config) SetDefaults() {
	if c.VectorStores == nil {
		c.VectorStores = make(map[string]*VectorStoreConfig)
	}
	if c.Embedders == nil {
		c.Embedders = make(map[string]*EmbedderProviderConfig)
	}

	c.Database.SetDefaults()
	for _, vs := range c.VectorStores {
		vs.SetDefaults()
	}
	for _, eb := range c.Embedders {
		eb.SetDefaults()
	}
	c.Server.SetDefaults()
	c.Assembly.SetDefaults()
	c.Hygiene.SetDefaults()
	c.Logger.SetDefaults()
	c.Observability.SetDefaults()

	if c.DefaultVectorStore == "" {
		for name := range c.VectorStores {
			c.DefaultVectorStore = name
			break
		}
	}
	if c.DefaultEmbedder == "" {
		for name := range c.Embedders {
			c.DefaultEmbedder = name
			break
		}
	}
}

// Validate checks the full configuration for errors, section by section,
// and returns the first error found.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	for name, vs := range c.VectorStores {
		if err := vs.Validate(); err != nil {
			return fmt.Errorf("vector_stores.%s: %w", name, err)
		}
	}
	for name, eb := range c.Embedders {
		if err := eb.Validate(); err != nil {
			return fmt.Errorf("embedders.%s: %w", name, err)
		}
	}
	if c.DefaultVectorStore != "" {
		if _, ok := c.VectorStores[c.DefaultVectorStore]; !ok {
			return fmt.Errorf("default_vector_store %q is not defined in vector_stores", c.DefaultVectorStore)
		}
	}
	if c.DefaultEmbedder != "" {
		if _, ok := c.Embedders[c.DefaultEmbedder]; !ok {
			return fmt.Errorf("default_embedder %q is not defined in embedders", c.DefaultEmbedder)
		}
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Assembly.Validate(); err != nil {
		return err
	}
	if err := c.Hygiene.Validate(); err != nil {
		return err
	}
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}
	return nil
}
