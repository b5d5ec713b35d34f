package config

import "fmt"

// EmbedderProviderConfig configures the ETS embedding backend used to turn
// a breadcrumb's derived embedding text into a vector.
type EmbedderProviderConfig struct {
	// Type selects the backend: "ollama", "openai", "cohere".
	Type string `yaml:"type"`

	// Model is the embedding model name.
	Model string `yaml:"model"`

	// Host is the backend base URL (Ollama host, or an API-compatible proxy
	// for openai/cohere).
	Host string `yaml:"host,omitempty"`

	// APIKey authenticates against openai/cohere.
	APIKey string `yaml:"api_key,omitempty"`

	// Dimension is the embedding vector width, must match the vector
	// store's configured VectorSize.
	Dimension int `yaml:"dimension"`

	// Timeout is the request timeout in seconds.
	Timeout int `yaml:"timeout,omitempty"`

	// MaxRetries bounds retry attempts on transient embed failures.
	MaxRetries int `yaml:"max_retries,omitempty"`

	// BatchSize bounds how many texts are embedded per request for
	// providers that support batched embedding calls.
	BatchSize int `yaml:"batch_size,omitempty"`
}

// SetDefaults applies default values.
func (c *EmbedderProviderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "ollama"
	}
	switch c.Type {
	case "ollama":
		if c.Model == "" {
			c.Model = "nomic-embed-text"
		}
		if c.Host == "" {
			c.Host = "http://localhost:11434"
		}
	case "openai":
		if c.Model == "" {
			c.Model = "text-embedding-3-small"
		}
		if c.Host == "" {
			c.Host = "https://api.openai.com/v1"
		}
	case "cohere":
		if c.Model == "" {
			c.Model = "embed-english-v3.0"
		}
		if c.Host == "" {
			c.Host = "https://api.cohere.com/v1"
		}
	}
	if c.Dimension == 0 {
		c.Dimension = 768
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BatchSize == 0 {
		c.BatchSize = 32
	}
}

// Validate checks the embedder configuration for errors.
func (c *EmbedderProviderConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("type is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if (c.Type == "openai" || c.Type == "cohere") && c.APIKey == "" {
		return fmt.Errorf("api_key is required for %s", c.Type)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	return nil
}
