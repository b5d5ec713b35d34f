package config

import "fmt"

// VectorStoreConfig configures one of the five external vector index
// backends the breadcrumb store's semantic_search operation can delegate
// to; hybrid_search does not use it.
//
// Example YAML:
//
//	vector_stores:
//	  primary:
//	    type: qdrant
//	    host: qdrant.internal
//	    port: 6333
//	    api_key: ${QDRANT_API_KEY}
type VectorStoreConfig struct {
	// Type selects the backend: "qdrant", "pinecone", "weaviate", "chroma", "milvus".
	Type string `yaml:"type"`

	// Host for external vector stores. For pinecone this holds the index name.
	Host string `yaml:"host,omitempty"`

	// Port for external vector stores.
	Port int `yaml:"port,omitempty"`

	// APIKey for authenticated access.
	APIKey string `yaml:"api_key,omitempty"`

	// EnableTLS enables TLS for the backend connection.
	EnableTLS *bool `yaml:"enable_tls,omitempty"`

	// InsecureSkipVerify skips TLS certificate verification (test/dev only).
	InsecureSkipVerify *bool `yaml:"insecure_skip_verify,omitempty"`

	// CACertificate is a PEM-encoded CA certificate for TLS verification.
	CACertificate string `yaml:"ca_certificate,omitempty"`

	// Collection is the default collection/index name. The breadcrumb store
	// does not read it: its semantic search uses one collection per tenant,
	// named by vsCollection in pkg/store; the registry does not namespace
	// collections.
	Collection string `yaml:"collection,omitempty"`

	// VectorSize is the embedding dimensionality the collection is created
	// with. Must match the configured embedder's Dimension.
	VectorSize uint64 `yaml:"vector_size,omitempty"`
}

// SetDefaults applies default values per backend type.
func (c *VectorStoreConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "qdrant"
	}
	if c.Port == 0 {
		switch c.Type {
		case "qdrant":
			c.Port = 6333
		case "weaviate":
			c.Port = 8080
		case "milvus":
			c.Port = 19530
		case "chroma":
			c.Port = 8000
		}
	}
	if c.Collection == "" {
		c.Collection = "breadcrumbs"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 768
	}
}

// Validate checks the vector store configuration for errors.
func (c *VectorStoreConfig) Validate() error {
	validTypes := map[string]bool{
		"qdrant":   true,
		"pinecone": true,
		"weaviate": true,
		"chroma":   true,
		"milvus":   true,
	}
	if !validTypes[c.Type] {
		return fmt.Errorf("invalid vector store type %q (valid: qdrant, pinecone, weaviate, chroma, milvus)", c.Type)
	}

	if c.Type == "pinecone" && c.APIKey == "" {
		return fmt.Errorf("vector_stores: api_key is required for pinecone")
	}

	externalHostRequired := map[string]bool{"qdrant": true, "weaviate": true, "chroma": true, "milvus": true}
	if externalHostRequired[c.Type] && c.Host == "" {
		return fmt.Errorf("vector_stores: host is required for %s", c.Type)
	}

	return nil
}
