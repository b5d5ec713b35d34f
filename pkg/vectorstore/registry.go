package vectorstore

import (
	"context"
	"fmt"

	"github.com/rcrtd/rcrt/pkg/config"
	"github.com/rcrtd/rcrt/pkg/registry"
)

// VectorStore is the interface the breadcrumb store's semantic_search
// operation drives against; hybrid_search does not use it. Semantic search
// reads one collection per tenant so cross-tenant leakage through the index
// is structurally impossible.
type VectorStore interface {
	Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]interface{}) error
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchResult, error)
	Delete(ctx context.Context, collection string, id string) error
	CreateCollection(ctx context.Context, collection string, vectorSize uint64) error
	DeleteCollection(ctx context.Context, collection string) error
	Close() error
}

// SearchResult is a single vector search hit.
type SearchResult struct {
	ID        string                 `json:"id"`
	Score     float32                `json:"score"`
	Content   string                 `json:"content"`
	Vector    []float32              `json:"vector,omitempty"`
	Metadata  map[string]interface{} `json:"metadata"`
	ModelName string                 `json:"model_name,omitempty"`
}

// VectorStoreRegistry holds named VectorStore instances, one per tenant or
// deployment profile.
type VectorStoreRegistry struct {
	*registry.BaseRegistry[VectorStore]
}

func NewVectorStoreRegistry() *VectorStoreRegistry {
	return &VectorStoreRegistry{BaseRegistry: registry.NewBaseRegistry[VectorStore]()}
}

func (r *VectorStoreRegistry) RegisterStore(name string, store VectorStore) error {
	if name == "" {
		return fmt.Errorf("vector store name cannot be empty")
	}
	if store == nil {
		return fmt.Errorf("vector store cannot be nil")
	}
	return r.Register(name, store)
}

// CreateStoreFromConfig builds and registers a VectorStore for the given
// backend type, chosen from the five backends the corpus supplies.
func (r *VectorStoreRegistry) CreateStoreFromConfig(name string, cfg *config.VectorStoreConfig) (VectorStore, error) {
	if name == "" {
		return nil, fmt.Errorf("vector store name cannot be empty")
	}
	if cfg == nil {
		return nil, fmt.Errorf("vector store config cannot be nil")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vector store config: %w", err)
	}

	var store VectorStore
	var err error

	switch cfg.Type {
	case "qdrant":
		store, err = NewQdrantVectorStoreFromConfig(cfg)
	case "pinecone":
		store, err = NewPineconeVectorStoreFromConfig(cfg)
	case "weaviate":
		store, err = NewWeaviateVectorStoreFromConfig(cfg)
	case "chroma":
		store, err = NewChromaVectorStoreFromConfig(cfg)
	case "milvus":
		store, err = NewMilvusVectorStoreFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create vector store %q: %w", cfg.Type, err)
	}

	if err := r.RegisterStore(name, store); err != nil {
		return nil, fmt.Errorf("failed to register vector store: %w", err)
	}
	return store, nil
}

func (r *VectorStoreRegistry) GetStore(name string) (VectorStore, error) {
	store, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("vector store %q not found", name)
	}
	return store, nil
}
