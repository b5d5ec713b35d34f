// Package breadcrumb defines RCRT's sole durable entity: the breadcrumb, a
// typed, tagged, versioned JSON document with an optional dense embedding.
// Every other package (store, transform, eventbus, assembly, hygiene) reads
// and writes breadcrumbs through the types defined here; none of them
// interpret schema-specific payload shape beyond what's declared in this
// package.
package breadcrumb

import (
	"time"
)

// TTLType selects which of the five hygiene policies governs a breadcrumb's
// lifetime.
type TTLType string

const (
	// TTLNever means the breadcrumb is never reaped by TTL.
	TTLNever TTLType = "never"

	// TTLDatetime deletes the breadcrumb once now >= ttl_config.datetime.
	TTLDatetime TTLType = "datetime"

	// TTLDuration deletes the breadcrumb once now - created_at >= ttl_config.duration.
	TTLDuration TTLType = "duration"

	// TTLUsage deletes the breadcrumb once read_count >= ttl_config.max_reads.
	TTLUsage TTLType = "usage"

	// TTLHybrid deletes on datetime OR usage, whichever comes first.
	TTLHybrid TTLType = "hybrid"
)

// Valid reports whether t is one of the five recognized TTL policies.
func (t TTLType) Valid() bool {
	switch t {
	case TTLNever, TTLDatetime, TTLDuration, TTLUsage, TTLHybrid:
		return true
	}
	return false
}

// TTLConfig describes the parameters of a TTL policy. Only the fields
// relevant to the breadcrumb's TTLType are populated; the rest are zero
// values and ignored.
type TTLConfig struct {
	// Datetime is the absolute expiry instant, used by TTLDatetime and the
	// datetime half of TTLHybrid.
	Datetime *time.Time `json:"datetime,omitempty"`

	// Duration is the lifetime relative to CreatedAt, used by TTLDuration.
	Duration *time.Duration `json:"duration,omitempty"`

	// MaxReads is the read_count threshold, used by TTLUsage and the usage
	// half of TTLHybrid.
	MaxReads *int `json:"max_reads,omitempty"`
}

// ACLEntry grants an individual agent extra rights on a breadcrumb, beyond
// what its role would otherwise allow.
type ACLEntry struct {
	AgentID string   `json:"agent_id"`
	Rights  []string `json:"rights"`
}

// Breadcrumb is the universal unit of RCRT: a typed, tagged, versioned JSON
// document, scoped to exactly one tenant.
type Breadcrumb struct {
	// ID is an opaque identifier, unique within the tenant.
	ID string `json:"id"`

	// TenantID is the owning tenant. Every query and mutation is scoped by
	// this field; it must never leak across tenants.
	TenantID string `json:"tenant_id"`

	// Schema is the type tag, conventionally "family.kind.v<N>".
	Schema string `json:"schema_name"`

	// Title is a short human label.
	Title string `json:"title"`

	// Tags is the full tag set. At read time it is classified into routing,
	// state, and pointer kinds by the syntactic rules in this package's
	// ClassifyTag.
	Tags []string `json:"tags"`

	// Context is the arbitrary JSON payload.
	Context map[string]interface{} `json:"context"`

	// Version increases by exactly 1 on every successful mutation, starting
	// at 1.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Embedding is present iff Schema is not in the no-embed set and an
	// embedding text could be produced for it. Dimension is fixed
	// system-wide.
	Embedding []float32 `json:"embedding,omitempty"`

	// EntityKeywords is derived, never trusted from the caller: the union
	// of non-routing tags with keywords mined from the serialized context.
	// Re-derived on every create/update.
	EntityKeywords []string `json:"entity_keywords"`

	TTLType   TTLType    `json:"ttl_type,omitempty"`
	TTLConfig *TTLConfig `json:"ttl_config,omitempty"`

	// ReadCount increments on each get_view call for breadcrumbs whose TTL
	// policy consults it. Increments are best-effort; undercounting is
	// permitted, overcounting is not.
	ReadCount int64 `json:"read_count"`

	// ACL grants specific agents rights beyond their role, e.g. raw reads.
	ACL []ACLEntry `json:"acl,omitempty"`

	// LLMHints is the instance-level transform descriptor, overriding the
	// schema default key-wise. Only meaningful when non-nil.
	LLMHints *LLMHints `json:"llm_hints,omitempty"`
}

// HasTag reports whether tag is present in the breadcrumb's tag set.
func (b *Breadcrumb) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AllowsRaw reports whether agentID has an explicit ACL grant for the "raw"
// right, independent of role.
func (b *Breadcrumb) AllowsRaw(agentID string) bool {
	for _, entry := range b.ACL {
		if entry.AgentID != agentID {
			continue
		}
		for _, right := range entry.Rights {
			if right == "raw" {
				return true
			}
		}
	}
	return false
}

// Summary is the shape returned by list and search: a breadcrumb with its
// embedding and llm_hints stripped, per the HTTP surface contract.
type Summary struct {
	ID        string                 `json:"id"`
	TenantID  string                 `json:"tenant_id"`
	Schema    string                 `json:"schema_name"`
	Title     string                 `json:"title"`
	Tags      []string               `json:"tags"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Version   int64                  `json:"version"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// ToSummary strips the embedding and llm_hints, for the list/search
// endpoints. includeContext controls whether the payload is attached.
func (b *Breadcrumb) ToSummary(includeContext bool) Summary {
	s := Summary{
		ID:        b.ID,
		TenantID:  b.TenantID,
		Schema:    b.Schema,
		Title:     b.Title,
		Tags:      b.Tags,
		Version:   b.Version,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if includeContext {
		s.Context = b.Context
	}
	return s
}
