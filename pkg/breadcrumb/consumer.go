package breadcrumb

// SchemaConsumer is the schema name used for consumer configuration
// breadcrumbs, interpreted by the Context Assembly Engine.
const SchemaConsumer = "agent.def.v1"

// SchemaContext is the schema name of a CAE-published assembled context.
const SchemaContext = "agent.context.v1"

// SchemaError is the schema name of a CAE failure report.
const SchemaError = "agent.error.v1"

// SchemaToolConfig is the schema name for LLM budget/model configuration
// breadcrumbs a consumer config may point at via llm_config_id.
const SchemaToolConfig = "tool.config.v1"

// SourceMethod selects how an "always" context source is resolved.
type SourceMethod string

const (
	// MethodLatest fetches the single most recent breadcrumb of the
	// source's schema, by updated_at.
	MethodLatest SourceMethod = "latest"

	// MethodRecentN fetches the top N breadcrumbs of the source's schema
	// by updated_at. N is carried in ContextSource.Count.
	MethodRecentN SourceMethod = "recent"

	// MethodAll fetches every breadcrumb of the source's schema, bounded
	// by a safety cap.
	MethodAll SourceMethod = "all"
)

// ContextSource names a guaranteed seed for the Pathfinder walk: every
// breadcrumb of SchemaName resolved via Method.
type ContextSource struct {
	SchemaName string       `json:"schema_name"`
	Method     SourceMethod `json:"method"`
	// Count is the N in recent(N); ignored for other methods.
	Count int `json:"count,omitempty"`
	// Label groups this source's results under a section header distinct
	// from the semantic/graph results; defaults to SchemaName if empty.
	Label string `json:"label,omitempty"`
}

// EffectiveLabel returns Label, defaulting to SchemaName.
func (s ContextSource) EffectiveLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.SchemaName
}

// ContextSources groups the guaranteed seeds a consumer config declares.
type ContextSources struct {
	Always []ContextSource `json:"always,omitempty"`
}

// ConsumerConfig is the payload of an agent.def.v1 breadcrumb: the fields
// the CAE consumes to decide which consumers care about an event and what
// to seed their assembly with. Every other field an agent runtime stores on
// this schema is opaque to the core.
type ConsumerConfig struct {
	ConsumerID     string         `json:"consumer_id"`
	ContextTrigger Selector       `json:"context_trigger"`
	ContextSources ContextSources `json:"context_sources"`

	// LLMConfigID optionally points to a tool.config.v1 breadcrumb carrying
	// model/budget overrides for this consumer's assemblies.
	LLMConfigID string `json:"llm_config_id,omitempty"`

	// Alpha, Beta, Gamma override the Pathfinder relevance weights for
	// this consumer. Zero values mean "use the system default".
	Alpha float64 `json:"alpha,omitempty"`
	Beta  float64 `json:"beta,omitempty"`
	Gamma float64 `json:"gamma,omitempty"`
}

// ConsumerConfigFromContext decodes a ConsumerConfig out of a breadcrumb's
// raw context map. The core never trusts any other field of an agent.def.v1
// breadcrumb.
func ConsumerConfigFromContext(context map[string]interface{}) (ConsumerConfig, error) {
	return decodeInto[ConsumerConfig](context)
}
