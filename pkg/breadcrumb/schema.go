package breadcrumb

// SchemaDef is the schema name used for schema-definition breadcrumbs.
const SchemaDef = "schema.def.v1"

// TransformRuleKind is the tag of the transform rule sealed union. Rules are
// matched on this tag, never dispatched through a registry, so the set of
// supported transforms stays auditable.
type TransformRuleKind string

const (
	// RuleTemplate renders a Handlebars-like string over the source
	// document.
	RuleTemplate TransformRuleKind = "template"

	// RuleExtract pulls a single value out of the document via a
	// JSONPath-like pointer.
	RuleExtract TransformRuleKind = "extract"

	// RuleFormat interpolates "{field}" placeholders against the
	// top-level document fields.
	RuleFormat TransformRuleKind = "format"

	// RuleLiteral produces a constant value, ignoring the document.
	RuleLiteral TransformRuleKind = "literal"
)

// TransformRule is one entry of llm_hints.transform: a tagged union over
// the four rule kinds. Exactly one of the kind-specific fields is
// meaningful, selected by Kind.
type TransformRule struct {
	Kind TransformRuleKind `json:"kind"`

	// Template is the Handlebars-like source string for RuleTemplate.
	Template string `json:"template,omitempty"`

	// Path is the JSONPath-like pointer for RuleExtract.
	Path string `json:"path,omitempty"`

	// Format is the "{field}" interpolation string for RuleFormat.
	Format string `json:"format,omitempty"`

	// Literal is the constant value for RuleLiteral.
	Literal interface{} `json:"literal,omitempty"`
}

// TransformMode selects how a view's transform map combines with the
// post-exclude source context.
type TransformMode string

const (
	// ModeReplace returns only the transform map as the view context.
	ModeReplace TransformMode = "replace"

	// ModeMerge shallow-merges the transform map on top of the
	// post-exclude source context.
	ModeMerge TransformMode = "merge"
)

// LLMHints is the transform descriptor applied by the Embedding & Transform
// Service to produce a breadcrumb's view. It can be carried at the instance
// level (Breadcrumb.LLMHints) or the schema-default level
// (SchemaDefinition.DefaultLLMHints); instance fields override schema
// fields key-wise when both are present.
type LLMHints struct {
	// Exclude lists JSON-pointer-style paths to strip from context before
	// transforms run.
	Exclude []string `json:"exclude,omitempty"`

	// Transform maps an output field name to the rule that produces it.
	Transform map[string]TransformRule `json:"transform,omitempty"`

	Mode TransformMode `json:"mode,omitempty"`
}

// MergeLLMHints returns the effective hints formed by overriding base with
// instance-specific fields key-wise. A nil instance returns base
// unmodified; a nil base with non-nil instance returns instance.
func MergeLLMHints(base, instance *LLMHints) *LLMHints {
	if instance == nil {
		return base
	}
	if base == nil {
		return instance
	}

	merged := &LLMHints{
		Exclude:   base.Exclude,
		Transform: make(map[string]TransformRule, len(base.Transform)+len(instance.Transform)),
		Mode:      base.Mode,
	}
	for k, v := range base.Transform {
		merged.Transform[k] = v
	}
	if len(instance.Exclude) > 0 {
		merged.Exclude = instance.Exclude
	}
	for k, v := range instance.Transform {
		merged.Transform[k] = v
	}
	if instance.Mode != "" {
		merged.Mode = instance.Mode
	}
	return merged
}

// SchemaDefinition is the payload of a schema.def.v1 breadcrumb: the
// default llm_hints applied to breadcrumbs of a given schema when read
// through the view endpoint, and the default TTL policy applied to new
// breadcrumbs of that schema when the writer supplies none.
type SchemaDefinition struct {
	// SchemaName is the schema this definition governs.
	SchemaName string `json:"schema_name"`

	DefaultLLMHints *LLMHints `json:"default_llm_hints,omitempty"`

	DefaultTTLType   TTLType    `json:"default_ttl_type,omitempty"`
	DefaultTTLConfig *TTLConfig `json:"default_ttl_config,omitempty"`
}

// SchemaDefinitionFromContext decodes a SchemaDefinition out of a
// breadcrumb's raw context map.
func SchemaDefinitionFromContext(context map[string]interface{}) (SchemaDefinition, error) {
	return decodeInto[SchemaDefinition](context)
}

// NoEmbedSchemas is the default policy set of schemas that never receive an
// embedding, regardless of whether an embedding text could be produced.
// Extensible at runtime via a context.blacklist.v1 breadcrumb.
var NoEmbedSchemas = map[string]bool{
	"system.health.v1":     true,
	"system.metric.v1":     true,
	"system.hygiene.v1":    true,
	"system.startup.v1":    true,
	"schema.def.v1":        true,
	"context.blacklist.v1": true,
	"tool.config.v1":       true,
	"secret.v1":            true,
}

// SchemaBlacklist is the schema name for breadcrumbs that extend
// NoEmbedSchemas at runtime.
const SchemaBlacklist = "context.blacklist.v1"

// SchemaHygiene is the schema name of the reaper's per-cycle aggregate
// statistics breadcrumb.
const SchemaHygiene = "system.hygiene.v1"

// BlacklistEntry is the payload of a context.blacklist.v1 breadcrumb.
type BlacklistEntry struct {
	SchemaNames []string `json:"schema_names"`
}

// BlacklistEntryFromContext decodes a BlacklistEntry out of a breadcrumb's
// raw context map.
func BlacklistEntryFromContext(context map[string]interface{}) (BlacklistEntry, error) {
	return decodeInto[BlacklistEntry](context)
}
