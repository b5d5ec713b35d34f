package breadcrumb

// ToolConfig is the payload of a tool.config.v1 breadcrumb: the LLM
// budget and Pathfinder weight overrides a consumer config can point at via
// llm_config_id.
type ToolConfig struct {
	MaxContextTokens int     `json:"max_context_tokens,omitempty"`
	Alpha            float64 `json:"alpha,omitempty"`
	Beta             float64 `json:"beta,omitempty"`
	Gamma            float64 `json:"gamma,omitempty"`
}

// ToolConfigFromContext decodes a ToolConfig out of a breadcrumb's raw
// context map.
func ToolConfigFromContext(context map[string]interface{}) (ToolConfig, error) {
	return decodeInto[ToolConfig](context)
}
