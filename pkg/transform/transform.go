// Package transform is the Embedding & Transform Service (ETS): pure
// functions invoked by the breadcrumb store that synthesize a breadcrumb's
// embedding text and vector, and that apply llm_hints to produce the
// redacted, reformatted "view" returned to consumers.
//
// ETS holds no state beyond two caches: compiled templates, keyed by their
// source text and never evicted, and schema-default llm_hints, which the
// breadcrumb store replaces synchronously when a schema.def.v1 is written,
// so a schema.def.v1 update takes effect on the very next read.
package transform

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
	"github.com/tidwall/gjson"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/embedders"
)

// Service is the ETS. Construct with New; safe for concurrent use.
type Service struct {
	embedder embedders.EmbedderProvider
	log      *slog.Logger

	mu            sync.RWMutex
	schemaDefault map[string]*breadcrumb.LLMHints

	tplMu    sync.Mutex
	tplCache map[string]*raymond.Template
}

// New builds an ETS bound to embedder. A nil embedder is valid: Embed
// degrades to skipping embedding generation rather than failing the write
// path, matching the spec's graceful-degradation requirement for the
// embedding model being a process-wide resource that can become
// unavailable.
func New(embedder embedders.EmbedderProvider, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		embedder:      embedder,
		log:           log,
		schemaDefault: make(map[string]*breadcrumb.LLMHints),
		tplCache:      make(map[string]*raymond.Template),
	}
}

// SetSchemaDefault records schema's default llm_hints, read from a
// schema.def.v1 breadcrumb. The breadcrumb store calls it each time a
// schema.def.v1 is created or updated.
func (s *Service) SetSchemaDefault(schemaName string, hints *breadcrumb.LLMHints) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemaDefault[schemaName] = hints
}

// InvalidateSchema drops a cached schema default, e.g. on deletion.
func (s *Service) InvalidateSchema(schemaName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.schemaDefault, schemaName)
}

// EffectiveHints merges the cached schema default for b.Schema with b's own
// instance-level hints, instance fields winning key-wise.
func (s *Service) EffectiveHints(b *breadcrumb.Breadcrumb) *breadcrumb.LLMHints {
	s.mu.RLock()
	base := s.schemaDefault[b.Schema]
	s.mu.RUnlock()
	return breadcrumb.MergeLLMHints(base, b.LLMHints)
}

// View applies the transform pipeline to b and returns the breadcrumb's
// view context: exclude, then transform, then combine per mode. A nil
// hints value is a no-op pass-through of the raw context.
func (s *Service) View(b *breadcrumb.Breadcrumb) map[string]interface{} {
	hints := s.EffectiveHints(b)
	return s.apply(b.Context, hints)
}

func (s *Service) apply(raw map[string]interface{}, hints *breadcrumb.LLMHints) map[string]interface{} {
	working := deepCopyMap(raw)
	if hints == nil {
		return working
	}

	for _, path := range hints.Exclude {
		removePath(working, path)
	}

	computed := make(map[string]interface{}, len(hints.Transform))
	for field, rule := range hints.Transform {
		val, err := s.evalRule(rule, working)
		if err != nil {
			s.log.Warn("transform: rule failed, skipping", "field", field, "kind", rule.Kind, "error", err)
			continue
		}
		computed[field] = val
	}

	if hints.Mode == breadcrumb.ModeReplace {
		return computed
	}
	// Default mode is merge: shallow-merge computed fields over the
	// post-exclude document.
	for k, v := range computed {
		working[k] = v
	}
	return working
}

func (s *Service) evalRule(rule breadcrumb.TransformRule, doc map[string]interface{}) (interface{}, error) {
	switch rule.Kind {
	case breadcrumb.RuleLiteral:
		return rule.Literal, nil
	case breadcrumb.RuleFormat:
		return formatString(rule.Format, doc), nil
	case breadcrumb.RuleExtract:
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		result := gjson.GetBytes(raw, toGJSONPath(rule.Path))
		if !result.Exists() {
			return nil, fmt.Errorf("extract path %q did not resolve", rule.Path)
		}
		return result.Value(), nil
	case breadcrumb.RuleTemplate:
		tpl, err := s.compiledTemplate(rule.Template)
		if err != nil {
			return nil, err
		}
		out, err := tpl.Exec(map[string]interface{}{"context": doc})
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown transform rule kind %q", rule.Kind)
	}
}

// compiledTemplate returns a cached compiled raymond template for src,
// compiling and caching it on first use. A compile error is never cached,
// so a later correction to the schema takes effect immediately.
func (s *Service) compiledTemplate(src string) (*raymond.Template, error) {
	s.tplMu.Lock()
	defer s.tplMu.Unlock()
	if tpl, ok := s.tplCache[src]; ok {
		return tpl, nil
	}
	tpl, err := raymond.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("template compile error: %w", err)
	}
	s.tplCache[src] = tpl
	return tpl, nil
}

// formatString interpolates "{field}" placeholders against doc's top-level
// fields, leaving unresolved placeholders untouched rather than failing.
func formatString(format string, doc map[string]interface{}) string {
	var b strings.Builder
	i := 0
	for i < len(format) {
		if format[i] == '{' {
			if end := strings.IndexByte(format[i:], '}'); end != -1 {
				field := format[i+1 : i+end]
				if v, ok := doc[field]; ok {
					fmt.Fprintf(&b, "%v", v)
				} else {
					b.WriteString(format[i : i+end+1])
				}
				i += end + 1
				continue
			}
		}
		b.WriteByte(format[i])
		i++
	}
	return b.String()
}

func toGJSONPath(path string) string {
	path = strings.TrimPrefix(path, "$.")
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, "/")
	return strings.ReplaceAll(path, "/", ".")
}

func removePath(doc map[string]interface{}, path string) {
	parts := strings.Split(strings.Trim(strings.ReplaceAll(path, "/", "."), "."), ".")
	cur := doc
	for i, part := range parts {
		if i == len(parts)-1 {
			delete(cur, part)
			return
		}
		next, ok := cur[part].(map[string]interface{})
		if !ok {
			return
		}
		cur = next
	}
}

func deepCopyMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return map[string]interface{}{}
	}
	raw, err := json.Marshal(in)
	if err != nil {
		out := make(map[string]interface{}, len(in))
		for k, v := range in {
			out[k] = v
		}
		return out
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

// EmbeddingText derives the natural-language surface string used both for
// keyword mining and (when the schema isn't no-embed) as the embedding
// input, following the priority order: an "embedding_text" string field
// produced by the schema's transform, else a terse paragraph rendered from
// the view, else title + stringified context. This always runs, even for
// no-embed schemas — the no-embed policy blocks the vector, not keyword
// derivation; callers check ShouldEmbed separately before calling Embed.
func (s *Service) EmbeddingText(b *breadcrumb.Breadcrumb) (string, bool) {
	view := s.View(b)
	if txt, ok := view["embedding_text"].(string); ok && txt != "" {
		return txt, true
	}
	if paragraph := renderParagraph(view); paragraph != "" {
		return paragraph, true
	}
	raw, _ := json.Marshal(b.Context)
	return strings.TrimSpace(b.Title + " " + string(raw)), true
}

// renderParagraph turns a view context into a terse, human-readable
// paragraph: "key: value" fragments joined over the top-level fields, in
// deterministic key order.
func renderParagraph(view map[string]interface{}) string {
	if len(view) == 0 {
		return ""
	}
	keys := make([]string, 0, len(view))
	for k := range view {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		v := view[k]
		switch vv := v.(type) {
		case string:
			if vv == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", k, vv))
		case nil:
			continue
		default:
			raw, err := json.Marshal(vv)
			if err != nil || string(raw) == "{}" || string(raw) == "[]" {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", k, string(raw)))
		}
	}
	return strings.Join(parts, ". ")
}

// ShouldEmbed reports whether schemaName is eligible for embedding: not in
// the system no-embed set and not runtime-blacklisted via a
// context.blacklist.v1 entry.
func ShouldEmbed(schemaName string, blacklist map[string]bool) bool {
	if breadcrumb.NoEmbedSchemas[schemaName] {
		return false
	}
	return !blacklist[schemaName]
}

// Embed runs the configured embedder on text and L2-normalizes the result.
// Returns ok=false (not an error) when no embedder is configured, so the
// caller can leave the breadcrumb's embedding unset rather than failing the
// write.
func (s *Service) Embed(text string) ([]float32, bool, error) {
	if s.embedder == nil {
		return nil, false, nil
	}
	vec, err := s.embedder.Embed(text)
	if err != nil {
		return nil, false, fmt.Errorf("embed: %w", err)
	}
	return normalizeL2(vec), true, nil
}

func normalizeL2(vec []float32) []float32 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return vec
	}
	norm := math.Sqrt(sumSquares)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
