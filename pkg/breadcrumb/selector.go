package breadcrumb

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/tidwall/gjson"
)

// ContextMatchOp is the comparison operator for a ContextMatch clause.
type ContextMatchOp string

const (
	OpEq       ContextMatchOp = "eq"
	OpNeq      ContextMatchOp = "neq"
	OpContains ContextMatchOp = "contains"
	OpExists   ContextMatchOp = "exists"
)

// ContextMatch tests a single JSONPath-addressed value in the event's
// context against a literal.
type ContextMatch struct {
	Path  string         `json:"path"`
	Op    ContextMatchOp `json:"op"`
	Value interface{}    `json:"value,omitempty"`
}

// Selector is a pure predicate over an event, expressed as JSON. A selector
// matches an event iff every specified clause holds.
type Selector struct {
	SchemaName   string         `json:"schema_name,omitempty"`
	AnyTags      []string       `json:"any_tags,omitempty"`
	AllTags      []string       `json:"all_tags,omitempty"`
	ContextMatch []ContextMatch `json:"context_match,omitempty"`
}

// Event is the minimal shape a selector is evaluated against: the fields of
// a committed mutation visible to subscribers.
type Event struct {
	TenantID  string                 `json:"tenant_id"`
	ID        string                 `json:"breadcrumb_id"`
	Schema    string                 `json:"schema_name"`
	Tags      []string               `json:"tags"`
	Context   map[string]interface{} `json:"context"`
	Op        EventOp                `json:"op"`
	Version   int64                  `json:"version"`
	Timestamp int64                  `json:"ts"`
}

// EventOp is the mutation kind that produced an Event.
type EventOp string

const (
	OpCreated EventOp = "created"
	OpUpdated EventOp = "updated"
	OpDeleted EventOp = "deleted"
)

// Matches reports whether every clause of s holds against e. An empty
// selector matches everything.
func (s Selector) Matches(e Event) bool {
	if s.SchemaName != "" && s.SchemaName != e.Schema {
		return false
	}
	if len(s.AnyTags) > 0 && !anyTagPresent(e.Tags, s.AnyTags) {
		return false
	}
	if len(s.AllTags) > 0 && !allTagsPresent(e.Tags, s.AllTags) {
		return false
	}
	for _, clause := range s.ContextMatch {
		if !clause.evaluate(e.Context) {
			return false
		}
	}
	return true
}

func anyTagPresent(tags, want []string) bool {
	set := tagSet(tags)
	for _, w := range want {
		if set[w] {
			return true
		}
	}
	return false
}

func allTagsPresent(tags, want []string) bool {
	set := tagSet(tags)
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func tagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return set
}

// toGJSONPath normalizes a JSON-pointer-style ("/a/b") or dotted ("a.b")
// path into gjson's dotted path syntax.
func toGJSONPath(path string) string {
	path = strings.TrimPrefix(path, "$.")
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, "/")
	return strings.ReplaceAll(path, "/", ".")
}

// evaluate resolves clause.Path against context via a JSONPath-like pointer
// and applies Op. A resolution miss is treated as "does not exist" rather
// than a failure, so a malformed path simply fails the clause instead of
// the whole event.
func (c ContextMatch) evaluate(ctx map[string]interface{}) bool {
	raw, err := json.Marshal(ctx)
	if err != nil {
		return false
	}
	result := gjson.GetBytes(raw, toGJSONPath(c.Path))
	exists := result.Exists()

	switch c.Op {
	case OpExists:
		return exists
	case OpEq:
		return exists && reflect.DeepEqual(result.Value(), c.Value)
	case OpNeq:
		return !exists || !reflect.DeepEqual(result.Value(), c.Value)
	case OpContains:
		return exists && containsValue(result.Value(), c.Value)
	default:
		return false
	}
}

// containsValue supports "contains" over strings and slices.
func containsValue(haystack, needle interface{}) bool {
	switch h := haystack.(type) {
	case string:
		n, ok := needle.(string)
		return ok && strings.Contains(h, n)
	case []interface{}:
		for _, item := range h {
			if reflect.DeepEqual(item, needle) {
				return true
			}
		}
	}
	return false
}
