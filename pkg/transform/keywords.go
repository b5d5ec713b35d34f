package transform

import (
	"sort"
	"strings"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
)

// stopwords is the fixed set dropped when mining keywords from embedding
// text. Small and deliberately unsurprising — this is a cheap pointer-set
// fingerprint, not an NLP pipeline.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"being": true, "to": true, "of": true, "in": true, "on": true, "at": true,
	"for": true, "with": true, "by": true, "from": true, "as": true, "it": true,
	"this": true, "that": true, "these": true, "those": true, "i": true,
	"you": true, "he": true, "she": true, "we": true, "they": true, "them": true,
	"his": true, "her": true, "its": true, "our": true, "your": true,
	"not": true, "no": true, "so": true, "if": true, "then": true, "than": true,
	"will": true, "would": true, "should": true, "could": true, "can": true,
	"do": true, "does": true, "did": true, "has": true, "have": true, "had": true,
}

// MineKeywords tokenizes text into lowercase space-separated words, strips
// punctuation, removes stopwords, and de-duplicates while preserving first
// occurrence order.
func MineKeywords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		token := strings.Trim(f, ".,;:!?()[]{}\"'`")
		if token == "" || stopwords[token] {
			continue
		}
		if seen[token] {
			continue
		}
		seen[token] = true
		out = append(out, token)
	}
	return out
}

// DeriveKeywords computes a breadcrumb's entity_keywords: the union of its
// non-routing tags with keywords mined from embeddingText. Always
// re-derived, never trusted from the caller.
func DeriveKeywords(tags []string, embeddingText string) []string {
	_, state, pointer := breadcrumb.SplitTags(tags)
	seen := make(map[string]bool, len(state)+len(pointer))
	out := make([]string, 0, len(state)+len(pointer))
	for _, t := range append(append([]string{}, state...), pointer...) {
		lower := strings.ToLower(t)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, lower)
	}
	for _, k := range MineKeywords(embeddingText) {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PointerSet builds the CAE's query fingerprint for a trigger breadcrumb:
// the set union of its routing-stripped tags and its entity_keywords,
// symmetric with DeriveKeywords at write time.
func PointerSet(tags []string, entityKeywords []string) map[string]bool {
	set := make(map[string]bool, len(tags)+len(entityKeywords))
	for _, t := range breadcrumb.PointerTags(tags) {
		set[strings.ToLower(t)] = true
	}
	for _, k := range entityKeywords {
		set[strings.ToLower(k)] = true
	}
	return set
}

// Jaccard computes the Jaccard similarity of two keyword sets.
func Jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
