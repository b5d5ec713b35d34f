package breadcrumb

import "strings"

// TagKind classifies a tag into one of three disjoint kinds, determined
// from the tag string alone (see ClassifyTag).
type TagKind string

const (
	// TagRouting tags contain a colon (workspace:agents, session:abc,
	// consumer:chat-assistant) and are used for selector filters and
	// multi-tenant routing.
	TagRouting TagKind = "routing"

	// TagState tags are membership in a closed small set, used by atomic
	// semantic actions like approve/reject.
	TagState TagKind = "state"

	// TagPointer tags are everything else: free-form domain terms that
	// participate in entity_keywords and hybrid search.
	TagPointer TagKind = "pointer"
)

// stateTags is the closed set of state tags.
var stateTags = map[string]bool{
	"approved":   true,
	"rejected":   true,
	"draft":      true,
	"deprecated": true,
	"bootstrap":  true,
	"validated":  true,
}

// ClassifyTag determines a tag's kind by the syntactic rules: contains ':'
// is routing; membership in the closed state set is state; everything else
// is pointer.
func ClassifyTag(tag string) TagKind {
	if strings.Contains(tag, ":") {
		return TagRouting
	}
	if stateTags[tag] {
		return TagState
	}
	return TagPointer
}

// SplitTags partitions a tag set into its three kinds.
func SplitTags(tags []string) (routing, state, pointer []string) {
	for _, t := range tags {
		switch ClassifyTag(t) {
		case TagRouting:
			routing = append(routing, t)
		case TagState:
			state = append(state, t)
		default:
			pointer = append(pointer, t)
		}
	}
	return routing, state, pointer
}

// PointerTags returns only the non-routing tags: the routing-stripped tag
// set used as half of the pointer set / query fingerprint (the other half
// is mined keywords, see pkg/transform).
func PointerTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if ClassifyTag(t) != TagRouting {
			out = append(out, t)
		}
	}
	return out
}

// AddTags returns the set union of tags and additions, de-duplicated,
// preserving the relative order of the original tags followed by new ones.
func AddTags(tags []string, additions []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags)+len(additions))
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range additions {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// RemoveTags returns tags with every entry in removals excluded.
func RemoveTags(tags []string, removals []string) []string {
	remove := make(map[string]bool, len(removals))
	for _, t := range removals {
		remove[t] = true
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if !remove[t] {
			out = append(out, t)
		}
	}
	return out
}
