package breadcrumb

import (
	"reflect"
	"testing"
)

func TestClassifyTag(t *testing.T) {
	cases := map[string]TagKind{
		"workspace:agents":   TagRouting,
		"session:abc":        TagRouting,
		"consumer:chat":      TagRouting,
		"approved":           TagState,
		"rejected":           TagState,
		"draft":              TagState,
		"browser-automation": TagPointer,
		"security":           TagPointer,
	}
	for tag, want := range cases {
		if got := ClassifyTag(tag); got != want {
			t.Errorf("ClassifyTag(%q) = %q, want %q", tag, got, want)
		}
	}
}

func TestSplitTags(t *testing.T) {
	routing, state, pointer := SplitTags([]string{"workspace:agents", "draft", "browser-automation", "session:1"})
	if !reflect.DeepEqual(routing, []string{"workspace:agents", "session:1"}) {
		t.Errorf("routing = %v", routing)
	}
	if !reflect.DeepEqual(state, []string{"draft"}) {
		t.Errorf("state = %v", state)
	}
	if !reflect.DeepEqual(pointer, []string{"browser-automation"}) {
		t.Errorf("pointer = %v", pointer)
	}
}

func TestPointerTags_StripsRoutingOnly(t *testing.T) {
	out := PointerTags([]string{"workspace:agents", "draft", "browser-automation"})
	if !reflect.DeepEqual(out, []string{"draft", "browser-automation"}) {
		t.Errorf("PointerTags = %v", out)
	}
}

func TestAddTags_DedupesAndPreservesOrder(t *testing.T) {
	out := AddTags([]string{"a", "b"}, []string{"b", "c"})
	if !reflect.DeepEqual(out, []string{"a", "b", "c"}) {
		t.Errorf("AddTags = %v", out)
	}
}

func TestRemoveTags(t *testing.T) {
	out := RemoveTags([]string{"a", "b", "c"}, []string{"b"})
	if !reflect.DeepEqual(out, []string{"a", "c"}) {
		t.Errorf("RemoveTags = %v", out)
	}
}

// S3: approve semantics — union in "approved", remove the prior state tag.
func TestApproveShorthand_TagAlgebra(t *testing.T) {
	tags := []string{"draft", "browser-automation"}
	_, stateTags, _ := SplitTags(tags)
	tags = RemoveTags(tags, stateTags)
	tags = AddTags(tags, []string{"approved"})

	want := map[string]bool{"approved": true, "browser-automation": true}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for _, tag := range tags {
		if !want[tag] {
			t.Errorf("unexpected tag %q", tag)
		}
	}
}

func TestAddTags_RemoveTags_RoundTrip(t *testing.T) {
	original := []string{"a", "b"}
	added := AddTags(original, []string{"c"})
	restored := RemoveTags(added, []string{"c"})
	if !reflect.DeepEqual(restored, original) {
		t.Errorf("round trip = %v, want %v", restored, original)
	}
}
