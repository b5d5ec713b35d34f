package breadcrumb

import "testing"

func TestSelector_EmptyMatchesEverything(t *testing.T) {
	var s Selector
	if !s.Matches(Event{Schema: "anything.v1"}) {
		t.Fatal("empty selector should match every event")
	}
}

func TestSelector_SchemaName(t *testing.T) {
	s := Selector{SchemaName: "user.message.v1"}
	if !s.Matches(Event{Schema: "user.message.v1"}) {
		t.Error("expected schema match")
	}
	if s.Matches(Event{Schema: "tool.response.v1"}) {
		t.Error("expected schema mismatch to fail")
	}
}

func TestSelector_AnyTags(t *testing.T) {
	s := Selector{AnyTags: []string{"urgent", "security"}}
	if !s.Matches(Event{Tags: []string{"security", "draft"}}) {
		t.Error("expected any_tags match")
	}
	if s.Matches(Event{Tags: []string{"draft"}}) {
		t.Error("expected any_tags mismatch to fail")
	}
}

func TestSelector_AllTags(t *testing.T) {
	s := Selector{AllTags: []string{"urgent", "security"}}
	if !s.Matches(Event{Tags: []string{"urgent", "security", "draft"}}) {
		t.Error("expected all_tags match")
	}
	if s.Matches(Event{Tags: []string{"urgent"}}) {
		t.Error("expected all_tags mismatch to fail (missing security)")
	}
}

func TestSelector_ContextMatch_Eq(t *testing.T) {
	s := Selector{ContextMatch: []ContextMatch{{Path: "status", Op: OpEq, Value: "open"}}}
	if !s.Matches(Event{Context: map[string]interface{}{"status": "open"}}) {
		t.Error("expected eq match")
	}
	if s.Matches(Event{Context: map[string]interface{}{"status": "closed"}}) {
		t.Error("expected eq mismatch to fail")
	}
}

func TestSelector_ContextMatch_Exists(t *testing.T) {
	s := Selector{ContextMatch: []ContextMatch{{Path: "tool_requests", Op: OpExists}}}
	if !s.Matches(Event{Context: map[string]interface{}{"tool_requests": []interface{}{"x"}}}) {
		t.Error("expected exists match")
	}
	if s.Matches(Event{Context: map[string]interface{}{}}) {
		t.Error("expected exists mismatch to fail when absent")
	}
}

func TestSelector_ContextMatch_Neq(t *testing.T) {
	s := Selector{ContextMatch: []ContextMatch{{Path: "status", Op: OpNeq, Value: "closed"}}}
	if !s.Matches(Event{Context: map[string]interface{}{"status": "open"}}) {
		t.Error("expected neq match")
	}
	// a missing field is "does not exist", which also satisfies neq.
	if !s.Matches(Event{Context: map[string]interface{}{}}) {
		t.Error("expected neq to hold when the field is absent")
	}
	if s.Matches(Event{Context: map[string]interface{}{"status": "closed"}}) {
		t.Error("expected neq mismatch to fail when equal")
	}
}

func TestSelector_ContextMatch_Contains(t *testing.T) {
	s := Selector{ContextMatch: []ContextMatch{{Path: "content", Op: OpContains, Value: "API key"}}}
	if !s.Matches(Event{Context: map[string]interface{}{"content": "here is my API key: xyz"}}) {
		t.Error("expected contains match over string")
	}
	if s.Matches(Event{Context: map[string]interface{}{"content": "nothing here"}}) {
		t.Error("expected contains mismatch to fail")
	}
}

func TestSelector_AllClausesMustHold(t *testing.T) {
	s := Selector{
		SchemaName: "user.message.v1",
		AllTags:    []string{"urgent"},
		ContextMatch: []ContextMatch{
			{Path: "content", Op: OpExists},
		},
	}
	match := Event{
		Schema:  "user.message.v1",
		Tags:    []string{"urgent"},
		Context: map[string]interface{}{"content": "hi"},
	}
	if !s.Matches(match) {
		t.Error("expected full match")
	}

	noTag := match
	noTag.Tags = nil
	if s.Matches(noTag) {
		t.Error("expected failure when all_tags clause fails")
	}
}
