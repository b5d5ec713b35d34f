package transform

import (
	"reflect"
	"testing"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/testutils"
)

func newTestBreadcrumb(context map[string]interface{}, hints *breadcrumb.LLMHints) *breadcrumb.Breadcrumb {
	return &breadcrumb.Breadcrumb{
		ID:       "bc-1",
		TenantID: "tenant-a",
		Schema:   "tool.code.v1",
		Title:    "astral",
		Context:  context,
		LLMHints: hints,
	}
}

func TestView_NoHints_PassesContextThrough(t *testing.T) {
	svc := New(nil, nil)
	b := newTestBreadcrumb(map[string]interface{}{"a": 1}, nil)
	view := svc.View(b)
	if !reflect.DeepEqual(view, map[string]interface{}{"a": float64(1)}) {
		t.Errorf("view = %v", view)
	}
}

func TestView_Exclude(t *testing.T) {
	svc := New(nil, nil)
	b := newTestBreadcrumb(map[string]interface{}{
		"name":   "astral",
		"secret": map[string]interface{}{"token": "xyz"},
	}, &breadcrumb.LLMHints{Exclude: []string{"secret"}})

	view := svc.View(b)
	if _, ok := view["secret"]; ok {
		t.Error("expected secret to be excluded")
	}
	if view["name"] != "astral" {
		t.Errorf("expected name to survive exclude, got %v", view["name"])
	}
}

func TestView_TransformLiteral_ReplaceMode(t *testing.T) {
	svc := New(nil, nil)
	b := newTestBreadcrumb(map[string]interface{}{"name": "astral"}, &breadcrumb.LLMHints{
		Mode: breadcrumb.ModeReplace,
		Transform: map[string]breadcrumb.TransformRule{
			"label": {Kind: breadcrumb.RuleLiteral, Literal: "fixed"},
		},
	})
	view := svc.View(b)
	if !reflect.DeepEqual(view, map[string]interface{}{"label": "fixed"}) {
		t.Errorf("view = %v", view)
	}
}

func TestView_TransformFormat_MergeMode(t *testing.T) {
	svc := New(nil, nil)
	b := newTestBreadcrumb(map[string]interface{}{"name": "astral", "kind": "tool"}, &breadcrumb.LLMHints{
		Mode: breadcrumb.ModeMerge,
		Transform: map[string]breadcrumb.TransformRule{
			"summary": {Kind: breadcrumb.RuleFormat, Format: "{name} is a {kind}"},
		},
	})
	view := svc.View(b)
	if view["summary"] != "astral is a tool" {
		t.Errorf("summary = %v", view["summary"])
	}
	if view["name"] != "astral" {
		t.Error("merge mode should keep original fields alongside computed ones")
	}
}

func TestView_TransformExtract(t *testing.T) {
	svc := New(nil, nil)
	b := newTestBreadcrumb(map[string]interface{}{
		"limits": map[string]interface{}{"timeout": float64(30000)},
	}, &breadcrumb.LLMHints{
		Mode: breadcrumb.ModeReplace,
		Transform: map[string]breadcrumb.TransformRule{
			"timeout": {Kind: breadcrumb.RuleExtract, Path: "limits.timeout"},
		},
	})
	view := svc.View(b)
	if view["timeout"] != float64(30000) {
		t.Errorf("timeout = %v", view["timeout"])
	}
}

func TestView_BadTransformRule_SkipsAndContinues(t *testing.T) {
	svc := New(nil, nil)
	b := newTestBreadcrumb(map[string]interface{}{"name": "astral"}, &breadcrumb.LLMHints{
		Mode: breadcrumb.ModeMerge,
		Transform: map[string]breadcrumb.TransformRule{
			"broken": {Kind: breadcrumb.RuleExtract, Path: "does.not.exist"},
			"label":  {Kind: breadcrumb.RuleLiteral, Literal: "ok"},
		},
	})
	view := svc.View(b)
	if _, ok := view["broken"]; ok {
		t.Error("a failing rule must not appear in the view")
	}
	if view["label"] != "ok" {
		t.Error("a failing rule must not prevent other rules from applying")
	}
	if view["name"] != "astral" {
		t.Error("merge mode should still keep original fields when a rule fails")
	}
}

func TestEffectiveHints_InstanceOverridesSchemaKeyWise(t *testing.T) {
	svc := New(nil, nil)
	svc.SetSchemaDefault("tool.code.v1", &breadcrumb.LLMHints{
		Exclude: []string{"a"},
		Mode:    breadcrumb.ModeMerge,
		Transform: map[string]breadcrumb.TransformRule{
			"x": {Kind: breadcrumb.RuleLiteral, Literal: "schema-default"},
		},
	})
	b := newTestBreadcrumb(nil, &breadcrumb.LLMHints{
		Transform: map[string]breadcrumb.TransformRule{
			"x": {Kind: breadcrumb.RuleLiteral, Literal: "instance-override"},
		},
	})
	hints := svc.EffectiveHints(b)
	if hints.Transform["x"].Literal != "instance-override" {
		t.Errorf("instance hint should override schema default, got %v", hints.Transform["x"].Literal)
	}
	if len(hints.Exclude) != 1 || hints.Exclude[0] != "a" {
		t.Errorf("schema exclude should survive when instance doesn't override it, got %v", hints.Exclude)
	}
}

func TestInvalidateSchema_DropsCachedDefault(t *testing.T) {
	svc := New(nil, nil)
	svc.SetSchemaDefault("tool.code.v1", &breadcrumb.LLMHints{Exclude: []string{"a"}})
	svc.InvalidateSchema("tool.code.v1")
	b := newTestBreadcrumb(nil, nil)
	if hints := svc.EffectiveHints(b); hints != nil {
		t.Errorf("expected nil hints after invalidation, got %v", hints)
	}
}

func TestShouldEmbed_NoEmbedSet(t *testing.T) {
	if ShouldEmbed("schema.def.v1", nil) {
		t.Error("schema.def.v1 must never be embedded")
	}
	if ShouldEmbed("secret.v1", nil) {
		t.Error("secret.v1 must never be embedded")
	}
	if !ShouldEmbed("user.message.v1", nil) {
		t.Error("an ordinary schema should be embed-eligible")
	}
}

func TestShouldEmbed_RuntimeBlacklist(t *testing.T) {
	if !ShouldEmbed("custom.schema.v1", nil) {
		t.Error("expected eligible before blacklisting")
	}
	if ShouldEmbed("custom.schema.v1", map[string]bool{"custom.schema.v1": true}) {
		t.Error("expected runtime blacklist to suppress embedding")
	}
}

func TestEmbed_NoEmbedderConfigured(t *testing.T) {
	svc := New(nil, nil)
	vec, ok, err := svc.Embed("hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected ok=false with no embedder configured")
	}
	if vec != nil {
		t.Errorf("expected nil vector, got %v", vec)
	}
}

func TestEmbed_NormalizesL2(t *testing.T) {
	svc := New(testutils.FakeEmbedder{}, nil)
	vec, ok, err := svc.Embed("hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true with a configured embedder")
	}
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares < 0.999 || sumSquares > 1.001 {
		t.Errorf("expected unit-normalized vector, sum of squares = %v", sumSquares)
	}
}

func TestEmbeddingText_FallsBackToTitlePlusContext(t *testing.T) {
	svc := New(nil, nil)
	b := newTestBreadcrumb(map[string]interface{}{"content": "hi"}, nil)
	b.Title = "hello"
	text, ok := svc.EmbeddingText(b)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if text == "" {
		t.Error("expected non-empty fallback embedding text")
	}
}

func TestEmbeddingText_PrefersExplicitField(t *testing.T) {
	svc := New(nil, nil)
	b := newTestBreadcrumb(map[string]interface{}{
		"embedding_text": "the explicit surface string",
		"other":          "ignored",
	}, nil)
	text, ok := svc.EmbeddingText(b)
	if !ok || text != "the explicit surface string" {
		t.Errorf("text = %q, ok = %v", text, ok)
	}
}

func TestDeriveKeywords_UnionsPointerTagsAndMinedWords(t *testing.T) {
	keywords := DeriveKeywords([]string{"workspace:agents", "browser-automation", "draft"}, "Hello World automation")
	set := map[string]bool{}
	for _, k := range keywords {
		set[k] = true
	}
	if set["workspace:agents"] {
		t.Error("routing tags must not appear in entity_keywords")
	}
	if !set["browser-automation"] || !set["draft"] {
		t.Error("expected pointer/state tags present")
	}
	if !set["hello"] || !set["world"] || !set["automation"] {
		t.Errorf("expected mined keywords present, got %v", keywords)
	}
}

func TestJaccard(t *testing.T) {
	a := map[string]bool{"x": true, "y": true}
	b := map[string]bool{"y": true, "z": true}
	got := Jaccard(a, b)
	if got != 1.0/3.0 {
		t.Errorf("Jaccard = %v, want 1/3", got)
	}
	if Jaccard(nil, nil) != 0 {
		t.Error("Jaccard of two empty sets should be 0")
	}
}
