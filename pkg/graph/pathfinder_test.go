package graph

import (
	"testing"
	"time"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 0}
	if got := CosineSimilarity(a, b); got != 1 {
		t.Errorf("identical vectors = %v, want 1", got)
	}

	orth := []float32{0, 1}
	if got := CosineSimilarity(a, orth); got != 0 {
		t.Errorf("orthogonal vectors = %v, want 0", got)
	}

	if got := CosineSimilarity(nil, a); got != 0 {
		t.Errorf("empty vector = %v, want 0", got)
	}

	if got := CosineSimilarity([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("mismatched length = %v, want 0", got)
	}
}

func TestEdgeProximity_SeedsScoreOne(t *testing.T) {
	adjacency := map[string][]breadcrumb.Edge{
		"seed": {{SrcID: "seed", DstID: "mid", Weight: 0.5}},
		"mid":  {{SrcID: "seed", DstID: "mid", Weight: 0.5}, {SrcID: "mid", DstID: "far", Weight: 0.4}},
		"far":  {{SrcID: "mid", DstID: "far", Weight: 0.4}},
	}
	proximity := EdgeProximity([]string{"seed"}, adjacency)
	if proximity["seed"] != 1 {
		t.Errorf("seed proximity = %v, want 1", proximity["seed"])
	}
	if proximity["mid"] != 0.5 {
		t.Errorf("mid proximity = %v, want 0.5", proximity["mid"])
	}
	want := 0.5 * 0.4
	if diff := proximity["far"] - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("far proximity = %v, want %v", proximity["far"], want)
	}
	if _, ok := proximity["unreachable"]; ok {
		t.Error("unreachable node should be absent, caller defaults to 0")
	}
}

func TestEdgeProximity_PrefersWidestPath(t *testing.T) {
	// Two paths from seed to dst: a short low-weight hop and a longer
	// high-product path. EdgeProximity should find the higher product.
	adjacency := map[string][]breadcrumb.Edge{
		"seed": {
			{SrcID: "seed", DstID: "dst", Weight: 0.1},
			{SrcID: "seed", DstID: "mid", Weight: 0.9},
		},
		"mid": {
			{SrcID: "seed", DstID: "mid", Weight: 0.9},
			{SrcID: "mid", DstID: "dst", Weight: 0.9},
		},
		"dst": {
			{SrcID: "seed", DstID: "dst", Weight: 0.1},
			{SrcID: "mid", DstID: "dst", Weight: 0.9},
		},
	}
	proximity := EdgeProximity([]string{"seed"}, adjacency)
	want := 0.9 * 0.9
	if diff := proximity["dst"] - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("dst proximity = %v, want %v (via the higher-product path)", proximity["dst"], want)
	}
}

func bc(id string, updatedAt time.Time) *breadcrumb.Breadcrumb {
	return &breadcrumb.Breadcrumb{ID: id, UpdatedAt: updatedAt}
}

func TestWalk_RespectsBudget(t *testing.T) {
	now := time.Now()
	candidates := []Candidate{
		{Breadcrumb: bc("a", now), Cost: 100, Relevance: 1.0},
		{Breadcrumb: bc("b", now), Cost: 100, Relevance: 0.9},
		{Breadcrumb: bc("c", now), Cost: 100, Relevance: 0.8},
	}
	selected, used := Walk(candidates, 150, 4)
	if used > 150 {
		t.Fatalf("used %d tokens, exceeds budget 150", used)
	}
	if len(selected) == 0 {
		t.Fatal("expected at least one candidate selected")
	}
}

func TestWalk_EmptyOrZeroBudget(t *testing.T) {
	selected, used := Walk(nil, 100, 4)
	if selected != nil || used != 0 {
		t.Errorf("expected empty result for no candidates, got %v/%d", selected, used)
	}

	candidates := []Candidate{{Breadcrumb: bc("a", time.Now()), Cost: 10, Relevance: 1}}
	selected, used = Walk(candidates, 0, 4)
	if selected != nil || used != 0 {
		t.Errorf("expected empty result for zero budget, got %v/%d", selected, used)
	}
}

func TestWalk_PrefersHigherTotalRelevance(t *testing.T) {
	now := time.Now()
	// A single expensive high-density item crowds out two cheaper items
	// that together score higher; the beam should find the better
	// combination.
	candidates := []Candidate{
		{Breadcrumb: bc("big", now), Cost: 60, Relevance: 1.5},
		{Breadcrumb: bc("small1", now), Cost: 50, Relevance: 0.9},
		{Breadcrumb: bc("small2", now), Cost: 50, Relevance: 0.9},
	}
	selected, _ := Walk(candidates, 100, 4)
	var total float64
	ids := map[string]bool{}
	for _, c := range selected {
		total += c.Relevance
		ids[c.Breadcrumb.ID] = true
	}
	if total < 1.8 {
		t.Errorf("expected a combination scoring at least 1.8, got %v (%v)", total, ids)
	}
}

func TestWalk_TieBreakByRecencyThenID(t *testing.T) {
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	candidates := []Candidate{
		{Breadcrumb: bc("z", older), Cost: 10, Relevance: 1.0},
		{Breadcrumb: bc("a", newer), Cost: 10, Relevance: 1.0},
	}
	selected, _ := Walk(candidates, 10, 4)
	if len(selected) != 1 || selected[0].Breadcrumb.ID != "a" {
		t.Errorf("expected the more recently updated candidate to win the tie, got %v", selected)
	}
}

func TestRelevance_WeightedSum(t *testing.T) {
	trigger := &breadcrumb.Breadcrumb{Embedding: []float32{1, 0}}
	node := &breadcrumb.Breadcrumb{Embedding: []float32{1, 0}, EntityKeywords: []string{"x"}}
	pointerSet := map[string]bool{"x": true}
	w := Weights{Alpha: 0.4, Beta: 0.3, Gamma: 0.3}
	got := Relevance(node, trigger, pointerSet, 1.0, w)
	want := 0.4*1.0 + 0.3*1.0 + 0.3*1.0
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Relevance = %v, want %v", got, want)
	}
}
