package graph

import (
	"container/heap"
	"math"
	"sort"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
)

// Weights are the Pathfinder's relevance coefficients, §4.4's α/β/γ.
// Defaults are 0.4/0.3/0.3; a consumer config may override any of them.
type Weights struct {
	Alpha float64 // cosine(embedding) weight
	Beta  float64 // keyword Jaccard weight
	Gamma float64 // edge_proximity weight
}

// Candidate is one breadcrumb under consideration by the Pathfinder walk,
// carrying the token cost and relevance score it was scored with.
type Candidate struct {
	Breadcrumb *breadcrumb.Breadcrumb
	Cost       int
	Relevance  float64
}

// density is the greedy selection key: relevance per token spent.
func (c Candidate) density() float64 {
	if c.Cost <= 0 {
		return c.Relevance
	}
	return c.Relevance / float64(c.Cost)
}

// CosineSimilarity computes cosine similarity between two equal-length
// vectors. Returns 0 if either is empty or the lengths differ (missing
// embeddings score neutrally rather than erroring the walk).
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// pqItem is a node on the max-product-of-weights priority queue used by
// EdgeProximity's multi-source widest-path search.
type pqItem struct {
	id    string
	proxy float64
}

type proximityQueue []pqItem

func (q proximityQueue) Len() int            { return len(q) }
func (q proximityQueue) Less(i, j int) bool  { return q[i].proxy > q[j].proxy } // max-heap
func (q proximityQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *proximityQueue) Push(x interface{}) { *q = append(*q, x.(pqItem)) }
func (q *proximityQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// EdgeProximity computes, for every node reachable from seeds within the
// given adjacency, the maximum product of edge weights along any path from
// a seed — a widest-path (not shortest-hop) search, per §4.4's
// "Π weights along shortest path" definition where "shortest" means
// highest-product, since weight ∈ (0,1] and more hops only ever shrinks a
// product. Seeds score 1; unreached nodes are absent from the result
// (callers should default to 0).
func EdgeProximity(seeds []string, adjacency map[string][]breadcrumb.Edge) map[string]float64 {
	best := make(map[string]float64, len(adjacency))
	pq := &proximityQueue{}
	heap.Init(pq)
	for _, s := range seeds {
		if cur, ok := best[s]; !ok || cur < 1 {
			best[s] = 1
			heap.Push(pq, pqItem{id: s, proxy: 1})
		}
	}

	for pq.Len() > 0 {
		item := heap.Pop(pq).(pqItem)
		if item.proxy < best[item.id] {
			continue // stale entry
		}
		for _, e := range adjacency[item.id] {
			other := e.DstID
			if other == item.id {
				other = e.SrcID
			}
			candidate := item.proxy * e.Weight
			if cur, ok := best[other]; !ok || candidate > cur {
				best[other] = candidate
				heap.Push(pq, pqItem{id: other, proxy: candidate})
			}
		}
	}
	return best
}

// Relevance scores node against trigger per §4.4's rel(n) formula.
func Relevance(node, trigger *breadcrumb.Breadcrumb, pointerSet map[string]bool, proximity float64, w Weights) float64 {
	cos := CosineSimilarity(node.Embedding, trigger.Embedding)
	nodeSet := make(map[string]bool, len(node.EntityKeywords))
	for _, k := range node.EntityKeywords {
		nodeSet[k] = true
	}
	jac := jaccard(nodeSet, pointerSet)
	return w.Alpha*cos + w.Beta*jac + w.Gamma*proximity
}

func jaccard(a, b map[string]bool) float64 {
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

// Walk selects the subset of candidates that maximizes total relevance
// subject to a total cost budget, using a greedy-by-density heuristic with
// a small beam to correct the pathology where the single highest-density
// item crowds out a much better combination. It tries beamWidth distinct
// starting candidates (the top beamWidth by density) and keeps the
// resulting selection with the highest total relevance.
//
// Ties in density break by more recent UpdatedAt, then by ID for
// determinism, matching §4.4's tie-break policy.
func Walk(candidates []Candidate, budget, beamWidth int) (selected []Candidate, tokensUsed int) {
	if len(candidates) == 0 || budget <= 0 {
		return nil, 0
	}

	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		di, dj := ordered[i].density(), ordered[j].density()
		if di != dj {
			return di > dj
		}
		ui, uj := ordered[i].Breadcrumb.UpdatedAt, ordered[j].Breadcrumb.UpdatedAt
		if !ui.Equal(uj) {
			return ui.After(uj)
		}
		return ordered[i].Breadcrumb.ID < ordered[j].Breadcrumb.ID
	})

	minCost := ordered[0].Cost
	for _, c := range ordered {
		if c.Cost < minCost {
			minCost = c.Cost
		}
	}

	n := beamWidth
	if n > len(ordered) {
		n = len(ordered)
	}
	if n < 1 {
		n = 1
	}

	var bestSel []Candidate
	bestScore := -1.0
	bestCost := 0
	for start := 0; start < n; start++ {
		sel, score, cost := greedyFill(ordered, start, budget, minCost)
		if score > bestScore {
			bestSel, bestScore, bestCost = sel, score, cost
		}
	}
	return bestSel, bestCost
}

func greedyFill(ordered []Candidate, startIdx, budget, minCost int) ([]Candidate, float64, int) {
	remaining := budget
	var total float64
	var sel []Candidate

	take := func(c Candidate) bool {
		if c.Cost > remaining {
			return false
		}
		sel = append(sel, c)
		remaining -= c.Cost
		total += c.Relevance
		return true
	}

	take(ordered[startIdx])
	for i, c := range ordered {
		if i == startIdx {
			continue
		}
		if remaining < minCost {
			break
		}
		take(c)
	}
	return sel, total, budget - remaining
}
