// Package graph holds RCRT's edge storage and the Pathfinder: the
// token-budget shortest-relevant-path walk the Context Assembly Engine uses
// to pick which breadcrumbs belong in an assembled context.
//
// Edges are small, explicit, allocation-light structs kept in per-tenant
// adjacency maps — there's no query planner to lean on here, so the walk
// stays a plain in-memory graph algorithm rather than a database round
// trip per hop.
package graph

import (
	"sync"
	"time"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
)

// Store holds directed, typed, weighted edges scoped per tenant. Safe for
// concurrent use. This is an in-process map fed by the breadcrumb store's
// write path, which adds the edges Infer (builder.go) derives on every
// create and update. Edges are kept in memory only: they are not written to
// pkg/store's edges table, and a Store starts empty at every process start.
type Store struct {
	mu sync.RWMutex
	// adjacency[tenantID][srcID] -> edges out of srcID.
	adjacency map[string]map[string][]breadcrumb.Edge
	// incoming[tenantID][dstID] -> edges into dstID, kept for incident-edge
	// lookups (the subgraph loader treats edges as undirected for hop
	// radius purposes, so both directions are walked).
	incoming map[string]map[string][]breadcrumb.Edge
}

// NewStore builds an empty edge store.
func NewStore() *Store {
	return &Store{
		adjacency: make(map[string]map[string][]breadcrumb.Edge),
		incoming:  make(map[string]map[string][]breadcrumb.Edge),
	}
}

// AddEdge inserts or updates e under tenantID. Duplicate (src, dst, kind)
// triples collapse to one edge, highest weight wins; self-edges are
// rejected.
func (s *Store) AddEdge(tenantID string, e breadcrumb.Edge) bool {
	if !e.Valid() {
		return false
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out, ok := s.adjacency[tenantID]
	if !ok {
		out = make(map[string][]breadcrumb.Edge)
		s.adjacency[tenantID] = out
	}
	out[e.SrcID] = upsertEdge(out[e.SrcID], e)

	in, ok := s.incoming[tenantID]
	if !ok {
		in = make(map[string][]breadcrumb.Edge)
		s.incoming[tenantID] = in
	}
	in[e.DstID] = upsertEdge(in[e.DstID], e)
	return true
}

// upsertEdge inserts e into edges, collapsing a duplicate (src, dst, kind)
// triple into the higher-weight edge. edges is either a src's outgoing list
// or a dst's incoming list, so matching on (SrcID, DstID, Kind) together is
// enough regardless of which list is being updated.
func upsertEdge(edges []breadcrumb.Edge, e breadcrumb.Edge) []breadcrumb.Edge {
	for i, existing := range edges {
		if existing.SrcID == e.SrcID && existing.DstID == e.DstID && existing.Kind == e.Kind {
			if e.Weight > existing.Weight {
				edges[i] = e
			}
			return edges
		}
	}
	return append(edges, e)
}

// IncidentEdges returns every edge touching id (either direction) within
// tenantID.
func (s *Store) IncidentEdges(tenantID, id string) []breadcrumb.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []breadcrumb.Edge
	out = append(out, s.adjacency[tenantID][id]...)
	out = append(out, s.incoming[tenantID][id]...)
	return out
}

// Neighborhood performs a bounded breadth-first expansion from seeds out to
// hopRadius hops, treating edges as undirected, and returns the set of
// discovered node ids (including the seeds) capped at nodeCap, along with
// the full adjacency restricted to those nodes for the Pathfinder's
// edge_proximity computation.
func (s *Store) Neighborhood(tenantID string, seeds []string, hopRadius, nodeCap int) (nodes []string, adjacency map[string][]breadcrumb.Edge) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := make(map[string]bool, len(seeds))
	queue := make([]string, 0, len(seeds))
	for _, id := range seeds {
		if !visited[id] {
			visited[id] = true
			queue = append(queue, id)
		}
	}

	adjacency = make(map[string][]breadcrumb.Edge)
	frontier := queue
	for hop := 0; hop < hopRadius && len(visited) < nodeCap; hop++ {
		var next []string
		for _, id := range frontier {
			edges := append(append([]breadcrumb.Edge{}, s.adjacency[tenantID][id]...), s.incoming[tenantID][id]...)
			adjacency[id] = edges
			for _, e := range edges {
				other := e.DstID
				if other == id {
					other = e.SrcID
				}
				if visited[other] {
					continue
				}
				if len(visited) >= nodeCap {
					break
				}
				visited[other] = true
				next = append(next, other)
			}
		}
		frontier = next
	}

	nodes = make([]string, 0, len(visited))
	for id := range visited {
		nodes = append(nodes, id)
	}
	return nodes, adjacency
}
