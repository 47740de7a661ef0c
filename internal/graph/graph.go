// Package graph provides a small directed graph engine used for referral
// analysis. It supports path-counting breadth-first search in either edge
// direction, shortest-path membership queries, union-find partitioning,
// and centrality scoring (betweenness and PageRank).
//
// A Graph is not tied to trees: the referral forest hands over a snapshot of
// its edges, but every algorithm here works on arbitrary directed graphs.
package graph

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned when an operation references a non-existent node.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when adding a node that already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrSelfEdge is returned when an edge would create a self-loop.
var ErrSelfEdge = errors.New("self-referencing edge")

// Direction selects which edges a traversal follows.
type Direction int

const (
	Forward  Direction = iota // follow edges from tail to head
	Backward                  // follow edges from head to tail
)

// Graph is a directed graph over string node IDs. Nodes and the successors
// of each node are kept in insertion order so traversals are deterministic.
type Graph struct {
	order []string
	index map[string]int
	// succ maps nodeID → successors in insertion order (forward edges).
	succ map[string][]string
	// pred maps nodeID → predecessors in insertion order (backward edges).
	pred  map[string][]string
	edges map[[2]string]struct{}
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		index: make(map[string]int),
		succ:  make(map[string][]string),
		pred:  make(map[string][]string),
		edges: make(map[[2]string]struct{}),
	}
}

// AddNode adds a node with the given ID. Returns ErrDuplicateNode if a node
// with that ID already exists.
func (g *Graph) AddNode(id string) error {
	if _, exists := g.index[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	g.index[id] = len(g.order)
	g.order = append(g.order, id)
	return nil
}

// AddEdge adds a directed edge from → to. Both nodes must already exist.
// Adding an edge that is already present is a no-op.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	if !g.Has(from) {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if !g.Has(to) {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	key := [2]string{from, to}
	if _, ok := g.edges[key]; ok {
		return nil
	}
	g.edges[key] = struct{}{}
	g.succ[from] = append(g.succ[from], to)
	g.pred[to] = append(g.pred[to], from)
	return nil
}

// Has reports whether the node exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// HasEdge reports whether the edge from → to exists.
func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.edges[[2]string{from, to}]
	return ok
}

// Nodes returns all node IDs in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Successors returns the heads of edges leaving id, in insertion order.
// The returned slice must not be modified.
func (g *Graph) Successors(id string) []string {
	return g.succ[id]
}

// Predecessors returns the tails of edges entering id, in insertion order.
// The returned slice must not be modified.
func (g *Graph) Predecessors(id string) []string {
	return g.pred[id]
}

// Neighbors returns the nodes adjacent to id when walking in direction dir.
func (g *Graph) Neighbors(id string, dir Direction) []string {
	if dir == Backward {
		return g.pred[id]
	}
	return g.succ[id]
}

// Reverse returns a new graph with every edge flipped. Node order is kept.
func (g *Graph) Reverse() *Graph {
	r := New()
	for _, id := range g.order {
		_ = r.AddNode(id)
	}
	for _, from := range g.order {
		for _, to := range g.succ[from] {
			_ = r.AddEdge(to, from)
		}
	}
	return r
}

// Reachable returns every node reachable from id in direction dir,
// excluding id itself, in BFS order. Returns nil for unknown nodes.
func (g *Graph) Reachable(id string, dir Direction) []string {
	if !g.Has(id) {
		return nil
	}
	visited := map[string]bool{id: true}
	queue := []string{id}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.Neighbors(cur, dir) {
			if visited[next] {
				continue
			}
			visited[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}
