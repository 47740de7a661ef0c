package graph

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// build creates a graph from a node list and an edge list.
func build(t *testing.T, nodes []string, edges [][2]string) *Graph {
	t.Helper()
	g := New()
	for _, id := range nodes {
		if err := g.AddNode(id); err != nil {
			t.Fatalf("AddNode(%q): %v", id, err)
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%q, %q): %v", e[0], e[1], err)
		}
	}
	return g
}

const floatTol = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTol
}

func TestNew(t *testing.T) {
	t.Parallel()
	g := New()
	if g.Len() != 0 {
		t.Errorf("new graph has %d nodes, want 0", g.Len())
	}
	if g.EdgeCount() != 0 {
		t.Errorf("new graph has %d edges, want 0", g.EdgeCount())
	}
}

func TestAddNode(t *testing.T) {
	t.Parallel()

	t.Run("keeps insertion order", func(t *testing.T) {
		t.Parallel()
		g := build(t, []string{"c", "a", "b"}, nil)
		if diff := cmp.Diff([]string{"c", "a", "b"}, g.Nodes()); diff != "" {
			t.Errorf("Nodes() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()
		g := build(t, []string{"a"}, nil)
		if err := g.AddNode("a"); !errors.Is(err, ErrDuplicateNode) {
			t.Errorf("got %v, want ErrDuplicateNode", err)
		}
	})
}

func TestAddEdge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from, to string
		wantErr  error
	}{
		{"basic", "a", "b", nil},
		{"self edge", "a", "a", ErrSelfEdge},
		{"missing tail", "x", "b", ErrNodeNotFound},
		{"missing head", "a", "x", ErrNodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := build(t, []string{"a", "b"}, nil)
			err := g.AddEdge(tt.from, tt.to)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AddEdge(%q, %q) = %v, want %v", tt.from, tt.to, err, tt.wantErr)
			}
		})
	}

	t.Run("duplicate edge is no-op", func(t *testing.T) {
		t.Parallel()
		g := build(t, []string{"a", "b"}, [][2]string{{"a", "b"}})
		if err := g.AddEdge("a", "b"); err != nil {
			t.Fatalf("duplicate AddEdge returned error: %v", err)
		}
		if g.EdgeCount() != 1 {
			t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
		}
		if len(g.Successors("a")) != 1 {
			t.Errorf("Successors(a) = %v, want one entry", g.Successors("a"))
		}
	})
}

func TestReverse(t *testing.T) {
	t.Parallel()
	g := build(t, []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"a", "c"}})
	r := g.Reverse()

	if !r.HasEdge("b", "a") || !r.HasEdge("c", "a") {
		t.Error("reversed graph is missing flipped edges")
	}
	if r.HasEdge("a", "b") {
		t.Error("reversed graph still has original edge a → b")
	}
	if diff := cmp.Diff(g.Successors("a"), r.Predecessors("a")); diff != "" {
		t.Errorf("predecessor order mismatch (-want +got):\n%s", diff)
	}
}

func TestReachable(t *testing.T) {
	t.Parallel()
	//   a → b → d
	//   a → c
	g := build(t, []string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}})

	if diff := cmp.Diff([]string{"b", "c", "d"}, g.Reachable("a", Forward)); diff != "" {
		t.Errorf("Reachable(a, Forward) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "a"}, g.Reachable("d", Backward)); diff != "" {
		t.Errorf("Reachable(d, Backward) mismatch (-want +got):\n%s", diff)
	}
	if got := g.Reachable("zzz", Forward); got != nil {
		t.Errorf("Reachable(unknown) = %v, want nil", got)
	}
}

func TestUnionFind(t *testing.T) {
	t.Parallel()

	t.Run("union reports merges", func(t *testing.T) {
		t.Parallel()
		uf := NewUnionFind()
		for _, x := range []string{"a", "b", "c"} {
			uf.Add(x)
		}
		if !uf.Union("a", "b") {
			t.Error("Union(a, b) = false, want true")
		}
		if uf.Union("b", "a") {
			t.Error("Union(b, a) after merge = true, want false")
		}
		if !uf.Connected("a", "b") {
			t.Error("a and b should be connected")
		}
		if uf.Connected("a", "c") {
			t.Error("a and c should not be connected")
		}
	})

	t.Run("sizes and set count", func(t *testing.T) {
		t.Parallel()
		uf := NewUnionFind()
		for _, x := range []string{"a", "b", "c", "d", "e"} {
			uf.Add(x)
		}
		uf.Union("a", "b")
		uf.Union("c", "d")
		uf.Union("b", "d")
		if got := uf.Size("a"); got != 4 {
			t.Errorf("Size(a) = %d, want 4", got)
		}
		if got := uf.Size("e"); got != 1 {
			t.Errorf("Size(e) = %d, want 1", got)
		}
		if got := uf.Sets(); got != 2 {
			t.Errorf("Sets() = %d, want 2", got)
		}
		if got := len(uf.Components()); got != 2 {
			t.Errorf("len(Components()) = %d, want 2", got)
		}
	})

	t.Run("find auto-adds", func(t *testing.T) {
		t.Parallel()
		uf := NewUnionFind()
		if got := uf.Find("x"); got != "x" {
			t.Errorf("Find(x) = %q, want x", got)
		}
		if uf.Len() != 1 {
			t.Errorf("Len() = %d, want 1", uf.Len())
		}
	})

	t.Run("long chain compresses", func(t *testing.T) {
		t.Parallel()
		uf := NewUnionFind()
		ids := make([]string, 200)
		for i := range ids {
			ids[i] = string(rune('A'+i%26)) + string(rune('a'+i/26))
			uf.Add(ids[i])
		}
		for i := 1; i < len(ids); i++ {
			if !uf.Union(ids[i-1], ids[i]) {
				t.Fatalf("Union(%s, %s) = false", ids[i-1], ids[i])
			}
		}
		if got := uf.Size(ids[0]); got != len(ids) {
			t.Errorf("Size = %d, want %d", got, len(ids))
		}
	})
}
