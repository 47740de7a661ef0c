package graph

// UnionFind implements a disjoint-set (union-find) data structure with
// path compression and union by rank. Each set also tracks its size so
// callers can ask how large a connected component is.
type UnionFind struct {
	parent map[string]string
	rank   map[string]int
	size   map[string]int
}

// NewUnionFind creates an empty UnionFind.
func NewUnionFind() *UnionFind {
	return &UnionFind{
		parent: make(map[string]string),
		rank:   make(map[string]int),
		size:   make(map[string]int),
	}
}

// Add inserts an element as its own singleton set. If the element
// already exists, this is a no-op.
func (uf *UnionFind) Add(x string) {
	if _, ok := uf.parent[x]; ok {
		return
	}
	uf.parent[x] = x
	uf.rank[x] = 0
	uf.size[x] = 1
}

// Find returns the representative (root) of the set containing x.
// If x has not been added, it is auto-added as a singleton first.
func (uf *UnionFind) Find(x string) string {
	if _, ok := uf.parent[x]; !ok {
		uf.Add(x)
		return x
	}
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	// Path compression.
	for x != root {
		next := uf.parent[x]
		uf.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets containing x and y and reports whether a merge
// happened. It returns false when x and y are already in the same set,
// which is how callers detect that a new edge would close a cycle.
func (uf *UnionFind) Union(x, y string) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}
	// Attach the shorter tree under the taller one.
	switch {
	case uf.rank[rx] < uf.rank[ry]:
		rx, ry = ry, rx
	case uf.rank[rx] == uf.rank[ry]:
		uf.rank[rx]++
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	delete(uf.size, ry)
	return true
}

// Connected reports whether x and y belong to the same set.
func (uf *UnionFind) Connected(x, y string) bool {
	return uf.Find(x) == uf.Find(y)
}

// Size returns the number of elements in the set containing x.
func (uf *UnionFind) Size(x string) int {
	return uf.size[uf.Find(x)]
}

// Len returns the number of elements tracked.
func (uf *UnionFind) Len() int {
	return len(uf.parent)
}

// Sets returns the number of disjoint sets.
func (uf *UnionFind) Sets() int {
	return len(uf.size)
}

// Components returns the disjoint sets as a map from each set's
// representative to the list of members. The member lists are
// returned in no guaranteed order.
func (uf *UnionFind) Components() map[string][]string {
	groups := make(map[string][]string)
	for x := range uf.parent {
		root := uf.Find(x)
		groups[root] = append(groups[root], x)
	}
	return groups
}
