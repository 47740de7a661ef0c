package graph

// PathCounts holds the result of a path-counting BFS from a single source.
// Dist is the hop distance from the source (-1 when unreachable) and Sigma
// is the number of distinct shortest paths from the source to each node.
type PathCounts struct {
	Source string
	Dist   map[string]int
	Sigma  map[string]float64
	// Order lists reachable nodes in non-decreasing distance order.
	Order []string
}

// Distance returns the hop distance to id, or -1 if unreachable or unknown.
func (pc PathCounts) Distance(id string) int {
	d, ok := pc.Dist[id]
	if !ok {
		return -1
	}
	return d
}

// CountPaths runs a breadth-first search from source following edges in
// direction dir. For every edge (u,w) where dist(w) = dist(u)+1 it adds
// sigma(u) into sigma(w), so sigma ends up holding the number of shortest
// paths from source. Every node of g is present in Dist and Sigma; an
// unknown source yields all distances -1.
func CountPaths(g *Graph, source string, dir Direction) PathCounts {
	n := g.Len()
	pc := PathCounts{
		Source: source,
		Dist:   make(map[string]int, n),
		Sigma:  make(map[string]float64, n),
		Order:  make([]string, 0, n),
	}
	for _, id := range g.order {
		pc.Dist[id] = -1
		pc.Sigma[id] = 0
	}
	if !g.Has(source) {
		return pc
	}

	pc.Dist[source] = 0
	pc.Sigma[source] = 1
	queue := []string{source}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		pc.Order = append(pc.Order, u)

		for _, w := range g.Neighbors(u, dir) {
			if pc.Dist[w] < 0 {
				pc.Dist[w] = pc.Dist[u] + 1
				queue = append(queue, w)
			}
			if pc.Dist[w] == pc.Dist[u]+1 {
				pc.Sigma[w] += pc.Sigma[u]
			}
		}
	}
	return pc
}

// GeodesicResult describes whether a candidate lies on a shortest path
// between a source and a target.
type GeodesicResult struct {
	// OnPath is true when at least one shortest source→target path visits
	// the candidate.
	OnPath bool
	// Fraction is Through / Total, the share of shortest paths through the
	// candidate. Zero when OnPath is false.
	Fraction float64
	// Through is the number of shortest source→target paths via the candidate.
	Through float64
	// Total is the number of shortest source→target paths.
	Total float64
	// Distance is the source→target hop distance, -1 when unreachable.
	Distance int
}

// Geodesic reports whether v lies on a shortest path from s to t. It runs
// one BFS forward from s and one backward from t, then applies the
// additivity test dist_s(v) + dist_t(v) = dist_s(t). Unreachable pairs are
// a normal outcome and yield a zero result, not an error.
func Geodesic(g *Graph, s, t, v string) GeodesicResult {
	fromS := CountPaths(g, s, Forward)
	toT := CountPaths(g, t, Backward)

	res := GeodesicResult{Distance: fromS.Distance(t)}
	if res.Distance < 0 {
		return res
	}
	res.Total = fromS.Sigma[t]

	dv := fromS.Distance(v)
	rv := toT.Distance(v)
	if dv < 0 || rv < 0 {
		return res
	}
	if dv+rv != res.Distance || res.Total == 0 {
		return res
	}

	res.Through = fromS.Sigma[v] * toT.Sigma[v]
	res.OnPath = res.Through > 0
	res.Fraction = res.Through / res.Total
	return res
}
