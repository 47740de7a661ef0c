package graph

// Betweenness computes normalized betweenness centrality for all nodes
// using Brandes' algorithm over forward edges. In a referral graph a node
// scores high when many recruitment chains pass through it, which marks it
// as a broker between the people above and below it.
//
// Scores are normalized to [0, 1] using the directed-graph normalization
// factor (n-1)*(n-2). Returns a map of node ID to centrality score.
func Betweenness(g *Graph) map[string]float64 {
	cb := make(map[string]float64, g.Len())
	for _, id := range g.order {
		cb[id] = 0
	}

	n := g.Len()
	if n < 3 {
		return cb
	}

	for _, s := range g.order {
		pc, pred := brandesBFS(g, s)
		brandesAccumulate(s, pc, pred, cb)
	}

	normFactor := float64((n - 1) * (n - 2))
	for id := range cb {
		cb[id] /= normFactor
	}
	return cb
}

// brandesBFS is CountPaths with predecessor tracking, the first phase of
// Brandes' algorithm.
func brandesBFS(g *Graph, s string) (PathCounts, map[string][]string) {
	pc := PathCounts{
		Source: s,
		Dist:   map[string]int{s: 0},
		Sigma:  map[string]float64{s: 1},
	}
	pred := make(map[string][]string)

	queue := []string{s}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		pc.Order = append(pc.Order, v)

		for _, w := range g.succ[v] {
			dw, seen := pc.Dist[w]
			if !seen {
				dw = pc.Dist[v] + 1
				pc.Dist[w] = dw
				queue = append(queue, w)
			}
			if dw == pc.Dist[v]+1 {
				pc.Sigma[w] += pc.Sigma[v]
				pred[w] = append(pred[w], v)
			}
		}
	}
	return pc, pred
}

// brandesAccumulate back-propagates pair dependencies in reverse BFS order
// and adds them into cb.
func brandesAccumulate(s string, pc PathCounts, pred map[string][]string, cb map[string]float64) {
	delta := make(map[string]float64, len(pc.Order))
	for i := len(pc.Order) - 1; i >= 0; i-- {
		w := pc.Order[i]
		for _, v := range pred[w] {
			delta[v] += (pc.Sigma[v] / pc.Sigma[w]) * (1 + delta[w])
		}
		if w != s {
			cb[w] += delta[w]
		}
	}
}
