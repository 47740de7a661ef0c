package graph

import (
	"math"
	"sort"
)

// PageRankOptions configures the iterative PageRank algorithm.
type PageRankOptions struct {
	Damping       float64 // damping factor; typically 0.85
	Epsilon       float64 // convergence threshold
	MaxIterations int     // upper bound on iterations
}

// DefaultPageRankOptions returns production-ready defaults:
// damping 0.85, epsilon 1e-6, max 100 iterations.
func DefaultPageRankOptions() PageRankOptions {
	return PageRankOptions{
		Damping:       0.85,
		Epsilon:       1e-6,
		MaxIterations: 100,
	}
}

// PageRank computes iterative PageRank scores where each edge u→v passes
// a share of u's rank to v. Dangling nodes (no outgoing edges)
// redistribute their rank uniformly, following the standard treatment.
// Scores sum to approximately 1.0.
func PageRank(g *Graph, opts PageRankOptions) map[string]float64 {
	n := g.Len()
	if n == 0 {
		return make(map[string]float64)
	}

	nf := float64(n)
	base := (1.0 - opts.Damping) / nf

	rank := make(map[string]float64, n)
	for _, id := range g.order {
		rank[id] = 1.0 / nf
	}

	for iter := 0; iter < opts.MaxIterations; iter++ {
		var danglingSum float64
		for _, id := range g.order {
			if len(g.succ[id]) == 0 {
				danglingSum += rank[id]
			}
		}
		danglingShare := opts.Damping * danglingSum / nf

		next := make(map[string]float64, n)
		maxDelta := 0.0
		for _, v := range g.order {
			var sum float64
			for _, u := range g.pred[v] {
				sum += rank[u] / float64(len(g.succ[u]))
			}
			next[v] = base + opts.Damping*sum + danglingShare
			if d := math.Abs(next[v] - rank[v]); d > maxDelta {
				maxDelta = d
			}
		}

		rank = next
		if maxDelta < opts.Epsilon {
			break
		}
	}
	return rank
}

// Score pairs a node with a composite score.
type Score struct {
	ID    string
	Value float64
}

// Blend combines two score maps into a ranked list:
//
//	Value = alpha * a/max(a) + (1-alpha) * b
//
// The first map is normalized to [0, 1] by its maximum; the second is
// assumed to be normalized already. Ties keep the node order of g.
func Blend(g *Graph, a, b map[string]float64, alpha float64) []Score {
	maxA := 0.0
	for _, v := range a {
		if v > maxA {
			maxA = v
		}
	}
	scores := make([]Score, 0, g.Len())
	for _, id := range g.order {
		na := a[id]
		if maxA > 0 {
			na /= maxA
		}
		scores = append(scores, Score{ID: id, Value: alpha*na + (1-alpha)*b[id]})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Value > scores[j].Value
	})
	return scores
}
