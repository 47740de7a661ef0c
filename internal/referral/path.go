package referral

import (
	"github.com/papapumpkin/lineage/internal/graph"
	"github.com/papapumpkin/lineage/internal/identity"
)

// Snapshot copies the forest into a directed graph keyed by identity, with
// an edge referrer → candidate for every referral. The graph is
// independent of the forest and safe to analyse after further mutation.
func (f *Forest) Snapshot() *graph.Graph {
	g := graph.New()
	for _, m := range f.ordered {
		_ = g.AddNode(string(m.id))
	}
	for _, m := range f.ordered {
		for _, c := range m.children {
			_ = g.AddEdge(string(m.id), string(c.id))
		}
	}
	return g
}

// IsOnShortestPath reports whether candidate lies on at least one shortest
// referral path from source to target, and what fraction of those paths
// pass through it. An unreachable target is not an error.
func (f *Forest) IsOnShortestPath(source, target, candidate string) (graph.GeodesicResult, error) {
	var ids [3]string
	for i, addr := range []string{source, target, candidate} {
		id, err := f.registry.Resolve(addr)
		if err != nil {
			return graph.GeodesicResult{Distance: -1}, err
		}
		ids[i] = string(id)
	}
	return graph.Geodesic(f.Snapshot(), ids[0], ids[1], ids[2]), nil
}

// InfluenceOptions tunes Influence.
type InfluenceOptions struct {
	// Alpha weights PageRank against betweenness.
	Alpha    float64
	PageRank graph.PageRankOptions
}

// DefaultInfluenceOptions weights PageRank and betweenness evenly.
func DefaultInfluenceOptions() InfluenceOptions {
	return InfluenceOptions{Alpha: 0.5, PageRank: graph.DefaultPageRankOptions()}
}

// Influence is one member's blended score.
type Influence struct {
	Address     string  `json:"address"`
	Score       float64 `json:"score"`
	PageRank    float64 `json:"pagerank"`
	Betweenness float64 `json:"betweenness"`
}

// Influence ranks members by a blend of PageRank over reversed referral
// edges (credit flows up to referrers) and betweenness (members that
// broker between their referrer and their own referrals).
func (f *Forest) Influence(opts InfluenceOptions) []Influence {
	g := f.Snapshot()
	pr := graph.PageRank(g.Reverse(), opts.PageRank)
	bc := graph.Betweenness(g)

	scores := graph.Blend(g, pr, bc, opts.Alpha)
	out := make([]Influence, 0, len(scores))
	for _, s := range scores {
		addr, _ := f.registry.Address(identity.Identity(s.ID))
		out = append(out, Influence{
			Address:     addr,
			Score:       s.Value,
			PageRank:    pr[s.ID],
			Betweenness: bc[s.ID],
		})
	}
	return out
}
