package referral

import (
	"fmt"
	"sort"
)

// TopReferrers returns up to k addresses with the highest positive
// descendant counts, ordered by count descending then registration order.
// Asking for more than exist is not an error.
func (f *Forest) TopReferrers(k int) ([]string, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: k must be non-negative, got %d", ErrInvalidArgument, k)
	}
	top := f.rank.top(k)
	out := make([]string, len(top))
	for i, m := range top {
		out[i] = m.address
	}
	return out, nil
}

// Ranked pairs an address with its descendant count.
type Ranked struct {
	Address string `json:"address"`
	Count   int    `json:"count"`
}

// Leaderboard is TopReferrers with the counts attached.
func (f *Forest) Leaderboard(k int) ([]Ranked, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: k must be non-negative, got %d", ErrInvalidArgument, k)
	}
	top := f.rank.top(k)
	out := make([]Ranked, len(top))
	for i, m := range top {
		out[i] = Ranked{Address: m.address, Count: m.count}
	}
	return out, nil
}

// Roots returns the head of every tree in registration order: members with
// no referrer, including isolated ones.
func (f *Forest) Roots() []string {
	var out []string
	for _, m := range f.ordered {
		if m.referrer == nil {
			out = append(out, m.address)
		}
	}
	return out
}

// Campaign describes one connected referral tree.
type Campaign struct {
	Root    string   `json:"root"`
	Members []string `json:"members"`
	Size    int      `json:"size"`
	Depth   int      `json:"depth"`
}

// Campaigns returns one entry per tree, largest first; equal sizes keep
// the registration order of their roots.
func (f *Forest) Campaigns() []Campaign {
	var out []Campaign
	for _, m := range f.ordered {
		if m.referrer != nil {
			continue
		}
		out = append(out, campaignFrom(m))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Size > out[j].Size
	})
	return out
}

func campaignFrom(root *member) Campaign {
	c := Campaign{Root: root.address}
	level := []*member{root}
	for len(level) > 0 {
		var next []*member
		for _, m := range level {
			c.Members = append(c.Members, m.address)
			next = append(next, m.children...)
		}
		if len(next) > 0 {
			c.Depth++
		}
		level = next
	}
	c.Size = len(c.Members)
	return c
}

// ComponentSize returns the number of members in address's tree.
func (f *Forest) ComponentSize(address string) (int, error) {
	m, err := f.lookup(address)
	if err != nil {
		return 0, err
	}
	return f.witness.Size(string(m.id)), nil
}

// Audit recomputes every descendant count from the tree structure and
// checks it against the maintained counts, the rank index, and the
// edge/tree balance. The first mismatch is returned wrapped in
// ErrInconsistent.
func (f *Forest) Audit() error {
	computed := make(map[*member]int, len(f.ordered))
	roots := 0
	for _, m := range f.ordered {
		if m.referrer != nil {
			continue
		}
		roots++
		order := preorder(m)
		for i := len(order) - 1; i >= 0; i-- {
			n := order[i]
			total := 0
			for _, c := range n.children {
				if c.referrer != n {
					return fmt.Errorf("%w: %s lists %s as a child but its referrer differs", ErrInconsistent, n.address, c.address)
				}
				total += 1 + computed[c]
			}
			computed[n] = total
		}
	}

	if len(computed) != len(f.ordered) {
		return fmt.Errorf("%w: %d members reachable from roots, %d registered", ErrInconsistent, len(computed), len(f.ordered))
	}

	indexed := 0
	for _, m := range f.ordered {
		if computed[m] != m.count {
			return fmt.Errorf("%w: %s has count %d, traversal found %d", ErrInconsistent, m.address, m.count, computed[m])
		}
		if m.count > 0 {
			indexed++
			if !f.rank.contains(m, m.count) {
				return fmt.Errorf("%w: %s missing from rank bucket %d", ErrInconsistent, m.address, m.count)
			}
		}
	}
	if indexed != f.rank.Len() {
		return fmt.Errorf("%w: rank index holds %d members, want %d", ErrInconsistent, f.rank.Len(), indexed)
	}

	if f.edges != len(f.ordered)-roots {
		return fmt.Errorf("%w: %d edges for %d members in %d trees", ErrInconsistent, f.edges, len(f.ordered), roots)
	}
	if sets := f.witness.Sets(); sets != roots {
		return fmt.Errorf("%w: union-find has %d sets, forest has %d trees", ErrInconsistent, sets, roots)
	}
	return nil
}

// preorder lists root's subtree parents-before-children without recursion.
func preorder(root *member) []*member {
	var out []*member
	stack := []*member{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n)
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
	return out
}
