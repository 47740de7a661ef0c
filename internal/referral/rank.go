package referral

import (
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"
)

// rankIndex maps descendant count → the members currently holding that
// count. Counts are ordered descending; each bucket is ordered by
// registration sequence so ties break the same way on every query. Only
// positive counts are indexed and empty buckets are removed.
type rankIndex struct {
	buckets *treemap.Map // int → *treeset.Set of *member
	size    int
}

func newRankIndex() *rankIndex {
	return &rankIndex{buckets: treemap.NewWith(descendingInt)}
}

func descendingInt(a, b interface{}) int {
	return utils.IntComparator(b, a)
}

func bySeq(a, b interface{}) int {
	return utils.IntComparator(a.(*member).seq, b.(*member).seq)
}

// move relocates m from the bucket for count from to the bucket for count
// to. The old bucket is removed before the new one is touched, so no
// bucket is read while it is being modified.
func (ri *rankIndex) move(m *member, from, to int) {
	if from == to {
		return
	}
	if from > 0 {
		ri.remove(m, from)
	}
	if to > 0 {
		ri.insert(m, to)
	}
}

func (ri *rankIndex) remove(m *member, count int) {
	v, ok := ri.buckets.Get(count)
	if !ok {
		return
	}
	bucket := v.(*treeset.Set)
	if !bucket.Contains(m) {
		return
	}
	bucket.Remove(m)
	ri.size--
	if bucket.Empty() {
		ri.buckets.Remove(count)
	}
}

func (ri *rankIndex) insert(m *member, count int) {
	v, ok := ri.buckets.Get(count)
	if !ok {
		v = treeset.NewWith(bySeq)
		ri.buckets.Put(count, v)
	}
	v.(*treeset.Set).Add(m)
	ri.size++
}

// top returns up to k members from the highest buckets downward.
func (ri *rankIndex) top(k int) []*member {
	out := make([]*member, 0, min(k, ri.size))
	it := ri.buckets.Iterator()
	for it.Next() && len(out) < k {
		members := it.Value().(*treeset.Set).Iterator()
		for members.Next() && len(out) < k {
			out = append(out, members.Value().(*member))
		}
	}
	return out
}

// contains reports whether m sits in the bucket for count.
func (ri *rankIndex) contains(m *member, count int) bool {
	v, ok := ri.buckets.Get(count)
	if !ok {
		return false
	}
	return v.(*treeset.Set).Contains(m)
}

// Len returns the number of indexed members.
func (ri *rankIndex) Len() int {
	return ri.size
}

// bucketCounts returns the indexed counts in descending order.
func (ri *rankIndex) bucketCounts() []int {
	keys := ri.buckets.Keys()
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = k.(int)
	}
	return out
}
