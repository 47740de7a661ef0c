// Package growth projects referral volume with an expected-value cohort
// model. Agents attempt one referral per active day with probability p
// and retire after Capacity lifetime successes; each day's successes seed
// a new cohort the following day. All routines are pure functions of their
// scalar inputs.
//
// Every floating point recurrence lives in this file so tolerance choices
// are made once.
package growth

import (
	"errors"
	"math"
)

// Numeric tolerances.
const (
	// SurvivalEpsilon is the survival probability below which a cohort is
	// considered exhausted and skipped by the convolution.
	SurvivalEpsilon = 1e-18
	// TargetTolerance is the absolute slack when comparing a cumulative
	// expectation against a target.
	TargetTolerance = 1e-12
)

// Sentinel errors.
var (
	// ErrInvalidArgument indicates an out-of-range scalar input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotReached indicates the target was not hit within the day limit.
	ErrNotReached = errors.New("target not reached")
	// ErrUnreachable indicates no bonus up to the maximum meets the target.
	ErrUnreachable = errors.New("target unreachable")
)

// kahan is a Neumaier compensated accumulator. It keeps long running sums
// of small terms accurate to within a few ulps of the exact total.
type kahan struct {
	sum, comp float64
}

func (k *kahan) add(x float64) {
	t := k.sum + x
	if math.IsInf(t, 0) || math.IsNaN(t) {
		k.sum, k.comp = t, 0
		return
	}
	if math.Abs(k.sum) >= math.Abs(x) {
		k.comp += (k.sum - t) + x
	} else {
		k.comp += (x - t) + k.sum
	}
	k.sum = t
}

func (k *kahan) value() float64 {
	if math.IsInf(k.sum, 0) {
		return k.sum
	}
	return k.sum + k.comp
}

// survivalTable lazily tabulates, for each prior-attempt count t, the
// probability that a Binomial(t, p) draw is below capacity: the chance an
// agent who has made t attempts is still active.
type survivalTable struct {
	p        float64
	capacity int
	logP     float64 // log(p / (1-p))
	logQ     float64 // log1p(-p)
	values   []float64
}

func newSurvivalTable(p float64, capacity int) *survivalTable {
	st := &survivalTable{p: p, capacity: capacity}
	if p > 0 && p < 1 {
		st.logP = math.Log(p) - math.Log1p(-p)
		st.logQ = math.Log1p(-p)
	}
	return st
}

// at returns the survival probability after t attempts, extending the
// table as needed.
func (st *survivalTable) at(t int) float64 {
	for len(st.values) <= t {
		st.values = append(st.values, st.compute(len(st.values)))
	}
	return st.values[t]
}

func (st *survivalTable) compute(t int) float64 {
	switch {
	case st.capacity <= 0:
		return 0
	case st.p == 0:
		return 1
	case st.p == 1:
		if t < st.capacity {
			return 1
		}
		return 0
	case t < st.capacity:
		// Fewer attempts than capacity: cannot have retired.
		return 1
	}

	// pmf(t,k) = pmf(t,k-1) * (t-k+1)/k * p/(1-p), carried in log space
	// so (1-p)^t does not underflow on long horizons.
	logPMF := float64(t) * st.logQ
	var acc kahan
	acc.add(math.Exp(logPMF))
	for k := 1; k < st.capacity; k++ {
		logPMF += math.Log(float64(t-k+1)) - math.Log(float64(k)) + st.logP
		acc.add(math.Exp(logPMF))
	}
	return clamp01(acc.value())
}

func clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

func validProbability(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}
