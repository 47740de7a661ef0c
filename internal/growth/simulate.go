package growth

import (
	"fmt"
	"math"
)

// Defaults for the cohort model and its searches.
const (
	DefaultInitialReferrers = 100
	DefaultCapacity         = 10
	DefaultMaxDays          = 100000
)

// Model holds the cohort parameters.
type Model struct {
	// InitialReferrers is the size of the cohort active on day 1.
	InitialReferrers int `mapstructure:"initial_referrers" toml:"initial_referrers"`
	// Capacity is the number of lifetime successes after which an agent
	// retires.
	Capacity int `mapstructure:"capacity" toml:"capacity"`
	// ClosedCohort stops successes from seeding new cohorts, so only the
	// day-1 agents ever act.
	ClosedCohort bool `mapstructure:"closed_cohort" toml:"closed_cohort"`
}

// DefaultModel returns 100 initial referrers with capacity 10 and viral
// reseeding.
func DefaultModel() Model {
	return Model{InitialReferrers: DefaultInitialReferrers, Capacity: DefaultCapacity}
}

// Validate reports whether the model parameters are usable.
func (m Model) Validate() error {
	if m.InitialReferrers < 0 {
		return fmt.Errorf("%w: initial referrers must be non-negative, got %d", ErrInvalidArgument, m.InitialReferrers)
	}
	if m.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1, got %d", ErrInvalidArgument, m.Capacity)
	}
	return nil
}

// stepper advances the cohort recurrence one day at a time. Day d's new
// successes are
//
//	sum over cohorts s <= d of size(s) * p * survival(d - s)
//
// and, unless the model is closed, become the size of cohort d+1.
type stepper struct {
	model   Model
	p       float64
	epsilon float64
	surv    *survivalTable
	cohorts []float64 // cohorts[s] is the size of the cohort starting on day s
	total   kahan
	day     int
}

func newStepper(m Model, p float64) *stepper {
	cohorts := make([]float64, 2, 64)
	cohorts[1] = float64(m.InitialReferrers)
	return &stepper{
		model:   m,
		p:       p,
		epsilon: SurvivalEpsilon,
		surv:    newSurvivalTable(p, m.Capacity),
		cohorts: cohorts,
	}
}

// step simulates the next day and returns the cumulative expectation.
func (st *stepper) step() float64 {
	st.day++
	d := st.day

	var fresh kahan
	if st.p > 0 {
		newest := d
		if st.model.ClosedCohort {
			newest = 1
		}
		// Survival is non-increasing in age, so the first cohort below
		// epsilon ends the window.
		for s := newest; s >= 1; s-- {
			size := st.cohorts[s]
			if size == 0 {
				continue
			}
			surv := st.surv.at(d - s)
			if surv < st.epsilon || surv == 0 {
				break
			}
			fresh.add(size * st.p * surv)
		}
	}
	n := fresh.value()
	st.total.add(n)

	next := 0.0
	if !st.model.ClosedCohort {
		next = n
	}
	st.cohorts = append(st.cohorts, next)
	return st.total.value()
}

// Simulate returns the expected cumulative successes for days 0..days.
// Index 0 is always 0.
func (m Model) Simulate(p float64, days int) ([]float64, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if !validProbability(p) {
		return nil, fmt.Errorf("%w: probability %v outside [0, 1]", ErrInvalidArgument, p)
	}
	if days < 0 {
		return nil, fmt.Errorf("%w: days must be non-negative, got %d", ErrInvalidArgument, days)
	}

	out := make([]float64, days+1)
	st := newStepper(m, p)
	for d := 1; d <= days; d++ {
		out[d] = st.step()
	}
	return out, nil
}

// DaysToTarget returns the first day on which expected cumulative
// successes reach target. It steps the recurrence incrementally and stops
// at maxDays with ErrNotReached. A non-positive target is met on day 0.
func (m Model) DaysToTarget(p, target float64, maxDays int) (int, error) {
	if !validProbability(p) {
		return 0, fmt.Errorf("%w: probability %v outside [0, 1]", ErrInvalidArgument, p)
	}
	if math.IsNaN(target) {
		return 0, fmt.Errorf("%w: target is NaN", ErrInvalidArgument)
	}
	if target <= 0 {
		return 0, nil
	}
	if err := m.Validate(); err != nil {
		return 0, err
	}
	if maxDays < 0 {
		return 0, fmt.Errorf("%w: max days must be non-negative, got %d", ErrInvalidArgument, maxDays)
	}

	notReached := fmt.Errorf("%w: %v within %d days", ErrNotReached, target, maxDays)
	if p == 0 || m.InitialReferrers == 0 {
		return 0, notReached
	}
	if m.ClosedCohort {
		// A closed cohort can never exceed initial * capacity.
		if ceiling := float64(m.InitialReferrers) * float64(m.Capacity); ceiling < target-TargetTolerance {
			return 0, notReached
		}
	}

	st := newStepper(m, p)
	for d := 1; d <= maxDays; d++ {
		if st.step() >= target-TargetTolerance {
			return d, nil
		}
	}
	return 0, notReached
}

// Simulate runs DefaultModel().Simulate.
func Simulate(p float64, days int) ([]float64, error) {
	return DefaultModel().Simulate(p, days)
}

// DaysToTarget runs DefaultModel().DaysToTarget.
func DaysToTarget(p, target float64, maxDays int) (int, error) {
	return DefaultModel().DaysToTarget(p, target, maxDays)
}
