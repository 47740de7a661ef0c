package growth

import (
	"errors"
	"fmt"
	"math"
)

// Bonus search constants.
const (
	// BonusUnit is the granularity of returned bonuses and the first
	// bonus tried by the exponential phase.
	BonusUnit int64 = 10
	// MaxDoublings caps the exponential phase.
	MaxDoublings = 64
	// DefaultMaxBonus bounds the search when no maximum is configured.
	DefaultMaxBonus int64 = 10_000_000
	// DefaultBonusEpsilon is the default slack on the hiring target.
	DefaultBonusEpsilon = 1e-3
)

// AdoptionFunc maps a bonus to the daily referral probability it induces.
// It must be non-decreasing in bonus. Results are clamped to [0, 1] and
// NaN is read as 0.
type AdoptionFunc func(bonus int64) float64

// BonusOptions bounds MinBonusForTarget.
type BonusOptions struct {
	// Epsilon is subtracted from the hiring target before comparison.
	Epsilon float64 `mapstructure:"epsilon" toml:"epsilon"`
	// MaxBonus is the largest bonus considered. Only multiples of
	// BonusUnit up to MaxBonus are tried.
	MaxBonus int64 `mapstructure:"max_bonus" toml:"max_bonus"`
}

// DefaultBonusOptions returns epsilon 1e-3 and a ten million cap.
func DefaultBonusOptions() BonusOptions {
	return BonusOptions{Epsilon: DefaultBonusEpsilon, MaxBonus: DefaultMaxBonus}
}

// BonusSearch records how MinBonusForTarget arrived at its answer.
type BonusSearch struct {
	Bonus       int64   `json:"bonus"`
	Probability float64 `json:"probability"`
	Day         int     `json:"day"`
	Evaluations int     `json:"evaluations"`
}

// MinBonusForTarget returns the smallest multiple of BonusUnit whose
// adoption probability reaches targetHires within days. It doubles from
// BonusUnit to bracket the answer, then binary searches the bracket. A
// zero bonus that already suffices returns 0. ErrUnreachable is returned
// when even the largest admissible bonus falls short.
func (m Model) MinBonusForTarget(days int, targetHires float64, adoption AdoptionFunc, opts BonusOptions) (int64, error) {
	res, err := m.SearchBonus(days, targetHires, adoption, opts)
	return res.Bonus, err
}

// SearchBonus is MinBonusForTarget with the search details attached.
func (m Model) SearchBonus(days int, targetHires float64, adoption AdoptionFunc, opts BonusOptions) (BonusSearch, error) {
	var res BonusSearch
	switch {
	case adoption == nil:
		return res, fmt.Errorf("%w: adoption function is nil", ErrInvalidArgument)
	case days < 0:
		return res, fmt.Errorf("%w: days must be non-negative, got %d", ErrInvalidArgument, days)
	case math.IsNaN(targetHires):
		return res, fmt.Errorf("%w: target is NaN", ErrInvalidArgument)
	case opts.Epsilon < 0 || math.IsNaN(opts.Epsilon):
		return res, fmt.Errorf("%w: epsilon must be non-negative, got %v", ErrInvalidArgument, opts.Epsilon)
	case opts.MaxBonus < 0:
		return res, fmt.Errorf("%w: max bonus must be non-negative, got %d", ErrInvalidArgument, opts.MaxBonus)
	}
	if err := m.Validate(); err != nil {
		return res, err
	}

	target := targetHires - opts.Epsilon
	// sufficient reports whether bonus meets the target, recording the
	// day and probability of the last sufficient evaluation.
	sufficient := func(bonus int64) (bool, error) {
		res.Evaluations++
		p := clamp01(adoption(bonus))
		day, err := m.DaysToTarget(p, target, days)
		if errors.Is(err, ErrNotReached) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		res.Bonus, res.Probability, res.Day = bonus, p, day
		return true, nil
	}

	ok, err := sufficient(0)
	if err != nil || ok {
		return res, err
	}

	ceiling := opts.MaxBonus / BonusUnit * BonusUnit
	unreachable := fmt.Errorf("%w: %v hires in %d days needs more than %d", ErrUnreachable, targetHires, days, opts.MaxBonus)
	if ceiling == 0 {
		return res, unreachable
	}

	// Exponential phase: lo is always insufficient, hi the next probe.
	lo, hi := int64(0), BonusUnit
	for i := 0; ; i++ {
		if hi > ceiling {
			hi = ceiling
		}
		ok, err := sufficient(hi)
		if err != nil {
			return res, err
		}
		if ok {
			break
		}
		if hi == ceiling || i+1 >= MaxDoublings {
			return res, unreachable
		}
		lo = hi
		if hi > ceiling/2 {
			hi = ceiling
		} else {
			hi *= 2
		}
	}

	// Binary phase over multiples of BonusUnit in (lo, hi].
	best := res
	for hi-lo > BonusUnit {
		mid := lo + (hi-lo)/(2*BonusUnit)*BonusUnit
		ok, err := sufficient(mid)
		if err != nil {
			return res, err
		}
		if ok {
			hi = mid
			best = res
		} else {
			lo = mid
		}
	}
	best.Evaluations = res.Evaluations
	return best, nil
}

// MinBonusForTarget runs DefaultModel().MinBonusForTarget with the
// default epsilon and cap.
func MinBonusForTarget(days int, targetHires float64, adoption AdoptionFunc) (int64, error) {
	return DefaultModel().MinBonusForTarget(days, targetHires, adoption, DefaultBonusOptions())
}
