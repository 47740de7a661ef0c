package growth

import (
	"fmt"
	"math"
	"strings"
)

// LinearAdoption rises from base by slope per bonus unit of currency.
func LinearAdoption(base, slope float64) AdoptionFunc {
	return func(bonus int64) float64 {
		return clamp01(base + slope*float64(bonus))
	}
}

// LogisticAdoption is an S-curve reaching ceiling/2 at midpoint.
func LogisticAdoption(midpoint, steepness, ceiling float64) AdoptionFunc {
	return func(bonus int64) float64 {
		return clamp01(ceiling / (1 + math.Exp(-steepness*(float64(bonus)-midpoint))))
	}
}

// SaturatingAdoption approaches ceiling exponentially; scale is the bonus
// at which it reaches 1-1/e of the ceiling.
func SaturatingAdoption(scale, ceiling float64) AdoptionFunc {
	return func(bonus int64) float64 {
		if scale <= 0 {
			return clamp01(ceiling)
		}
		return clamp01(ceiling * -math.Expm1(-float64(bonus)/scale))
	}
}

// Curve names an adoption family with its parameters, as read from
// configuration and scenario files.
type Curve struct {
	Kind      string  `mapstructure:"curve" toml:"curve"`
	Midpoint  float64 `mapstructure:"midpoint" toml:"midpoint"`
	Steepness float64 `mapstructure:"steepness" toml:"steepness"`
	Ceiling   float64 `mapstructure:"ceiling" toml:"ceiling"`
}

// Func builds the AdoptionFunc for c. For linear curves Steepness is the
// slope and Midpoint is unused; saturating curves read Midpoint as the
// scale.
func (c Curve) Func() (AdoptionFunc, error) {
	switch strings.ToLower(c.Kind) {
	case "", "logistic":
		return LogisticAdoption(c.Midpoint, c.Steepness, c.Ceiling), nil
	case "linear":
		return LinearAdoption(0, c.Steepness), nil
	case "saturating":
		return SaturatingAdoption(c.Midpoint, c.Ceiling), nil
	default:
		return nil, fmt.Errorf("%w: unknown adoption curve %q", ErrInvalidArgument, c.Kind)
	}
}
