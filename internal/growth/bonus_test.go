package growth

import (
	"errors"
	"math"
	"testing"
)

// step returns an adoption curve that jumps from 0 to p at threshold.
func step(threshold int64, p float64) AdoptionFunc {
	return func(bonus int64) float64 {
		if bonus >= threshold {
			return p
		}
		return 0
	}
}

func TestMinBonusForTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		adoption AdoptionFunc
		opts     BonusOptions
		want     int64
		wantErr  error
	}{
		{name: "rounds threshold up to unit", adoption: step(1234, 0.2), opts: DefaultBonusOptions(), want: 1240},
		{name: "threshold on a unit", adoption: step(640, 0.2), opts: DefaultBonusOptions(), want: 640},
		{name: "first probe suffices", adoption: step(1, 0.2), opts: DefaultBonusOptions(), want: 10},
		{name: "zero bonus suffices", adoption: func(int64) float64 { return 0.5 }, opts: DefaultBonusOptions(), want: 0},
		{name: "never adopts", adoption: func(int64) float64 { return 0 }, opts: DefaultBonusOptions(), wantErr: ErrUnreachable},
		{name: "NaN read as zero", adoption: func(int64) float64 { return math.NaN() }, opts: DefaultBonusOptions(), wantErr: ErrUnreachable},
		{name: "cap below threshold", adoption: step(1234, 0.2), opts: BonusOptions{Epsilon: 1e-3, MaxBonus: 1000}, wantErr: ErrUnreachable},
		{name: "cap below one unit", adoption: step(1, 0.2), opts: BonusOptions{Epsilon: 1e-3, MaxBonus: 9}, wantErr: ErrUnreachable},
		{name: "cap not a unit multiple", adoption: step(1234, 0.2), opts: BonusOptions{Epsilon: 1e-3, MaxBonus: 1245}, want: 1240},
		{name: "out of range clamped", adoption: step(300, 7), opts: DefaultBonusOptions(), want: 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DefaultModel().MinBonusForTarget(30, 50, tt.adoption, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got %d, %v; want %v", got, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("MinBonusForTarget: %v", err)
			}
			if got != tt.want {
				t.Errorf("MinBonusForTarget = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMinBonusForTarget_Minimal(t *testing.T) {
	t.Parallel()

	m := DefaultModel()
	curve := LogisticAdoption(5000, 0.001, 0.05)
	const days, hires = 60, 400.0

	got, err := m.MinBonusForTarget(days, hires, curve, DefaultBonusOptions())
	if err != nil {
		t.Fatal(err)
	}
	if got%BonusUnit != 0 {
		t.Errorf("bonus %d is not a multiple of %d", got, BonusUnit)
	}
	if _, err := m.DaysToTarget(curve(got), hires-DefaultBonusEpsilon, days); err != nil {
		t.Errorf("returned bonus %d does not reach the target: %v", got, err)
	}
	if got > 0 {
		if _, err := m.DaysToTarget(curve(got-BonusUnit), hires-DefaultBonusEpsilon, days); !errors.Is(err, ErrNotReached) {
			t.Errorf("bonus %d also reaches the target; %d is not minimal", got-BonusUnit, got)
		}
	}
}

func TestSearchBonus_Details(t *testing.T) {
	t.Parallel()
	res, err := DefaultModel().SearchBonus(30, 50, step(1234, 0.2), DefaultBonusOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Bonus != 1240 || res.Probability != 0.2 {
		t.Errorf("got bonus %d p %v, want 1240 p 0.2", res.Bonus, res.Probability)
	}
	if res.Day < 1 || res.Day > 30 {
		t.Errorf("Day = %d, want within the 30 day deadline", res.Day)
	}
	if res.Evaluations < 2 {
		t.Errorf("Evaluations = %d, want at least 2", res.Evaluations)
	}
}

func TestMinBonusForTarget_Epsilon(t *testing.T) {
	t.Parallel()
	// Closed cohort at p=1 delivers exactly 300 by day 3. Asking for
	// 300.0005 only succeeds thanks to the 1e-3 slack.
	m := Model{InitialReferrers: 100, Capacity: 3, ClosedCohort: true}
	got, err := m.MinBonusForTarget(3, 300.0005, step(50, 1), DefaultBonusOptions())
	if err != nil {
		t.Fatalf("with slack: %v", err)
	}
	if got != 50 {
		t.Errorf("bonus = %d, want 50", got)
	}

	strict := BonusOptions{Epsilon: 0, MaxBonus: DefaultMaxBonus}
	if _, err := m.MinBonusForTarget(3, 300.0005, step(50, 1), strict); !errors.Is(err, ErrUnreachable) {
		t.Errorf("without slack: %v, want ErrUnreachable", err)
	}
}

func TestMinBonusForTarget_InvalidArguments(t *testing.T) {
	t.Parallel()
	m := DefaultModel()
	curve := LinearAdoption(0, 1e-4)
	cases := map[string]func() error{
		"nil adoption": func() error {
			_, err := m.MinBonusForTarget(10, 5, nil, DefaultBonusOptions())
			return err
		},
		"negative days": func() error {
			_, err := m.MinBonusForTarget(-1, 5, curve, DefaultBonusOptions())
			return err
		},
		"negative epsilon": func() error {
			_, err := m.MinBonusForTarget(10, 5, curve, BonusOptions{Epsilon: -1, MaxBonus: 100})
			return err
		},
		"negative max": func() error {
			_, err := m.MinBonusForTarget(10, 5, curve, BonusOptions{MaxBonus: -10})
			return err
		},
	}
	for name, fn := range cases {
		if err := fn(); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: got %v, want ErrInvalidArgument", name, err)
		}
	}
}

func TestAdoptionCurves(t *testing.T) {
	t.Parallel()

	logistic := LogisticAdoption(1000, 0.01, 0.4)
	if got := logistic(1000); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("logistic at midpoint = %v, want 0.2", got)
	}

	curves := map[string]AdoptionFunc{
		"linear":     LinearAdoption(0.01, 1e-4),
		"logistic":   logistic,
		"saturating": SaturatingAdoption(500, 0.3),
	}
	for name, fn := range curves {
		prev := fn(0)
		for b := int64(10); b <= 100_000; b += 10 {
			cur := fn(b)
			if cur < prev || cur < 0 || cur > 1 {
				t.Fatalf("%s(%d) = %v after %v; want non-decreasing within [0,1]", name, b, cur, prev)
			}
			prev = cur
		}
	}

	if _, err := (Curve{Kind: "cubic"}).Func(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown curve: %v, want ErrInvalidArgument", err)
	}
	fn, err := Curve{Kind: "Saturating", Midpoint: 100, Ceiling: 0.5}.Func()
	if err != nil {
		t.Fatal(err)
	}
	if got := fn(0); got != 0 {
		t.Errorf("saturating(0) = %v, want 0", got)
	}
}
