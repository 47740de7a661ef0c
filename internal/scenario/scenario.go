// Package scenario loads scripted referral programs from TOML and runs
// them against a forest: registrations, referrals, path and leaderboard
// queries, growth projections and a bonus search. Rejected referrals and
// unmet targets are recorded as step outcomes rather than aborting the run.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/lineage/internal/growth"
)

// ErrInvalidScenario indicates a scenario file that parsed but cannot run.
var ErrInvalidScenario = errors.New("invalid scenario")

// Member registers one address.
type Member struct {
	Address string `toml:"address"`
}

// Referral links a referrer to a candidate.
type Referral struct {
	Referrer  string `toml:"referrer"`
	Candidate string `toml:"candidate"`
}

// PathQuery asks whether Candidate lies on a shortest Source→Target path.
type PathQuery struct {
	Source    string `toml:"source"`
	Target    string `toml:"target"`
	Candidate string `toml:"candidate"`
}

// TopQuery asks for the K largest referrers.
type TopQuery struct {
	K int `toml:"k"`
}

// Simulation projects cumulative hires for Days days. Unset model fields
// fall back to the run's base model.
type Simulation struct {
	P        float64 `toml:"p"`
	Days     int     `toml:"days"`
	Initial  *int    `toml:"initial"`
	Capacity *int    `toml:"capacity"`
	Closed   *bool   `toml:"closed"`
}

// Target asks for the first day cumulative hires reach Target.
type Target struct {
	P       float64 `toml:"p"`
	Target  float64 `toml:"target"`
	MaxDays int     `toml:"max_days"`
}

// Bonus searches for the smallest bonus meeting Hires within Days.
type Bonus struct {
	Days  int     `toml:"days"`
	Hires float64 `toml:"hires"`
	growth.Curve
}

// Scenario is one parsed scenario file.
type Scenario struct {
	Name        string       `toml:"name"`
	Members     []Member     `toml:"members"`
	Referrals   []Referral   `toml:"referrals"`
	Paths       []PathQuery  `toml:"paths"`
	Top         []TopQuery   `toml:"top"`
	Simulations []Simulation `toml:"simulations"`
	Targets     []Target     `toml:"targets"`
	Bonus       *Bonus       `toml:"bonus"`

	// Path is the file the scenario was read from.
	Path string `toml:"-"`
}

// Load reads and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// Parse decodes scenario TOML. Unknown keys are rejected so typos surface
// instead of silently running a smaller scenario.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks fields that TOML typing cannot. Domain preconditions such
// as self-referral are left to the run so they show up as step outcomes.
func (s *Scenario) Validate() error {
	for i, m := range s.Members {
		if m.Address == "" {
			return fmt.Errorf("%w: members[%d]: address is required", ErrInvalidScenario, i)
		}
	}
	for i, r := range s.Referrals {
		if r.Referrer == "" || r.Candidate == "" {
			return fmt.Errorf("%w: referrals[%d]: referrer and candidate are required", ErrInvalidScenario, i)
		}
	}
	for i, p := range s.Paths {
		if p.Source == "" || p.Target == "" || p.Candidate == "" {
			return fmt.Errorf("%w: paths[%d]: source, target and candidate are required", ErrInvalidScenario, i)
		}
	}
	for i, sim := range s.Simulations {
		if sim.Days < 0 {
			return fmt.Errorf("%w: simulations[%d]: days must be non-negative", ErrInvalidScenario, i)
		}
	}
	if s.Bonus != nil && s.Bonus.Days < 0 {
		return fmt.Errorf("%w: bonus: days must be non-negative", ErrInvalidScenario)
	}
	return nil
}

// Steps returns the number of steps a run of s performs, including the
// closing audit.
func (s *Scenario) Steps() int {
	n := len(s.Members) + len(s.Referrals) + len(s.Paths) + len(s.Top) +
		len(s.Simulations) + len(s.Targets) + 1
	if s.Bonus != nil {
		n++
	}
	return n
}

// model overlays the simulation's overrides on base.
func (sim Simulation) model(base growth.Model) growth.Model {
	m := base
	if sim.Initial != nil {
		m.InitialReferrers = *sim.Initial
	}
	if sim.Capacity != nil {
		m.Capacity = *sim.Capacity
	}
	if sim.Closed != nil {
		m.ClosedCohort = *sim.Closed
	}
	return m
}
