// Package metrics exposes Prometheus counters and gauges for lineage runs.
// There is no HTTP listener: a run writes its registry to a file in the
// node_exporter textfile format, which a collector picks up.
//
// A nil *Metrics is a valid no-op recorder.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/papapumpkin/lineage/internal/growth"
	"github.com/papapumpkin/lineage/internal/identity"
	"github.com/papapumpkin/lineage/internal/referral"
)

const namespace = "lineage"

// Referral outcome labels.
const (
	OutcomeAccepted        = "accepted"
	OutcomeSelfReferral    = "self_referral"
	OutcomeAlreadyReferred = "already_referred"
	OutcomeCycle           = "cycle"
	OutcomeUnknown         = "unknown_identity"
	OutcomeError           = "error"
)

// Search kinds.
const (
	KindSimulate = "simulate"
	KindTarget   = "target"
	KindBonus    = "bonus"
)

// Search outcome labels.
const (
	SearchFound       = "found"
	SearchNotReached  = "not_reached"
	SearchUnreachable = "unreachable"
	SearchInvalid     = "invalid"
)

// Metrics holds the collectors and the private registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	// Registrations counts register calls. Labels: created (true, false).
	Registrations *prometheus.CounterVec
	// Referrals counts referral attempts. Labels: outcome.
	Referrals *prometheus.CounterVec
	// Members is the number of registered members after the last update.
	Members prometheus.Gauge
	// Trees is the number of referral trees after the last update.
	Trees prometheus.Gauge
	// Searches counts growth computations. Labels: kind, outcome.
	Searches *prometheus.CounterVec
	// BonusEvaluations observes how many model runs a bonus search took.
	BonusEvaluations prometheus.Histogram
}

// New creates a Metrics with every collector registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Register calls by whether a new member was created.",
		}, []string{"created"}),
		Referrals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "referrals_total",
			Help:      "Referral attempts by outcome.",
		}, []string{"outcome"}),
		Members: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "members",
			Help:      "Registered members.",
		}),
		Trees: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trees",
			Help:      "Connected referral trees.",
		}),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "growth",
			Name:      "runs_total",
			Help:      "Growth model runs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		BonusEvaluations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "growth",
			Name:      "bonus_evaluations",
			Help:      "Model evaluations per bonus search.",
			Buckets:   prometheus.LinearBuckets(4, 4, 12),
		}),
	}
	m.registry.MustRegister(
		m.Registrations,
		m.Referrals,
		m.Members,
		m.Trees,
		m.Searches,
		m.BonusEvaluations,
	)
	return m
}

// ObserveRegistration counts one register call.
func (m *Metrics) ObserveRegistration(created bool) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(fmt.Sprint(created)).Inc()
}

// ObserveReferral counts one referral attempt, classifying err.
func (m *Metrics) ObserveReferral(err error) {
	if m == nil {
		return
	}
	m.Referrals.WithLabelValues(ReferralOutcome(err)).Inc()
}

// ReferralOutcome maps a CreateReferral error to its outcome label.
func ReferralOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeAccepted
	case errors.Is(err, referral.ErrSelfReferral):
		return OutcomeSelfReferral
	case errors.Is(err, referral.ErrAlreadyReferred):
		return OutcomeAlreadyReferred
	case errors.Is(err, referral.ErrCycle):
		return OutcomeCycle
	case errors.Is(err, identity.ErrUnknownIdentity):
		return OutcomeUnknown
	default:
		return OutcomeError
	}
}

// ObserveForest records the forest's size.
func (m *Metrics) ObserveForest(members, trees int) {
	if m == nil {
		return
	}
	m.Members.Set(float64(members))
	m.Trees.Set(float64(trees))
}

// ObserveSearch counts one growth run of the given kind.
func (m *Metrics) ObserveSearch(kind string, err error) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(kind, SearchOutcome(err)).Inc()
}

// SearchOutcome maps a growth error to its outcome label.
func SearchOutcome(err error) string {
	switch {
	case err == nil:
		return SearchFound
	case errors.Is(err, growth.ErrNotReached):
		return SearchNotReached
	case errors.Is(err, growth.ErrUnreachable):
		return SearchUnreachable
	default:
		return SearchInvalid
	}
}

// ObserveBonusEvaluations records the cost of one bonus search.
func (m *Metrics) ObserveBonusEvaluations(n int) {
	if m == nil {
		return
	}
	m.BonusEvaluations.Observe(float64(n))
}

// Gatherer exposes the private registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// WriteFile writes all metrics to path in the text exposition format. The
// file is replaced atomically.
func (m *Metrics) WriteFile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
