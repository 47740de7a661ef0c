// Package referral maintains the referral forest: who referred whom, how
// many participants each referrer is ultimately responsible for, and a
// rank index for leaderboard queries. A union-find over member identities
// rejects any referral that would close a cycle.
package referral

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/papapumpkin/lineage/internal/graph"
	"github.com/papapumpkin/lineage/internal/identity"
)

// member is the per-participant aggregate. Fields are only mutated by
// Forest methods.
type member struct {
	id       identity.Identity
	address  string
	seq      int
	referrer *member
	children []*member
	count    int
}

// Forest is the referral forest. It is not safe for concurrent use; see
// SyncForest.
type Forest struct {
	registry *identity.Registry
	members  map[identity.Identity]*member
	ordered  []*member
	witness  *graph.UnionFind
	rank     *rankIndex
	edges    int
	log      logrus.FieldLogger
}

// Option configures a Forest.
type Option func(*forestConfig)

type forestConfig struct {
	log      logrus.FieldLogger
	identity []identity.Option
}

// WithLogger sets the logger for the forest and its registry.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *forestConfig) { c.log = log }
}

// WithRegistryOptions passes options through to the identity registry.
func WithRegistryOptions(opts ...identity.Option) Option {
	return func(c *forestConfig) { c.identity = append(c.identity, opts...) }
}

// NewForest creates an empty forest.
func NewForest(opts ...Option) *Forest {
	var cfg forestConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.log == nil {
		discard := logrus.New()
		discard.SetLevel(logrus.PanicLevel)
		cfg.log = discard
	}
	regOpts := append([]identity.Option{identity.WithLogger(cfg.log)}, cfg.identity...)
	return &Forest{
		registry: identity.NewRegistry(regOpts...),
		members:  make(map[identity.Identity]*member),
		witness:  graph.NewUnionFind(),
		rank:     newRankIndex(),
		log:      cfg.log,
	}
}

// Register adds a participant. Re-registering a known address returns
// its existing identity with created=false.
func (f *Forest) Register(address string) (identity.Identity, bool, error) {
	id, created, err := f.registry.Register(address)
	if err != nil {
		return "", false, err
	}
	if created {
		m := &member{id: id, address: address, seq: len(f.ordered)}
		f.members[id] = m
		f.ordered = append(f.ordered, m)
		f.witness.Add(string(id))
		f.log.WithFields(logrus.Fields{"address": address, "identity": id}).Debug("registered")
	}
	return id, created, nil
}

// CreateReferral records that referrer brought in candidate. Preconditions
// are checked in order (both registered, distinct, candidate unreferred,
// no cycle) and a rejected call leaves the forest untouched.
//
// On success the referrer and every ancestor gain 1 + count(candidate),
// so a candidate that already heads a subtree brings it along.
func (f *Forest) CreateReferral(referrer, candidate string) error {
	ref, err := f.lookup(referrer)
	if err != nil {
		return err
	}
	cand, err := f.lookup(candidate)
	if err != nil {
		return err
	}
	if ref == cand {
		return f.reject(fmt.Errorf("%w: %s", ErrSelfReferral, referrer), referrer, candidate)
	}
	if cand.referrer != nil {
		return f.reject(fmt.Errorf("%w: %s was referred by %s", ErrAlreadyReferred, candidate, cand.referrer.address), referrer, candidate)
	}
	if !f.witness.Union(string(ref.id), string(cand.id)) {
		return f.reject(fmt.Errorf("%w: %s and %s already share a tree", ErrCycle, referrer, candidate), referrer, candidate)
	}

	cand.referrer = ref
	ref.children = append(ref.children, cand)
	f.edges++

	delta := 1 + cand.count
	for cur := ref; cur != nil; cur = cur.referrer {
		old := cur.count
		cur.count += delta
		f.rank.move(cur, old, cur.count)
	}

	f.log.WithFields(logrus.Fields{
		"referrer":  referrer,
		"candidate": candidate,
		"credited":  delta,
	}).Debug("referral created")
	return nil
}

func (f *Forest) reject(err error, referrer, candidate string) error {
	f.log.WithFields(logrus.Fields{
		"referrer":  referrer,
		"candidate": candidate,
	}).WithError(err).Debug("referral rejected")
	return err
}

func (f *Forest) lookup(address string) (*member, error) {
	id, err := f.registry.Resolve(address)
	if err != nil {
		return nil, err
	}
	return f.members[id], nil
}

// DescendantCount returns the number of participants transitively
// referred by address.
func (f *Forest) DescendantCount(address string) (int, error) {
	m, err := f.lookup(address)
	if err != nil {
		return 0, err
	}
	return m.count, nil
}

// DirectReferrals returns the addresses address referred directly, in the
// order the referrals were made. Unknown addresses yield an empty slice.
func (f *Forest) DirectReferrals(address string) []string {
	m, err := f.lookup(address)
	if err != nil {
		return []string{}
	}
	out := make([]string, len(m.children))
	for i, c := range m.children {
		out[i] = c.address
	}
	return out
}

// Referrer returns who referred address. ok is false for a root.
func (f *Forest) Referrer(address string) (string, bool, error) {
	m, err := f.lookup(address)
	if err != nil {
		return "", false, err
	}
	if m.referrer == nil {
		return "", false, nil
	}
	return m.referrer.address, true, nil
}

// Resolve returns the identity registered for address.
func (f *Forest) Resolve(address string) (identity.Identity, error) {
	return f.registry.Resolve(address)
}

// Len returns the number of registered members.
func (f *Forest) Len() int {
	return len(f.ordered)
}

// Edges returns the number of referral relationships.
func (f *Forest) Edges() int {
	return f.edges
}

// Addresses returns all members in registration order.
func (f *Forest) Addresses() []string {
	return f.registry.Addresses()
}
