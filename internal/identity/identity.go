// Package identity maps external participant addresses to stable internal
// identities. Identities are derived deterministically from the address
// with a 64-bit FNV-1a hash; the rare hash collision is resolved by
// appending a numeric suffix, so the address ↔ identity mapping is always a
// bijection. Nothing is ever deleted from a Registry.
package identity

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/sirupsen/logrus"
)

// MaxSuffix bounds the number of suffixed candidates tried for one address.
const MaxSuffix = 1024

// Sentinel errors for registry operations.
var (
	// ErrUnknownIdentity indicates the address has not been registered.
	ErrUnknownIdentity = errors.New("unknown identity")
	// ErrInvalidAddress indicates an empty or whitespace-only address.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrCollisionExhausted indicates no unique token could be derived
	// within MaxSuffix attempts.
	ErrCollisionExhausted = errors.New("identity collision exhausted")
)

// Identity is the opaque, stable token for a participant.
type Identity string

// String returns the token text.
func (id Identity) String() string { return string(id) }

// Tokenizer derives the base token for an address.
type Tokenizer func(address string) Identity

// FNV1a is the default Tokenizer: "ref_" followed by the zero-padded hex
// FNV-1a 64-bit hash of the address bytes.
func FNV1a(address string) Identity {
	h := fnv.New64a()
	_, _ = h.Write([]byte(address))
	return Identity(fmt.Sprintf("ref_%016x", h.Sum64()))
}

// Registry is the bidirectional address ↔ identity map.
// It is not safe for concurrent mutation.
type Registry struct {
	byAddress  map[string]Identity
	byIdentity map[Identity]string
	order      []string
	tokenize   Tokenizer
	log        logrus.FieldLogger
}

// Option configures a Registry.
type Option func(*Registry)

// WithTokenizer replaces the FNV-1a tokenizer. Used to exercise collision
// handling with a deliberately weak hash.
func WithTokenizer(fn Tokenizer) Option {
	return func(r *Registry) { r.tokenize = fn }
}

// WithLogger sets the logger used for collision reports.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Registry) { r.log = log }
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byAddress:  make(map[string]Identity),
		byIdentity: make(map[Identity]string),
		tokenize:   FNV1a,
	}
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		discard := logrus.New()
		discard.SetLevel(logrus.PanicLevel)
		r.log = discard
	}
	return r
}

// Register assigns an identity to address. Registering an address that is
// already known is a no-op: the existing identity is returned with
// created=false. Empty addresses fail with ErrInvalidAddress.
func (r *Registry) Register(address string) (id Identity, created bool, err error) {
	if strings.TrimSpace(address) == "" {
		return "", false, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	if existing, ok := r.byAddress[address]; ok {
		return existing, false, nil
	}

	base := r.tokenize(address)
	id = base
	for suffix := 1; ; suffix++ {
		owner, taken := r.byIdentity[id]
		if !taken {
			break
		}
		r.log.WithFields(logrus.Fields{
			"address":  address,
			"token":    id,
			"owned_by": owner,
		}).Warn("identity collision, retrying with suffix")
		if suffix > MaxSuffix {
			return "", false, fmt.Errorf("%w: %s after %d attempts", ErrCollisionExhausted, address, MaxSuffix)
		}
		id = Identity(fmt.Sprintf("%s_%d", base, suffix))
	}

	r.byAddress[address] = id
	r.byIdentity[id] = address
	r.order = append(r.order, address)
	return id, true, nil
}

// Resolve returns the identity registered for address.
func (r *Registry) Resolve(address string) (Identity, error) {
	id, ok := r.byAddress[address]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownIdentity, address)
	}
	return id, nil
}

// Address returns the address that owns id.
func (r *Registry) Address(id Identity) (string, bool) {
	a, ok := r.byIdentity[id]
	return a, ok
}

// Len returns the number of registered addresses.
func (r *Registry) Len() int {
	return len(r.order)
}

// Addresses returns every registered address in registration order.
func (r *Registry) Addresses() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
