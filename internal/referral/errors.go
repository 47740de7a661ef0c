package referral

import (
	"errors"
	"fmt"

	"github.com/papapumpkin/lineage/internal/identity"
)

// ErrUnknownIdentity is returned when an address has not been registered.
// It is the identity package's sentinel, so errors.Is matches either name.
var ErrUnknownIdentity error = identity.ErrUnknownIdentity

// ErrInvalidOperation is the class of precondition violations on
// CreateReferral. Each specific kind below wraps it.
var ErrInvalidOperation = errors.New("invalid operation")

// Specific InvalidOperation kinds. errors.Is(err, ErrInvalidOperation)
// holds for all of them.
var (
	// ErrSelfReferral indicates a participant tried to refer themselves.
	ErrSelfReferral = fmt.Errorf("%w: self-referral", ErrInvalidOperation)
	// ErrAlreadyReferred indicates the candidate already has a referrer.
	ErrAlreadyReferred = fmt.Errorf("%w: candidate already has a referrer", ErrInvalidOperation)
	// ErrCycle indicates the referral would connect two members of the
	// same tree and close a cycle.
	ErrCycle = fmt.Errorf("%w: referral would create a cycle", ErrInvalidOperation)
)

// ErrInvalidArgument indicates an out-of-range scalar input such as a
// negative k.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrInconsistent is returned by Audit when a maintained value disagrees
// with a full recomputation.
var ErrInconsistent = errors.New("forest state inconsistent")
