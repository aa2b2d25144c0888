package entitlement

import "errors"

var (
	// ErrInvalidAddress marks a malformed account identifier. The whitelist
	// is never mutated when it is returned.
	ErrInvalidAddress = errors.New("entitlement: invalid address")
	// ErrInvalidAmount marks a zero, negative or out-of-range entitlement
	// amount. The whitelist is never mutated when it is returned.
	ErrInvalidAmount = errors.New("entitlement: invalid amount")
	// ErrNotWhitelisted is returned when a proof is requested for an address
	// that is not currently a member.
	ErrNotWhitelisted = errors.New("entitlement: address not whitelisted")
	// ErrInternalInconsistency is returned when a freshly built proof fails
	// self-verification. It indicates a bug, not a caller error, and the
	// operation is aborted rather than returning the proof.
	ErrInternalInconsistency = errors.New("entitlement: proof failed self-verification")
)
