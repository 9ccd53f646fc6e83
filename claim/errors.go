package claim

import "errors"

// Sentinel errors for ledger operations.
var (
	// ErrClaimNotFound is returned when no claim is stored under the
	// requested identifier.
	ErrClaimNotFound = errors.New("claim: not found")

	// ErrDuplicateClaim is returned when an identifier is already bound
	// to a different fingerprint. The requested issuance is fatal; it is
	// never auto-resolved.
	ErrDuplicateClaim = errors.New("claim: duplicate claim id")
)
