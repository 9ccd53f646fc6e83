package ampl

import (
	"errors"

	"github.com/amplius/ampl/claim"
	"github.com/amplius/ampl/merkle"
	"github.com/amplius/ampl/transfer"
)

// Sentinel errors owned by the attestation engine.
var (
	// ErrFingerprintMismatch is returned when a recomputed fingerprint
	// disagrees with the stored claim. This is the integrity failure:
	// callers must treat the files as untrusted.
	ErrFingerprintMismatch = errors.New("ampl: fingerprint mismatch")

	// ErrNoLocations is returned by Retrieve when a claim has no
	// recorded locations to fetch from, or none of them could be
	// reached.
	ErrNoLocations = errors.New("ampl: no fetchable locations")
)

// Errors re-exported from subpackages.
var (
	// ErrEmptyInput is returned when an operation is given a file set
	// with no files.
	ErrEmptyInput = merkle.ErrEmptyInput

	// ErrClaimNotFound is returned when no claim is stored under the
	// requested identifier.
	ErrClaimNotFound = claim.ErrClaimNotFound

	// ErrDuplicateClaim is returned when a claim identifier is already
	// bound to a different fingerprint.
	ErrDuplicateClaim = claim.ErrDuplicateClaim

	// ErrNoTransport is returned when no configured transport handles a
	// URI or selector.
	ErrNoTransport = transfer.ErrNoTransport
)
