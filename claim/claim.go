// Package claim defines the durable attestation record and the ledger it is
// stored in.
//
// A Claim binds a claim identifier to a content fingerprint, a file count,
// and the issuer identity that signed it. Claims are immutable: the only
// transition is absent → issued, and an issued claim is never updated or
// deleted. The Store contract guarantees that a successful Put is durable
// before returning, that Get after Put observes the record, and that two
// writers can never silently bind the same identifier to different
// fingerprints.
package claim

import (
	"context"
	"time"

	"github.com/amplius/ampl/merkle"
)

// Claim is the persisted attestation record.
type Claim struct {
	// ID is the lookup key: content-derived (hex fingerprint),
	// operator-supplied (32-64 characters), or a random UUID.
	ID string

	// Fingerprint is the Merkle root of the attested file set.
	Fingerprint merkle.Fingerprint

	// FileCount is the number of files in the attested set.
	FileCount int

	// Issuer is the address of the identity that issued the claim.
	Issuer string

	// Signature is the issuer's ed25519 signature over SignaturePayload.
	Signature []byte

	// IssuedAt is the issuance time in UTC.
	IssuedAt time.Time

	// Locations are transport URIs the file set was distributed to at
	// issuance time, used by retrieval. May be empty for claims issued
	// over locally-held files.
	Locations []string
}

// Matches reports whether other attests the same content: same fingerprint
// and file count. Issuance metadata (signature, time, locations) is not
// compared; re-issuing an identical set yields a fresh signature but the
// same content binding.
func (c Claim) Matches(other Claim) bool {
	return c.Fingerprint == other.Fingerprint && c.FileCount == other.FileCount
}

// Store is the ledger the attestation engine records claims in.
//
// Implementations may be backed by anything that honors the contract: a
// distributed ledger, a local directory, or an in-memory map for tests.
type Store interface {
	// Put persists the claim. A successful return means the record is
	// durable. Re-putting a claim whose content matches the stored
	// record (see Claim.Matches) succeeds as a no-op; a claim whose
	// content differs fails with ErrDuplicateClaim and never
	// overwrites.
	Put(ctx context.Context, c Claim) error

	// Get returns the claim stored under id, or ErrClaimNotFound.
	Get(ctx context.Context, id string) (Claim, error)
}
