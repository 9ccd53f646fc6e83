package ampl

import (
	"github.com/amplius/ampl/claim"
	"github.com/amplius/ampl/fileset"
	"github.com/amplius/ampl/merkle"
	"github.com/amplius/ampl/transfer"
)

// --- Re-exports from subpackages ---

// File is a single named file held in memory.
type File = fileset.File

// FileSet is an ordered collection of files.
type FileSet = fileset.FileSet

// Fingerprint is a SHA-256 Merkle root over an ordered file set.
type Fingerprint = merkle.Fingerprint

// Claim is the persisted attestation record.
type Claim = claim.Claim

// Store is the ledger claims are recorded in.
type Store = claim.Store

// Transport moves a file set to and from a location identified by a URI.
type Transport = transfer.Transport

// Outcome is the per-transport result of a distribution.
type Outcome = transfer.Outcome

// UUIDPolicy is the IssueClaim policy string requesting a random UUID v4
// claim identifier.
const UUIDPolicy = "UUID"
