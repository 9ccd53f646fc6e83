// Package merkle reduces an ordered file set to a single deterministic
// fingerprint: the root of a binary SHA-256 Merkle tree over the file
// contents.
//
// Leaves are the SHA-256 of each file's raw bytes, in set order. Adjacent
// pairs are concatenated and hashed to form the parent level. A level with
// an odd node count promotes the last node unhashed; it is never duplicated,
// since duplicating lets two different inputs share a root when one is a
// prefix of the other. The promotion rule is part of the fingerprint's
// bit-for-bit contract and must match between issuer and verifier.
package merkle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/amplius/ampl/fileset"
)

// ErrEmptyInput is returned when a fingerprint is requested for a file set
// with no files.
var ErrEmptyInput = errors.New("merkle: empty file set")

// Size is the fingerprint length in bytes.
const Size = sha256.Size

// Fingerprint is a SHA-256 Merkle root over an ordered file set.
type Fingerprint [Size]byte

// Hex returns the canonical textual encoding: 64 lowercase hex characters.
// This encoding is stable across implementations and doubles as the
// content-derived claim identifier.
func (f Fingerprint) Hex() string {
	return hex.EncodeToString(f[:])
}

// String implements fmt.Stringer.
func (f Fingerprint) String() string {
	return f.Hex()
}

// Digest returns the fingerprint in OCI digest form (sha256:<hex>).
func (f Fingerprint) Digest() digest.Digest {
	return digest.NewDigestFromEncoded(digest.SHA256, f.Hex())
}

// ParseHex parses the canonical 64-character hex encoding.
func ParseHex(s string) (Fingerprint, error) {
	var f Fingerprint
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return f, fmt.Errorf("merkle: parse fingerprint: %w", err)
	}
	if len(decoded) != Size {
		return f, fmt.Errorf("merkle: fingerprint is %d bytes, want %d", len(decoded), Size)
	}
	copy(f[:], decoded)
	return f, nil
}

// Root computes the Merkle root of the file set.
//
// Per-file leaf hashes are computed concurrently; the reduction preserves
// set order, so two identical sets always produce identical roots and any
// content change or reordering produces a different root. Returns
// ErrEmptyInput for an empty set.
func Root(ctx context.Context, files fileset.FileSet) (Fingerprint, error) {
	if files.Empty() {
		return Fingerprint{}, ErrEmptyInput
	}

	leaves := make([]Fingerprint, len(files))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		g.Go(func() error {
			leaves[i] = sha256.Sum256(f.Data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Fingerprint{}, err
	}

	return reduce(leaves), nil
}

// reduce folds a level of hashes pairwise until one remains. The last node
// of an odd level is promoted to the next level without hashing.
func reduce(level []Fingerprint) Fingerprint {
	for len(level) > 1 {
		next := make([]Fingerprint, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			next[i/2] = hashPair(level[i], level[i+1])
		}
		if len(level)%2 == 1 {
			next[len(next)-1] = level[len(level)-1]
		}
		level = next
	}
	return level[0]
}

// hashPair hashes the concatenation left||right.
func hashPair(left, right Fingerprint) Fingerprint {
	var combined [2 * Size]byte
	copy(combined[:Size], left[:])
	copy(combined[Size:], right[:])
	return sha256.Sum256(combined[:])
}
