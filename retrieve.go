package ampl

import (
	"context"
	"fmt"

	"github.com/amplius/ampl/fileset"
	"github.com/amplius/ampl/merkle"
)

// Retrieve fetches the files of a claim from its recorded locations and
// verifies them against the stored fingerprint.
//
// Locations are tried in recorded order; a transport failure moves on to
// the next location. A location that yields files which do not match the
// claim fails immediately with ErrFingerprintMismatch — the fetched files
// are discarded, never returned. When every location is unreachable the
// result is ErrNoLocations.
func (c *Client) Retrieve(ctx context.Context, claimID string) (fileset.FileSet, error) {
	stored, err := c.store.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if len(stored.Locations) == 0 {
		return nil, fmt.Errorf("%w: claim %s records none", ErrNoLocations, claimID)
	}

	var lastErr error
	for _, location := range stored.Locations {
		files, err := c.dispatcher.Fetch(ctx, location)
		if err != nil {
			c.log().Warn("location unreachable", "claim_id", claimID, "location", location, "error", err)
			lastErr = err
			continue
		}

		fp, err := merkle.Root(ctx, files)
		if err != nil {
			return nil, err
		}
		if fp != stored.Fingerprint {
			return nil, fmt.Errorf("%w: claim %s has %s, %s served %s",
				ErrFingerprintMismatch, claimID, stored.Fingerprint.Hex(), location, fp.Hex())
		}

		c.log().Info("claim retrieved", "claim_id", claimID, "location", location, "files", len(files))
		return files, nil
	}
	return nil, fmt.Errorf("%w: claim %s: %w", ErrNoLocations, claimID, lastErr)
}

// Fetch retrieves a file set directly from a transport URI, without claim
// verification. Use Retrieve when a claim ID is available.
func (c *Client) Fetch(ctx context.Context, uri string) (fileset.FileSet, error) {
	return c.dispatcher.Fetch(ctx, uri)
}
