package ampl

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/amplius/ampl/claim"
	"github.com/amplius/ampl/fileset"
	"github.com/amplius/ampl/identity"
	"github.com/amplius/ampl/merkle"
	"github.com/amplius/ampl/transfer"
)

// Operator-supplied claim identifiers must fall in this length range;
// anything outside it selects the content-derived policy.
const (
	minClaimIDLen = 32
	maxClaimIDLen = 64
)

// AttestResult reports a completed attestation.
type AttestResult struct {
	// ClaimID is the content-derived identifier of the issued claim.
	ClaimID string

	// Fingerprint is the Merkle root the claim binds.
	Fingerprint merkle.Fingerprint

	// Issuer is the identity address the claim is attributed to.
	Issuer string

	// Outcomes are the per-transport distribution results, including
	// failures.
	Outcomes []transfer.Outcome
}

// Attest distributes the file set through all configured transports and
// issues a content-derived claim recording the successful locations.
//
// Partial distribution failure does not abort the attestation: the claim is
// issued over whichever locations succeeded (none is allowed, matching a
// purely local issuance), and every transport's outcome is reported in the
// result.
func (c *Client) Attest(ctx context.Context, files fileset.FileSet) (*AttestResult, error) {
	if files.Empty() {
		return nil, ErrEmptyInput
	}

	ident, err := c.ids.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("ampl: identity: %w", err)
	}

	outcomes, err := c.dispatcher.Distribute(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("ampl: distribute: %w", err)
	}
	var locations []string
	for _, o := range outcomes {
		if o.Err == nil {
			locations = append(locations, o.Location)
		}
	}

	id, fp, err := c.issue(ctx, "", files, ident, locations)
	if err != nil {
		return nil, err
	}
	return &AttestResult{
		ClaimID:     id,
		Fingerprint: fp,
		Issuer:      ident.Address(),
		Outcomes:    outcomes,
	}, nil
}

// IssueClaim issues a claim over the file set and returns the identifier
// actually stored, which the caller did not necessarily choose.
//
// The idPolicy selects the identifier: "UUID" generates a random UUID v4;
// a string of 32 to 64 characters is used verbatim; anything else derives
// the identifier from the content as the hex fingerprint. Re-issuing the
// identical set under the same identifier is an idempotent success; the
// same identifier over different content fails with ErrDuplicateClaim.
func (c *Client) IssueClaim(ctx context.Context, idPolicy string, files fileset.FileSet) (string, error) {
	ident, err := c.ids.Current(ctx)
	if err != nil {
		return "", fmt.Errorf("ampl: identity: %w", err)
	}
	id, _, err := c.issue(ctx, idPolicy, files, ident, nil)
	return id, err
}

// issue computes the fingerprint, resolves the claim ID, signs the binding,
// and persists the claim.
func (c *Client) issue(ctx context.Context, idPolicy string, files fileset.FileSet, ident *identity.Identity, locations []string) (string, merkle.Fingerprint, error) {
	fp, err := merkle.Root(ctx, files)
	if err != nil {
		return "", merkle.Fingerprint{}, err
	}

	id := resolveClaimID(idPolicy, fp)

	payload, err := claim.SignaturePayload(id, fp, len(files))
	if err != nil {
		return "", merkle.Fingerprint{}, err
	}

	record := claim.Claim{
		ID:          id,
		Fingerprint: fp,
		FileCount:   len(files),
		Issuer:      ident.Address(),
		Signature:   ident.Sign(payload),
		IssuedAt:    c.now().UTC(),
		Locations:   locations,
	}
	if err := c.store.Put(ctx, record); err != nil {
		return "", merkle.Fingerprint{}, err
	}

	c.log().Info("claim issued",
		"claim_id", id,
		"fingerprint", fp.Hex(),
		"files", len(files),
		"issuer", ident.Address(),
	)
	return id, fp, nil
}

// resolveClaimID applies the ID selection policy.
func resolveClaimID(idPolicy string, fp merkle.Fingerprint) string {
	switch {
	case idPolicy == UUIDPolicy:
		return uuid.NewString()
	case len(idPolicy) >= minClaimIDLen && len(idPolicy) <= maxClaimIDLen:
		return idPolicy
	default:
		return fp.Hex()
	}
}

// ValidateClaim recomputes the fingerprint of locally-held files and checks
// it against the stored claim.
//
// The check is exact equality over the full digest. A disagreement fails
// with ErrFingerprintMismatch and means the files are not the attested set.
func (c *Client) ValidateClaim(ctx context.Context, claimID string, files fileset.FileSet) error {
	fp, err := merkle.Root(ctx, files)
	if err != nil {
		return err
	}

	stored, err := c.store.Get(ctx, claimID)
	if err != nil {
		return err
	}

	if fp != stored.Fingerprint {
		return fmt.Errorf("%w: claim %s has %s, files have %s",
			ErrFingerprintMismatch, claimID, stored.Fingerprint.Hex(), fp.Hex())
	}
	c.log().Debug("claim validated", "claim_id", claimID, "files", len(files))
	return nil
}

// GetClaim returns the stored claim record.
func (c *Client) GetClaim(ctx context.Context, claimID string) (claim.Claim, error) {
	return c.store.Get(ctx, claimID)
}

// Distribute pushes the file set through the configured transports (or the
// named subset) without issuing a claim.
func (c *Client) Distribute(ctx context.Context, files fileset.FileSet, selectors ...string) ([]transfer.Outcome, error) {
	if files.Empty() {
		return nil, ErrEmptyInput
	}
	return c.dispatcher.Distribute(ctx, files, selectors...)
}

// Identity returns the current identity, creating one on first use.
func (c *Client) Identity(ctx context.Context) (*identity.Identity, error) {
	return c.ids.Current(ctx)
}

// NewIdentity creates and persists a fresh identity, replacing the current
// one. Claims already issued keep their original issuer attribution.
func (c *Client) NewIdentity(ctx context.Context) (*identity.Identity, error) {
	return c.ids.New(ctx)
}
