// Package ampl creates and verifies attested multi-protocol links: file
// sets distributed across heterogeneous transports (OCI registry, git,
// plain HTTP) and bound to identity-signed claims in a durable ledger.
//
// A claim is the tuple {claim ID, content fingerprint, file count}. The
// fingerprint is a SHA-256 Merkle root over the file contents in set order,
// so a party holding only the claim ID can fetch the files through any
// transport and confirm they are exactly the attested set without trusting
// the transport.
//
// # Quick Start
//
// Attest a set of files:
//
//	c, err := ampl.NewClient(
//	    ampl.WithStateDir("/var/lib/ampl"),
//	    ampl.WithTransport(ociTransport),
//	)
//	if err != nil {
//	    return err
//	}
//	files, err := fileset.FromPaths("a.txt", "b.txt")
//	if err != nil {
//	    return err
//	}
//	result, err := c.Attest(ctx, files)
//
// Retrieve and verify by claim ID alone:
//
//	files, err := c.Retrieve(ctx, result.ClaimID)
//
// Validate locally-held files against a claim:
//
//	err = c.ValidateClaim(ctx, claimID, files)
//
// # Claim identifiers
//
// IssueClaim selects the identifier by policy: the literal "UUID" requests
// a random UUID v4; any other string of 32 to 64 characters is used
// verbatim; everything else (including the empty string) derives the
// identifier from the content, as the lowercase hex fingerprint. Attest
// always uses the content-derived policy.
package ampl
