package oci

import "errors"

// Sentinel errors for the OCI transport.
var (
	// ErrNotFound is returned when no file set exists at the URI.
	ErrNotFound = errors.New("oci: not found")

	// ErrInvalidURI is returned when a URI is not a valid oci:// location.
	ErrInvalidURI = errors.New("oci: invalid uri")

	// ErrInvalidManifest is returned when a manifest is not a valid
	// file set artifact.
	ErrInvalidManifest = errors.New("oci: invalid fileset manifest")

	// ErrDigestMismatch is returned when fetched content does not match
	// its expected digest.
	ErrDigestMismatch = errors.New("oci: digest mismatch")

	// ErrUnauthorized is returned when the registry rejects the
	// configured credentials.
	ErrUnauthorized = errors.New("oci: unauthorized")
)
