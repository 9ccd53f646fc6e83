package oci

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/errcode"
	"oras.land/oras-go/v2/registry/remote/retry"
)

// client wraps ORAS with the handful of operations the transport needs.
// The shared auth client reuses tokens across requests.
type client struct {
	plainHTTP  bool
	userAgent  string
	anonymous  bool
	credStore  credentials.Store
	authClient *auth.Client
}

func newClient(plainHTTP, anonymous bool, credStore credentials.Store) *client {
	c := &client{
		plainHTTP: plainHTTP,
		userAgent: "ampl/1.0",
		anonymous: anonymous,
		credStore: credStore,
	}
	c.authClient = &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Credential: func(ctx context.Context, hostport string) (auth.Credential, error) {
			if c.anonymous || c.credStore == nil {
				return auth.EmptyCredential, nil
			}
			return c.credStore.Get(ctx, hostport)
		},
		Header: http.Header{
			"User-Agent": []string{c.userAgent},
		},
	}
	return c
}

// repository creates a Repository for the given reference.
func (c *client) repository(repoRef string) (*remote.Repository, error) {
	repo, err := remote.NewRepository(repoRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidURI, repoRef, err)
	}
	repo.PlainHTTP = c.plainHTTP
	repo.Client = c.authClient
	return repo, nil
}

// pushBlob pushes a blob with a pre-computed descriptor.
func (c *client) pushBlob(ctx context.Context, repoRef string, desc ocispec.Descriptor, data []byte) error {
	repo, err := c.repository(repoRef)
	if err != nil {
		return err
	}
	if err := repo.Push(ctx, desc, bytes.NewReader(data)); err != nil {
		return mapError(err)
	}
	return nil
}

// fetchBlob fetches and verifies a blob against its descriptor.
func (c *client) fetchBlob(ctx context.Context, repoRef string, desc ocispec.Descriptor) ([]byte, error) {
	repo, err := c.repository(repoRef)
	if err != nil {
		return nil, err
	}
	rc, err := repo.Fetch(ctx, desc)
	if err != nil {
		return nil, mapError(err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, desc.Size))
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	if digest.FromBytes(data) != desc.Digest {
		return nil, fmt.Errorf("%w: blob %s", ErrDigestMismatch, desc.Digest)
	}
	return data, nil
}

// pushManifest pushes a manifest referenced only by digest, returning its
// descriptor. Locations are content-addressed; no tag is involved.
func (c *client) pushManifest(ctx context.Context, repoRef string, manifest *ocispec.Manifest) (ocispec.Descriptor, error) {
	repo, err := c.repository(repoRef)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("marshal manifest: %w", err)
	}
	desc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeImageManifest,
		Digest:    digest.FromBytes(manifestJSON),
		Size:      int64(len(manifestJSON)),
	}
	if err := repo.Manifests().Push(ctx, desc, bytes.NewReader(manifestJSON)); err != nil {
		return ocispec.Descriptor{}, mapError(err)
	}
	return desc, nil
}

// fetchManifest fetches a manifest by digest.
func (c *client) fetchManifest(ctx context.Context, repoRef string, dgst digest.Digest) (ocispec.Manifest, error) {
	repo, err := c.repository(repoRef)
	if err != nil {
		return ocispec.Manifest{}, err
	}

	desc, rc, err := repo.Manifests().FetchReference(ctx, dgst.String())
	if err != nil {
		return ocispec.Manifest{}, mapError(err)
	}
	defer rc.Close()

	if desc.MediaType != ocispec.MediaTypeImageManifest {
		return ocispec.Manifest{}, fmt.Errorf("%w: unsupported media type %s", ErrInvalidManifest, desc.MediaType)
	}

	var manifest ocispec.Manifest
	if err := json.NewDecoder(io.LimitReader(rc, desc.Size)).Decode(&manifest); err != nil {
		return ocispec.Manifest{}, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return manifest, nil
}

// mapError maps ORAS errors to transport sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errdef.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	var errResp *errcode.ErrorResponse
	if errors.As(err, &errResp) {
		switch errResp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
	}
	return err
}
