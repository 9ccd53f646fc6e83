// Package oci is the content-addressed transport: file sets are pushed to
// an OCI registry as a two-blob artifact (a CBOR index preserving set
// order, and the concatenated file contents) and fetched back by manifest
// digest.
//
// Locations have the form oci://<repository>@sha256:<hex>. Because the
// location is a content address, a fetched artifact is verified blob by
// blob and file by file against the digests it was stored under.
package oci

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/amplius/ampl/fileset"
)

// uriPrefix is the location scheme this transport owns.
const uriPrefix = "oci://"

// Transport distributes file sets to a fixed OCI repository.
type Transport struct {
	repo      string
	plainHTTP bool
	anonymous bool
	credStore credentials.Store
	logger    *slog.Logger

	client *client
}

// Option configures a Transport.
type Option func(*Transport) error

// WithPlainHTTP enables plain HTTP (no TLS) for the registry. Useful for
// local development registries.
func WithPlainHTTP(enabled bool) Option {
	return func(t *Transport) error {
		t.plainHTTP = enabled
		return nil
	}
}

// WithDockerConfig enables reading credentials from ~/.docker/config.json.
func WithDockerConfig() Option {
	return func(t *Transport) error {
		store, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
		if err != nil {
			return fmt.Errorf("oci: load docker config: %w", err)
		}
		t.credStore = store
		return nil
	}
}

// WithStaticCredentials sets username/password credentials for a registry
// host (e.g. "ghcr.io").
func WithStaticCredentials(registry, username, password string) Option {
	return func(t *Transport) error {
		store := credentials.NewMemoryStore()
		if err := store.Put(context.Background(), registry, auth.Credential{
			Username: username,
			Password: password,
		}); err != nil {
			return fmt.Errorf("oci: store credentials: %w", err)
		}
		t.credStore = store
		return nil
	}
}

// WithAnonymous forces anonymous access, ignoring any configured credentials.
func WithAnonymous() Option {
	return func(t *Transport) error {
		t.anonymous = true
		return nil
	}
}

// WithLogger sets the transport logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) error {
		t.logger = logger
		return nil
	}
}

// New creates an OCI transport pushing to the given repository reference
// (e.g. "ghcr.io/org/attested-sets").
func New(repo string, opts ...Option) (*Transport, error) {
	t := &Transport{repo: repo}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	t.client = newClient(t.plainHTTP, t.anonymous, t.credStore)
	return t, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (t *Transport) log() *slog.Logger {
	if t.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return t.logger
}

// Name implements transfer.Transport.
func (t *Transport) Name() string { return "oci" }

// Handles implements transfer.Transport.
func (t *Transport) Handles(uri string) bool {
	return strings.HasPrefix(uri, uriPrefix)
}

// Distribute pushes the file set as an OCI artifact and returns its
// content-addressed location.
func (t *Transport) Distribute(ctx context.Context, files fileset.FileSet) (string, error) {
	index, data, err := encodeArchive(files)
	if err != nil {
		return "", err
	}

	configData := []byte("{}")
	configDesc := ocispec.Descriptor{
		MediaType: ocispec.MediaTypeEmptyJSON,
		Digest:    digest.FromBytes(configData),
		Size:      int64(len(configData)),
	}
	indexDesc := ocispec.Descriptor{
		MediaType: MediaTypeIndex,
		Digest:    digest.FromBytes(index),
		Size:      int64(len(index)),
	}
	dataDesc := ocispec.Descriptor{
		MediaType: MediaTypeData,
		Digest:    digest.FromBytes(data),
		Size:      int64(len(data)),
	}

	if err := t.client.pushBlob(ctx, t.repo, configDesc, configData); err != nil {
		return "", fmt.Errorf("push config: %w", err)
	}
	if err := t.client.pushBlob(ctx, t.repo, indexDesc, index); err != nil {
		return "", fmt.Errorf("push index blob: %w", err)
	}
	if err := t.client.pushBlob(ctx, t.repo, dataDesc, data); err != nil {
		return "", fmt.Errorf("push data blob: %w", err)
	}

	manifest := ocispec.Manifest{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: ArtifactType,
		Config:       configDesc,
		Layers:       []ocispec.Descriptor{indexDesc, dataDesc},
		Annotations: map[string]string{
			ocispec.AnnotationCreated: time.Now().UTC().Format(time.RFC3339),
		},
	}
	desc, err := t.client.pushManifest(ctx, t.repo, &manifest)
	if err != nil {
		return "", fmt.Errorf("push manifest: %w", err)
	}

	location := fmt.Sprintf("%s%s@%s", uriPrefix, t.repo, desc.Digest)
	t.log().Debug("pushed fileset artifact", "location", location, "files", len(files))
	return location, nil
}

// Fetch retrieves a file set from an oci:// location, verifying every blob
// and file against the digests in the artifact.
func (t *Transport) Fetch(ctx context.Context, uri string) (fileset.FileSet, error) {
	repo, dgst, err := parseURI(uri)
	if err != nil {
		return nil, err
	}

	manifest, err := t.client.fetchManifest(ctx, repo, dgst)
	if err != nil {
		return nil, err
	}
	if manifest.ArtifactType != ArtifactType {
		return nil, fmt.Errorf("%w: artifact type %q", ErrInvalidManifest, manifest.ArtifactType)
	}

	var indexDesc, dataDesc *ocispec.Descriptor
	for i := range manifest.Layers {
		switch manifest.Layers[i].MediaType {
		case MediaTypeIndex:
			indexDesc = &manifest.Layers[i]
		case MediaTypeData:
			dataDesc = &manifest.Layers[i]
		}
	}
	if indexDesc == nil || dataDesc == nil {
		return nil, fmt.Errorf("%w: missing index or data layer", ErrInvalidManifest)
	}

	index, err := t.client.fetchBlob(ctx, repo, *indexDesc)
	if err != nil {
		return nil, fmt.Errorf("fetch index blob: %w", err)
	}
	data, err := t.client.fetchBlob(ctx, repo, *dataDesc)
	if err != nil {
		return nil, fmt.Errorf("fetch data blob: %w", err)
	}

	return decodeArchive(index, data)
}

// parseURI splits oci://<repository>@<digest>.
func parseURI(uri string) (repo string, dgst digest.Digest, err error) {
	if !strings.HasPrefix(uri, uriPrefix) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	rest := strings.TrimPrefix(uri, uriPrefix)
	repo, ref, ok := strings.Cut(rest, "@")
	if !ok || repo == "" {
		return "", "", fmt.Errorf("%w: %q: want oci://<repository>@<digest>", ErrInvalidURI, uri)
	}
	dgst, err = digest.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q: %w", ErrInvalidURI, uri, err)
	}
	return repo, dgst, nil
}
