// Package identity supplies the account used to attribute and sign claims.
//
// An identity is an ed25519 keypair persisted under a state directory, with
// a short public address derived from the public key. The Provider is the
// lazily-initialized handle the attestation engine uses: Current creates a
// keypair on first call and returns the same one afterwards, across process
// restarts; New always rotates to a fresh keypair.
package identity

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// keyFile holds the hex-encoded ed25519 seed under the state directory.
const keyFile = "identity.key"

// Identity is a loaded keypair.
type Identity struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	addr string
}

// Address returns the public address: 0x followed by the first 20 bytes of
// SHA-256(public key), hex encoded.
func (id *Identity) Address() string {
	return id.addr
}

// Sign signs payload with the identity's private key.
func (id *Identity) Sign(payload []byte) []byte {
	return ed25519.Sign(id.priv, payload)
}

// Verify reports whether sig is a valid signature by this identity over
// payload.
func (id *Identity) Verify(payload, sig []byte) bool {
	return ed25519.Verify(id.pub, payload, sig)
}

// PublicKey returns the public key bytes.
func (id *Identity) PublicKey() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), id.pub...)
}

// Provider loads, creates, and persists identities under a directory.
// Methods are safe for concurrent use; at most one keypair is created even
// when first use races.
type Provider struct {
	dir string

	mu      sync.Mutex
	current *Identity
}

// NewProvider returns a provider rooted at dir. The directory is created
// on first use.
func NewProvider(dir string) *Provider {
	return &Provider{dir: dir}
}

// Current returns the persisted identity, creating one if none exists.
// Idempotent across calls and process restarts.
func (p *Provider) Current(ctx context.Context) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		return p.current, nil
	}

	id, err := p.load()
	if errors.Is(err, fs.ErrNotExist) {
		id, err = p.create(ctx)
	}
	if err != nil {
		return nil, err
	}
	p.current = id
	return id, nil
}

// New creates and persists a fresh identity, replacing the current one.
func (p *Provider) New(ctx context.Context) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		return nil, fmt.Errorf("identity: create state dir: %w", err)
	}
	if err := os.Remove(p.keyPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("identity: remove key: %w", err)
	}
	id, err := p.create(ctx)
	if err != nil {
		return nil, err
	}
	p.current = id
	return id, nil
}

// load reads the persisted seed. Returns fs.ErrNotExist (wrapped) when no
// identity has been created yet.
func (p *Provider) load() (*Identity, error) {
	data, err := os.ReadFile(p.keyPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("identity: read key: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("identity: decode key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity: key is %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	return fromSeed(seed), nil
}

// create generates a keypair and persists the seed with an exclusive
// create, so two racing processes cannot both win; the loser reloads the
// winner's key.
func (p *Provider) create(_ context.Context) (*Identity, error) {
	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		return nil, fmt.Errorf("identity: create state dir: %w", err)
	}

	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("identity: generate key: %w", err)
	}

	f, err := os.OpenFile(p.keyPath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return p.load()
		}
		return nil, fmt.Errorf("identity: persist key: %w", err)
	}
	if _, err := fmt.Fprintln(f, hex.EncodeToString(seed)); err != nil {
		f.Close()
		return nil, fmt.Errorf("identity: persist key: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("identity: persist key: %w", err)
	}
	return fromSeed(seed), nil
}

// fromSeed builds an Identity from an ed25519 seed.
func fromSeed(seed []byte) *Identity {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	sum := sha256.Sum256(pub)
	return &Identity{
		priv: priv,
		pub:  pub,
		addr: "0x" + hex.EncodeToString(sum[:20]),
	}
}

// keyPath returns the seed file location.
func (p *Provider) keyPath() string {
	return filepath.Join(p.dir, keyFile)
}
