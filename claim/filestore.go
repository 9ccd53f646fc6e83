package claim

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is a Store backed by one CBOR file per claim under a ledger
// directory. Writes go through a temp file, fsync, and rename, so a
// successful Put is durable before it returns.
//
// File names are the SHA-256 of the claim identifier, not the identifier
// itself: operator-supplied identifiers may contain characters that are not
// filesystem-safe.
type FileStore struct {
	dir string

	// mu serializes Put calls for in-process writers. Cross-process
	// first-writer-wins is enforced by the exclusive-create link step.
	mu sync.Mutex
}

// NewFileStore opens (creating if needed) a ledger directory.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("claim: create ledger dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Put implements Store.
func (s *FileStore) Put(_ context.Context, c Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(c.ID)

	// Existing record: idempotent no-op on matching content, conflict
	// otherwise. The stored record stays authoritative either way.
	existing, err := s.load(path, c.ID)
	switch {
	case err == nil:
		if existing.Matches(c) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrDuplicateClaim, c.ID)
	case !errors.Is(err, ErrClaimNotFound):
		return err
	}

	data, err := Encode(c)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".claim-*")
	if err != nil {
		return fmt.Errorf("claim: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("claim: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("claim: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("claim: close temp: %w", err)
	}

	// Link is create-exclusive: if another process won the race since
	// the load above, re-check the winner's content instead of
	// overwriting it.
	if err := os.Link(tmpName, path); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("claim: persist: %w", err)
		}
		winner, loadErr := s.load(path, c.ID)
		if loadErr != nil {
			return loadErr
		}
		if winner.Matches(c) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrDuplicateClaim, c.ID)
	}
	return nil
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, id string) (Claim, error) {
	return s.load(s.path(id), id)
}

// load reads and decodes one claim file, verifying that the stored
// identifier matches the requested one.
func (s *FileStore) load(path, id string) (Claim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Claim{}, fmt.Errorf("%w: %s", ErrClaimNotFound, id)
		}
		return Claim{}, fmt.Errorf("claim: read ledger file: %w", err)
	}
	c, err := Decode(data)
	if err != nil {
		return Claim{}, err
	}
	if c.ID != id {
		return Claim{}, fmt.Errorf("claim: ledger file for %s holds claim %s", id, c.ID)
	}
	return c, nil
}

// path returns the ledger file for a claim identifier.
func (s *FileStore) path(id string) string {
	sum := sha256.Sum256([]byte(id))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".cbor")
}
