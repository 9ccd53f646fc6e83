package ampl

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/amplius/ampl/claim"
	"github.com/amplius/ampl/identity"
	"github.com/amplius/ampl/transfer"
)

// Option configures a Client.
type Option func(*Client) error

// WithStore sets the claim ledger.
func WithStore(store claim.Store) Option {
	return func(c *Client) error {
		c.store = store
		return nil
	}
}

// WithStateDir roots both the claim ledger (a file store under
// <dir>/claims) and the identity keys (<dir>/identity) at one directory.
func WithStateDir(dir string) Option {
	return func(c *Client) error {
		store, err := claim.NewFileStore(filepath.Join(dir, "claims"))
		if err != nil {
			return err
		}
		c.store = store
		c.ids = identity.NewProvider(filepath.Join(dir, "identity"))
		return nil
	}
}

// WithIdentityDir sets the directory identity keys are persisted under.
func WithIdentityDir(dir string) Option {
	return func(c *Client) error {
		c.ids = identity.NewProvider(dir)
		return nil
	}
}

// WithTransport registers a transport for distribution and retrieval.
// Registration order decides which transport wins when several claim the
// same URI.
func WithTransport(t transfer.Transport) Option {
	return func(c *Client) error {
		c.transports = append(c.transports, t)
		return nil
	}
}

// WithDispatcher replaces the transfer dispatcher entirely, ignoring any
// WithTransport options.
func WithDispatcher(d *transfer.Dispatcher) Option {
	return func(c *Client) error {
		c.dispatcher = d
		return nil
	}
}

// WithLogger sets the logger for attestation operations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithClock overrides the issuance clock. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) error {
		c.now = now
		return nil
	}
}

// defaultIdentityDir is the identity location when no option names one.
func defaultIdentityDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("ampl: resolve identity dir: %w", err)
	}
	return filepath.Join(base, "ampl", "identity"), nil
}
