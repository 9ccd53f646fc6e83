package ampl

import (
	"log/slog"
	"time"

	"github.com/amplius/ampl/claim"
	"github.com/amplius/ampl/identity"
	"github.com/amplius/ampl/transfer"
)

// Client is the attestation engine: it owns the claim-ID selection policy
// and orchestrates the fingerprint computation, the claim ledger, the
// identity provider, and the transfer dispatcher.
//
// Operations for different claim IDs are safe to run concurrently; races
// on the same claim ID resolve through the ledger's first-writer-wins
// contract.
type Client struct {
	store      claim.Store
	ids        *identity.Provider
	dispatcher *transfer.Dispatcher
	logger     *slog.Logger

	// now is the issuance clock, overridable for tests.
	now func() time.Time

	transports []transfer.Transport
}

// NewClient creates a client with the given options.
//
// Without WithStore or WithStateDir the ledger is an in-memory store whose
// claims do not survive the process; production callers should configure a
// durable store. Without WithIdentityDir (or WithStateDir) identities are
// kept under the user config directory.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{now: time.Now}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.store == nil {
		c.store = claim.NewMemStore()
	}
	if c.ids == nil {
		dir, err := defaultIdentityDir()
		if err != nil {
			return nil, err
		}
		c.ids = identity.NewProvider(dir)
	}
	if c.dispatcher == nil {
		dispatchOpts := make([]transfer.Option, 0, len(c.transports)+1)
		for _, t := range c.transports {
			dispatchOpts = append(dispatchOpts, transfer.WithTransport(t))
		}
		if c.logger != nil {
			dispatchOpts = append(dispatchOpts, transfer.WithLogger(c.logger))
		}
		c.dispatcher = transfer.NewDispatcher(dispatchOpts...)
	}
	return c, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}
