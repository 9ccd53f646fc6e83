// Package transfer routes file sets to and from transport clients.
//
// A Transport moves a file set to a location it controls and fetches it
// back from a URI it recognizes. The Dispatcher fans a distribution out to
// every configured transport concurrently and reports one Outcome per
// transport; partial failure is reported per outcome, never collapsed into
// a single error. Fetch resolves the responsible transport from the URI.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/amplius/ampl/fileset"
)

// Sentinel errors for dispatch operations.
var (
	// ErrNoTransport is returned when no configured transport handles
	// the requested URI or selector.
	ErrNoTransport = errors.New("transfer: no transport")
)

// Transport is a client capable of moving a file set to and from a
// location identified by a URI.
type Transport interface {
	// Name identifies the transport for selection and reporting
	// (e.g. "oci", "git", "http").
	Name() string

	// Handles reports whether this transport can fetch the given URI.
	Handles(uri string) bool

	// Distribute pushes the file set and returns the URI it can later
	// be fetched from.
	Distribute(ctx context.Context, files fileset.FileSet) (string, error)

	// Fetch retrieves the file set stored at uri.
	Fetch(ctx context.Context, uri string) (fileset.FileSet, error)
}

// Outcome is the per-transport result of a distribution.
type Outcome struct {
	// Transport is the transport name.
	Transport string

	// Location is the fetchable URI on success.
	Location string

	// Err is the transport's failure, nil on success.
	Err error
}

// Dispatcher routes file sets across the configured transports.
type Dispatcher struct {
	transports []Transport
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTransport registers a transport. Registration order decides which
// transport wins when several claim the same URI.
func WithTransport(t Transport) Option {
	return func(d *Dispatcher) {
		d.transports = append(d.transports, t)
	}
}

// WithLogger sets the logger for dispatch operations.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher with the given options.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// log returns the logger, falling back to a discard logger if nil.
func (d *Dispatcher) log() *slog.Logger {
	if d.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.logger
}

// Transports returns the names of the registered transports, in order.
func (d *Dispatcher) Transports() []string {
	names := make([]string, len(d.transports))
	for i, t := range d.transports {
		names[i] = t.Name()
	}
	return names
}

// Distribute pushes the file set through every registered transport, or
// through the named subset when selectors are given. Transports run
// concurrently; the returned outcomes are in transport order and carry
// each transport's location or failure. An unknown selector fails with
// ErrNoTransport before anything is pushed.
func (d *Dispatcher) Distribute(ctx context.Context, files fileset.FileSet, selectors ...string) ([]Outcome, error) {
	selected := d.transports
	if len(selectors) > 0 {
		selected = make([]Transport, 0, len(selectors))
		for _, name := range selectors {
			i := slices.IndexFunc(d.transports, func(t Transport) bool { return t.Name() == name })
			if i < 0 {
				return nil, fmt.Errorf("%w: %q", ErrNoTransport, name)
			}
			selected = append(selected, d.transports[i])
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: none configured", ErrNoTransport)
	}

	outcomes := make([]Outcome, len(selected))
	g, ctx := errgroup.WithContext(ctx)
	for i, t := range selected {
		g.Go(func() error {
			location, err := t.Distribute(ctx, files)
			outcomes[i] = Outcome{Transport: t.Name(), Location: location, Err: err}
			if err != nil {
				d.log().Warn("distribute failed", "transport", t.Name(), "error", err)
			} else {
				d.log().Debug("distributed", "transport", t.Name(), "location", location)
			}
			return nil
		})
	}
	// Transport failures live in the outcomes; the group only carries
	// context cancellation.
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// Fetch resolves the transport responsible for uri and retrieves the file
// set stored there.
func (d *Dispatcher) Fetch(ctx context.Context, uri string) (fileset.FileSet, error) {
	for _, t := range d.transports {
		if !t.Handles(uri) {
			continue
		}
		d.log().Debug("fetching", "transport", t.Name(), "uri", uri)
		files, err := t.Fetch(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name(), err)
		}
		return files, nil
	}
	return nil, fmt.Errorf("%w for %q", ErrNoTransport, uri)
}
