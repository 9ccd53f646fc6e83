package transfer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amplius/ampl/fileset"
)

// fakeTransport stores the last distributed set in memory.
type fakeTransport struct {
	name    string
	scheme  string
	failure error
	stored  fileset.FileSet
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Handles(uri string) bool {
	return strings.HasPrefix(uri, f.scheme+"://")
}

func (f *fakeTransport) Distribute(_ context.Context, files fileset.FileSet) (string, error) {
	if f.failure != nil {
		return "", f.failure
	}
	f.stored = files
	return f.scheme + "://stored", nil
}

func (f *fakeTransport) Fetch(_ context.Context, uri string) (fileset.FileSet, error) {
	if f.failure != nil {
		return nil, f.failure
	}
	return f.stored, nil
}

func testFiles() fileset.FileSet {
	return fileset.New(
		fileset.File{Name: "a.txt", Data: []byte("hello")},
		fileset.File{Name: "b.txt", Data: []byte("world")},
	)
}

func TestDistributeAllTransports(t *testing.T) {
	t.Parallel()

	a := &fakeTransport{name: "alpha", scheme: "alpha"}
	b := &fakeTransport{name: "beta", scheme: "beta"}
	d := NewDispatcher(WithTransport(a), WithTransport(b))

	outcomes, err := d.Distribute(context.Background(), testFiles())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, "alpha", outcomes[0].Transport)
	assert.Equal(t, "alpha://stored", outcomes[0].Location)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, "beta://stored", outcomes[1].Location)
}

func TestDistributePartialFailureReported(t *testing.T) {
	t.Parallel()

	boom := errors.New("remote unavailable")
	a := &fakeTransport{name: "alpha", scheme: "alpha"}
	b := &fakeTransport{name: "beta", scheme: "beta", failure: boom}
	d := NewDispatcher(WithTransport(a), WithTransport(b))

	outcomes, err := d.Distribute(context.Background(), testFiles())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.NoError(t, outcomes[0].Err)
	assert.ErrorIs(t, outcomes[1].Err, boom)
	assert.Empty(t, outcomes[1].Location)
}

func TestDistributeSelectors(t *testing.T) {
	t.Parallel()

	a := &fakeTransport{name: "alpha", scheme: "alpha"}
	b := &fakeTransport{name: "beta", scheme: "beta"}
	d := NewDispatcher(WithTransport(a), WithTransport(b))

	outcomes, err := d.Distribute(context.Background(), testFiles(), "beta")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "beta", outcomes[0].Transport)

	_, err = d.Distribute(context.Background(), testFiles(), "gamma")
	require.ErrorIs(t, err, ErrNoTransport)
}

func TestDistributeNoTransports(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	_, err := d.Distribute(context.Background(), testFiles())
	require.ErrorIs(t, err, ErrNoTransport)
}

func TestFetchResolvesByURI(t *testing.T) {
	t.Parallel()

	a := &fakeTransport{name: "alpha", scheme: "alpha"}
	b := &fakeTransport{name: "beta", scheme: "beta"}
	d := NewDispatcher(WithTransport(a), WithTransport(b))

	_, err := d.Distribute(context.Background(), testFiles(), "beta")
	require.NoError(t, err)

	files, err := d.Fetch(context.Background(), "beta://stored")
	require.NoError(t, err)
	assert.Equal(t, testFiles(), files)
}

func TestFetchUnknownScheme(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(WithTransport(&fakeTransport{name: "alpha", scheme: "alpha"}))
	_, err := d.Fetch(context.Background(), "carrier-pigeon://coop")
	require.ErrorIs(t, err, ErrNoTransport)
}

func TestFetchTaggedWithTransport(t *testing.T) {
	t.Parallel()

	boom := errors.New("remote unavailable")
	d := NewDispatcher(WithTransport(&fakeTransport{name: "alpha", scheme: "alpha", failure: boom}))

	_, err := d.Fetch(context.Background(), "alpha://stored")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "alpha:")
}
