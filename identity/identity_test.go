package identity

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentCreatesOnFirstUse(t *testing.T) {
	t.Parallel()

	p := NewProvider(t.TempDir())

	id, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id.Address(), "0x"))
	assert.Len(t, id.Address(), 42)

	again, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id.Address(), again.Address())
}

func TestCurrentPersistsAcrossProviders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first, err := NewProvider(dir).Current(context.Background())
	require.NoError(t, err)

	// A fresh provider over the same directory models a process restart.
	second, err := NewProvider(dir).Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Address(), second.Address())
}

func TestNewRotates(t *testing.T) {
	t.Parallel()

	p := NewProvider(t.TempDir())

	first, err := p.Current(context.Background())
	require.NoError(t, err)

	rotated, err := p.New(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.Address(), rotated.Address())

	current, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rotated.Address(), current.Address())
}

func TestConcurrentFirstUse(t *testing.T) {
	t.Parallel()

	p := NewProvider(t.TempDir())

	var wg sync.WaitGroup
	addrs := make([]string, 8)
	errs := make([]error, 8)
	for i := range addrs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := p.Current(context.Background())
			if err != nil {
				errs[i] = err
				return
			}
			addrs[i] = id.Address()
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	for _, addr := range addrs[1:] {
		assert.Equal(t, addrs[0], addr)
	}
}

func TestSignVerify(t *testing.T) {
	t.Parallel()

	p := NewProvider(t.TempDir())
	id, err := p.Current(context.Background())
	require.NoError(t, err)

	payload := []byte("claim binding")
	sig := id.Sign(payload)
	assert.True(t, id.Verify(payload, sig))
	assert.False(t, id.Verify([]byte("tampered"), sig))

	other, err := NewProvider(t.TempDir()).Current(context.Background())
	require.NoError(t, err)
	assert.False(t, other.Verify(payload, sig))
}
