package git

import (
	"context"
	"strings"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amplius/ampl/fileset"
)

// bareRemote creates an empty bare repository on disk that serves as the
// push target. go-git treats a local path as a file-protocol remote, so no
// network is involved.
func bareRemote(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	_, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		Bare: true,
		InitOptions: gogit.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName("main"),
		},
	})
	require.NoError(t, err)
	return dir
}

func testFiles() fileset.FileSet {
	return fileset.New(
		fileset.File{Name: "a.txt", Data: []byte("hello")},
		fileset.File{Name: "b.txt", Data: []byte("world")},
	)
}

func TestDistributeFetchRoundTrip(t *testing.T) {
	t.Parallel()

	remote := bareRemote(t)
	tr := New(remote)

	location, err := tr.Distribute(context.Background(), testFiles())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(location, "git+"+remote+"#"))

	got, err := tr.Fetch(context.Background(), location)
	require.NoError(t, err)
	assert.Equal(t, testFiles(), got)
}

func TestDistributePreservesSetOrder(t *testing.T) {
	t.Parallel()

	remote := bareRemote(t)
	tr := New(remote)

	// Non-lexicographic order must survive the round trip; a git tree
	// alone would come back sorted.
	files := fileset.New(
		fileset.File{Name: "z.txt", Data: []byte("first")},
		fileset.File{Name: "a.txt", Data: []byte("second")},
	)
	location, err := tr.Distribute(context.Background(), files)
	require.NoError(t, err)

	got, err := tr.Fetch(context.Background(), location)
	require.NoError(t, err)
	assert.Equal(t, []string{"z.txt", "a.txt"}, got.Names())
}

func TestDistributeIdenticalContentTwice(t *testing.T) {
	t.Parallel()

	remote := bareRemote(t)
	tr := New(remote)

	first, err := tr.Distribute(context.Background(), testFiles())
	require.NoError(t, err)

	// Nothing changed, so the second distribution pins the same commit.
	second, err := tr.Distribute(context.Background(), testFiles())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDistributeUpdatedContent(t *testing.T) {
	t.Parallel()

	remote := bareRemote(t)
	tr := New(remote)

	first, err := tr.Distribute(context.Background(), testFiles())
	require.NoError(t, err)

	updated := fileset.New(
		fileset.File{Name: "a.txt", Data: []byte("hello")},
		fileset.File{Name: "b.txt", Data: []byte("WORLD")},
	)
	second, err := tr.Distribute(context.Background(), updated)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// The first location still pins the original content.
	got, err := tr.Fetch(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, testFiles(), got)

	got, err = tr.Fetch(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestParseURI(t *testing.T) {
	t.Parallel()

	url, commit, err := parseURI("git+https://example.com/repo.git#abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/repo.git", url)
	assert.Equal(t, "abc123", commit)

	url, commit, err = parseURI("git://example.com/repo.git")
	require.NoError(t, err)
	assert.Equal(t, "git://example.com/repo.git", url)
	assert.Empty(t, commit)

	_, _, err = parseURI("https://example.com/repo.git")
	require.ErrorIs(t, err, ErrInvalidURI)
}

func TestHandles(t *testing.T) {
	t.Parallel()

	tr := New("https://example.com/repo.git")
	assert.True(t, tr.Handles("git+https://example.com/repo.git#abc"))
	assert.True(t, tr.Handles("git://example.com/repo.git"))
	assert.False(t, tr.Handles("https://example.com/repo.git"))
	assert.False(t, tr.Handles("oci://example.com/repo"))
}
