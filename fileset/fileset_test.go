package fileset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("beta"), 0o644))

	// Order of arguments, not lexicographic order, decides set order.
	set, err := FromPaths(b, a)
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, []string{"b.txt", "a.txt"}, set.Names())
	assert.Equal(t, []byte("beta"), set[0].Data)
	assert.Equal(t, []byte("alpha"), set[1].Data)
}

func TestFromPathsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := FromPaths(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteDir(t *testing.T) {
	t.Parallel()

	set := New(
		File{Name: "top.txt", Data: []byte("top")},
		File{Name: "nested/inner.txt", Data: []byte("inner")},
	)

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, set.WriteDir(dir))

	top, err := os.ReadFile(filepath.Join(dir, "top.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("top"), top)

	inner, err := os.ReadFile(filepath.Join(dir, "nested", "inner.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("inner"), inner)
}

func TestWriteDirRejectsTraversal(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	set := New(
		File{Name: "ok.txt", Data: []byte("ok")},
		File{Name: "../escape.txt", Data: []byte("nope")},
	)

	err := set.WriteDir(dir)
	require.ErrorIs(t, err, ErrInvalidName)

	// Validation happens before any write.
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteDirRejectsAbsolute(t *testing.T) {
	t.Parallel()

	set := New(File{Name: "/etc/shadow", Data: []byte("nope")})
	err := set.WriteDir(t.TempDir())
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, New().Empty())
	assert.True(t, FileSet(nil).Empty())
	assert.False(t, New(File{Name: "a", Data: nil}).Empty())
}
