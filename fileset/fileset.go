// Package fileset defines the ordered file collection that attestation
// operations work over.
//
// A FileSet pairs each file's raw content with a stable name. Order is
// significant: it is an input to the content fingerprint, so the same files
// presented in a different order are a different set.
package fileset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrInvalidName is returned when a file name is not a valid relative path.
var ErrInvalidName = errors.New("fileset: invalid file name")

// File is a single named file held in memory.
type File struct {
	Name string
	Data []byte
}

// FileSet is an ordered collection of files.
type FileSet []File

// New builds a FileSet from the given files, preserving order.
func New(files ...File) FileSet {
	return FileSet(files)
}

// FromPaths reads each path from disk, in the order given. The stored name
// is the path's base name.
func FromPaths(paths ...string) (FileSet, error) {
	set := make(FileSet, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		set = append(set, File{Name: filepath.Base(p), Data: data})
	}
	return set, nil
}

// Empty reports whether the set contains no files.
func (s FileSet) Empty() bool {
	return len(s) == 0
}

// Names returns the file names in set order.
func (s FileSet) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// WriteDir writes every file into dir, creating it if needed. Names must be
// valid relative paths (no absolute paths, no "..") or the write fails with
// ErrInvalidName before anything is written.
func (s FileSet) WriteDir(dir string) error {
	for _, f := range s {
		if !fs.ValidPath(f.Name) {
			return fmt.Errorf("%w: %q", ErrInvalidName, f.Name)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	for _, f := range s {
		dest := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(dest), err)
		}
		if err := os.WriteFile(dest, f.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
	}
	return nil
}
