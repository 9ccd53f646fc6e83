package oci

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/opencontainers/go-digest"

	"github.com/amplius/ampl/fileset"
)

// Media types for the two artifact blobs and the manifest artifact type.
const (
	ArtifactType   = "application/vnd.ampl.fileset.v1"
	MediaTypeIndex = "application/vnd.ampl.fileset.index.v1+cbor"
	MediaTypeData  = "application/vnd.ampl.fileset.data.v1"
)

// encMode uses Core Deterministic Encoding so the index blob, and therefore
// its digest, depends only on the file set.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("oci: CBOR encoder initialization failed: " + err.Error())
	}
}

// entry is one file's metadata in the index blob. Offsets are implicit:
// the data blob is the concatenation of file contents in index order.
type entry struct {
	Name   string `cbor:"name"`
	Size   int64  `cbor:"size"`
	Digest string `cbor:"digest"`
}

// encodeArchive splits a file set into an index blob (CBOR entry list, in
// set order) and a data blob (concatenated contents).
func encodeArchive(files fileset.FileSet) (index, data []byte, err error) {
	entries := make([]entry, len(files))
	var total int
	for _, f := range files {
		total += len(f.Data)
	}
	data = make([]byte, 0, total)
	for i, f := range files {
		entries[i] = entry{
			Name:   f.Name,
			Size:   int64(len(f.Data)),
			Digest: digest.FromBytes(f.Data).String(),
		}
		data = append(data, f.Data...)
	}
	index, err = encMode.Marshal(entries)
	if err != nil {
		return nil, nil, fmt.Errorf("oci: encode index: %w", err)
	}
	return index, data, nil
}

// decodeArchive rebuilds the file set from the two blobs, verifying each
// file's digest. Order is the index order, which is the original set order.
func decodeArchive(index, data []byte) (fileset.FileSet, error) {
	var entries []entry
	if err := cbor.Unmarshal(index, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode index: %w", ErrInvalidManifest, err)
	}

	files := make(fileset.FileSet, 0, len(entries))
	offset := int64(0)
	for _, e := range entries {
		if e.Size < 0 || offset+e.Size > int64(len(data)) {
			return nil, fmt.Errorf("%w: entry %q exceeds data blob", ErrInvalidManifest, e.Name)
		}
		content := data[offset : offset+e.Size]
		offset += e.Size

		want, err := digest.Parse(e.Digest)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: %w", ErrInvalidManifest, e.Name, err)
		}
		if digest.FromBytes(content) != want {
			return nil, fmt.Errorf("%w: file %q", ErrDigestMismatch, e.Name)
		}
		files = append(files, fileset.File{Name: e.Name, Data: append([]byte(nil), content...)})
	}
	if offset != int64(len(data)) {
		return nil, fmt.Errorf("%w: %d trailing bytes in data blob", ErrInvalidManifest, int64(len(data))-offset)
	}
	return files, nil
}
