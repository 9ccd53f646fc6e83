package claim

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/amplius/ampl/merkle"
)

// encMode is the CBOR encoder configured with Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. The same logical record always produces
// identical bytes, which is what makes the encoding usable as a signature
// payload.
var encMode cbor.EncMode

// decMode accepts standard CBOR; unknown fields are ignored for forward
// compatibility.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("claim: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("claim: CBOR decoder initialization failed: " + err.Error())
	}
}

// record is the on-disk shape of a Claim. The fingerprint is stored as a
// byte string rather than the fixed-size array so the encoding stays a
// compact CBOR byte string.
type record struct {
	ID          string    `cbor:"id"`
	Fingerprint []byte    `cbor:"fingerprint"`
	FileCount   uint64    `cbor:"fileCount"`
	Issuer      string    `cbor:"issuer"`
	Signature   []byte    `cbor:"signature,omitempty"`
	IssuedAt    time.Time `cbor:"issuedAt"`
	Locations   []string  `cbor:"locations,omitempty"`
}

// signaturePayload is the subset of a claim covered by the issuer
// signature: the identifier-to-content binding itself.
type signaturePayload struct {
	ID          string `cbor:"id"`
	Fingerprint []byte `cbor:"fingerprint"`
	FileCount   uint64 `cbor:"fileCount"`
}

// SignaturePayload returns the deterministic byte encoding of the
// {claimID, fingerprint, fileCount} tuple that issuer identities sign.
func SignaturePayload(id string, fp merkle.Fingerprint, fileCount int) ([]byte, error) {
	data, err := encMode.Marshal(signaturePayload{
		ID:          id,
		Fingerprint: fp[:],
		FileCount:   uint64(fileCount),
	})
	if err != nil {
		return nil, fmt.Errorf("claim: encode signature payload: %w", err)
	}
	return data, nil
}

// Encode serializes a claim with deterministic CBOR.
func Encode(c Claim) ([]byte, error) {
	data, err := encMode.Marshal(record{
		ID:          c.ID,
		Fingerprint: c.Fingerprint[:],
		FileCount:   uint64(c.FileCount),
		Issuer:      c.Issuer,
		Signature:   c.Signature,
		IssuedAt:    c.IssuedAt,
		Locations:   c.Locations,
	})
	if err != nil {
		return nil, fmt.Errorf("claim: encode: %w", err)
	}
	return data, nil
}

// Decode deserializes a claim previously produced by Encode.
func Decode(data []byte) (Claim, error) {
	var rec record
	if err := decMode.Unmarshal(data, &rec); err != nil {
		return Claim{}, fmt.Errorf("claim: decode: %w", err)
	}
	if len(rec.Fingerprint) != merkle.Size {
		return Claim{}, fmt.Errorf("claim: decode: fingerprint is %d bytes, want %d", len(rec.Fingerprint), merkle.Size)
	}
	var fp merkle.Fingerprint
	copy(fp[:], rec.Fingerprint)
	return Claim{
		ID:          rec.ID,
		Fingerprint: fp,
		FileCount:   int(rec.FileCount),
		Issuer:      rec.Issuer,
		Signature:   rec.Signature,
		IssuedAt:    rec.IssuedAt,
		Locations:   rec.Locations,
	}, nil
}
