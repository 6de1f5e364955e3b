package container

import "fmt"

// ErrTooShort is returned when a buffer is too small to hold even the
// fixed-size framing (magic, header, trailing fingerprint).
var ErrTooShort = fmt.Errorf("scrate: buffer too short to be a signed package")

// ErrBadMagic is returned when the first five bytes are not "CRATE".
var ErrBadMagic = fmt.Errorf("scrate: bad magic, not a signed package")

// ErrFingerprintMismatch indicates the trailing 32-byte SHA-256 does not
// match the preceding bytes: the container was corrupted in transit.
var ErrFingerprintMismatch = fmt.Errorf("scrate: fingerprint mismatch, container corrupted")

// ErrNoSignatures indicates the container has no SigStructureSection at
// all. A signed package must carry at least one signature; a container
// that stripped every signature (and recomputed the fingerprint over the
// smaller layout) is structurally well-formed but carries no publisher
// identity and must be rejected.
var ErrNoSignatures = fmt.Errorf("scrate: container has no signatures")

// MalformedInputError is raised by the binary primitives layer whenever a
// length prefix, discriminant, or fixed-width field cannot be decoded at
// the given byte offset.
type MalformedInputError struct {
	Offset int
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("scrate: malformed input at offset %d: %s", e.Offset, e.Reason)
}

// MalformedHeaderError indicates the header's region offsets/sizes do not
// partition the file into valid, non-overlapping regions.
type MalformedHeaderError struct {
	Reason string
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("scrate: malformed header: %s", e.Reason)
}

// MalformedIndexError indicates a section descriptor's offset/size falls
// outside the sections region.
type MalformedIndexError struct {
	Index  int
	Reason string
}

func (e *MalformedIndexError) Error() string {
	return fmt.Sprintf("scrate: malformed section index entry %d: %s", e.Index, e.Reason)
}

// UnknownSectionKindError is fatal: this format has no forward-compatibility
// story for section kinds.
type UnknownSectionKindError struct {
	Kind uint32
}

func (e *UnknownSectionKindError) Error() string {
	return fmt.Sprintf("scrate: unknown section kind %d", e.Kind)
}

// SignatureDigestMismatchError indicates a signature verified against its
// trusted roots but the encapsulated digest does not match the recomputed
// covered-region digest: tampering that preserved or regenerated the
// fingerprint.
type SignatureDigestMismatchError struct {
	SignatureIndex int
}

func (e *SignatureDigestMismatchError) Error() string {
	return fmt.Sprintf("scrate: signature %d digest mismatch (tampering detected)", e.SignatureIndex)
}

// SignaturePayloadOverflowError is raised by the encoder when a signing
// backend's concrete payload exceeds the reserved placeholder size.
type SignaturePayloadOverflowError struct {
	SignatureIndex int
	Reserved       int
	Actual         int
}

func (e *SignaturePayloadOverflowError) Error() string {
	return fmt.Sprintf("scrate: signature %d payload overflow: reserved %d bytes, got %d",
		e.SignatureIndex, e.Reserved, e.Actual)
}
