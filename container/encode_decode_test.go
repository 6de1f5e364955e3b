package container

import (
	"context"
	"crypto/x509"
	"errors"
	"testing"

	"github.com/LeeLiangmin/scrate/signing"
)

func TestRoundTrip(t *testing.T) {
	leafCert, leafKey, root := genTestChain(t)
	pctx := newTestContext()
	pctx.AddSignature(SignatureSlot{Type: SigTypeFile, SignerCert: leafCert, Key: leafKey})
	pctx.AddSignature(SignatureSlot{Type: SigTypeCratebin, SignerCert: leafCert, Key: leafKey})

	buf, err := Encode(context.Background(), pctx, signing.PKCS7Adapter{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if string(buf[:5]) != "CRATE" {
		t.Fatalf("expected CRATE magic, got %q", buf[:5])
	}

	decoded, err := Decode(context.Background(), buf, signing.PKCS7Adapter{}, []*x509.Certificate{root}, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !pctx.Equal(decoded) {
		t.Fatalf("decoded context not equal to original:\norig: %+v\ngot:  %+v", pctx, decoded)
	}
	if len(decoded.Verified) != 2 {
		t.Fatalf("expected 2 verified signatures, got %d", len(decoded.Verified))
	}
}

func TestFingerprintCoversEverythingButItself(t *testing.T) {
	leafCert, leafKey, root := genTestChain(t)
	pctx := newTestContext()
	pctx.AddSignature(SignatureSlot{Type: SigTypeFile, SignerCert: leafCert, Key: leafKey})

	buf, err := Encode(context.Background(), pctx, signing.PKCS7Adapter{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	for _, offset := range []int{0, 10, len(buf) - FingerprintSize - 1} {
		tampered := append([]byte(nil), buf...)
		tampered[offset] ^= 0x01

		_, err := Decode(context.Background(), tampered, signing.PKCS7Adapter{}, []*x509.Certificate{root}, nil)
		if !errors.Is(err, ErrFingerprintMismatch) {
			t.Errorf("offset %d: expected ErrFingerprintMismatch, got %v", offset, err)
		}
	}
}

func TestSignatureCoversInnerPackage(t *testing.T) {
	leafCert, leafKey, root := genTestChain(t)
	pctx := newTestContext()
	pctx.AddSignature(SignatureSlot{Type: SigTypeCratebin, SignerCert: leafCert, Key: leafKey})

	buf, err := Encode(context.Background(), pctx, signing.PKCS7Adapter{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	descriptors := findDescriptors(t, buf)
	crateBin := mustDescriptor(t, descriptors, SectionCrateBinary)
	tampered := append([]byte(nil), buf...)
	tampered[crateBin.Offset] ^= 0x01
	refingerprint(tampered)

	_, err = Decode(context.Background(), tampered, signing.PKCS7Adapter{}, []*x509.Certificate{root}, nil)
	var mismatch *SignatureDigestMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SignatureDigestMismatchError, got %v", err)
	}
}

func TestSignatureCoversMetadata(t *testing.T) {
	leafCert, leafKey, root := genTestChain(t)
	pctx := newTestContext()
	pctx.AddSignature(SignatureSlot{Type: SigTypeFile, SignerCert: leafCert, Key: leafKey})

	buf, err := Encode(context.Background(), pctx, signing.PKCS7Adapter{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	descriptors := findDescriptors(t, buf)
	pkgSection := mustDescriptor(t, descriptors, SectionPackage)
	tampered := append([]byte(nil), buf...)
	tampered[pkgSection.Offset] ^= 0x01
	refingerprint(tampered)

	_, err = Decode(context.Background(), tampered, signing.PKCS7Adapter{}, []*x509.Certificate{root}, nil)
	var mismatch *SignatureDigestMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SignatureDigestMismatchError, got %v", err)
	}
}

func TestTrustBoundary(t *testing.T) {
	leafCert, leafKey, _ := genTestChain(t)
	_, _, otherRoot := genTestChain(t)

	pctx := newTestContext()
	pctx.AddSignature(SignatureSlot{Type: SigTypeFile, SignerCert: leafCert, Key: leafKey})

	buf, err := Encode(context.Background(), pctx, signing.PKCS7Adapter{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	_, err = Decode(context.Background(), buf, signing.PKCS7Adapter{}, []*x509.Certificate{otherRoot}, nil)
	if !errors.Is(err, signing.ErrUntrustedChain) {
		t.Fatalf("expected ErrUntrustedChain, got %v", err)
	}
}

// TestRejectsZeroSignatures simulates an attacker who strips every
// SigStructureSection out of a valid container (shrinking the index and
// sections region to match) and recomputes the plain self-consistency
// fingerprint — no key material required, since the fingerprint is just a
// hash of the bytes it covers. Decode must still refuse such a container.
func TestRejectsZeroSignatures(t *testing.T) {
	leafCert, leafKey, root := genTestChain(t)
	pctx := newTestContext()
	pctx.AddSignature(SignatureSlot{Type: SigTypeFile, SignerCert: leafCert, Key: leafKey})

	buf, err := Encode(context.Background(), pctx, signing.PKCS7Adapter{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	h := mustHeader(t, buf)
	descriptors := findDescriptors(t, buf)
	sigDesc := mustDescriptor(t, descriptors, SectionSigStructure)

	// The sole signature section is emitted last, so truncating the buffer
	// at its offset drops it (and nothing else) from the sections region.
	stripped := append([]byte(nil), buf[:sigDesc.Offset]...)
	stripped = append(stripped, make([]byte, FingerprintSize)...)

	newHeader := h
	newHeader.IndexSize = h.IndexSize - sectionDescriptorSize
	newHeader.SectionsSize = sigDesc.Offset - h.SectionsOffset
	copy(stripped[5:5+headerSize], newHeader.encode())

	refingerprint(stripped)

	_, err = Decode(context.Background(), stripped, signing.PKCS7Adapter{}, []*x509.Certificate{root}, nil)
	if !errors.Is(err, ErrNoSignatures) {
		t.Fatalf("expected ErrNoSignatures, got %v", err)
	}
}

// TestHeaderRegionMustExcludeFingerprint asserts step 4 rejects a header
// whose sections region is declared to extend into the trailing 32-byte
// fingerprint field, even though it still fits within the overall buffer.
func TestHeaderRegionMustExcludeFingerprint(t *testing.T) {
	leafCert, leafKey, root := genTestChain(t)
	pctx := newTestContext()
	pctx.AddSignature(SignatureSlot{Type: SigTypeFile, SignerCert: leafCert, Key: leafKey})

	buf, err := Encode(context.Background(), pctx, signing.PKCS7Adapter{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	h := mustHeader(t, buf)
	newHeader := h
	newHeader.SectionsSize += FingerprintSize / 2
	copy(buf[5:5+headerSize], newHeader.encode())
	refingerprint(buf)

	_, err = Decode(context.Background(), buf, signing.PKCS7Adapter{}, []*x509.Certificate{root}, nil)
	var malformed *MalformedHeaderError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedHeaderError, got %v", err)
	}
}

func TestUnknownSectionKindIsFatal(t *testing.T) {
	leafCert, leafKey, root := genTestChain(t)
	pctx := newTestContext()
	pctx.AddSignature(SignatureSlot{Type: SigTypeFile, SignerCert: leafCert, Key: leafKey})

	buf, err := Encode(context.Background(), pctx, signing.PKCS7Adapter{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	h := mustHeader(t, buf)

	tampered := append([]byte(nil), buf...)
	copy(tampered[h.IndexOffset:h.IndexOffset+4], putUint32(nil, 99)) // overwrite first descriptor's kind field
	refingerprint(tampered)

	_, err = Decode(context.Background(), tampered, signing.PKCS7Adapter{}, []*x509.Certificate{root}, nil)
	var unknown *UnknownSectionKindError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSectionKindError, got %v", err)
	}
}

func TestDependencyRoundTrip(t *testing.T) {
	leafCert, leafKey, root := genTestChain(t)
	pctx := newTestContext()
	pctx.AddSignature(SignatureSlot{Type: SigTypeFile, SignerCert: leafCert, Key: leafKey})

	buf, err := Encode(context.Background(), pctx, signing.PKCS7Adapter{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(context.Background(), buf, signing.PKCS7Adapter{}, []*x509.Certificate{root}, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(decoded.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(decoded.Dependencies))
	}
	for i := range pctx.Dependencies {
		if !dependencyEqual(pctx.Dependencies[i], decoded.Dependencies[i]) {
			t.Errorf("dependency %d: expected %+v, got %+v", i, pctx.Dependencies[i], decoded.Dependencies[i])
		}
	}
}

func TestSignaturePayloadOverflowError(t *testing.T) {
	// A real overflow requires a signing backend whose concrete payload
	// grows past the placeholder's reserved headroom between the
	// measurement and the real signing call; PKCS7Adapter's payload varies
	// by at most a few bytes for a fixed cert/key, so this only exercises
	// the error type's formatting.
	err := &SignaturePayloadOverflowError{SignatureIndex: 0, Reserved: 4, Actual: 8}
	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
}

func findDescriptors(t *testing.T, buf []byte) []SectionDescriptor {
	t.Helper()
	h := mustHeader(t, buf)
	ic := newCursor(buf[h.IndexOffset:h.IndexOffset+h.IndexSize], int(h.IndexOffset))
	count := int(h.IndexSize / sectionDescriptorSize)
	descriptors := make([]SectionDescriptor, 0, count)
	for i := 0; i < count; i++ {
		d, err := readSectionDescriptor(ic)
		if err != nil {
			t.Fatalf("reading descriptor %d: %v", i, err)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors
}

func mustDescriptor(t *testing.T, descriptors []SectionDescriptor, kind SectionKind) SectionDescriptor {
	t.Helper()
	for _, d := range descriptors {
		if d.Kind == kind {
			return d
		}
	}
	t.Fatalf("no section of kind %d found", kind)
	return SectionDescriptor{}
}

func mustHeader(t *testing.T, buf []byte) header {
	t.Helper()
	hc := newCursor(buf[5:], 5)
	h, err := decodeHeader(hc)
	if err != nil {
		t.Fatalf("decoding header: %v", err)
	}
	return h
}
