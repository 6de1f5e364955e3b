package container

import (
	"context"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"github.com/LeeLiangmin/scrate/signing"
)

type rawSignature struct {
	desc      SectionDescriptor
	sigType   SigType
	certBytes []byte
	payload   []byte
}

// Decode runs the strict, first-error-wins decoder pipeline over buf,
// verifying every embedded signature against roots and returning the
// materialized Context. listener may be nil.
func Decode(ctx context.Context, buf []byte, adapter signing.Adapter, roots []*x509.Certificate, listener Listener) (*Context, error) {
	emit := listener
	if emit == nil {
		emit = noopListener
	}

	// 1. length check
	if len(buf) < 5+headerSize+FingerprintSize {
		return nil, ErrTooShort
	}

	// 2. fingerprint check
	body := buf[:len(buf)-FingerprintSize]
	trailer := buf[len(buf)-FingerprintSize:]
	fingerprint := plainDigest(body)
	if fingerprint.Encoded() != hex.EncodeToString(trailer) {
		return nil, ErrFingerprintMismatch
	}
	emit(EventFingerprintComputed{Digest: fingerprint.String()})

	// 3. magic check
	if string(buf[0:5]) != string(Magic[:]) {
		return nil, ErrBadMagic
	}

	// 4. header parse
	hc := newCursor(buf[5:], 5)
	h, err := decodeHeader(hc)
	if err != nil {
		return nil, err
	}
	if h.Version != FormatVersion {
		return nil, &MalformedHeaderError{Reason: fmt.Sprintf("unsupported version %d", h.Version)}
	}
	afterMagic := uint64(5 + headerSize)
	regionEnd := uint64(len(buf)) - FingerprintSize
	if h.StrTabOffset < afterMagic ||
		h.StrTabOffset+h.StrTabSize > regionEnd ||
		h.IndexOffset+h.IndexSize > regionEnd ||
		h.SectionsOffset+h.SectionsSize > regionEnd {
		return nil, &MalformedHeaderError{Reason: "region extends past end of buffer"}
	}
	if h.IndexOffset < h.StrTabOffset+h.StrTabSize || h.SectionsOffset < h.IndexOffset+h.IndexSize {
		return nil, &MalformedHeaderError{Reason: "regions are not strictly ordered strtab, index, sections"}
	}

	// 5. string table parse
	st := NewStringTableFromBytes(buf[h.StrTabOffset : h.StrTabOffset+h.StrTabSize])

	// 6. section index parse
	if h.IndexSize%sectionDescriptorSize != 0 {
		return nil, &MalformedHeaderError{Reason: "section index size is not a multiple of the descriptor size"}
	}
	ic := newCursor(buf[h.IndexOffset:h.IndexOffset+h.IndexSize], int(h.IndexOffset))
	count := int(h.IndexSize / sectionDescriptorSize)
	descriptors := make([]SectionDescriptor, 0, count)
	for i := 0; i < count; i++ {
		d, err := readSectionDescriptor(ic)
		if err != nil {
			return nil, err
		}
		if d.Offset < h.SectionsOffset || d.Offset+d.Size > h.sectionsEnd() {
			return nil, &MalformedIndexError{Index: i, Reason: "section body falls outside the sections region"}
		}
		descriptors = append(descriptors, d)
	}

	// 7. section bodies parse
	var pkgInfo PackageInfo
	var haveInfo bool
	var deps []Dependency
	var crateBin []byte
	var sigDescriptors []SectionDescriptor
	var rawSigs []rawSignature

	for _, d := range descriptors {
		sectionBuf := buf[d.Offset : d.Offset+d.Size]
		switch d.Kind {
		case SectionPackage:
			info, err := decodePackageInfo(sectionBuf, st)
			if err != nil {
				return nil, err
			}
			pkgInfo = info
			haveInfo = true
		case SectionDepTable:
			dt, err := decodeDepTable(sectionBuf, st)
			if err != nil {
				return nil, err
			}
			deps = dt
		case SectionCrateBinary:
			crateBin = append([]byte(nil), sectionBuf...)
		case SectionSigStructure:
			rs, err := decodeSignatureSection(sectionBuf, d)
			if err != nil {
				return nil, err
			}
			sigDescriptors = append(sigDescriptors, d)
			rawSigs = append(rawSigs, rs)
		default:
			return nil, &UnknownSectionKindError{Kind: uint32(d.Kind)}
		}
		emit(EventSectionVerified{Kind: sectionKindName(d.Kind), Size: int(d.Size)})
	}
	if !haveInfo {
		return nil, &MalformedHeaderError{Reason: "no package section present"}
	}
	if len(rawSigs) == 0 {
		return nil, ErrNoSignatures
	}

	// 8. signature verification
	verified := make([]VerifiedSignature, 0, len(rawSigs))
	for i, rs := range rawSigs {
		var expected string
		switch rs.sigType {
		case SigTypeCratebin:
			expected = adapter.Digest(crateBin).Encoded()
		case SigTypeFile:
			excluded := fileSignatureExclusions(h, sigDescriptors, len(buf))
			expected = excludedDigest(buf, excluded).Encoded()
		default:
			return nil, fmt.Errorf("scrate: signature %d has unknown SigType %d", i, rs.sigType)
		}

		encapsulated, err := adapter.Verify(rs.payload, roots)
		if err != nil {
			return nil, fmt.Errorf("scrate: signature %d: %w", i, err)
		}
		if encapsulated.Encoded() != expected {
			return nil, &SignatureDigestMismatchError{SignatureIndex: i}
		}

		verified = append(verified, VerifiedSignature{Type: rs.sigType, SignerCert: rs.certBytes})
		emit(EventSignatureVerified{Index: i, SigType: rs.sigType.String()})
	}

	// 9. materialize
	pctx := &Context{
		Info:         pkgInfo,
		Dependencies: deps,
		InnerPackage: crateBin,
		Roots:        roots,
		Verified:     verified,
		Listener:     listener,
	}
	return pctx, nil
}

func decodeSignatureSection(body []byte, desc SectionDescriptor) (rawSignature, error) {
	c := newCursor(body, int(desc.Offset))
	kindByte, err := c.readUint8()
	if err != nil {
		return rawSignature{}, err
	}
	cert, err := c.readBytesLP()
	if err != nil {
		return rawSignature{}, err
	}
	payload, err := c.readBytesLP()
	if err != nil {
		return rawSignature{}, err
	}
	return rawSignature{
		desc:      desc,
		sigType:   SigType(kindByte),
		certBytes: append([]byte(nil), cert...),
		payload:   append([]byte(nil), payload...),
	}, nil
}

func sectionKindName(k SectionKind) string {
	switch k {
	case SectionPackage:
		return "package"
	case SectionDepTable:
		return "dep-table"
	case SectionCrateBinary:
		return "crate-binary"
	case SectionSigStructure:
		return "sig-structure"
	default:
		return "unknown"
	}
}
