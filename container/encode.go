package container

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/LeeLiangmin/scrate/signing"
	"github.com/opencontainers/go-digest"
)

const sectionDescriptorSize = 4 + 8 + 8 // kind + offset + size

type builtSection struct {
	kind SectionKind
	body []byte
}

// Encode runs the three-phase encoder pipeline over pctx, producing the
// bytes of a valid signed package. pctx must have at least one
// SignatureSlot configured.
func Encode(ctx context.Context, pctx *Context, adapter signing.Adapter) ([]byte, error) {
	if len(pctx.Signatures) == 0 {
		return nil, fmt.Errorf("scrate: encode requires at least one configured signature")
	}
	emit := pctx.listener()

	// --- Phase 1: skeleton ---
	st := NewStringTable()
	packageBody := pctx.Info.encode(st)
	depBody := encodeDepTable(pctx.Dependencies, st)
	crateBinBody := append([]byte(nil), pctx.InnerPackage...)

	placeholders := make([][]byte, len(pctx.Signatures))
	for i, slot := range pctx.Signatures {
		size, err := placeholderSize(ctx, adapter, slot)
		if err != nil {
			return nil, fmt.Errorf("scrate: measuring placeholder for signature %d: %w", i, err)
		}
		certBytes, err := certificateBytes(slot)
		if err != nil {
			return nil, err
		}
		body := putUint8(nil, uint8(slot.Type))
		body = putBytesLP(body, certBytes)
		body = putBytesLP(body, make([]byte, size))
		placeholders[i] = body
	}

	sections := make([]builtSection, 0, 3+len(placeholders))
	sections = append(sections,
		builtSection{SectionPackage, packageBody},
		builtSection{SectionDepTable, depBody},
		builtSection{SectionCrateBinary, crateBinBody},
	)
	for _, body := range placeholders {
		sections = append(sections, builtSection{SectionSigStructure, body})
	}

	strTabBytes := st.Bytes()
	strTabOffset := uint64(5 + headerSize)
	indexOffset := strTabOffset + uint64(len(strTabBytes))
	indexSize := uint64(len(sections) * sectionDescriptorSize)
	sectionsOffset := indexOffset + indexSize

	descriptors := make([]SectionDescriptor, len(sections))
	off := sectionsOffset
	for i, s := range sections {
		descriptors[i] = SectionDescriptor{Kind: s.kind, Offset: off, Size: uint64(len(s.body))}
		off += uint64(len(s.body))
	}
	sectionsSize := off - sectionsOffset

	h := header{
		Version:        FormatVersion,
		StrTabOffset:   strTabOffset,
		StrTabSize:     uint64(len(strTabBytes)),
		IndexOffset:    indexOffset,
		IndexSize:      indexSize,
		SectionsOffset: sectionsOffset,
		SectionsSize:   sectionsSize,
	}

	buf := make([]byte, 0, off+FingerprintSize)
	buf = append(buf, Magic[:]...)
	buf = append(buf, h.encode()...)
	buf = append(buf, strTabBytes...)
	for _, d := range descriptors {
		buf = d.put(buf)
	}
	for _, s := range sections {
		buf = append(buf, s.body...)
	}
	buf = append(buf, make([]byte, FingerprintSize)...)

	emit(EventLayoutComputed{StringTableSize: len(strTabBytes), SectionCount: len(sections)})

	// --- Phase 2: signature fill ---
	sigDescriptors := descriptors[3:] // one per signature, in the order they were appended
	for i, slot := range pctx.Signatures {
		desc := sigDescriptors[i]

		var coveredDigest digest.Digest
		switch slot.Type {
		case SigTypeCratebin:
			coveredDigest = adapter.Digest(crateBinBody)
		case SigTypeFile:
			excluded := fileSignatureExclusions(h, sigDescriptors, len(buf))
			coveredDigest = excludedDigest(buf, excluded)
		default:
			return nil, fmt.Errorf("scrate: signature %d has unknown SigType %d", i, slot.Type)
		}

		payload, err := signSlot(ctx, adapter, slot, coveredDigest)
		if err != nil {
			return nil, fmt.Errorf("scrate: signing signature %d: %w", i, err)
		}

		if err := overwriteSignedPayload(buf, desc, payload, i); err != nil {
			return nil, fmt.Errorf("scrate: signature %d: %w", i, err)
		}
		emit(EventSignatureSigned{Index: i, SigType: slot.Type.String()})
	}

	// --- Phase 3: finalize ---
	// Section sizes never change between phase 1 and phase 2 (placeholder
	// bodies are sized to their final length up front), so the index and
	// header built in phase 1 already describe the final layout; only the
	// tail fingerprint needs computing.
	fingerprint := plainDigest(buf[:len(buf)-FingerprintSize])
	fpBytes, _ := hex.DecodeString(fingerprint.Encoded())
	copy(buf[len(buf)-FingerprintSize:], fpBytes)
	emit(EventFingerprintComputed{Digest: fingerprint.String()})

	return buf, nil
}

// signSlot dispatches to the slot's external callback if configured,
// otherwise to the adapter's local Sign using the slot's key.
func signSlot(ctx context.Context, adapter signing.Adapter, slot SignatureSlot, dgst digest.Digest) ([]byte, error) {
	if slot.Callback != nil {
		return slot.Callback(ctx, dgst)
	}
	return adapter.Sign(ctx, dgst, slot.SignerCert, slot.Key)
}

// placeholderSize measures the payload size a signature slot produces by
// pre-signing a dummy digest (the SHA-256 of 32 zero bytes) — the strategy
// this format uses for backends that cannot otherwise provide an upper
// bound — and adds a fixed headroom, since some signature encodings (DER
// ECDSA signatures, for one) differ by a few bytes between signing calls.
// overwriteSignedPayload zero-pads whatever the real payload leaves unused.
func placeholderSize(ctx context.Context, adapter signing.Adapter, slot SignatureSlot) (int, error) {
	const headroom = 16
	dummy := adapter.Digest(make([]byte, 32))
	payload, err := signSlot(ctx, adapter, slot, dummy)
	if err != nil {
		return 0, err
	}
	return len(payload) + headroom, nil
}

func certificateBytes(slot SignatureSlot) ([]byte, error) {
	if slot.SignerCert == nil {
		return nil, fmt.Errorf("scrate: signature slot missing signer certificate")
	}
	return slot.SignerCert.Raw, nil
}

// overwriteSignedPayload replaces a signature body's placeholder payload
// with its concrete signed bytes, preserving the slot's reserved size
// (zero-padding if shorter, erroring if the concrete payload overflows it).
func overwriteSignedPayload(buf []byte, desc SectionDescriptor, payload []byte, sigIndex int) error {
	c := newCursor(buf[desc.Offset:desc.Offset+desc.Size], int(desc.Offset))
	if _, err := c.readUint8(); err != nil { // SigType
		return err
	}
	if _, err := c.readBytesLP(); err != nil { // signer cert
		return err
	}
	reservedLen, err := c.readUint32()
	if err != nil {
		return err
	}
	if len(payload) > int(reservedLen) {
		return &SignaturePayloadOverflowError{SignatureIndex: sigIndex, Reserved: int(reservedLen), Actual: len(payload)}
	}
	start := desc.Offset + uint64(c.pos)
	slot := buf[start : start+uint64(reservedLen)]
	for i := range slot {
		slot[i] = 0
	}
	copy(slot, payload)
	return nil
}

// fileSignatureExclusions returns the byte ranges a FILE-type signature
// must exclude from its digest: every SigStructureSection body, the
// section index, and the trailing fingerprint. The fingerprint
// bytes are all-zero at signing time (Phase 2 runs before Phase 3 writes
// the real fingerprint) but hold the real value by the time Decode reads
// them back, so both sides must exclude the range explicitly rather than
// rely on its contents matching.
func fileSignatureExclusions(h header, sigDescriptors []SectionDescriptor, bufLen int) []byteRange {
	excluded := make([]byteRange, 0, len(sigDescriptors)+2)
	excluded = append(excluded, byteRange{h.IndexOffset, h.IndexOffset + h.IndexSize})
	excluded = append(excluded, byteRange{uint64(bufLen - FingerprintSize), uint64(bufLen)})
	for _, d := range sigDescriptors {
		excluded = append(excluded, byteRange{d.Offset, d.Offset + d.Size})
	}
	return excluded
}
