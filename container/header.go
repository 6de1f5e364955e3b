package container

// Magic is the fixed 5-byte ASCII literal at the start of every signed
// package: "CRATE".
var Magic = [5]byte{'C', 'R', 'A', 'T', 'E'}

// FormatVersion is the only version this implementation emits or accepts.
// A bumped version is the sole forward-compatibility signal; this
// implementation rejects anything else.
const FormatVersion uint32 = 1

// FingerprintSize is the size in bytes of the trailing SHA-256 fingerprint.
const FingerprintSize = 32

// headerSize is the fixed on-disk size of the header region: a u32 version
// followed by three (offset, size) u64 pairs.
const headerSize = 4 + 8*6

// header describes the offset/size of each top-level region. All offsets
// are absolute from the start of the file.
type header struct {
	Version        uint32
	StrTabOffset   uint64
	StrTabSize     uint64
	IndexOffset    uint64
	IndexSize      uint64
	SectionsOffset uint64
	SectionsSize   uint64
}

func (h header) encode() []byte {
	b := make([]byte, 0, headerSize)
	b = putUint32(b, h.Version)
	b = putUint64(b, h.StrTabOffset)
	b = putUint64(b, h.StrTabSize)
	b = putUint64(b, h.IndexOffset)
	b = putUint64(b, h.IndexSize)
	b = putUint64(b, h.SectionsOffset)
	b = putUint64(b, h.SectionsSize)
	return b
}

func decodeHeader(c *cursor) (header, error) {
	var h header
	var err error
	if h.Version, err = c.readUint32(); err != nil {
		return h, err
	}
	if h.StrTabOffset, err = c.readUint64(); err != nil {
		return h, err
	}
	if h.StrTabSize, err = c.readUint64(); err != nil {
		return h, err
	}
	if h.IndexOffset, err = c.readUint64(); err != nil {
		return h, err
	}
	if h.IndexSize, err = c.readUint64(); err != nil {
		return h, err
	}
	if h.SectionsOffset, err = c.readUint64(); err != nil {
		return h, err
	}
	if h.SectionsSize, err = c.readUint64(); err != nil {
		return h, err
	}
	return h, nil
}

// sectionsEnd returns the absolute end offset of the sections region.
func (h header) sectionsEnd() uint64 {
	return h.SectionsOffset + h.SectionsSize
}
