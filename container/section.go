package container

// SectionKind is the stable integer tag identifying a data section's
// contents.
type SectionKind uint32

const (
	// SectionPackage carries the package-info record (name, version,
	// license, authors).
	SectionPackage SectionKind = 0
	// SectionDepTable carries the ordered dependency list.
	SectionDepTable SectionKind = 1
	// sectionReservedGap is kind 2: reserved and never emitted.
	// New implementations MUST NOT repurpose it.
	sectionReservedGap SectionKind = 2
	// SectionCrateBinary carries the raw, opaque inner-package bytes.
	SectionCrateBinary SectionKind = 3
	// SectionSigStructure carries a single signature record.
	SectionSigStructure SectionKind = 4
)

func (k SectionKind) known() bool {
	switch k {
	case SectionPackage, SectionDepTable, SectionCrateBinary, SectionSigStructure:
		return true
	default:
		return false
	}
}

// SectionDescriptor is a single entry of the section index: the kind,
// on-disk offset, and size of one data section body.
type SectionDescriptor struct {
	Kind   SectionKind
	Offset uint64
	Size   uint64
}

func (d SectionDescriptor) put(b []byte) []byte {
	b = putUint32(b, uint32(d.Kind))
	b = putUint64(b, d.Offset)
	return putUint64(b, d.Size)
}

func readSectionDescriptor(c *cursor) (SectionDescriptor, error) {
	kind, err := c.readUint32()
	if err != nil {
		return SectionDescriptor{}, err
	}
	off, err := c.readUint64()
	if err != nil {
		return SectionDescriptor{}, err
	}
	size, err := c.readUint64()
	if err != nil {
		return SectionDescriptor{}, err
	}
	return SectionDescriptor{Kind: SectionKind(kind), Offset: off, Size: size}, nil
}
