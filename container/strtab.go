package container

import "unicode/utf8"

// StringRef is a stable (offset, length) reference into a StringTable.
// Two interns of equal strings return equal StringRefs.
type StringRef struct {
	Offset uint32
	Length uint32
}

func (r StringRef) put(b []byte) []byte {
	b = putUint32(b, r.Offset)
	return putUint32(b, r.Length)
}

func readStringRef(c *cursor) (StringRef, error) {
	off, err := c.readUint32()
	if err != nil {
		return StringRef{}, err
	}
	ln, err := c.readUint32()
	if err != nil {
		return StringRef{}, err
	}
	return StringRef{Offset: off, Length: ln}, nil
}

// StringTable is the deduplicated UTF-8 string-interning store. It
// serializes as the bare concatenation of distinct strings in
// first-interned order — no length prefix of its own, since every
// reference carries its own length.
type StringTable struct {
	data  []byte
	index map[string]StringRef
}

// NewStringTable returns an empty, ready-to-use table.
func NewStringTable() *StringTable {
	return &StringTable{index: make(map[string]StringRef)}
}

// Intern returns a stable reference for s, reusing a prior reference if an
// identical string was already interned.
func (t *StringTable) Intern(s string) StringRef {
	if ref, ok := t.index[s]; ok {
		return ref
	}
	ref := StringRef{Offset: uint32(len(t.data)), Length: uint32(len(s))}
	t.data = append(t.data, s...)
	t.index[s] = ref
	return ref
}

// Bytes returns the serialized string table.
func (t *StringTable) Bytes() []byte {
	return t.data
}

// NewStringTableFromBytes wraps an on-disk string table slice for lookups.
// It does not validate UTF-8 eagerly: validation happens per-reference in
// Resolve, since the table itself may embed NUL bytes or span multiple
// opaque fields. Opaque binary data found via a string reference is always
// a Resolve-time MalformedInput, never a table-wide failure.
func NewStringTableFromBytes(data []byte) *StringTable {
	return &StringTable{data: data}
}

// Resolve validates bounds and UTF-8 and returns the referenced string.
func (t *StringTable) Resolve(ref StringRef) (string, error) {
	end := uint64(ref.Offset) + uint64(ref.Length)
	if end > uint64(len(t.data)) {
		return "", &MalformedInputError{Offset: int(ref.Offset), Reason: "string reference out of bounds"}
	}
	b := t.data[ref.Offset:end]
	if !utf8.Valid(b) {
		return "", &MalformedInputError{Offset: int(ref.Offset), Reason: "string reference is not valid UTF-8"}
	}
	return string(b), nil
}
