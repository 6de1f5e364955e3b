package container

import (
	"encoding/json"
	"fmt"
)

// Listener is a callback invoked with progress events during Encode and
// Decode. Using an event-struct-with-String() convention keeps the core
// free of any logging-framework dependency: callers wire a Listener into
// whatever logger they use.
type Listener func(fmt.Stringer)

func noopListener(fmt.Stringer) {}

func jsonString(v interface{}) string {
	b, _ := json.Marshal(map[string]interface{}{
		fmt.Sprintf("%T", v): v,
	})
	return string(b)
}

// EventLayoutComputed is emitted once the pre-sign skeleton layout (Phase 1)
// has been assembled.
type EventLayoutComputed struct {
	StringTableSize int `json:"string_table_size"`
	SectionCount    int `json:"section_count"`
}

func (e EventLayoutComputed) String() string { return jsonString(e) }

// EventSignatureSigned is emitted after a signature slot's placeholder body
// has been overwritten with its concrete signed payload (Phase 2).
type EventSignatureSigned struct {
	Index   int    `json:"index"`
	SigType string `json:"sig_type"`
}

func (e EventSignatureSigned) String() string { return jsonString(e) }

// EventFingerprintComputed is emitted once the tail SHA-256 fingerprint has
// been written (Phase 3, encode) or recomputed and validated (decode step 2).
type EventFingerprintComputed struct {
	Digest string `json:"digest"`
}

func (e EventFingerprintComputed) String() string { return jsonString(e) }

// EventSectionVerified is emitted as each data section is parsed during
// decode (step 7).
type EventSectionVerified struct {
	Kind string `json:"kind"`
	Size int    `json:"size"`
}

func (e EventSectionVerified) String() string { return jsonString(e) }

// EventSignatureVerified is emitted after a signature has verified
// successfully during decode (step 8).
type EventSignatureVerified struct {
	Index   int    `json:"index"`
	SigType string `json:"sig_type"`
}

func (e EventSignatureVerified) String() string { return jsonString(e) }
