package container

import (
	"crypto/sha256"
	"sort"

	"github.com/opencontainers/go-digest"
)

// byteRange is a half-open [Start, End) byte range within a buffer.
type byteRange struct {
	Start, End uint64
}

// excludedDigest computes the SHA-256 of buf with the given ranges skipped
// entirely (not zeroed) — the exclusion rule a FILE-type signature relies
// on. Ranges may overlap or be unsorted; they are merged first.
func excludedDigest(buf []byte, excluded []byteRange) digest.Digest {
	ranges := mergeRanges(excluded)
	h := sha256.New()
	var pos uint64
	for _, r := range ranges {
		if r.Start > pos {
			h.Write(buf[pos:r.Start])
		}
		if r.End > pos {
			pos = r.End
		}
	}
	if pos < uint64(len(buf)) {
		h.Write(buf[pos:])
	}
	return digest.NewDigestFromBytes(digest.SHA256, h.Sum(nil))
}

func mergeRanges(ranges []byteRange) []byteRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := append([]byteRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	merged := []byteRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// plainDigest computes the SHA-256 of buf with no exclusions — used for the
// tail fingerprint. (CRATEBIN signature digests go through the signing
// adapter's Digest instead.)
func plainDigest(buf []byte) digest.Digest {
	sum := sha256.Sum256(buf)
	return digest.NewDigestFromBytes(digest.SHA256, sum[:])
}
