package manifest

import "fmt"

// ManifestParseError indicates a manifest file could not be parsed, or
// parsed but failed validation (missing required field, ambiguous
// dependency source).
type ManifestParseError struct {
	Path   string
	Reason string
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("manifest: %s: %s", e.Path, e.Reason)
}
