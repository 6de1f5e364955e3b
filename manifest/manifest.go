// Package manifest loads a Cargo.toml-like package manifest — package
// identity plus a dependency table — and converts it into a
// container.Context ready for signing.
package manifest

import (
	"fmt"
	"os"
	"sort"

	"github.com/LeeLiangmin/scrate/container"
)

// Manifest is the root of a package manifest file.
type Manifest struct {
	Package      Package               `toml:"package" yaml:"package" json:"package"`
	Dependencies map[string]Dependency `toml:"dependencies" yaml:"dependencies" json:"dependencies"`

	path string
}

// Package is the manifest's [package] table.
type Package struct {
	Name    string   `toml:"name" yaml:"name" json:"name"`
	Version string   `toml:"version" yaml:"version" json:"version"`
	License string   `toml:"license" yaml:"license" json:"license"`
	Authors []string `toml:"authors" yaml:"authors" json:"authors"`
}

// Dependency is one entry of the manifest's [dependencies] table. At most
// one of Git, URL, Registry, Peer may be set; none set means the default
// registry source.
type Dependency struct {
	Version  string `toml:"version" yaml:"version" json:"version"`
	Git      string `toml:"git,omitempty" yaml:"git,omitempty" json:"git,omitempty"`
	Rev      string `toml:"rev,omitempty" yaml:"rev,omitempty" json:"rev,omitempty"`
	URL      string `toml:"url,omitempty" yaml:"url,omitempty" json:"url,omitempty"`
	Registry string `toml:"registry,omitempty" yaml:"registry,omitempty" json:"registry,omitempty"`
	Peer     string `toml:"peer,omitempty" yaml:"peer,omitempty" json:"peer,omitempty"`
	Platform string `toml:"platform,omitempty" yaml:"platform,omitempty" json:"platform,omitempty"`
}

// Load reads and parses a manifest file at path, dispatching encoding by
// extension. It validates that [package].name and .version are present and
// that each dependency names at most one source.
func Load(path string, l Listener) (*Manifest, error) {
	if l == nil {
		l = func(fmt.Stringer) {}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: reading %s: %w", path, err)
	}

	var m Manifest
	if err := unmarshal(path, data, &m); err != nil {
		return nil, &ManifestParseError{Path: path, Reason: err.Error()}
	}
	m.path = path

	if m.Package.Name == "" {
		return nil, &ManifestParseError{Path: path, Reason: "[package].name is required"}
	}
	if m.Package.Version == "" {
		return nil, &ManifestParseError{Path: path, Reason: "[package].version is required"}
	}
	for name, dep := range m.Dependencies {
		if err := dep.validate(); err != nil {
			return nil, &ManifestParseError{Path: path, Reason: fmt.Sprintf("dependency %q: %s", name, err)}
		}
	}

	l(EventManifestLoaded{Path: path, DependencyCount: len(m.Dependencies)})
	return &m, nil
}

func (d Dependency) validate() error {
	set := 0
	if d.Git != "" {
		set++
	}
	if d.URL != "" {
		set++
	}
	if d.Registry != "" {
		set++
	}
	if d.Peer != "" {
		set++
	}
	if set > 1 {
		return fmt.Errorf("at most one of git/url/registry/peer may be set")
	}
	if d.Rev != "" && d.Git == "" {
		return fmt.Errorf("rev requires git")
	}
	return nil
}

func (d Dependency) toSource() container.DependencySource {
	switch {
	case d.Git != "":
		return container.DependencySource{
			Kind:   container.SourceGit,
			GitURL: d.Git,
			GitRev: d.Rev,
			HasRev: d.Rev != "",
		}
	case d.URL != "":
		return container.DependencySource{Kind: container.SourceURL, URL: d.URL}
	case d.Registry != "":
		return container.DependencySource{Kind: container.SourceNamedRegistry, RegistryName: d.Registry}
	case d.Peer != "":
		return container.DependencySource{Kind: container.SourcePeerToPeer, PeerID: d.Peer}
	default:
		return container.DependencySource{Kind: container.SourceRegistryDefault}
	}
}

// ToContext builds a container.Context from the manifest, pairing it with
// innerPackage as the opaque crate binary. The dependency table's map keys
// are sorted for deterministic section encoding.
func (m *Manifest) ToContext(innerPackage []byte) *container.Context {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make([]container.Dependency, 0, len(names))
	for _, name := range names {
		d := m.Dependencies[name]
		deps = append(deps, container.Dependency{
			Name:        name,
			VersionReq:  d.Version,
			Source:      d.toSource(),
			HasPlatform: d.Platform != "",
			Platform:    d.Platform,
		})
	}

	return &container.Context{
		Info: container.PackageInfo{
			Name:    m.Package.Name,
			Version: m.Package.Version,
			License: m.Package.License,
			Authors: append([]string(nil), m.Package.Authors...),
		},
		Dependencies: deps,
		InnerPackage: append([]byte(nil), innerPackage...),
	}
}
