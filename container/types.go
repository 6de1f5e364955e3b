package container

// PackageInfo is the identity record carried by a SectionPackage body:
// name, version, license, and authors, each a reference into the string
// table.
type PackageInfo struct {
	Name    string
	Version string
	License string
	Authors []string
}

func (info PackageInfo) encode(st *StringTable) []byte {
	var b []byte
	b = st.Intern(info.Name).put(b)
	b = st.Intern(info.Version).put(b)
	b = st.Intern(info.License).put(b)
	b = putUint32(b, uint32(len(info.Authors)))
	for _, a := range info.Authors {
		b = st.Intern(a).put(b)
	}
	return b
}

func decodePackageInfo(body []byte, st *StringTable) (PackageInfo, error) {
	c := newCursor(body, 0)
	var info PackageInfo
	var err error
	if info.Name, err = resolveNext(c, st); err != nil {
		return info, err
	}
	if info.Version, err = resolveNext(c, st); err != nil {
		return info, err
	}
	if info.License, err = resolveNext(c, st); err != nil {
		return info, err
	}
	n, err := c.readUint32()
	if err != nil {
		return info, err
	}
	info.Authors = make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		a, err := resolveNext(c, st)
		if err != nil {
			return info, err
		}
		info.Authors = append(info.Authors, a)
	}
	return info, nil
}

func resolveNext(c *cursor, st *StringTable) (string, error) {
	ref, err := readStringRef(c)
	if err != nil {
		return "", err
	}
	return st.Resolve(ref)
}

// SourceKind discriminates a Dependency's DependencySource variant.
type SourceKind uint8

const (
	SourceRegistryDefault SourceKind = 0
	SourceGit             SourceKind = 1
	SourceURL             SourceKind = 2
	SourceNamedRegistry   SourceKind = 3
	SourcePeerToPeer      SourceKind = 4
)

// DependencySource is a tagged union over a dependency's origin. Exactly
// one of the fields below is meaningful, selected by Kind.
type DependencySource struct {
	Kind SourceKind

	// GitURL/GitRev are set when Kind == SourceGit. GitRev is optional.
	GitURL string
	GitRev string
	HasRev bool

	// URL is set when Kind == SourceURL.
	URL string

	// RegistryName is set when Kind == SourceNamedRegistry.
	RegistryName string

	// PeerID is set when Kind == SourcePeerToPeer.
	PeerID string
}

func (s DependencySource) encode(st *StringTable) []byte {
	b := putUint8(nil, uint8(s.Kind))
	switch s.Kind {
	case SourceRegistryDefault:
		// no body
	case SourceGit:
		b = st.Intern(s.GitURL).put(b)
		b = putOptionalString(b, st, s.HasRev, s.GitRev)
	case SourceURL:
		b = st.Intern(s.URL).put(b)
	case SourceNamedRegistry:
		b = st.Intern(s.RegistryName).put(b)
	case SourcePeerToPeer:
		b = st.Intern(s.PeerID).put(b)
	}
	return b
}

func decodeDependencySource(c *cursor, st *StringTable) (DependencySource, error) {
	kindByte, err := c.readUint8()
	if err != nil {
		return DependencySource{}, err
	}
	s := DependencySource{Kind: SourceKind(kindByte)}
	switch s.Kind {
	case SourceRegistryDefault:
	case SourceGit:
		if s.GitURL, err = resolveNext(c, st); err != nil {
			return s, err
		}
		if s.HasRev, s.GitRev, err = readOptionalString(c, st); err != nil {
			return s, err
		}
	case SourceURL:
		if s.URL, err = resolveNext(c, st); err != nil {
			return s, err
		}
	case SourceNamedRegistry:
		if s.RegistryName, err = resolveNext(c, st); err != nil {
			return s, err
		}
	case SourcePeerToPeer:
		if s.PeerID, err = resolveNext(c, st); err != nil {
			return s, err
		}
	default:
		return s, c.malformed("unknown dependency source kind")
	}
	return s, nil
}

func putOptionalString(b []byte, st *StringTable, present bool, s string) []byte {
	if present {
		b = putUint8(b, 1)
		return st.Intern(s).put(b)
	}
	return putUint8(b, 0)
}

func readOptionalString(c *cursor, st *StringTable) (bool, string, error) {
	present, err := c.readUint8()
	if err != nil {
		return false, "", err
	}
	if present == 0 {
		return false, "", nil
	}
	s, err := resolveNext(c, st)
	return true, s, err
}

// Dependency is a single entry of the DepTableSection.
type Dependency struct {
	Name       string
	VersionReq string
	Source     DependencySource
	// Platform is an optional predicate string (e.g. "cfg(unix)"), carried
	// through verbatim with no semantic validation.
	HasPlatform bool
	Platform    string
}

func (d Dependency) encode(st *StringTable) []byte {
	var b []byte
	b = st.Intern(d.Name).put(b)
	b = st.Intern(d.VersionReq).put(b)
	b = append(b, d.Source.encode(st)...)
	b = putOptionalString(b, st, d.HasPlatform, d.Platform)
	return b
}

func decodeDependency(c *cursor, st *StringTable) (Dependency, error) {
	var d Dependency
	var err error
	if d.Name, err = resolveNext(c, st); err != nil {
		return d, err
	}
	if d.VersionReq, err = resolveNext(c, st); err != nil {
		return d, err
	}
	if d.Source, err = decodeDependencySource(c, st); err != nil {
		return d, err
	}
	if d.HasPlatform, d.Platform, err = readOptionalString(c, st); err != nil {
		return d, err
	}
	return d, nil
}

// encodeDepTable serializes the ordered dependency list of a DepTableSection.
func encodeDepTable(deps []Dependency, st *StringTable) []byte {
	b := putUint32(nil, uint32(len(deps)))
	for _, d := range deps {
		b = append(b, d.encode(st)...)
	}
	return b
}

func decodeDepTable(body []byte, st *StringTable) ([]Dependency, error) {
	c := newCursor(body, 0)
	n, err := c.readUint32()
	if err != nil {
		return nil, err
	}
	deps := make([]Dependency, 0, n)
	for i := uint32(0); i < n; i++ {
		d, err := decodeDependency(c, st)
		if err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, nil
}

// SigType discriminates the covered region of a signature.
type SigType uint8

const (
	// SigTypeFile covers the entire file minus signatures/index/fingerprint.
	SigTypeFile SigType = 0
	// SigTypeCratebin covers only the CrateBinarySection body.
	SigTypeCratebin SigType = 1
)

func (t SigType) String() string {
	switch t {
	case SigTypeFile:
		return "FILE"
	case SigTypeCratebin:
		return "CRATEBIN"
	default:
		return "UNKNOWN"
	}
}
