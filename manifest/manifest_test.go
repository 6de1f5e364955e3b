package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/LeeLiangmin/scrate/container"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

const tomlManifest = `
[package]
name = "demo"
version = "0.1.0"
license = "MIT"
authors = ["a@b"]

[dependencies.lib_a]
version = "^1.0"

[dependencies.lib_b]
version = "0.2"
git = "https://example.com/lib_b.git"
rev = "main"
platform = "cfg(unix)"
`

func TestLoadTOML(t *testing.T) {
	path := writeTemp(t, "Cratefile.toml", tomlManifest)
	m, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Package.Name != "demo" || m.Package.Version != "0.1.0" {
		t.Fatalf("unexpected package info: %+v", m.Package)
	}
	if len(m.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(m.Dependencies))
	}
	if got := m.Dependencies["lib_b"].Git; got != "https://example.com/lib_b.git" {
		t.Fatalf("expected lib_b git url, got %q", got)
	}
}

func TestLoadYAML(t *testing.T) {
	const yamlManifest = `
package:
  name: demo
  version: 0.1.0
  license: MIT
dependencies:
  lib_a:
    version: "^1.0"
`
	path := writeTemp(t, "Cratefile.yaml", yamlManifest)
	m, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Package.Name != "demo" {
		t.Fatalf("expected name demo, got %q", m.Package.Name)
	}
}

func TestLoadJSON(t *testing.T) {
	const jsonManifest = `{
		"package": {"name": "demo", "version": "0.1.0"},
		"dependencies": {"lib_a": {"version": "^1.0"}}
	}`
	path := writeTemp(t, "Cratefile.json", jsonManifest)
	m, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Dependencies) != 1 {
		t.Fatalf("expected 1 dependency, got %d", len(m.Dependencies))
	}
}

func TestLoadToleratesUnknownKeys(t *testing.T) {
	const withExtra = `
[package]
name = "demo"
version = "0.1.0"
future_field = "whatever"
`
	path := writeTemp(t, "Cratefile.toml", withExtra)
	if _, err := Load(path, nil); err != nil {
		t.Fatalf("Load should tolerate unknown keys, got: %v", err)
	}
}

func TestLoadRequiresNameAndVersion(t *testing.T) {
	path := writeTemp(t, "Cratefile.toml", "[package]\nname = \"demo\"\n")
	_, err := Load(path, nil)
	var parseErr *ManifestParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ManifestParseError, got %v (%T)", err, err)
	}
}

func TestLoadRejectsAmbiguousSource(t *testing.T) {
	const ambiguous = `
[package]
name = "demo"
version = "0.1.0"

[dependencies.lib_a]
version = "1.0"
git = "https://example.com/a.git"
url = "https://example.com/a.tar.gz"
`
	path := writeTemp(t, "Cratefile.toml", ambiguous)
	_, err := Load(path, nil)
	if err == nil {
		t.Fatal("expected an error for a dependency naming two sources")
	}
}

func TestToContext(t *testing.T) {
	path := writeTemp(t, "Cratefile.toml", tomlManifest)
	m, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	pctx := m.ToContext([]byte{0xDE, 0xAD})
	if pctx.Info.Name != "demo" {
		t.Fatalf("expected name demo, got %q", pctx.Info.Name)
	}
	if len(pctx.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(pctx.Dependencies))
	}
	// Dependencies are sorted by name for deterministic encoding.
	if pctx.Dependencies[0].Name != "lib_a" || pctx.Dependencies[1].Name != "lib_b" {
		t.Fatalf("expected sorted dependency order, got %+v", pctx.Dependencies)
	}
	libB := pctx.Dependencies[1]
	if libB.Source.Kind != container.SourceGit || libB.Source.GitRev != "main" {
		t.Fatalf("expected lib_b to be a git dependency pinned to main, got %+v", libB.Source)
	}
	if !libB.HasPlatform || libB.Platform != "cfg(unix)" {
		t.Fatalf("expected lib_b platform predicate to round-trip, got %+v", libB)
	}
}
