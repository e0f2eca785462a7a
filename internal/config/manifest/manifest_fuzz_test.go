package manifest

import (
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/open-edge-platform/lume-model/internal/recipe"
)

// FuzzWriteManifestToFile tests manifest file writing with various inputs
func FuzzWriteManifestToFile(f *testing.F) {
	// Seed with various manifest data patterns
	f.Add("lume-model", "1.0.0", 0, "python", "sha256abc", "numpy >=1.20")
	f.Add("", "", 0, "", "", "") // Empty values
	f.Add("very-long-package-name-that-might-cause-issues", "1.0.0-alpha-beta-gamma", 999999999, "generic", "sha256def", "a b c")
	f.Add("test", "1.0", -1, "unknown", "invalid-hash", ">=1.0")
	f.Add("test\nwith\nnewlines", "1.0\ttabs", 1, "noarch", "hash", "dep\nwith\nnewline")

	f.Fuzz(func(t *testing.T, name, version string, number int, noarch, fingerprint, dep string) {
		if !utf8.ValidString(name) || !utf8.ValidString(version) {
			t.Skip("JSON replaces invalid UTF-8")
		}
		manifestPath := filepath.Join(t.TempDir(), "manifest.json")

		parsed, _ := recipe.ParseDependency(dep)
		m := PackageManifest{
			SchemaVersion: SchemaVersion,
			Name:          name,
			Version:       version,
			BuildNumber:   number,
			Noarch:        noarch,
			BuiltAt:       "2024-01-01T00:00:00Z",
			Fingerprint:   fingerprint,
			HashAlg:       HashAlg,
			Requirements:  map[string][]recipe.Dependency{recipe.SectionRun: {parsed}},
		}

		if err := WriteManifestToFile(m, manifestPath); err != nil {
			t.Fatalf("WriteManifestToFile() error = %v", err)
		}
		got, err := ReadManifestFromFile(manifestPath)
		if err != nil {
			t.Fatalf("ReadManifestFromFile() error = %v", err)
		}
		if got.Name != name || got.Version != version || got.BuildNumber != number {
			t.Errorf("manifest changed on disk: %+v", got)
		}
	})
}

// FuzzWriteSPDXToFile tests SPDX file writing with various package inputs
func FuzzWriteSPDXToFile(f *testing.F) {
	f.Add("package1", "1.0.0", "description1", "MIT", "run")
	f.Add("", "", "", "", "") // Empty values
	f.Add("very-long-package-name-that-might-cause-issues", "1.0.0-alpha-beta", "A very long description that might cause buffer issues", "Apache-2.0", "host")
	f.Add("pkg\nwith\nnewlines", "1.0\ttabs", "desc\nwith\nnewlines", "license\nwith\nnewlines", "build")
	f.Add("package with spaces", "version with spaces", "description with spaces", "license with spaces", "scope")

	f.Fuzz(func(t *testing.T, name, version, description, license, scope string) {
		spdxPath := filepath.Join(t.TempDir(), "spdx.json")

		pkgs := []PackageInfo{
			{Name: "root", Version: "1.0", Type: "conda", Scope: ScopeRoot},
			{
				Name:        name,
				Version:     version,
				Description: description,
				License:     license,
				Type:        "conda", // Fixed type for testing
				Scope:       scope,
			},
		}

		if err := WriteSPDXToFile(pkgs, spdxPath); err != nil {
			t.Fatalf("WriteSPDXToFile() error = %v", err)
		}
		doc := BuildSPDX(pkgs)
		for _, p := range doc.Packages {
			if spdxIDRe.MatchString(p.SPDXID[len("SPDXRef-"):]) {
				t.Errorf("invalid SPDX id %q", p.SPDXID)
			}
		}
	})
}

// FuzzGenerateDocumentNamespace tests namespace generation
func FuzzGenerateDocumentNamespace(f *testing.F) {
	// This function takes no parameters, so we just test it runs without crashing
	f.Add(true) // Dummy seed value

	f.Fuzz(func(t *testing.T, dummy bool) {
		namespace := generateDocumentNamespace()
		if namespace == generateDocumentNamespace() {
			t.Errorf("namespace %q repeated", namespace)
		}
	})
}
