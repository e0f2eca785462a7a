// Package manifest writes the release artifacts of a package descriptor:
// a JSON manifest, an SPDX SBOM of its dependencies and optional OpenPGP
// detached signatures.
package manifest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/open-edge-platform/lume-model/internal/recipe"
	"github.com/open-edge-platform/lume-model/internal/utils/logger"
	"github.com/open-edge-platform/lume-model/internal/utils/system"
)

const (
	SchemaVersion = "1.0"
	HashAlg       = "sha256"
)

// PackageManifest describes one release of a package.
type PackageManifest struct {
	SchemaVersion string `json:"schema_version"`
	Name          string `json:"name"`
	Version       string `json:"version"`
	BuildNumber   int    `json:"build_number"`
	Noarch        string `json:"noarch,omitempty"`
	BuiltAt       string `json:"built_at"`
	// BuildHost is omitted when the host OS cannot be detected.
	BuildHost *system.HostInfo `json:"build_host,omitempty"`

	// Fingerprint hashes the resolved descriptor, RecipeHash the recipe
	// file as written.
	Fingerprint string `json:"fingerprint"`
	RecipeHash  string `json:"recipe_hash,omitempty"`
	HashAlg     string `json:"hash_alg"`

	Requirements map[string][]recipe.Dependency `json:"requirements"`
	TestImports  []string                       `json:"test_imports,omitempty"`
	TestCommands []string                       `json:"test_commands,omitempty"`
	About        recipe.About                   `json:"about"`

	// SBOM names the SPDX file released alongside, SBOMHash is its digest.
	SBOM     string `json:"sbom,omitempty"`
	SBOMHash string `json:"sbom_hash,omitempty"`
}

// AttachSBOM records the SPDX file at path in m.
func (m *PackageManifest) AttachSBOM(path string) error {
	sum, err := FileSHA256(path)
	if err != nil {
		return err
	}
	m.SBOM = filepath.Base(path)
	m.SBOMHash = sum
	return nil
}

// BuildManifest assembles the manifest of d. recipePath, when set, is
// hashed into RecipeHash.
func BuildManifest(d *recipe.Descriptor, recipePath string) (PackageManifest, error) {
	fp, err := d.Fingerprint()
	if err != nil {
		return PackageManifest{}, err
	}

	m := PackageManifest{
		SchemaVersion: SchemaVersion,
		Name:          d.Package.Name,
		Version:       d.Package.Version,
		BuildNumber:   d.Build.Number,
		Noarch:        d.Build.Noarch,
		BuiltAt:       time.Now().UTC().Format(time.RFC3339),
		Fingerprint:   fp,
		HashAlg:       HashAlg,
		Requirements:  make(map[string][]recipe.Dependency),
		TestImports:   d.Test.Imports,
		TestCommands:  d.Test.Commands,
		About:         d.About,
	}

	for _, section := range []string{recipe.SectionBuild, recipe.SectionHost, recipe.SectionRun} {
		deps, err := d.Dependencies(section)
		if err != nil {
			return PackageManifest{}, err
		}
		if len(deps) > 0 {
			m.Requirements[section] = deps
		}
	}

	if host, err := system.GetHostOsInfo(context.Background()); err == nil {
		m.BuildHost = &host
	} else {
		logger.Logger().Warnf("build host not recorded: %v", err)
	}

	if recipePath != "" {
		sum, err := FileSHA256(recipePath)
		if err != nil {
			return PackageManifest{}, err
		}
		m.RecipeHash = sum
	}
	return m, nil
}

// FileSHA256 returns the hex sha256 of a file.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteManifestToFile writes m as indented JSON.
func WriteManifestToFile(m PackageManifest, path string) error {
	return writeJSON(m, path)
}

// ReadManifestFromFile loads a manifest written by WriteManifestToFile.
func ReadManifestFromFile(path string) (PackageManifest, error) {
	var m PackageManifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}
	return m, nil
}

func writeJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Logger().Infof("wrote %s", path)
	return nil
}
