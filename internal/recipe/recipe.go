// Package recipe reads conda-style package descriptors (meta.yaml),
// resolves their templated fields and checks them for completeness.
package recipe

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrMissingField        = errors.New("required field missing")
	ErrInvalidVersion      = errors.New("invalid version")
	ErrInvalidDependency   = errors.New("invalid dependency")
	ErrDuplicateDependency = errors.New("duplicate dependency")
	ErrUnknownSection      = errors.New("unknown requirements section")
)

// Requirement sections of a descriptor.
const (
	SectionBuild = "build"
	SectionHost  = "host"
	SectionRun   = "run"
	SectionTest  = "test"
)

// Descriptor is the static metadata record of a package.
type Descriptor struct {
	Package      PackageInfo  `yaml:"package" json:"package"`
	Source       Source       `yaml:"source,omitempty" json:"source,omitempty"`
	Build        Build        `yaml:"build,omitempty" json:"build,omitempty"`
	Requirements Requirements `yaml:"requirements" json:"requirements"`
	Test         Test         `yaml:"test" json:"test"`
	About        About        `yaml:"about" json:"about"`
}

type PackageInfo struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

type Source struct {
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
	URL    string `yaml:"url,omitempty" json:"url,omitempty"`
	SHA256 string `yaml:"sha256,omitempty" json:"sha256,omitempty"`
}

type Build struct {
	Number int    `yaml:"number" json:"number"`
	Noarch string `yaml:"noarch,omitempty" json:"noarch,omitempty"`
	Script string `yaml:"script,omitempty" json:"script,omitempty"`
}

// Requirements holds the dependency lists. Host dependencies are needed to
// build the package, run dependencies when it executes.
type Requirements struct {
	Build []string `yaml:"build,omitempty" json:"build,omitempty"`
	Host  []string `yaml:"host" json:"host,omitempty"`
	Run   []string `yaml:"run" json:"run,omitempty"`
}

type Test struct {
	Imports     []string `yaml:"imports,omitempty" json:"imports,omitempty"`
	Requires    []string `yaml:"requires,omitempty" json:"requires,omitempty"`
	Commands    []string `yaml:"commands,omitempty" json:"commands,omitempty"`
	SourceFiles []string `yaml:"source_files,omitempty" json:"source_files,omitempty"`
}

type About struct {
	Home          string `yaml:"home" json:"home"`
	License       string `yaml:"license" json:"license"`
	LicenseFamily string `yaml:"license_family,omitempty" json:"license_family,omitempty"`
	LicenseFile   string `yaml:"license_file,omitempty" json:"license_file,omitempty"`
	Summary       string `yaml:"summary" json:"summary"`
	Description   string `yaml:"description,omitempty" json:"description,omitempty"`
	DocURL        string `yaml:"doc_url,omitempty" json:"doc_url,omitempty"`
	DevURL        string `yaml:"dev_url,omitempty" json:"dev_url,omitempty"`
}

// Dependency is one parsed requirement line: name [constraint [build]].
type Dependency struct {
	Name       string `json:"name"`
	Constraint string `json:"constraint,omitempty"`
	Build      string `json:"build,omitempty"`
}

func (d Dependency) String() string {
	return strings.TrimSpace(strings.Join([]string{d.Name, d.Constraint, d.Build}, " "))
}

var depNameRe = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._-]*`)

// ParseDependency splits a requirement spec such as "numpy >=1.20 py_0" or
// "numpy>=1.20" into its parts.
func ParseDependency(spec string) (Dependency, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return Dependency{}, fmt.Errorf("%w: empty spec", ErrInvalidDependency)
	}
	if len(fields) > 3 {
		return Dependency{}, fmt.Errorf("%w: %q has more than three parts", ErrInvalidDependency, spec)
	}

	name := depNameRe.FindString(fields[0])
	if name == "" {
		return Dependency{}, fmt.Errorf("%w: %q does not start with a package name", ErrInvalidDependency, spec)
	}
	dep := Dependency{Name: name}

	// a constraint glued to the name ("numpy>=1.20") shifts the remaining parts
	parts := fields[1:]
	if rest := fields[0][len(name):]; rest != "" {
		parts = append([]string{rest}, parts...)
	}
	if len(parts) > 2 {
		return Dependency{}, fmt.Errorf("%w: %q has more than three parts", ErrInvalidDependency, spec)
	}
	if len(parts) > 0 {
		dep.Constraint = parts[0]
	}
	if len(parts) > 1 {
		dep.Build = parts[1]
	}
	return dep, nil
}

// Section returns the raw requirement specs of a section. SectionTest
// refers to test.requires.
func (d *Descriptor) Section(section string) ([]string, error) {
	switch section {
	case SectionBuild:
		return d.Requirements.Build, nil
	case SectionHost:
		return d.Requirements.Host, nil
	case SectionRun:
		return d.Requirements.Run, nil
	case SectionTest:
		return d.Test.Requires, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}
}

// Dependencies parses every spec of a section.
func (d *Descriptor) Dependencies(section string) ([]Dependency, error) {
	specs, err := d.Section(section)
	if err != nil {
		return nil, err
	}
	deps := make([]Dependency, 0, len(specs))
	for i, spec := range specs {
		dep, err := ParseDependency(spec)
		if err != nil {
			return nil, fmt.Errorf("requirements.%s[%d]: %w", section, i, err)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// URLs returns the non-empty informational URLs keyed by field name.
func (d *Descriptor) URLs() map[string]string {
	urls := make(map[string]string, 3)
	for key, u := range map[string]string{
		"home":    d.About.Home,
		"doc_url": d.About.DocURL,
		"dev_url": d.About.DevURL,
	} {
		if strings.TrimSpace(u) != "" {
			urls[key] = u
		}
	}
	return urls
}

// JSON returns the canonical JSON form of the descriptor.
func (d *Descriptor) JSON() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal descriptor: %w", err)
	}
	return data, nil
}

// Fingerprint is the hex sha256 of the canonical JSON form.
func (d *Descriptor) Fingerprint() (string, error) {
	data, err := d.JSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
