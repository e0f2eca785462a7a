package manifest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/open-edge-platform/lume-model/internal/recipe"
)

const (
	SPDXVersion    = "SPDX-2.3"
	spdxNoAssert   = "NOASSERTION"
	spdxNamespace  = "https://spdx.org/spdxdocs/lume-model-"
	spdxToolPrefix = "Tool: lume-model"
)

// Dependency scopes of a PackageInfo.
const (
	ScopeRoot  = "root"
	ScopeBuild = "build"
	ScopeHost  = "host"
	ScopeRun   = "run"
)

// PackageInfo is one package entry of the SBOM.
type PackageInfo struct {
	Name        string
	Version     string
	Description string
	License     string
	URL         string
	Type        string
	Scope       string
}

type SPDXDocument struct {
	SPDXVersion       string             `json:"spdxVersion"`
	DataLicense       string             `json:"dataLicense"`
	SPDXID            string             `json:"SPDXID"`
	Name              string             `json:"name"`
	DocumentNamespace string             `json:"documentNamespace"`
	CreationInfo      SPDXCreationInfo   `json:"creationInfo"`
	Packages          []SPDXPackage      `json:"packages"`
	Relationships     []SPDXRelationship `json:"relationships"`
}

type SPDXCreationInfo struct {
	Created  string   `json:"created"`
	Creators []string `json:"creators"`
}

type SPDXPackage struct {
	SPDXID           string            `json:"SPDXID"`
	Name             string            `json:"name"`
	VersionInfo      string            `json:"versionInfo,omitempty"`
	DownloadLocation string            `json:"downloadLocation"`
	FilesAnalyzed    bool              `json:"filesAnalyzed"`
	LicenseConcluded string            `json:"licenseConcluded"`
	LicenseDeclared  string            `json:"licenseDeclared"`
	CopyrightText    string            `json:"copyrightText"`
	Summary          string            `json:"summary,omitempty"`
	ExternalRefs     []SPDXExternalRef `json:"externalRefs,omitempty"`
}

type SPDXExternalRef struct {
	ReferenceCategory string `json:"referenceCategory"`
	ReferenceType     string `json:"referenceType"`
	ReferenceLocator  string `json:"referenceLocator"`
}

type SPDXRelationship struct {
	SPDXElementID      string `json:"spdxElementId"`
	RelationshipType   string `json:"relationshipType"`
	RelatedSPDXElement string `json:"relatedSpdxElement"`
}

// PackagesFromDescriptor lists the package itself followed by its host,
// build and run dependencies. A dependency listed in several sections
// appears once, under its first scope.
func PackagesFromDescriptor(d *recipe.Descriptor) ([]PackageInfo, error) {
	pkgs := []PackageInfo{{
		Name:        d.Package.Name,
		Version:     d.Package.Version,
		Description: d.About.Summary,
		License:     d.About.License,
		URL:         d.About.Home,
		Type:        "conda",
		Scope:       ScopeRoot,
	}}

	seen := map[string]bool{d.Package.Name: true}
	for _, section := range []string{recipe.SectionRun, recipe.SectionHost, recipe.SectionBuild} {
		deps, err := d.Dependencies(section)
		if err != nil {
			return nil, err
		}
		for _, dep := range deps {
			if seen[dep.Name] {
				continue
			}
			seen[dep.Name] = true
			pkgs = append(pkgs, PackageInfo{
				Name:    dep.Name,
				Version: dep.Constraint,
				Type:    "conda",
				Scope:   section,
			})
		}
	}
	return pkgs, nil
}

var spdxIDRe = regexp.MustCompile(`[^A-Za-z0-9.-]`)

func spdxID(i int, name string) string {
	return fmt.Sprintf("SPDXRef-Package-%d-%s", i, spdxIDRe.ReplaceAllString(name, "-"))
}

func orNoAssertion(s string) string {
	if strings.TrimSpace(s) == "" {
		return spdxNoAssert
	}
	return s
}

// BuildSPDX converts pkgs into an SPDX 2.3 document. The first package is
// the one the document describes; the others relate to it by scope.
func BuildSPDX(pkgs []PackageInfo) SPDXDocument {
	doc := SPDXDocument{
		SPDXVersion:       SPDXVersion,
		DataLicense:       "CC0-1.0",
		SPDXID:            "SPDXRef-DOCUMENT",
		DocumentNamespace: generateDocumentNamespace(),
		CreationInfo: SPDXCreationInfo{
			Created:  time.Now().UTC().Format(time.RFC3339),
			Creators: []string{spdxToolPrefix},
		},
		Packages:      []SPDXPackage{},
		Relationships: []SPDXRelationship{},
	}

	var rootID string
	for i, p := range pkgs {
		id := spdxID(i, p.Name)
		sp := SPDXPackage{
			SPDXID:           id,
			Name:             p.Name,
			VersionInfo:      p.Version,
			DownloadLocation: orNoAssertion(p.URL),
			LicenseConcluded: spdxNoAssert,
			LicenseDeclared:  orNoAssertion(p.License),
			CopyrightText:    spdxNoAssert,
			Summary:          p.Description,
		}
		if p.Type != "" && p.Name != "" {
			locator := "pkg:" + p.Type + "/" + strings.ToLower(p.Name)
			if recipe.ValidVersion(p.Version) {
				locator += "@" + p.Version
			}
			sp.ExternalRefs = []SPDXExternalRef{{
				ReferenceCategory: "PACKAGE-MANAGER",
				ReferenceType:     "purl",
				ReferenceLocator:  locator,
			}}
		}
		doc.Packages = append(doc.Packages, sp)

		if i == 0 {
			rootID = id
			doc.Name = p.Name
			doc.Relationships = append(doc.Relationships, SPDXRelationship{
				SPDXElementID: doc.SPDXID, RelationshipType: "DESCRIBES", RelatedSPDXElement: id,
			})
			continue
		}
		switch p.Scope {
		case ScopeBuild, ScopeHost:
			doc.Relationships = append(doc.Relationships, SPDXRelationship{
				SPDXElementID: id, RelationshipType: "BUILD_DEPENDENCY_OF", RelatedSPDXElement: rootID,
			})
		default:
			doc.Relationships = append(doc.Relationships, SPDXRelationship{
				SPDXElementID: rootID, RelationshipType: "DEPENDS_ON", RelatedSPDXElement: id,
			})
		}
	}
	if doc.Name == "" {
		doc.Name = "lume-model-sbom"
	}
	return doc
}

// WriteSPDXToFile writes the SPDX document of pkgs to path.
func WriteSPDXToFile(pkgs []PackageInfo, path string) error {
	return writeJSON(BuildSPDX(pkgs), path)
}

func generateDocumentNamespace() string {
	return spdxNamespace + uuid.NewString()
}
