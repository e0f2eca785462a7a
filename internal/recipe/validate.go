package recipe

import (
	"fmt"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
	"go.uber.org/multierr"
	"golang.org/x/mod/semver"

	"github.com/open-edge-platform/lume-model/internal/config/validate"
)

// ValidVersion reports whether v is a PEP 440 or semantic version.
func ValidVersion(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if _, err := pep440.Parse(v); err == nil {
		return true
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.IsValid(v)
}

// Validate checks that every required field is present, the version is
// well formed and the dependency lists parse without duplicates. All
// problems are reported together. A descriptor that passes these checks
// is then validated against the descriptor schema.
func (d *Descriptor) Validate() error {
	var errs error

	required := []struct{ field, value string }{
		{"package.name", d.Package.Name},
		{"package.version", d.Package.Version},
		{"about.home", d.About.Home},
		{"about.license", d.About.License},
		{"about.summary", d.About.Summary},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrMissingField, r.field))
		}
	}

	if v := d.Package.Version; strings.TrimSpace(v) != "" && !ValidVersion(v) {
		errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrInvalidVersion, v))
	}

	if len(d.Requirements.Host) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: requirements.host", ErrMissingField))
	}
	if len(d.Requirements.Run) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: requirements.run", ErrMissingField))
	}
	if len(d.Test.Imports) == 0 && len(d.Test.Commands) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: test.imports or test.commands", ErrMissingField))
	}
	for i, imp := range d.Test.Imports {
		if strings.TrimSpace(imp) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%w: test.imports[%d] is empty", ErrMissingField, i))
		}
	}
	for i, cmd := range d.Test.Commands {
		if strings.TrimSpace(cmd) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%w: test.commands[%d] is empty", ErrMissingField, i))
		}
	}

	for _, section := range []string{SectionBuild, SectionHost, SectionRun, SectionTest} {
		errs = multierr.Append(errs, d.checkSection(section))
	}

	if errs != nil {
		return errs
	}

	data, err := d.JSON()
	if err != nil {
		return err
	}
	if err := validate.ValidateDescriptorJSON(data); err != nil {
		return fmt.Errorf("descriptor %s: %w", d.Package.Name, err)
	}
	return nil
}

func (d *Descriptor) checkSection(section string) error {
	specs, _ := d.Section(section)
	var errs error
	seen := make(map[string]int, len(specs))
	for i, spec := range specs {
		dep, err := ParseDependency(spec)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("requirements.%s[%d]: %w", section, i, err))
			continue
		}
		key := strings.ToLower(dep.Name)
		if first, dup := seen[key]; dup {
			errs = multierr.Append(errs, fmt.Errorf("requirements.%s[%d]: %w: %s already listed at [%d]", section, i, ErrDuplicateDependency, dep.Name, first))
			continue
		}
		seen[key] = i
	}
	return errs
}
