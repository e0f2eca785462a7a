package model

import (
	"fmt"
	"runtime/debug"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/open-edge-platform/lume-model/internal/utils/logger"
)

// Environment maps installed component names to versions.
type Environment map[string]string

// CurrentEnvironment lists the modules compiled into the binary and the
// registered components.
func CurrentEnvironment() Environment {
	env := make(Environment)
	if info, ok := debug.ReadBuildInfo(); ok {
		env[info.Main.Path] = info.Main.Version
		for _, dep := range info.Deps {
			m := dep
			if dep.Replace != nil {
				m = dep.Replace
			}
			env[dep.Path] = m.Version
		}
	}

	mu.RLock()
	defer mu.RUnlock()
	for name, version := range components {
		env[name] = version
	}
	return env
}

// sameVersion compares two versions as semantic versions when both parse,
// and as text otherwise.
func sameVersion(want, have string) bool {
	w, h := canonical(want), canonical(have)
	if semver.IsValid(w) && semver.IsValid(h) {
		return semver.Compare(w, h) == 0
	}
	return strings.TrimSpace(want) == strings.TrimSpace(have)
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// CheckRequirements compares required versions against env. A requirement
// without a version, or one that is not installed, only logs a warning; a
// version mismatch is an error.
func CheckRequirements(reqs map[string]string, env Environment) error {
	log := logger.Logger()

	names := make([]string, 0, len(reqs))
	for name := range reqs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		want := reqs[name]
		have, installed := env[name]
		switch {
		case !installed:
			log.Warnf("Requirement %s is not installed", name)
		case strings.TrimSpace(want) == "":
			log.Warnf("No version provided for %s. Unable to check compatibility.", name)
		case !sameVersion(want, have):
			return fmt.Errorf("%w for %s: model requires %s and %s is installed", ErrRequirementVersion, name, want, have)
		}
	}
	return nil
}
