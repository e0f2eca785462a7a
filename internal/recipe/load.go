package recipe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/open-edge-platform/lume-model/internal/utils/logger"
)

const (
	DefaultInterpreter = "python"
	DefaultSetupScript = "setup.py"
)

// Options control how a recipe is rendered.
type Options struct {
	// Resolver provides setup data. When nil, LoadRecipe runs the setup
	// script next to the recipe and ParseRecipe has no setup data at all.
	Resolver DataResolver
	// Interpreter and SetupScript configure the default ScriptResolver.
	Interpreter string
	SetupScript string
	// Env is prefixed to the setup script command.
	Env []string
	// VersionOverride replaces the rendered package version.
	VersionOverride string
}

// LoadRecipe reads, renders and parses the recipe at path. The result is
// not validated.
func LoadRecipe(ctx context.Context, path string, opts Options) (*Descriptor, error) {
	log := logger.Logger()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe %s: %w", path, err)
	}

	if opts.Resolver == nil {
		interp := opts.Interpreter
		if interp == "" {
			interp = DefaultInterpreter
		}
		script := opts.SetupScript
		if script == "" {
			script = DefaultSetupScript
		}
		dir := PackageRoot(path, script)
		log.Debugf("resolving setup data with %s %s in %s", interp, script, dir)
		res := NewScriptResolver(interp, script, dir)
		res.Env = opts.Env
		opts.Resolver = res
	}

	d, err := ParseRecipe(ctx, data, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipe %s: %w", path, err)
	}
	log.Infof("loaded recipe %s: %s %s", path, d.Package.Name, d.Package.Version)
	return d, nil
}

// ParseRecipe renders and parses recipe data.
func ParseRecipe(ctx context.Context, data []byte, opts Options) (*Descriptor, error) {
	rendered, err := Render(ctx, data, opts.Resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to render recipe: %w", err)
	}

	var d Descriptor
	if err := yaml.Unmarshal(rendered, &d); err != nil {
		return nil, fmt.Errorf("failed to decode recipe: %w", err)
	}
	d.Package.Name = strings.TrimSpace(d.Package.Name)
	d.Package.Version = strings.TrimSpace(d.Package.Version)
	if opts.VersionOverride != "" {
		logger.Logger().Debugf("overriding version %q with %q", d.Package.Version, opts.VersionOverride)
		d.Package.Version = opts.VersionOverride
	}
	return &d, nil
}

// PackageRoot returns the directory holding the setup script of the recipe
// at path: the recipe directory or its parent, where conda recipes usually
// keep it. The recipe directory is returned when neither holds the script.
func PackageRoot(path, script string) string {
	if script == "" {
		script = DefaultSetupScript
	}
	if filepath.IsAbs(script) {
		return filepath.Dir(script)
	}
	recipeDir := filepath.Dir(path)
	for _, dir := range []string{recipeDir, filepath.Dir(recipeDir)} {
		if _, err := os.Stat(filepath.Join(dir, script)); err == nil {
			return dir
		}
	}
	return recipeDir
}
