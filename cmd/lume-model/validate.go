package main

import (
	"fmt"

	"github.com/open-edge-platform/lume-model/internal/recipe"
	"github.com/open-edge-platform/lume-model/internal/utils/config"
	"github.com/open-edge-platform/lume-model/internal/utils/logger"
	"github.com/spf13/cobra"
)

// createValidateCommand creates the validate subcommand
func createValidateCommand() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate [flags] RECIPE",
		Short: "Validate a package descriptor",
		Long: `Validate a package descriptor (meta.yaml) without building or testing it.
Template expressions are resolved through the setup script of the package,
then every required field, the version and the dependency lists are checked.
RECIPE may be the descriptor file or the directory that contains meta.yaml.`,
		Args:              cobra.ExactArgs(1),
		RunE:              executeValidate,
		ValidArgsFunction: recipeFileCompletion,
	}

	return validateCmd
}

// executeValidate handles the validate command logic
func executeValidate(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	path := args[0]

	log.Infof("validating package descriptor: %s", path)

	d, err := loadRecipe(cmd.Context(), path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ %s %s is valid\n", d.Package.Name, d.Package.Version)

	if verbose || config.NewConfigHelpers(config.Global()).IsDebugMode() {
		for _, section := range []string{recipe.SectionBuild, recipe.SectionHost, recipe.SectionRun} {
			deps, err := d.Dependencies(section)
			if err != nil {
				return err
			}
			if len(deps) == 0 {
				continue
			}
			fmt.Fprintf(out, "%s requirements:\n", section)
			for _, dep := range deps {
				fmt.Fprintf(out, "  - %s\n", dep)
			}
		}
		if fp, err := d.Fingerprint(); err == nil {
			fmt.Fprintf(out, "fingerprint: %s\n", fp)
		}
	}

	return nil
}
