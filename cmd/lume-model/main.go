package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/open-edge-platform/lume-model/internal/recipe"
	"github.com/open-edge-platform/lume-model/internal/utils/config"
	"github.com/open-edge-platform/lume-model/internal/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// Global command flags
var (
	configFile      string
	logLevel        string
	verbose         bool
	versionOverride string
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	rootCmd := createRootCommand()
	if err := rootCmd.Execute(); err != nil {
		logger.Logger().Errorf("%v", err)
		os.Exit(1)
	}
}

// createRootCommand builds the command tree
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lume-model",
		Short: "Package tooling for lume-model surrogate models",
		Long: `lume-model validates and tests the package descriptor of a surrogate
model package, writes its manifest and SBOM, and loads, stores and evaluates
model variable configurations.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Global configuration file (default: "+config.DefaultConfigFile+" when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Verbose output (same as --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&versionOverride, "version-override", "",
		"Use this version instead of the one produced by the setup script")

	rootCmd.AddCommand(createValidateCommand())
	rootCmd.AddCommand(createTestCommand())
	rootCmd.AddCommand(createManifestCommand())
	rootCmd.AddCommand(createCheckURLsCommand())
	rootCmd.AddCommand(createVariablesCommand())
	rootCmd.AddCommand(createInspectCommand())
	rootCmd.AddCommand(createEvaluateCommand())
	rootCmd.AddCommand(createConfigCommand())

	attachLoggingHooks(rootCmd)
	return rootCmd
}

// attachLoggingHooks makes every subcommand load the global configuration
// and set up logging before it runs.
func attachLoggingHooks(cmd *cobra.Command) {
	for _, sub := range cmd.Commands() {
		sub.PersistentPreRunE = initializeCommand
		attachLoggingHooks(sub)
	}
}

func initializeCommand(cmd *cobra.Command, _ []string) error {
	path := configFile
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigFile); err == nil {
			path = config.DefaultConfigFile
		}
	}
	cfg, err := config.LoadGlobalConfig(path)
	if err != nil {
		return err
	}
	config.SetGlobal(cfg)

	level := resolveRequestedLogLevel(cmd)
	if level == "" {
		level = config.NewConfigHelpers(cfg).LogLevel()
	}
	if err := logger.Setup(level, cfg.Logging.File); err != nil {
		return err
	}
	if path != "" {
		logger.Logger().Debugf("using configuration %s", path)
	}
	return nil
}

// resolveRequestedLogLevel returns the level asked for on the command line,
// or an empty string when the configuration should decide.
func resolveRequestedLogLevel(cmd *cobra.Command) string {
	if logLevel != "" {
		return logLevel
	}
	if cmd == nil {
		return ""
	}
	if flagEnabled(cmd.Flags(), "verbose") {
		return "debug"
	}
	return ""
}

// flagEnabled reports whether a boolean flag was set to true on the
// command line.
func flagEnabled(flags *pflag.FlagSet, name string) bool {
	v, err := flags.GetBool(name)
	return err == nil && v && flags.Changed(name)
}

func recipeOptions() recipe.Options {
	cfg := config.Global()
	return recipe.Options{
		Interpreter:     cfg.Python.Interpreter,
		SetupScript:     cfg.Python.SetupScript,
		VersionOverride: versionOverride,
	}
}

// recipePath accepts either a descriptor file or the directory holding
// meta.yaml.
func recipePath(arg string) string {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return filepath.Join(arg, "meta.yaml")
	}
	return arg
}

// loadRecipe loads and validates the descriptor at path.
func loadRecipe(ctx context.Context, path string) (*recipe.Descriptor, error) {
	log := logger.Logger()
	path = recipePath(path)
	log.Debugf("loading package descriptor %s", path)

	d, err := recipe.LoadRecipe(ctx, path, recipeOptions())
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("descriptor validation failed: %w", err)
	}
	return d, nil
}

func recipeFileCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
}
