package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/lume-model/internal/utils/config"
	"github.com/spf13/cobra"
)

// createConfigCommand creates the config subcommand
func createConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the global configuration",
	}

	var force bool
	var format string
	initCmd := &cobra.Command{
		Use:   "init [flags] [PATH]",
		Short: "Write a default global configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(path), ".")
			}
			if err := config.WriteTemplate(path, format, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	initCmd.Flags().StringVar(&format, "format", "", "yaml or toml (default: from the file extension)")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the active global configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Global()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
			fmt.Fprintf(out, "work_dir: %s\n", cfg.WorkDir)
			fmt.Fprintf(out, "temp_dir: %s\n", config.NewConfigHelpers(cfg).TempDir())
			fmt.Fprintf(out, "logging.level: %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "python.interpreter: %s\n", cfg.Python.Interpreter)
			fmt.Fprintf(out, "python.setup_script: %s\n", cfg.Python.SetupScript)
			fmt.Fprintf(out, "test.import_command: %s\n", cfg.Test.ImportCommand)
			fmt.Fprintf(out, "test.timeout: %s\n", cfg.Test.Timeout)
			return nil
		},
	}

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}
