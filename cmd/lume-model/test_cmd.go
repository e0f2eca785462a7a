package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/open-edge-platform/lume-model/internal/recipe"
	"github.com/open-edge-platform/lume-model/internal/testrunner"
	"github.com/open-edge-platform/lume-model/internal/utils/config"
	"github.com/open-edge-platform/lume-model/internal/utils/logger"
	"github.com/spf13/cobra"
)

// Test command flags
var (
	dryRun    bool
	keepGoing bool
	testDir   string
)

// newExecutor is replaced in tests.
var newExecutor = func(dir string, stream bool) testrunner.Executor {
	return testrunner.ShellExecutor{Dir: dir, Stream: stream}
}

// createTestCommand creates the test subcommand
func createTestCommand() *cobra.Command {
	testCmd := &cobra.Command{
		Use:   "test [flags] RECIPE",
		Short: "Run the test plan of a package descriptor",
		Long: `Run the test section of a package descriptor: every listed module is
imported with the configured interpreter, then every test command runs in
order. The run stops at the first failure unless --keep-going is set.
With --verbose the output of each step is logged while it runs.`,
		Args:              cobra.ExactArgs(1),
		RunE:              executeTest,
		ValidArgsFunction: recipeFileCompletion,
	}

	testCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Print the test plan without running it")
	testCmd.Flags().BoolVar(&keepGoing, "keep-going", false,
		"Run every step even after a failure")
	testCmd.Flags().StringVar(&testDir, "dir", "",
		"Directory the test commands run in (default: the package root)")
	return testCmd
}

// executeTest handles the test command logic
func executeTest(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	cfg := config.Global()

	d, err := loadRecipe(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	timeout, err := cfg.TestTimeout()
	if err != nil {
		return err
	}
	dir := testDir
	if dir == "" {
		dir = recipe.PackageRoot(recipePath(args[0]), cfg.Python.SetupScript)
	}

	opts := testrunner.Options{
		Python:        cfg.Python.Interpreter,
		ImportCommand: cfg.Test.ImportCommand,
		Dir:           dir,
		Timeout:       timeout,
		KeepGoing:     keepGoing,
		Progress:      cmd.ErrOrStderr(),
	}
	steps := testrunner.Plan(d, opts)
	if len(steps) == 0 {
		return fmt.Errorf("%s %s has no tests", d.Package.Name, d.Package.Version)
	}

	if dryRun {
		return testrunner.DryRun(cmd.OutOrStdout(), steps)
	}

	reportDir, err := config.NewConfigHelpers(cfg).CreateReportDir()
	if err != nil {
		return err
	}
	opts.ReportDir = reportDir

	log.Infof("testing %s %s (%d steps)", d.Package.Name, d.Package.Version, len(steps))
	start := time.Now()
	res, runErr := testrunner.Run(cmd.Context(), steps, newExecutor(dir, verbose), opts)
	if res == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	for _, sr := range res.Steps {
		status := "PASS"
		switch {
		case sr.Skipped:
			status = "SKIP"
		case !sr.Passed():
			status = "FAIL"
		}
		fmt.Fprintf(out, "%s  %s\n", status, sr.Step.Name)
	}
	fmt.Fprintf(out, "%d passed, %d failed, %d skipped (started %s)\n",
		res.Passed, res.Failed, res.Skipped, humanize.Time(start))
	if res.ReportPath != "" {
		log.Infof("test report written to %s", res.ReportPath)
	}
	return runErr
}
