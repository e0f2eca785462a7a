package main

import (
	"fmt"
	"time"

	"github.com/open-edge-platform/lume-model/internal/urlcheck"
	"github.com/open-edge-platform/lume-model/internal/utils/config"
	"github.com/spf13/cobra"
)

var urlTimeout time.Duration

// createCheckURLsCommand creates the check-urls subcommand
func createCheckURLsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "check-urls [flags] RECIPE",
		Short:             "Check that the home, doc and dev URLs of a package are reachable",
		Args:              cobra.ExactArgs(1),
		RunE:              executeCheckURLs,
		ValidArgsFunction: recipeFileCompletion,
	}
	cmd.Flags().DurationVar(&urlTimeout, "timeout", 15*time.Second, "Timeout per request")
	return cmd
}

func executeCheckURLs(cmd *cobra.Command, args []string) error {
	d, err := loadRecipe(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	urls := d.URLs()
	if len(urls) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no URLs to check")
		return nil
	}

	results := urlcheck.Check(cmd.Context(), urls, urlcheck.Options{
		Workers:  config.NewConfigHelpers(config.Global()).Workers(),
		Timeout:  urlTimeout,
		Progress: cmd.ErrOrStderr(),
	})

	failed := 0
	out := cmd.OutOrStdout()
	for _, r := range results {
		mark := "✓"
		if !r.OK() {
			mark = "✗"
			failed++
		}
		fmt.Fprintf(out, "%s %s\n", mark, r)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d URLs unreachable", failed, len(results))
	}
	return nil
}
