package main

import (
	"fmt"
	"strconv"
	"strings"

	modelconfig "github.com/open-edge-platform/lume-model/internal/config"
	"github.com/open-edge-platform/lume-model/internal/model"
	"github.com/open-edge-platform/lume-model/internal/utils/logger"
	"github.com/open-edge-platform/lume-model/internal/variables"
	"github.com/spf13/cobra"
)

// Evaluate command flags
var (
	evalSet   []string
	evalClass string
)

// createEvaluateCommand creates the evaluate subcommand
func createEvaluateCommand() *cobra.Command {
	evaluateCmd := &cobra.Command{
		Use:   "evaluate [flags] MODEL_CONFIG",
		Short: "Build the model of a configuration and evaluate it",
		Long: `Build the model described by a model configuration and evaluate it once.
Scalar inputs not given with --set keep their default value.

Examples:
  lume-model evaluate model.yaml --set input1=2.5
  lume-model evaluate variables.yaml --class lume_model.ScaleModel --set a=1`,
		Args: cobra.ExactArgs(1),
		RunE: executeEvaluate,
	}

	evaluateCmd.Flags().StringArrayVar(&evalSet, "set", nil, "Scalar input value as name=value (repeatable)")
	evaluateCmd.Flags().StringVar(&evalClass, "class", "", "Model class, for configurations without a model section")
	return evaluateCmd
}

// parseAssignments turns name=value pairs into model inputs.
func parseAssignments(pairs []string) (model.Values, error) {
	values := make(model.Values, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q (expected name=value)", p)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", name, err)
		}
		values[name] = f
	}
	return values, nil
}

// executeEvaluate handles the evaluate command logic
func executeEvaluate(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	inputs, err := parseAssignments(evalSet)
	if err != nil {
		return err
	}

	cfg, err := modelconfig.LoadModelConfig(args[0], modelconfig.Options{})
	if err != nil {
		return err
	}
	m, err := cfg.Build(cmd.Context(), modelconfig.Options{Class: evalClass})
	if err != nil {
		return err
	}
	log.Debugf("built %T with %d inputs and %d outputs", m, m.InputVariables().Len(), m.OutputVariables().Len())

	outputs, err := m.Evaluate(cmd.Context(), inputs)
	if err != nil {
		return fmt.Errorf("model evaluation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, key := range m.OutputVariables().Keys() {
		switch v := outputs[key].(type) {
		case float64:
			fmt.Fprintf(out, "%s = %g\n", key, v)
		case variables.Image:
			fmt.Fprintf(out, "%s = image %s min=%g max=%g\n", key, formatShape(v.Shape()), v.Min(), v.Max())
		default:
			fmt.Fprintf(out, "%s = %v\n", key, v)
		}
	}
	return nil
}
