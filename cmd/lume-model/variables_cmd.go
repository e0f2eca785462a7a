package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	modelconfig "github.com/open-edge-platform/lume-model/internal/config"
	"github.com/open-edge-platform/lume-model/internal/utils/logger"
	"github.com/open-edge-platform/lume-model/internal/variables"
	"github.com/spf13/cobra"
)

// Variables command flags
var (
	varFormat string
	varSave   string
)

// createVariablesCommand creates the variables subcommand
func createVariablesCommand() *cobra.Command {
	variablesCmd := &cobra.Command{
		Use:   "variables [flags] MODEL_CONFIG",
		Short: "Load the input and output variables of a model configuration",
		Long: `Load the input and output variables of a model configuration and print
them. With --save the variables are also written to a variable store; the
file extension selects the compression (.json, .json.gz, .json.zst, .json.xz).`,
		Args:              cobra.ExactArgs(1),
		RunE:              executeVariables,
		ValidArgsFunction: recipeFileCompletion,
	}

	variablesCmd.Flags().StringVar(&varFormat, "format", "text", "Output format: text or json")
	variablesCmd.Flags().StringVar(&varSave, "save", "", "Write the variables to this file")
	return variablesCmd
}

// executeVariables handles the variables command logic
func executeVariables(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	cfg, err := modelconfig.LoadModelConfig(args[0], modelconfig.Options{})
	if err != nil {
		return err
	}

	if varSave != "" {
		if err := variables.SaveVariables(cfg.Inputs, cfg.Outputs, varSave); err != nil {
			return err
		}
		log.Infof("variables saved to %s", varSave)
	}

	return writeVariables(cmd.OutOrStdout(), cfg.Inputs, cfg.Outputs, varFormat)
}

// createInspectCommand creates the inspect subcommand
func createInspectCommand() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect [flags] VARIABLE_FILE",
		Short: "Print the variables held in a variable store",
		Args:  cobra.ExactArgs(1),
		RunE:  executeInspect,
	}
	inspectCmd.Flags().StringVar(&varFormat, "format", "text", "Output format: text or json")
	return inspectCmd
}

// executeInspect handles the inspect command logic
func executeInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("variable file inspection failed: %w", err)
	}

	inputs, outputs, err := variables.LoadVariables(path)
	if err != nil {
		return err
	}

	if strings.ToLower(varFormat) == "text" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %s, %d inputs, %d outputs\n",
			path, variables.CompressionFor(path), humanize.Bytes(uint64(info.Size())),
			inputs.Len(), outputs.Len())
	}
	return writeVariables(cmd.OutOrStdout(), inputs, outputs, varFormat)
}

func writeVariables(w io.Writer, inputs, outputs *variables.Collection, format string) error {
	switch strings.ToLower(format) {
	case "json":
		payload := struct {
			Inputs  []variables.Variable `json:"input_variables"`
			Outputs []variables.Variable `json:"output_variables"`
		}{Inputs: inputs.Values(), Outputs: outputs.Values()}
		b, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}
		_, _ = fmt.Fprintln(w, string(b))
		return nil

	case "text":
		fmt.Fprintln(w, "Inputs:")
		for _, k := range inputs.Keys() {
			v, _ := inputs.Get(k)
			fmt.Fprintf(w, "  %s\n", describeVariable(v))
		}
		if outputs.Len() > 0 {
			fmt.Fprintln(w, "Outputs:")
			for _, k := range outputs.Keys() {
				v, _ := outputs.Get(k)
				fmt.Fprintf(w, "  %s\n", describeVariable(v))
			}
		}
		return nil

	default:
		return fmt.Errorf("invalid --format %q (expected text|json)", format)
	}
}

func describeVariable(v variables.Variable) string {
	switch x := v.(type) {
	case *variables.ScalarInputVariable:
		s := fmt.Sprintf("%-20s scalar default=%g range=%s", x.Name, x.Current(), formatRange(x.Range))
		if x.IsConstant {
			s += " constant"
		}
		return s + formatUnits(x.Units)
	case *variables.ScalarOutputVariable:
		return fmt.Sprintf("%-20s scalar", x.Name) + formatUnits(x.Units)
	case *variables.ImageInputVariable:
		s := fmt.Sprintf("%-20s image shape=%s range=%s axes=%s",
			x.Name, formatShape(x.Shape), formatRange(x.Range), strings.Join(x.AxisLabels, ","))
		if x.IsConstant {
			s += " constant"
		}
		return s
	case *variables.ImageOutputVariable:
		return fmt.Sprintf("%-20s image shape=%s axes=%s",
			x.Name, formatShape(x.Shape), strings.Join(x.AxisLabels, ","))
	default:
		return fmt.Sprintf("%-20s %s", v.VariableName(), v.VariableType())
	}
}

func formatRange(r variables.Range) string {
	if len(r) != 2 {
		return "-"
	}
	return fmt.Sprintf("[%g, %g]", r[0], r[1])
}

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, n := range shape {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, "x")
}

func formatUnits(units string) string {
	if units == "" {
		return ""
	}
	return " units=" + units
}
