package config

import (
	"os"
	"testing"

	"github.com/open-edge-platform/lume-model/internal/variables"
)

// FuzzLoadModelConfig tests the LoadModelConfig function with various file inputs
func FuzzLoadModelConfig(f *testing.F) {
	// Seed with various YAML content patterns
	f.Add("input_variables:\n  input1:\n    type: scalar\n    name: input1\n    default: 1\n    range: [0, 5]\noutput_variables:\n  output1:\n    type: scalar\n    name: output1\n")
	f.Add("{}")
	f.Add("")
	f.Add("invalid: yaml: content: [")
	f.Add("input_variables:\n  a:\n    type: vector\n")
	f.Add("input_variables:\n  img:\n    type: image\n    default: missing.npy\n")
	f.Add("---\ninput_variables: {}") // Document separator
	f.Add("input_variables: null\noutput_variables: null") // Null values
	f.Add("input_variables:\n  a: {type: scalar, name: a, default: 1, range: [0, 5], is_constant: true}\nextra_field: ignored")

	f.Fuzz(func(t *testing.T, yamlContent string) {
		// Write content to a temporary file
		tempFile := t.TempDir() + "/model.yaml"
		if err := writeTestFile(tempFile, yamlContent); err != nil {
			t.Skip("Failed to create temp file")
		}

		// Test LoadModelConfig - should not crash regardless of input
		cfg, err := LoadModelConfig(tempFile, Options{})

		if err != nil {
			if cfg != nil {
				t.Error("Expected nil config when error occurred")
			}
		} else if cfg == nil || cfg.Inputs == nil || cfg.Outputs == nil {
			t.Error("Expected complete config when no error occurred")
		}
	})
}

// FuzzParseModelConfig tests the parseModelConfig function with raw YAML data
func FuzzParseModelConfig(f *testing.F) {
	// Seed with various YAML patterns that might cause parsing issues
	f.Add([]byte("input_variables:\n  a: {type: scalar, name: a, default: 1, range: [0, 5]}"))
	f.Add([]byte(""))
	f.Add([]byte("null"))
	f.Add([]byte("{}"))
	f.Add([]byte("[]"))
	f.Add([]byte("invalid yaml content ]["))
	f.Add([]byte("---\n---\n---")) // Multiple document separators
	f.Add([]byte("input_variables: &anchor\n  a: {type: scalar, name: a, default: 1, range: [0, 5]}\noutput_variables: *anchor")) // YAML anchors
	f.Add([]byte("input_variables:\n  a: {type: image, name: a, default: [[1, 2]], range: [0, 1], x_label: x, y_label: y, shape: [1, 2]}"))
	f.Add([]byte(string(make([]byte, 10000)))) // Large input
	f.Add([]byte("model:\n  model_class: lume_model.ScaleModel\n  kwargs:\n    custom_layers: []\n# comment"))

	f.Fuzz(func(t *testing.T, yamlData []byte) {
		cfg, err := parseModelConfig(yamlData, Options{BaseDir: t.TempDir()})

		if err != nil {
			if cfg != nil {
				t.Error("Expected nil config when error occurred")
			}
			return
		}
		if cfg == nil {
			t.Fatal("Expected non-nil config when no error occurred")
		}
		if err := cfg.Inputs.Validate(variables.Input); err != nil {
			t.Errorf("parsed inputs fail validation: %v", err)
		}
	})
}

// writeTestFile is a helper to write content to a file for testing
func writeTestFile(path, content string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.WriteString(content)
	return err
}
