package validate

import (
	"strings"
	"testing"
)

const validDescriptor = `{
  "package": {"name": "lume-model", "version": "1.4.0"},
  "source": {"path": ".."},
  "build": {"number": 0, "noarch": "python"},
  "requirements": {
    "host": ["python", "setuptools", "pip"],
    "run": ["python", "pydantic", "numpy", "pyyaml"]
  },
  "test": {"imports": ["lume_model"], "commands": ["py.test --pyargs lume_model"]},
  "about": {
    "home": "https://github.com/slaclab/lume-model",
    "license": "SLAC Open",
    "summary": "Variable classes for LUME models",
    "doc_url": "",
    "dev_url": "https://github.com/slaclab/lume-model"
  }
}`

func TestValidateDescriptorJSON(t *testing.T) {
	if err := ValidateDescriptorJSON([]byte(validDescriptor)); err != nil {
		t.Fatalf("expected valid descriptor, got: %v", err)
	}
}

func TestValidateDescriptorJSONRejects(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
	}{
		{"empty run deps", `"run": ["python", "pydantic", "numpy", "pyyaml"]`, `"run": []`},
		{"uppercase name", `"name": "lume-model"`, `"name": "Lume Model"`},
		{"bad home url", `"home": "https://github.com/slaclab/lume-model"`, `"home": "github.com/slaclab"`},
		{"no test entries", `"test": {"imports": ["lume_model"], "commands": ["py.test --pyargs lume_model"]}`, `"test": {}`},
		{"negative build number", `"number": 0`, `"number": -1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(validDescriptor, tt.old, tt.new, 1)
			if doc == validDescriptor {
				t.Fatalf("replacement %q did not apply", tt.old)
			}
			if err := ValidateDescriptorJSON([]byte(doc)); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestValidateModelConfigJSON(t *testing.T) {
	valid := `{"input_variables": {"input1": {"type": "scalar", "name": "input1", "default": 1, "range": [0, 5]}},
	           "model": {"model_class": "lume_model.ScaleModel", "requirements": {"numpy": "1.19"}}}`
	if err := ValidateModelConfigJSON([]byte(valid)); err != nil {
		t.Fatalf("expected valid model config, got: %v", err)
	}

	missingType := `{"input_variables": {"input1": {"name": "input1"}}}`
	if err := ValidateModelConfigJSON([]byte(missingType)); err == nil {
		t.Error("expected error for variable without type")
	}
}

func TestValidateConfigJSON(t *testing.T) {
	if err := ValidateConfigJSON([]byte(`{"workers": 4, "logging": {"level": "debug"}}`)); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
	if err := ValidateConfigJSON([]byte(`{"workers": 0}`)); err == nil {
		t.Error("expected error for zero workers")
	}
	if err := ValidateConfigJSON([]byte(`{"unknown": true}`)); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestValidateAgainstSchemaWithRef(t *testing.T) {
	schema, err := Schema(DescriptorSchema)
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	if err := ValidateAgainstSchema("descriptor-ref", schema, []byte(`"https://example.com"`), "/$defs/url"); err != nil {
		t.Errorf("expected url fragment to validate, got: %v", err)
	}
	if err := ValidateAgainstSchema("descriptor-ref", schema, []byte(`"ftp://example.com"`), "/$defs/url"); err == nil {
		t.Error("expected ftp url to be rejected")
	}
}

func TestValidateAgainstSchemaInvalidJSON(t *testing.T) {
	err := ValidateAgainstSchema("basic-schema", []byte(`{"type": "object"}`), []byte(`{`), "")
	if err == nil || !strings.Contains(err.Error(), "invalid JSON document") {
		t.Errorf("expected invalid JSON error, got: %v", err)
	}
}
