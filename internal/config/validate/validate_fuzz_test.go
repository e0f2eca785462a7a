package validate

import (
	"testing"
)

func FuzzValidateAgainstSchema(f *testing.F) {
	variableSchema := []byte(`{
		"type": "object",
		"properties": {
			"type": {"enum": ["scalar", "image"]},
			"default": {"type": "number"}
		},
		"required": ["type"]
	}`)

	f.Add(variableSchema, []byte(`{"type": "scalar", "default": 1.5}`))
	f.Add(variableSchema, []byte(`{"type": "image"}`))
	f.Add(variableSchema, []byte(`{"type": "tensor"}`))
	f.Add(variableSchema, []byte(`{"default": "x"}`))
	f.Add(variableSchema, []byte(`not json`))
	f.Add([]byte(`{`), []byte(`{}`))

	f.Fuzz(func(t *testing.T, schema []byte, data []byte) {
		_ = ValidateAgainstSchema("fuzz-variable.json", schema, data, "")
	})
}

func FuzzValidateDescriptorJSON(f *testing.F) {
	f.Add([]byte(`{"package": {"name": "lume-model", "version": "1.4.0"}}`))
	f.Add([]byte(`{"package": {"name": "lume-model"}, "requirements": {"run": ["numpy"]}}`))
	f.Add([]byte(`{"test": {"imports": ["lume_model"]}}`))
	f.Add([]byte(`{"about": {"license": 7}}`))
	f.Add([]byte(`[]`))
	f.Add([]byte(`null`))

	f.Fuzz(func(t *testing.T, data []byte) {
		_ = ValidateDescriptorJSON(data)
	})
}

func FuzzValidateModelConfigJSON(f *testing.F) {
	f.Add([]byte(`{"input_variables": {"x": {"type": "scalar", "default": 1}}}`))
	f.Add([]byte(`{"input_variables": {"img": {"type": "image", "default": [[1, 2]]}}}`))
	f.Add([]byte(`{"model": {"model_class": "ScaleModel", "kwargs": {"factor": 2}}}`))
	f.Add([]byte(`{"input_variables": []}`))
	f.Add([]byte(`{}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		_ = ValidateModelConfigJSON(data)
	})
}

func FuzzValidateConfigJSON(f *testing.F) {
	f.Add([]byte(`{"workers": 8, "work_dir": "/tmp/lume"}`))
	f.Add([]byte(`{"logging": {"level": "warn"}}`))
	f.Add([]byte(`{"python": {"interpreter": "python3"}}`))
	f.Add([]byte(`{"workers": -1}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		_ = ValidateConfigJSON(data)
	})
}
