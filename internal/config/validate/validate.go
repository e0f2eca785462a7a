package validate

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/*.schema.json
var schemaFS embed.FS

const (
	DescriptorSchema  = "descriptor.schema.json"
	ModelConfigSchema = "model-config.schema.json"
	ConfigSchema      = "config.schema.json"
)

// Schema returns the raw bytes of an embedded schema.
func Schema(name string) ([]byte, error) {
	data, err := schemaFS.ReadFile(path.Join("schema", name))
	if err != nil {
		return nil, fmt.Errorf("schema %s not found: %w", name, err)
	}
	return data, nil
}

// ValidateAgainstSchema compiles schema under name and validates the JSON
// document data against it. When ref is set, the fragment name#ref is
// compiled instead of the schema root.
func ValidateAgainstSchema(name string, schema []byte, data []byte, ref string) error {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("failed to load schema %s: %w", name, err)
	}

	target := name
	if ref != "" {
		target = name + "#" + ref
	}
	sch, err := compiler.Compile(target)
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", target, err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON document: %w", err)
	}

	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation against %s failed: %w", name, err)
	}
	return nil
}

func validateEmbedded(name string, data []byte) error {
	schema, err := Schema(name)
	if err != nil {
		return err
	}
	return ValidateAgainstSchema(name, schema, data, "")
}

// ValidateDescriptorJSON validates a package descriptor in its JSON form.
func ValidateDescriptorJSON(data []byte) error {
	return validateEmbedded(DescriptorSchema, data)
}

// ValidateModelConfigJSON validates a model configuration in its JSON form.
func ValidateModelConfigJSON(data []byte) error {
	return validateEmbedded(ModelConfigSchema, data)
}

// ValidateConfigJSON validates the global tool configuration.
func ValidateConfigJSON(data []byte) error {
	return validateEmbedded(ConfigSchema, data)
}
