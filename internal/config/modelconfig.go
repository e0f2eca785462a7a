// Package config loads model configurations: the input and output
// variables of a surrogate model and the class used to build it.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/open-edge-platform/lume-model/internal/config/validate"
	"github.com/open-edge-platform/lume-model/internal/model"
	"github.com/open-edge-platform/lume-model/internal/utils/logger"
	"github.com/open-edge-platform/lume-model/internal/variables"
)

var (
	ErrInvalidConfig    = errors.New("invalid config file")
	ErrMissingSection   = errors.New("section missing from configuration file")
	ErrConflictingClass = errors.New("conflicting class definitions between config file and function argument")
	ErrNoModelClass     = errors.New("no model class found")
)

// Options control how a model configuration is turned into variables and
// a model.
type Options struct {
	// BaseDir resolves relative .npy paths of image defaults.
	BaseDir string
	// Images caches decoded .npy files. A shared loader is used when nil.
	Images *variables.ImageLoader
	// Class builds the model when the configuration has no model section.
	Class string
	// Kwargs are merged over the model.kwargs of the configuration.
	Kwargs map[string]any
	// Environment is checked against model.requirements. The build
	// environment is used when nil.
	Environment model.Environment
}

// ModelSection is the model block of a configuration.
type ModelSection struct {
	Class        string            `yaml:"model_class"`
	Requirements map[string]string `yaml:"requirements"`
	Kwargs       map[string]any    `yaml:"kwargs"`
}

// ModelConfig is a parsed model configuration. Outputs is empty, not nil,
// when the configuration has no output_variables.
type ModelConfig struct {
	Inputs     *variables.Collection
	Outputs    *variables.Collection
	HasOutputs bool
	Model      *ModelSection
}

var (
	sharedImagesOnce sync.Once
	sharedImages     *variables.ImageLoader
)

func (o Options) images() *variables.ImageLoader {
	if o.Images != nil {
		return o.Images
	}
	sharedImagesOnce.Do(func() {
		sharedImages, _ = variables.NewImageLoader(64)
	})
	return sharedImages
}

// LoadModelConfig reads and parses the configuration at path. Relative
// image paths resolve against the directory of path unless opts.BaseDir
// is set.
func LoadModelConfig(path string, opts Options) (*ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model config %s: %w", path, err)
	}
	if opts.BaseDir == "" {
		opts.BaseDir = filepath.Dir(path)
	}
	cfg, err := parseModelConfig(data, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load model config %s: %w", path, err)
	}
	return cfg, nil
}

func parseModelConfig(data []byte, opts Options) (*ModelConfig, error) {
	log := logger.Logger()

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, ErrInvalidConfig
	}

	jsonData, err := sigsyaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := validate.ValidateModelConfigJSON(jsonData); err != nil {
		return nil, err
	}

	cfg := &ModelConfig{Inputs: variables.NewCollection(), Outputs: variables.NewCollection()}
	hasInputs := false

	top := root.Content[0]
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i].Value, top.Content[i+1]
		switch key {
		case "input_variables":
			hasInputs = !isNull(value)
			if err := buildVariables(cfg.Inputs, variables.Input, value, opts); err != nil {
				return nil, err
			}
		case "output_variables":
			cfg.HasOutputs = true
			if err := buildVariables(cfg.Outputs, variables.Output, value, opts); err != nil {
				return nil, err
			}
		case "model":
			var section ModelSection
			if err := value.Decode(&section); err != nil {
				return nil, fmt.Errorf("%w: model: %v", ErrInvalidConfig, err)
			}
			cfg.Model = &section
		default:
			log.Debugf("ignoring model config key %q", key)
		}
	}

	if !hasInputs {
		return nil, fmt.Errorf("%w: input variables", ErrMissingSection)
	}
	return cfg, nil
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

// buildVariables decodes a mapping of variable configurations in document
// order.
func buildVariables(c *variables.Collection, dir variables.Direction, node *yaml.Node, opts Options) error {
	if isNull(node) {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: %s variables must be a mapping", ErrInvalidConfig, dir)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var fields map[string]any
		if err := node.Content[i+1].Decode(&fields); err != nil {
			return fmt.Errorf("%w: variable %s: %v", ErrInvalidConfig, key, err)
		}
		v, err := buildVariable(dir, key, fields, opts)
		if err != nil {
			return fmt.Errorf("%s variable %s: %w", dir, key, err)
		}
		if err := c.Add(key, v); err != nil {
			return err
		}
		logger.Logger().Debugf("loaded %s %s variable %s", v.VariableType(), dir, key)
	}
	return nil
}

func buildVariable(dir variables.Direction, key string, fields map[string]any, opts Options) (variables.Variable, error) {
	if fields == nil {
		return nil, fmt.Errorf("%w: type", variables.ErrMissingField)
	}
	typ, _ := fields["type"].(string)
	constant, _ := fields["is_constant"].(bool)

	switch variables.Type(typ) {
	case variables.TypeScalar:
		if constant && dir == variables.Input {
			if def, ok := fields["default"]; ok {
				fields["range"] = []any{def, def}
			}
		}
	case variables.TypeImage:
		if path, ok := fields["default"].(string); ok {
			img, err := loadImage(path, opts)
			if err != nil {
				return nil, err
			}
			fields["default"] = img.Rows()
			if constant && dir == variables.Input {
				fields["range"] = []any{img.Min(), img.Max()}
			}
		}
		xl, hasX := fields["x_label"]
		yl, hasY := fields["y_label"]
		if hasX || hasY {
			fields["axis_labels"] = []any{xl, yl}
		}
		delete(fields, "x_label")
		delete(fields, "y_label")
	default:
		return nil, fmt.Errorf("%w: Variable type %v not defined", variables.ErrUnknownVariableType, fields["type"])
	}

	return variables.DecodeMap(dir, fields)
}

func loadImage(path string, opts Options) (variables.Image, error) {
	if !filepath.IsAbs(path) && opts.BaseDir != "" {
		path = filepath.Join(opts.BaseDir, path)
	}
	loader := opts.images()
	if loader == nil {
		return variables.LoadNPY(path)
	}
	return loader.Load(path)
}

// VariablesFromYAML returns the input and output variables of a model
// configuration. Input variables are required, output variables are not.
func VariablesFromYAML(data []byte, opts Options) (*variables.Collection, *variables.Collection, error) {
	cfg, err := parseModelConfig(data, opts)
	if err != nil {
		return nil, nil, err
	}
	return cfg.Inputs, cfg.Outputs, nil
}

// ModelFactoryFromYAML resolves the model class and construction
// arguments of a configuration without building the model.
func ModelFactoryFromYAML(ctx context.Context, data []byte, opts Options) (model.Factory, model.Kwargs, error) {
	cfg, err := parseModelConfig(data, opts)
	if err != nil {
		return nil, model.Kwargs{}, err
	}
	return cfg.Factory(ctx, opts)
}

// ModelFromYAML builds the model described by a configuration.
func ModelFromYAML(ctx context.Context, data []byte, opts Options) (model.SurrogateModel, error) {
	cfg, err := parseModelConfig(data, opts)
	if err != nil {
		return nil, err
	}
	return cfg.Build(ctx, opts)
}

// Factory resolves the model factory and kwargs of cfg. The class comes
// either from the model section or from opts.Class; giving both is an
// error.
func (cfg *ModelConfig) Factory(_ context.Context, opts Options) (model.Factory, model.Kwargs, error) {
	if !cfg.HasOutputs {
		return nil, model.Kwargs{}, fmt.Errorf("%w: output variables", ErrMissingSection)
	}
	if opts.Class != "" && cfg.Model != nil {
		return nil, model.Kwargs{}, ErrConflictingClass
	}

	kw := model.Kwargs{
		InputVariables:  cfg.Inputs,
		OutputVariables: cfg.Outputs,
		Extra:           make(map[string]any),
	}
	class := opts.Class

	if m := cfg.Model; m != nil {
		env := opts.Environment
		if env == nil {
			env = model.CurrentEnvironment()
		}
		if err := model.CheckRequirements(m.Requirements, env); err != nil {
			return nil, model.Kwargs{}, err
		}

		class = m.Class
		for k, v := range m.Kwargs {
			if k == "custom_layers" {
				continue
			}
			kw.Extra[k] = v
		}
		if raw, ok := m.Kwargs["custom_layers"]; ok {
			paths, ok := raw.(map[string]any)
			if !ok {
				return nil, model.Kwargs{}, fmt.Errorf("%w: custom_layers must be a mapping", ErrInvalidConfig)
			}
			kw.CustomLayers = make(map[string]model.Layer, len(paths))
			for name, p := range paths {
				path, _ := p.(string)
				layer, ok := model.LookupLayer(path)
				if !ok {
					return nil, model.Kwargs{}, fmt.Errorf("%w: Layer class %s not found", model.ErrUnknownLayer, name)
				}
				kw.CustomLayers[name] = layer
			}
		}
	}

	if class == "" {
		return nil, model.Kwargs{}, ErrNoModelClass
	}
	factory, err := model.MustLookup(class)
	if err != nil {
		return nil, model.Kwargs{}, err
	}

	for k, v := range opts.Kwargs {
		kw.Extra[k] = v
	}
	return factory, kw, nil
}

// Build resolves the factory of cfg and constructs the model.
func (cfg *ModelConfig) Build(ctx context.Context, opts Options) (model.SurrogateModel, error) {
	factory, kw, err := cfg.Factory(ctx, opts)
	if err != nil {
		return nil, err
	}
	m, err := factory(ctx, kw)
	if err != nil {
		return nil, fmt.Errorf("unable to load model with args %v: %w", kw.Extra, err)
	}
	return m, nil
}
