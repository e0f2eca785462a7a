// Package model defines surrogate models over typed variables and the
// registry used to construct them by class name.
package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-edge-platform/lume-model/internal/variables"
)

var (
	ErrUnknownClass       = errors.New("model class not found")
	ErrUnknownLayer       = errors.New("layer class not found")
	ErrRequirementVersion = errors.New("incorrect requirement version")
	ErrOutOfRange         = errors.New("input value out of range")
	ErrUnknownInput       = errors.New("unknown input variable")
)

// Values maps variable names to values: float64 for scalars and
// variables.Image for images.
type Values map[string]any

// SurrogateModel maps input variables to output variables.
type SurrogateModel interface {
	InputVariables() *variables.Collection
	OutputVariables() *variables.Collection
	// Evaluate computes the outputs. Inputs that are not given take the
	// current value of their variable.
	Evaluate(ctx context.Context, inputs Values) (Values, error)
}

// Kwargs are the construction arguments of a model.
type Kwargs struct {
	InputVariables  *variables.Collection
	OutputVariables *variables.Collection
	CustomLayers    map[string]Layer
	// Extra holds the remaining model.kwargs entries of a configuration.
	Extra map[string]any
}

// Float returns Extra[key] as a float64, or def when the key is absent.
func (k Kwargs) Float(key string, def float64) (float64, error) {
	v, ok := k.Extra[key]
	if !ok || v == nil {
		return def, nil
	}
	return asFloat(key, v)
}

func asFloat(key string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, v)
	}
}

// Factory builds a model from its arguments.
type Factory func(ctx context.Context, kw Kwargs) (SurrogateModel, error)

// resolveInputs fills every input from values or the variable's current
// value and checks scalars against their range.
func resolveInputs(inputs *variables.Collection, values Values) (Values, error) {
	for name := range values {
		if _, ok := inputs.Get(name); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownInput, name)
		}
	}

	resolved := make(Values, inputs.Len())
	for _, key := range inputs.Keys() {
		v, _ := inputs.Get(key)
		given, hasGiven := values[key]

		switch iv := v.(type) {
		case *variables.ScalarInputVariable:
			x := iv.Current()
			if hasGiven {
				f, err := asFloat(key, given)
				if err != nil {
					return nil, err
				}
				x = f
			}
			if !iv.Range.Contains(x) {
				return nil, fmt.Errorf("%w: %s=%g not in %v", ErrOutOfRange, key, x, []float64(iv.Range))
			}
			resolved[key] = x
		case *variables.ImageInputVariable:
			img := iv.Current()
			if hasGiven {
				g, ok := given.(variables.Image)
				if !ok {
					return nil, fmt.Errorf("input %s must be an image, got %T", key, given)
				}
				img = g
			}
			resolved[key] = img
		default:
			return nil, fmt.Errorf("input %s has unsupported variable %T", key, v)
		}
	}
	return resolved, nil
}
