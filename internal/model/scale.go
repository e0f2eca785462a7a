package model

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/open-edge-platform/lume-model/internal/variables"
)

const ScaleModelClass = "lume_model.ScaleModel"

func init() {
	Register(ScaleModelClass, NewScaleModel)
	RegisterLayer("lume_model.layers.Identity", func(x float64) float64 { return x })
	RegisterLayer("lume_model.layers.Abs", math.Abs)
	RegisterLayer("lume_model.layers.ReLU", func(x float64) float64 { return math.Max(0, x) })
}

// ScaleModel multiplies its inputs by a constant factor. Scalar outputs
// pair with scalar inputs and image outputs with image inputs, in
// declaration order. Custom layers are applied to each result in the
// order of their names.
type ScaleModel struct {
	inputs  *variables.Collection
	outputs *variables.Collection
	factor  float64
	layers  []Layer
}

// NewScaleModel is the Factory of ScaleModel. The factor kwarg defaults
// to 2.
func NewScaleModel(_ context.Context, kw Kwargs) (SurrogateModel, error) {
	factor, err := kw.Float("factor", 2)
	if err != nil {
		return nil, err
	}
	if kw.InputVariables == nil || kw.OutputVariables == nil {
		return nil, fmt.Errorf("scale model needs input and output variables")
	}

	in := countByType(kw.InputVariables)
	out := countByType(kw.OutputVariables)
	for _, typ := range []variables.Type{variables.TypeScalar, variables.TypeImage} {
		if out[typ] > in[typ] {
			return nil, fmt.Errorf("scale model has %d %s outputs but only %d %s inputs", out[typ], typ, in[typ], typ)
		}
	}

	names := make([]string, 0, len(kw.CustomLayers))
	for name := range kw.CustomLayers {
		names = append(names, name)
	}
	sort.Strings(names)
	m := &ScaleModel{inputs: kw.InputVariables, outputs: kw.OutputVariables, factor: factor}
	for _, name := range names {
		m.layers = append(m.layers, kw.CustomLayers[name])
	}
	return m, nil
}

func countByType(c *variables.Collection) map[variables.Type]int {
	counts := make(map[variables.Type]int)
	for _, v := range c.Values() {
		counts[v.VariableType()]++
	}
	return counts
}

func (m *ScaleModel) InputVariables() *variables.Collection  { return m.inputs }
func (m *ScaleModel) OutputVariables() *variables.Collection { return m.outputs }

// Factor returns the scale factor.
func (m *ScaleModel) Factor() float64 { return m.factor }

func (m *ScaleModel) apply(x float64) float64 {
	x *= m.factor
	for _, l := range m.layers {
		x = l(x)
	}
	return x
}

func (m *ScaleModel) Evaluate(ctx context.Context, inputs Values) (Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resolved, err := resolveInputs(m.inputs, inputs)
	if err != nil {
		return nil, err
	}

	var scalars []float64
	var images []variables.Image
	for _, key := range m.inputs.Keys() {
		switch x := resolved[key].(type) {
		case float64:
			scalars = append(scalars, x)
		case variables.Image:
			images = append(images, x)
		}
	}

	out := make(Values, m.outputs.Len())
	for _, key := range m.outputs.Keys() {
		v, _ := m.outputs.Get(key)
		switch ov := v.(type) {
		case *variables.ScalarOutputVariable:
			y := m.apply(scalars[0])
			scalars = scalars[1:]
			ov.SetValue(y)
			out[key] = y
		case *variables.ImageOutputVariable:
			src := images[0]
			images = images[1:]
			data := make([]float64, src.Len())
			for i, x := range src.Data() {
				data[i] = m.apply(x)
			}
			shape := src.Shape()
			img, err := variables.NewImageFromData(shape[0], shape[1], data)
			if err != nil {
				return nil, err
			}
			ov.SetValue(img)
			out[key] = img
		default:
			return nil, fmt.Errorf("output %s has unsupported variable %T", key, v)
		}
	}
	return out, nil
}
