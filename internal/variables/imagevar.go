package variables

import (
	"fmt"
	"strings"
)

// ImageAttributes describe how an image variable is rendered.
type ImageAttributes struct {
	AxisLabels []string `json:"axis_labels"`
	Shape      []int    `json:"shape"`
	AxisUnits  []string `json:"axis_units,omitempty"`

	XMin *float64 `json:"x_min,omitempty"`
	XMax *float64 `json:"x_max,omitempty"`
	YMin *float64 `json:"y_min,omitempty"`
	YMax *float64 `json:"y_max,omitempty"`

	XMinVariable string `json:"x_min_variable,omitempty"`
	XMaxVariable string `json:"x_max_variable,omitempty"`
	YMinVariable string `json:"y_min_variable,omitempty"`
	YMaxVariable string `json:"y_max_variable,omitempty"`
}

// SetExtent sets the x and y bounds of the image.
func (a *ImageAttributes) SetExtent(xMin, xMax, yMin, yMax float64) {
	a.XMin, a.XMax = float64Ptr(xMin), float64Ptr(xMax)
	a.YMin, a.YMax = float64Ptr(yMin), float64Ptr(yMax)
}

func (a ImageAttributes) validate(images ...*Image) error {
	if len(a.AxisLabels) == 0 {
		return fmt.Errorf("%w: axis_labels", ErrMissingField)
	}
	for i, l := range a.AxisLabels {
		if strings.TrimSpace(l) == "" {
			return fmt.Errorf("%w: axis_labels[%d] is empty", ErrMissingField, i)
		}
	}
	if len(a.Shape) == 0 {
		return fmt.Errorf("%w: shape", ErrMissingField)
	}
	if len(a.Shape) != 2 {
		return fmt.Errorf("%w. Shape has %d dimensions", ErrNotTwoDimensional, len(a.Shape))
	}
	for _, img := range images {
		if img == nil {
			continue
		}
		s := img.Shape()
		if s[0] != a.Shape[0] || s[1] != a.Shape[1] {
			return fmt.Errorf("%w: array is (%d, %d), shape is (%d, %d)", ErrShapeMismatch, s[0], s[1], a.Shape[0], a.Shape[1])
		}
	}
	if a.XMin != nil && a.XMax != nil && *a.XMin > *a.XMax {
		return fmt.Errorf("x_min %g above x_max %g", *a.XMin, *a.XMax)
	}
	if a.YMin != nil && a.YMax != nil && *a.YMin > *a.YMax {
		return fmt.Errorf("y_min %g above y_max %g", *a.YMin, *a.YMax)
	}
	return nil
}

// ImageInputVariable is an image fed to a model. Default, Range, AxisLabels
// and Shape are required.
type ImageInputVariable struct {
	Name       string `json:"name"`
	Value      *Image `json:"value,omitempty"`
	Precision  int    `json:"precision"`
	Default    *Image `json:"default"`
	Range      Range  `json:"range"`
	IsConstant bool   `json:"is_constant,omitempty"`
	ImageAttributes
}

// NewImageInput returns an image input whose shape follows def.
func NewImageInput(name string, def Image, valueRange Range, axisLabels []string) *ImageInputVariable {
	return &ImageInputVariable{
		Name:      name,
		Precision: DefaultPrecision,
		Default:   &def,
		Range:     valueRange,
		ImageAttributes: ImageAttributes{
			AxisLabels: axisLabels,
			Shape:      def.Shape(),
		},
	}
}

func (v *ImageInputVariable) VariableName() string { return v.Name }
func (v *ImageInputVariable) VariableType() Type   { return TypeImage }
func (v *ImageInputVariable) Direction() Direction { return Input }

func (v *ImageInputVariable) Validate() error {
	if err := validateCommon(v.Name, v.Precision); err != nil {
		return err
	}
	if v.Default == nil {
		return fmt.Errorf("%w: default", ErrMissingField)
	}
	if err := v.Range.validate(true); err != nil {
		return err
	}
	return v.ImageAttributes.validate(v.Default, v.Value)
}

// SetValue assigns the current value.
func (v *ImageInputVariable) SetValue(img Image) {
	v.Value = &img
}

// Current returns the assigned value, falling back to the default.
func (v *ImageInputVariable) Current() Image {
	if v.Value != nil {
		return *v.Value
	}
	if v.Default != nil {
		return *v.Default
	}
	return Image{}
}

// MakeConstant pins the range to the extremes of the default image.
func (v *ImageInputVariable) MakeConstant() {
	v.IsConstant = true
	if v.Default != nil && v.Default.Len() > 0 {
		v.Range = NewRange(v.Default.Min(), v.Default.Max())
	}
}

func (v ImageInputVariable) MarshalJSON() ([]byte, error) {
	type plain ImageInputVariable
	return marshalTagged(plain(v), TypeImage, Input)
}

// ImageOutputVariable is an image produced by a model. AxisLabels and Shape
// are required.
type ImageOutputVariable struct {
	Name      string `json:"name"`
	Value     *Image `json:"value,omitempty"`
	Precision int    `json:"precision"`
	Default   *Image `json:"default,omitempty"`
	Range     Range  `json:"range,omitempty"`
	ImageAttributes
}

// NewImageOutput returns an image output of the given shape.
func NewImageOutput(name string, shape []int, axisLabels []string) *ImageOutputVariable {
	return &ImageOutputVariable{
		Name:      name,
		Precision: DefaultPrecision,
		ImageAttributes: ImageAttributes{
			AxisLabels: axisLabels,
			Shape:      shape,
		},
	}
}

func (v *ImageOutputVariable) VariableName() string { return v.Name }
func (v *ImageOutputVariable) VariableType() Type   { return TypeImage }
func (v *ImageOutputVariable) Direction() Direction { return Output }

func (v *ImageOutputVariable) Validate() error {
	if err := validateCommon(v.Name, v.Precision); err != nil {
		return err
	}
	if err := v.Range.validate(false); err != nil {
		return err
	}
	return v.ImageAttributes.validate(v.Default, v.Value)
}

// SetValue assigns the current value.
func (v *ImageOutputVariable) SetValue(img Image) {
	v.Value = &img
}

func (v ImageOutputVariable) MarshalJSON() ([]byte, error) {
	type plain ImageOutputVariable
	return marshalTagged(plain(v), TypeImage, Output)
}
