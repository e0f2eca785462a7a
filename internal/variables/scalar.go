package variables

import "fmt"

// ScalarAttributes are shared by scalar inputs and outputs.
type ScalarAttributes struct {
	// Units is required by some output displays.
	Units string `json:"units,omitempty"`
	// ParentVariable names the variable this one is an attribute of.
	ParentVariable string `json:"parent_variable,omitempty"`
}

// ScalarInputVariable is a scalar fed to a model. Default and Range are
// required.
type ScalarInputVariable struct {
	Name       string   `json:"name"`
	Value      *float64 `json:"value,omitempty"`
	Precision  int      `json:"precision"`
	Default    *float64 `json:"default"`
	Range      Range    `json:"range"`
	IsConstant bool     `json:"is_constant,omitempty"`
	ScalarAttributes
}

// NewScalarInput returns a scalar input with the default precision.
func NewScalarInput(name string, def float64, valueRange Range) *ScalarInputVariable {
	return &ScalarInputVariable{
		Name:      name,
		Precision: DefaultPrecision,
		Default:   float64Ptr(def),
		Range:     valueRange,
	}
}

func (v *ScalarInputVariable) VariableName() string { return v.Name }
func (v *ScalarInputVariable) VariableType() Type   { return TypeScalar }
func (v *ScalarInputVariable) Direction() Direction { return Input }

func (v *ScalarInputVariable) Validate() error {
	if err := validateCommon(v.Name, v.Precision); err != nil {
		return err
	}
	if v.Default == nil {
		return fmt.Errorf("%w: default", ErrMissingField)
	}
	return v.Range.validate(true)
}

// SetValue assigns the current value.
func (v *ScalarInputVariable) SetValue(x float64) {
	v.Value = float64Ptr(x)
}

// Current returns the assigned value, falling back to the default.
func (v *ScalarInputVariable) Current() float64 {
	if v.Value != nil {
		return *v.Value
	}
	if v.Default != nil {
		return *v.Default
	}
	return 0
}

// MakeConstant pins the range to the default value.
func (v *ScalarInputVariable) MakeConstant() {
	v.IsConstant = true
	if v.Default != nil {
		v.Range = NewRange(*v.Default, *v.Default)
	}
}

func (v ScalarInputVariable) MarshalJSON() ([]byte, error) {
	type plain ScalarInputVariable
	return marshalTagged(plain(v), TypeScalar, Input)
}

// ScalarOutputVariable is a scalar produced by a model. Only the name is
// required.
type ScalarOutputVariable struct {
	Name      string   `json:"name"`
	Value     *float64 `json:"value,omitempty"`
	Precision int      `json:"precision"`
	Default   *float64 `json:"default,omitempty"`
	Range     Range    `json:"range,omitempty"`
	ScalarAttributes
}

// NewScalarOutput returns a scalar output with the default precision.
func NewScalarOutput(name string) *ScalarOutputVariable {
	return &ScalarOutputVariable{Name: name, Precision: DefaultPrecision}
}

func (v *ScalarOutputVariable) VariableName() string { return v.Name }
func (v *ScalarOutputVariable) VariableType() Type   { return TypeScalar }
func (v *ScalarOutputVariable) Direction() Direction { return Output }

func (v *ScalarOutputVariable) Validate() error {
	if err := validateCommon(v.Name, v.Precision); err != nil {
		return err
	}
	return v.Range.validate(false)
}

// SetValue assigns the current value.
func (v *ScalarOutputVariable) SetValue(x float64) {
	v.Value = float64Ptr(x)
}

func (v ScalarOutputVariable) MarshalJSON() ([]byte, error) {
	type plain ScalarOutputVariable
	return marshalTagged(plain(v), TypeScalar, Output)
}
