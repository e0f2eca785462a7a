// Package variables defines the typed input and output variables exchanged
// with surrogate models.
package variables

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// DefaultPrecision is applied when a variable does not set one.
const DefaultPrecision = 8

// Direction tells whether a variable feeds a model or is produced by it.
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
)

// Type is the variable_type discriminator.
type Type string

const (
	TypeScalar Type = "scalar"
	TypeImage  Type = "image"
)

var (
	ErrMissingField        = errors.New("missing required field")
	ErrInvalidRange        = errors.New("invalid range")
	ErrNotTwoDimensional   = errors.New("image array must have dim=2")
	ErrShapeMismatch       = errors.New("image shape mismatch")
	ErrUnknownVariableType = errors.New("variable type not defined")
	ErrDuplicateName       = errors.New("duplicate variable name")
)

// Variable is implemented by the four concrete variable types.
type Variable interface {
	VariableName() string
	VariableType() Type
	Direction() Direction
	Validate() error
}

// Range is the acceptable [lo, hi] interval of a variable.
type Range []float64

// NewRange returns the interval [lo, hi].
func NewRange(lo, hi float64) Range {
	return Range{lo, hi}
}

func (r Range) validate(required bool) error {
	if len(r) == 0 {
		if required {
			return fmt.Errorf("%w: range", ErrMissingField)
		}
		return nil
	}
	if len(r) != 2 {
		return fmt.Errorf("%w: expected 2 values, got %d", ErrInvalidRange, len(r))
	}
	if math.IsNaN(r[0]) || math.IsNaN(r[1]) {
		return fmt.Errorf("%w: NaN bound", ErrInvalidRange)
	}
	if r[0] > r[1] {
		return fmt.Errorf("%w: lower bound %g above upper bound %g", ErrInvalidRange, r[0], r[1])
	}
	return nil
}

// Contains reports whether v lies within the range. An unset range
// contains every value.
func (r Range) Contains(v float64) bool {
	if len(r) != 2 {
		return true
	}
	return v >= r[0] && v <= r[1]
}

func validateCommon(name string, precision int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	if precision < 0 {
		return fmt.Errorf("precision must not be negative, got %d", precision)
	}
	return nil
}

// marshalTagged prefixes the JSON object of plain with the variable_type and
// direction discriminators.
func marshalTagged(plain any, typ Type, dir Direction) ([]byte, error) {
	body, err := json.Marshal(plain)
	if err != nil {
		return nil, err
	}
	head := fmt.Sprintf(`{"variable_type":%q,"direction":%q`, typ, dir)
	if len(body) <= 2 {
		return []byte(head + "}"), nil
	}
	return append([]byte(head+","), body[1:]...), nil
}

func float64Ptr(v float64) *float64 {
	return &v
}
