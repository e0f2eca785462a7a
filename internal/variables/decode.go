package variables

import (
	"encoding/json"
	"fmt"
)

// Decode builds a variable from its JSON form. The variable type is read
// from "variable_type" or "type"; "value_range" is accepted as an alias of
// "range" and a missing precision defaults to DefaultPrecision. The result
// is validated.
func Decode(dir Direction, raw []byte) (Variable, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("variable must be an object: %w", err)
	}

	typ, err := discriminator(fields)
	if err != nil {
		return nil, err
	}
	if d, ok := fields["direction"]; ok {
		var got Direction
		if err := json.Unmarshal(d, &got); err != nil || got != dir {
			return nil, fmt.Errorf("variable direction %s does not match %s", string(d), dir)
		}
	}
	delete(fields, "variable_type")
	delete(fields, "type")
	delete(fields, "direction")

	if alias, ok := fields["value_range"]; ok {
		if _, hasRange := fields["range"]; !hasRange {
			fields["range"] = alias
		}
		delete(fields, "value_range")
	}
	if _, ok := fields["precision"]; !ok {
		fields["precision"] = json.RawMessage(fmt.Sprint(DefaultPrecision))
	}

	normalized, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	var v Variable
	switch {
	case typ == TypeScalar && dir == Input:
		v = &ScalarInputVariable{}
	case typ == TypeScalar && dir == Output:
		v = &ScalarOutputVariable{}
	case typ == TypeImage && dir == Input:
		v = &ImageInputVariable{}
	case typ == TypeImage && dir == Output:
		v = &ImageOutputVariable{}
	default:
		return nil, fmt.Errorf("unknown direction %q", dir)
	}

	if err := json.Unmarshal(normalized, v); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s variable: %w", typ, dir, err)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeMap is Decode for an already parsed object, such as one read from
// YAML.
func DecodeMap(dir Direction, fields map[string]any) (Variable, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode variable: %w", err)
	}
	return Decode(dir, raw)
}

func discriminator(fields map[string]json.RawMessage) (Type, error) {
	raw, ok := fields["variable_type"]
	if !ok {
		raw, ok = fields["type"]
	}
	if !ok {
		return "", fmt.Errorf("%w: type", ErrMissingField)
	}
	var typ Type
	if err := json.Unmarshal(raw, &typ); err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownVariableType, string(raw))
	}
	switch typ {
	case TypeScalar, TypeImage:
		return typ, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownVariableType, typ)
	}
}
