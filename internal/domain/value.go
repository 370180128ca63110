// Package domain defines the typed value model, rows, artifacts, and errors
// shared by the storage, registry, and query layers.
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// DataType enumerates the column types a schema may declare.
type DataType string

const (
	TypeInt     DataType = "Int"
	TypeFloat   DataType = "Float"
	TypeString  DataType = "String"
	TypeBoolean DataType = "Boolean"
)

// ParseDataType maps a schema type token to a DataType.
func ParseDataType(token string) (DataType, error) {
	switch DataType(token) {
	case TypeInt, TypeFloat, TypeString, TypeBoolean:
		return DataType(token), nil
	default:
		return "", ErrSchema("unknown data type %q (want Int, Float, String, or Boolean)", token)
	}
}

// Value is a tagged union over the four supported primitive types.
// The zero Value is invalid; construct through IntValue and friends.
//
// The wire form is an object with exactly one key naming the variant:
// {"Int": 5}, {"Float": 1.5}, {"String": "x"}, {"Boolean": true}.
type Value struct {
	kind DataType
	i    int64
	f    float64
	s    string
	b    bool
}

// IntValue returns an Int-typed value.
func IntValue(v int64) Value { return Value{kind: TypeInt, i: v} }

// FloatValue returns a Float-typed value.
func FloatValue(v float64) Value { return Value{kind: TypeFloat, f: v} }

// StringValue returns a String-typed value.
func StringValue(v string) Value { return Value{kind: TypeString, s: v} }

// BoolValue returns a Boolean-typed value.
func BoolValue(v bool) Value { return Value{kind: TypeBoolean, b: v} }

// Kind reports the value's runtime variant.
func (v Value) Kind() DataType { return v.kind }

// Int returns the Int payload. Callers must check Kind first.
func (v Value) Int() int64 { return v.i }

// Float returns the Float payload.
func (v Value) Float() float64 { return v.f }

// Str returns the String payload.
func (v Value) Str() string { return v.s }

// Bool returns the Boolean payload.
func (v Value) Bool() bool { return v.b }

// Is reports whether the value's variant matches the declared column type.
func (v Value) Is(t DataType) bool { return v.kind == t }

func (v Value) String() string {
	switch v.kind {
	case TypeInt:
		return fmt.Sprintf("Int(%d)", v.i)
	case TypeFloat:
		return fmt.Sprintf("Float(%g)", v.f)
	case TypeString:
		return fmt.Sprintf("String(%q)", v.s)
	case TypeBoolean:
		return fmt.Sprintf("Boolean(%t)", v.b)
	default:
		return "Value(invalid)"
	}
}

// MarshalJSON renders the single-key tagged form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case TypeInt:
		return json.Marshal(map[string]int64{"Int": v.i})
	case TypeFloat:
		return json.Marshal(map[string]float64{"Float": v.f})
	case TypeString:
		return json.Marshal(map[string]string{"String": v.s})
	case TypeBoolean:
		return json.Marshal(map[string]bool{"Boolean": v.b})
	default:
		return nil, fmt.Errorf("marshal invalid value")
	}
}

// UnmarshalJSON parses the single-key tagged form. Int payloads are parsed
// as exact 64-bit integers; a fractional Int payload is rejected rather
// than truncated.
func (v *Value) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("value must be a tagged object: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("value must have exactly one variant key, got %d", len(tagged))
	}
	for tag, raw := range tagged {
		switch DataType(tag) {
		case TypeInt:
			n, err := strconv.ParseInt(string(raw), 10, 64)
			if err != nil {
				return fmt.Errorf("Int payload %s is not a 64-bit integer", raw)
			}
			*v = IntValue(n)
		case TypeFloat:
			f, err := strconv.ParseFloat(string(raw), 64)
			if err != nil {
				return fmt.Errorf("Float payload %s is not a number", raw)
			}
			*v = FloatValue(f)
		case TypeString:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("String payload is not a string: %w", err)
			}
			*v = StringValue(s)
		case TypeBoolean:
			var b bool
			if err := json.Unmarshal(raw, &b); err != nil {
				return fmt.Errorf("Boolean payload is not a bool: %w", err)
			}
			*v = BoolValue(b)
		default:
			return fmt.Errorf("unknown value variant %q", tag)
		}
	}
	return nil
}
