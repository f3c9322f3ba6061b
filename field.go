package rat

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldType identifies which of the supported scalar column types a Field stores
type FieldType int

const (
	// FieldBool stores a boolean per row
	FieldBool FieldType = iota
	// FieldInt stores an int64 per row
	FieldInt
	// FieldFloat stores a float64 per row
	FieldFloat
	// FieldString stores a variable-length string per row
	FieldString
)

var fieldTypeNames = []string{"bool", "int", "float", "string"}

// String returns the lower-case name of this FieldType
func (t FieldType) String() string {
	if t < FieldBool || t > FieldString {
		return "unknown"
	}
	return fieldTypeNames[t]
}

// ParseFieldType converts a name produced by FieldType.String() back into a FieldType
func ParseFieldType(s string) (FieldType, error) {
	for i, name := range fieldTypeNames {
		if strings.EqualFold(s, name) {
			return FieldType(i), nil
		}
	}
	return FieldBool, fmt.Errorf("Unknown field type %q", s)
}

// Field describes a single named, typed column of a Table
type Field struct {
	Name   string    // Name of the column, unique within a Table
	Type   FieldType // Type of the values stored in the column
	Usage  string    // Usage is a free-form hint, e.g. "PixelCount" or "Generic"
	Index  int       // Index of this column amongst the columns of the same type
	ColNum int       // ColNum is the global index of this column within a Table
}

// Value is a single value of one of the supported FieldTypes. Exactly
// one of the payload members is meaningful, as selected by Type.
type Value struct {
	Type   FieldType
	Bool   bool
	Int    int64
	Float  float64
	String string
}

// BoolValue wraps a bool as a Value
func BoolValue(v bool) Value { return Value{Type: FieldBool, Bool: v} }

// IntValue wraps an int64 as a Value
func IntValue(v int64) Value { return Value{Type: FieldInt, Int: v} }

// FloatValue wraps a float64 as a Value
func FloatValue(v float64) Value { return Value{Type: FieldFloat, Float: v} }

// StringValue wraps a string as a Value
func StringValue(v string) Value { return Value{Type: FieldString, String: v} }

// ToString produces a string representation of this Value
func (v Value) ToString() string {
	switch v.Type {
	case FieldBool:
		return strconv.FormatBool(v.Bool)
	case FieldInt:
		return strconv.FormatInt(v.Int, 10)
	case FieldFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case FieldString:
		return strconv.Quote(v.String)
	default:
		return "<invalid>"
	}
}

// ParseValue parses a textual representation of a value of type t
func ParseValue(t FieldType, s string) (Value, error) {
	switch t {
	case FieldBool:
		b, err := strconv.ParseBool(s)
		return BoolValue(b), err
	case FieldInt:
		i, err := strconv.ParseInt(s, 10, 64)
		return IntValue(i), err
	case FieldFloat:
		f, err := strconv.ParseFloat(s, 64)
		return FloatValue(f), err
	case FieldString:
		return StringValue(s), nil
	default:
		return Value{}, fmt.Errorf("Cannot parse value for unknown field type %d", t)
	}
}
