package types

import (
	"encoding/json"
	"fmt"
)

// ValueKind discriminates the payload held by a Value.
type ValueKind int

// Value kinds. A zero Value is numeric zero.
const (
	KindNumeric ValueKind = iota
	KindText
	KindStructured
)

// Value is the tagged payload of a data point. A point carries exactly one of
// a numeric reading, a free-form string, or a structured key/value record.
type Value struct {
	kind ValueKind
	num  float64
	text string
	obj  map[string]any
}

// NumericValue wraps a float reading.
func NumericValue(n float64) Value {
	return Value{kind: KindNumeric, num: n}
}

// TextValue wraps a string payload.
func TextValue(s string) Value {
	return Value{kind: KindText, text: s}
}

// StructuredValue wraps a key/value record. The map is held by reference.
func StructuredValue(m map[string]any) Value {
	return Value{kind: KindStructured, obj: m}
}

// Kind returns the payload discriminator.
func (v Value) Kind() ValueKind { return v.kind }

// IsNumeric reports whether the value holds a float reading.
func (v Value) IsNumeric() bool { return v.kind == KindNumeric }

// IsText reports whether the value holds a string payload.
func (v Value) IsText() bool { return v.kind == KindText }

// IsStructured reports whether the value holds a key/value record.
func (v Value) IsStructured() bool { return v.kind == KindStructured }

// Numeric returns the float reading and whether the value holds one.
func (v Value) Numeric() (float64, bool) {
	if v.kind != KindNumeric {
		return 0, false
	}
	return v.num, true
}

// Text returns the string payload and whether the value holds one.
func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// Structured returns the key/value record and whether the value holds one.
// The returned map is shared with the value, not copied.
func (v Value) Structured() (map[string]any, bool) {
	if v.kind != KindStructured {
		return nil, false
	}
	return v.obj, true
}

// Raw returns the payload as an untyped value, mirroring the JSON encoding.
func (v Value) Raw() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindStructured:
		return v.obj
	default:
		return v.num
	}
}

// MarshalJSON encodes the payload without a wrapper object, so a numeric
// value serializes as a bare number, text as a string, and structured as an
// object.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw())
}

// UnmarshalJSON decodes a bare number, string, or object into the matching
// kind. Arrays, booleans, and null are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case float64:
		*v = NumericValue(t)
	case string:
		*v = TextValue(t)
	case map[string]any:
		*v = StructuredValue(t)
	default:
		return fmt.Errorf("value must be a number, string, or object, got %T", raw)
	}
	return nil
}
