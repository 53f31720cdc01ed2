package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// FieldKind identifies which variant a FieldValue holds.
type FieldKind uint8

const (
	// FieldKindInvalid is the zero FieldValue. It never round-trips.
	FieldKindInvalid FieldKind = iota
	FieldKindText
	FieldKindNumber
	FieldKindBool
)

func (k FieldKind) String() string {
	switch k {
	case FieldKindText:
		return "text"
	case FieldKindNumber:
		return "number"
	case FieldKindBool:
		return "bool"
	case FieldKindInvalid:
		return "invalid"
	}
	return fmt.Sprintf("FieldKind(%d)", uint8(k))
}

// ErrInvalidFieldValue is returned when a custom field value is not text, a
// number or a boolean.
var ErrInvalidFieldValue = errors.New("custom field value must be text, number or bool")

// FieldValue holds exactly one of text, number or bool.
type FieldValue struct {
	kind    FieldKind
	text    string
	number  float64
	boolean bool
}

// TextValue returns a text FieldValue.
func TextValue(s string) FieldValue {
	return FieldValue{kind: FieldKindText, text: s}
}

// NumberValue returns a numeric FieldValue.
func NumberValue(n float64) FieldValue {
	return FieldValue{kind: FieldKindNumber, number: n}
}

// BoolValue returns a boolean FieldValue.
func BoolValue(b bool) FieldValue {
	return FieldValue{kind: FieldKindBool, boolean: b}
}

func (v FieldValue) Kind() FieldKind {
	return v.kind
}

func (v FieldValue) IsValid() bool {
	return v.kind != FieldKindInvalid
}

func (v FieldValue) Text() (string, bool) {
	return v.text, v.kind == FieldKindText
}

func (v FieldValue) Number() (float64, bool) {
	return v.number, v.kind == FieldKindNumber
}

func (v FieldValue) Bool() (bool, bool) {
	return v.boolean, v.kind == FieldKindBool
}

// Interface returns the held value as a plain Go scalar.
func (v FieldValue) Interface() (any, error) {
	switch v.kind {
	case FieldKindText:
		return v.text, nil
	case FieldKindNumber:
		return v.number, nil
	case FieldKindBool:
		return v.boolean, nil
	case FieldKindInvalid:
		return nil, ErrInvalidFieldValue
	}
	return nil, fmt.Errorf("%w: unknown kind %s", ErrInvalidFieldValue, v.kind)
}

func (v FieldValue) String() string {
	switch v.kind {
	case FieldKindText:
		return v.text
	case FieldKindNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case FieldKindBool:
		return strconv.FormatBool(v.boolean)
	case FieldKindInvalid:
		return "<invalid>"
	}
	return "<unknown>"
}

// fieldValueFrom converts a decoded scalar into a FieldValue.
func fieldValueFrom(raw any) (FieldValue, error) {
	switch x := raw.(type) {
	case string:
		return TextValue(x), nil
	case bool:
		return BoolValue(x), nil
	case float64:
		return NumberValue(x), nil
	case float32:
		return NumberValue(float64(x)), nil
	case int64:
		return NumberValue(float64(x)), nil
	case uint64:
		return NumberValue(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return FieldValue{}, fmt.Errorf("%w: %v", ErrInvalidFieldValue, err)
		}
		return NumberValue(f), nil
	}
	return FieldValue{}, fmt.Errorf("%w: got %T", ErrInvalidFieldValue, raw)
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	raw, err := v.Interface()
	if err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	fv, err := fieldValueFrom(raw)
	if err != nil {
		return err
	}
	*v = fv
	return nil
}

func (v FieldValue) MarshalCBOR() ([]byte, error) {
	raw, err := v.Interface()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(raw)
}

func (v *FieldValue) UnmarshalCBOR(data []byte) error {
	var raw any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	fv, err := fieldValueFrom(raw)
	if err != nil {
		return err
	}
	*v = fv
	return nil
}
