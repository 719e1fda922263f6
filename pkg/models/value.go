package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueState tells whether a Value is absent, explicitly null or a number
type ValueState int

const (
	StateUndefined ValueState = iota
	StateNull
	StateNumber
)

// Value is a numeric field that may be absent or explicitly null.
// The zero Value is undefined.
type Value struct {
	state  ValueState
	number float64
}

func Undefined() Value { return Value{} }

func Null() Value { return Value{state: StateNull} }

func Number(f float64) Value { return Value{state: StateNumber, number: f} }

func (v Value) State() ValueState { return v.state }
func (v Value) IsUndefined() bool { return v.state == StateUndefined }
func (v Value) IsNull() bool      { return v.state == StateNull }
func (v Value) IsNumber() bool    { return v.state == StateNumber }

// IsZero reports whether the value is undefined. Used by `omitzero`.
func (v Value) IsZero() bool { return v.state == StateUndefined }

// Float returns the number and true, or 0 and false when not a number
func (v Value) Float() (float64, bool) {
	if v.state != StateNumber {
		return 0, false
	}
	return v.number, true
}

// OrZero returns the number, treating undefined and null as 0
func (v Value) OrZero() float64 {
	if v.state != StateNumber {
		return 0
	}
	return v.number
}

// Equal reports whether both values have the same state and number
func (v Value) Equal(o Value) bool {
	return v.state == o.state && v.number == o.number
}

func (v Value) String() string {
	switch v.state {
	case StateNull:
		return "null"
	case StateNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	default:
		return "undefined"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.state {
	case StateNumber:
		return json.Marshal(v.number)
	default:
		// undefined fields are dropped via omitzero; inside slices they read as null
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Null()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("value is not a number: %s", string(data))
	}
	*v = Number(f)
	return nil
}
