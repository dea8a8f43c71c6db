package model

import (
	"fmt"
	"strconv"
)

// OptInt32 distinguishes "never initialized" from "explicitly zero" for
// fields like the pool tick, where downstream logic cares about the
// difference. The zero value is absent.
type OptInt32 struct {
	value int32
	set   bool
}

// SomeInt32 wraps a present value.
func SomeInt32(v int32) OptInt32 {
	return OptInt32{value: v, set: true}
}

// IsSet reports whether a value is present.
func (o OptInt32) IsSet() bool {
	return o.set
}

// Value returns the wrapped value and whether it is present.
func (o OptInt32) Value() (int32, bool) {
	return o.value, o.set
}

// OrZero returns the value, defaulting to zero when absent. The default is
// applied here, at the point of use, not in storage.
func (o OptInt32) OrZero() int32 {
	return o.value
}

func (o OptInt32) String() string {
	if !o.set {
		return "unset"
	}
	return strconv.FormatInt(int64(o.value), 10)
}

// MarshalJSON encodes absent values as null.
func (o OptInt32) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(int64(o.value), 10)), nil
}

// UnmarshalJSON decodes null as absent.
func (o *OptInt32) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = OptInt32{}
		return nil
	}
	parsed, err := strconv.ParseInt(string(data), 10, 32)
	if err != nil {
		return fmt.Errorf("parse optional int32: %w", err)
	}
	*o = SomeInt32(int32(parsed))
	return nil
}
