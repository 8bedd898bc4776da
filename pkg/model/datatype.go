package model

import (
	"errors"
	"fmt"
	"math"
)

// DataType is the value type of an attribute.
type DataType uint8

const (
	// DataTypeAny accepts any value the config store can hold.
	DataTypeAny DataType = iota
	DataTypeBool
	DataTypeInt
	DataTypeUint
	DataTypeFloat
	DataTypeString
	// DataTypeEnum accepts one of the attribute's current options.
	DataTypeEnum
)

// String returns the data type name.
func (d DataType) String() string {
	names := []string{"any", "bool", "int", "uint", "float", "string", "enum"}
	if int(d) < len(names) {
		return names[d]
	}
	return "unknown"
}

// Value errors.
var (
	ErrValueType     = errors.New("invalid value type for attribute")
	ErrOutOfRange    = errors.New("value out of range")
	ErrInvalidOption = errors.New("value is not an allowed option")
)

// coerce converts v to the canonical Go type of d: bool, int64, uint64,
// float64 or string. Integral floats are accepted for integer types since
// config files do not keep the distinction.
func coerce(d DataType, v any) (any, error) {
	switch d {
	case DataTypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("%w: expected bool, got %T", ErrValueType, v)
	case DataTypeInt:
		return toInt64(v)
	case DataTypeUint:
		return toUint64(v)
	case DataTypeFloat:
		if f, ok := toFloat64(v); ok {
			return f, nil
		}
		return nil, fmt.Errorf("%w: expected float, got %T", ErrValueType, v)
	case DataTypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("%w: expected string, got %T", ErrValueType, v)
	default:
		return v, nil
	}
}

// checkRange validates numeric range constraints.
func checkRange(value, min, max any) error {
	v, ok := toFloat64(value)
	if !ok {
		return nil
	}

	if min != nil {
		lo, _ := toFloat64(min)
		if v < lo {
			return fmt.Errorf("%w: %v < %v", ErrOutOfRange, value, min)
		}
	}
	if max != nil {
		hi, _ := toFloat64(max)
		if v > hi {
			return fmt.Errorf("%w: %v > %v", ErrOutOfRange, value, max)
		}
	}
	return nil
}

// optionIndex returns the index of v in options, or -1. Numbers compare by
// value regardless of their Go type.
func optionIndex(options []any, v any) int {
	fv, numeric := toFloat64(v)
	for i, o := range options {
		if numeric {
			if fo, ok := toFloat64(o); ok && fo == fv {
				return i
			}
			continue
		}
		if isComparable(o) && isComparable(v) && o == v {
			return i
		}
	}
	return -1
}

func isComparable(v any) bool {
	switch v.(type) {
	case nil, bool, string:
		return true
	default:
		_, ok := toFloat64(v)
		return ok
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return toInt64(uint64(n))
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrOutOfRange, n)
		}
		return int64(n), nil
	case float32:
		return toInt64(float64(n))
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: expected integer, got %v", ErrValueType, n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: expected integer, got %T", ErrValueType, v)
	}
}

func toUint64(v any) (uint64, error) {
	if n, ok := v.(uint64); ok {
		return n, nil
	}
	if n, ok := v.(uint); ok {
		return uint64(n), nil
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrOutOfRange, i)
	}
	return uint64(i), nil
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
