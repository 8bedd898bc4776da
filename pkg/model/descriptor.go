package model

import (
	"fmt"
	"math"

	"github.com/ograsdijk/pyrpl/pkg/register"
)

// Descriptor declares one attribute of a module type. A descriptor is bound
// to exactly one field name by ModuleType.Register and must not be modified
// afterwards. Per-instance values live in the Module, never here.
type Descriptor struct {
	// Doc is the help text. Docs starting with "_" are hidden from Help.
	Doc string

	// Type is the value type. Values are converted to its canonical Go
	// type before they are stored.
	Type DataType

	// Default is the initial value of attributes without a register.
	Default any

	// Min and Max bound numeric values.
	Min any
	Max any

	// Options are the allowed values of an enum attribute. Modules may
	// replace them per instance with SetOptions.
	Options []any

	// Coerce optionally validates or normalizes a value after type
	// conversion.
	Coerce func(v any) (any, error)

	// Register backs the attribute with a hardware register instead of
	// module memory.
	Register *RegisterBinding

	name  string
	owner *ModuleType
}

// Name returns the field name the descriptor is bound to.
func (d *Descriptor) Name() string {
	return d.name
}

// Owner returns the declaring module type, or nil if unbound.
func (d *Descriptor) Owner() *ModuleType {
	return d.owner
}

// Validate converts v to the descriptor's type and checks its constraints.
// Enum options are checked by the module since they may vary per instance.
func (d *Descriptor) Validate(v any) (any, error) {
	out, err := coerce(d.Type, v)
	if err != nil {
		return nil, err
	}
	if d.Coerce != nil {
		if out, err = d.Coerce(out); err != nil {
			return nil, err
		}
	}
	if d.Min != nil || d.Max != nil {
		if err := checkRange(out, d.Min, d.Max); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// RegisterBinding maps an attribute onto a bit field of a register word.
type RegisterBinding struct {
	// Offset is the word offset from the module's register base.
	Offset uint32

	// Field selects the bits. A zero Width means a signed field of
	// register.DefaultBitLength bits at bit 0.
	Field register.Field

	// Norm scales float attributes: value = raw / Norm. Zero means 1.
	Norm float64

	// Shared marks words holding other fields too. Writes then
	// read-modify-write the word instead of replacing it.
	Shared bool
}

func (b *RegisterBinding) field() register.Field {
	if b.Field.Width == 0 {
		return register.Field{Width: register.DefaultBitLength, Signed: true}
	}
	return b.Field
}

func (b *RegisterBinding) norm() float64 {
	if b.Norm == 0 {
		return 1
	}
	return b.Norm
}

// decode turns a raw field value into an attribute value.
func (d *Descriptor) decode(raw int64) (any, error) {
	switch d.Type {
	case DataTypeBool:
		return raw != 0, nil
	case DataTypeUint:
		return uint64(raw), nil
	case DataTypeFloat:
		return float64(raw) / d.Register.norm(), nil
	case DataTypeEnum:
		if raw < 0 || raw >= int64(len(d.Options)) {
			return nil, fmt.Errorf("%w: register holds %d", ErrInvalidOption, raw)
		}
		return d.Options[raw], nil
	default:
		return raw, nil
	}
}

// encode turns a validated attribute value into a raw field value.
func (d *Descriptor) encode(v any) (int64, error) {
	switch d.Type {
	case DataTypeBool:
		if v.(bool) {
			return 1, nil
		}
		return 0, nil
	case DataTypeInt:
		return v.(int64), nil
	case DataTypeUint:
		return int64(v.(uint64)), nil
	case DataTypeFloat:
		return int64(math.Round(v.(float64) * d.Register.norm())), nil
	case DataTypeEnum:
		i := optionIndex(d.Options, v)
		if i < 0 {
			return 0, fmt.Errorf("%w: %v", ErrInvalidOption, v)
		}
		return int64(i), nil
	default:
		return 0, fmt.Errorf("%w: %s attributes cannot be register backed", ErrValueType, d.Type)
	}
}
