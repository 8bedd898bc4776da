package log

import (
	"time"
)

// Event represents a module event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Device is the name of the device the module belongs to.
	Device string `cbor:"2,keyasint,omitempty"`

	// Module is the module instance name.
	Module string `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Type-specific payload (one of these will be set).
	Attribute *AttributeEvent `cbor:"10,keyasint,omitempty"`
	Options   *OptionsEvent   `cbor:"11,keyasint,omitempty"`
	Ownership *OwnershipEvent `cbor:"12,keyasint,omitempty"`
	Setup     *SetupEvent     `cbor:"13,keyasint,omitempty"`
	Error     *ErrorEventData `cbor:"14,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryAttribute indicates an attribute value change.
	CategoryAttribute Category = 0
	// CategoryOptions indicates a change of an attribute's allowed values.
	CategoryOptions Category = 1
	// CategoryOwnership indicates an owner transition.
	CategoryOwnership Category = 2
	// CategorySetup indicates a completed setup.
	CategorySetup Category = 3
	// CategoryError indicates a failed operation.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryAttribute:
		return "ATTRIBUTE"
	case CategoryOptions:
		return "OPTIONS"
	case CategoryOwnership:
		return "OWNERSHIP"
	case CategorySetup:
		return "SETUP"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory returns the category with the given name.
func ParseCategory(s string) (Category, bool) {
	for c := CategoryAttribute; c <= CategoryError; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// AttributeEvent captures an attribute write.
type AttributeEvent struct {
	// Name is the attribute name.
	Name string `cbor:"1,keyasint"`

	// Value is the new value.
	Value any `cbor:"2,keyasint"`
}

// OptionsEvent captures a change of allowed values.
type OptionsEvent struct {
	Name    string `cbor:"1,keyasint"`
	Options []any  `cbor:"2,keyasint"`
}

// OwnershipEvent captures an owner transition. Empty owners mean free.
type OwnershipEvent struct {
	OldOwner string `cbor:"1,keyasint,omitempty"`
	NewOwner string `cbor:"2,keyasint,omitempty"`
}

// SetupEvent captures a completed setup.
type SetupEvent struct {
	// Overrides are the values passed to setup (may be empty).
	Overrides map[string]any `cbor:"1,keyasint,omitempty"`

	// Duration is how long setup took. Stored as nanoseconds.
	Duration time.Duration `cbor:"2,keyasint"`
}

// ErrorEventData captures a failed module operation.
type ErrorEventData struct {
	// Operation describes what was being performed (e.g. "setup", "release").
	Operation string `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`
}
