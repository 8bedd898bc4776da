package wire

// Operation is a register operation.
type Operation uint8

const (
	// OpRead reads Count words starting at Address.
	OpRead Operation = 1

	// OpWrite writes Values starting at Address.
	OpWrite Operation = 2
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpRead:
		return "Read"
	case OpWrite:
		return "Write"
	default:
		return "Unknown"
	}
}

// IsValid returns true if o is a known operation.
func (o Operation) IsValid() bool {
	return o == OpRead || o == OpWrite
}
