package bus

import (
	"errors"
	"fmt"
)

// WordSize is the distance in bytes between consecutive register words.
const WordSize = 4

// ErrTransport is matched by every TransportError.
var ErrTransport = errors.New("transport failure")

// Client performs block reads and writes of register words.
type Client interface {
	// Reads returns n consecutive words starting at addr.
	Reads(addr uint32, n int) ([]uint32, error)

	// Writes stores values at consecutive words starting at addr.
	Writes(addr uint32, values []uint32) error
}

// Read reads a single word.
func Read(c Client, addr uint32) (uint32, error) {
	words, err := c.Reads(addr, 1)
	if err != nil {
		return 0, err
	}
	if len(words) != 1 {
		return 0, &TransportError{Op: "read", Addr: addr, Err: fmt.Errorf("got %d words, want 1", len(words))}
	}
	return words[0], nil
}

// Write writes a single word.
func Write(c Client, addr uint32, value uint32) error {
	return c.Writes(addr, []uint32{value})
}

// TransportError reports a failed bus operation.
type TransportError struct {
	Op   string
	Addr uint32
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bus %s at 0x%08x: %v", e.Op, e.Addr, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Wrap turns err into a TransportError unless it already is one.
// A nil err returns nil.
func Wrap(op string, addr uint32, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Addr: addr, Err: err}
}
