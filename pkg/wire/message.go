package wire

import (
	"errors"
	"fmt"
)

// MaxWords limits the number of words in one request.
const MaxWords = 4096

// WordSize is the byte size of a register word. Addresses are byte
// addresses and must be word aligned.
const WordSize = 4

// ErrInvalidRequest is returned by Request.Validate.
var ErrInvalidRequest = errors.New("invalid request")

// Request asks the server to read or write registers.
type Request struct {
	MessageID uint32    `cbor:"1,keyasint"`
	Operation Operation `cbor:"2,keyasint"`
	Address   uint32    `cbor:"3,keyasint"`
	Count     uint16    `cbor:"4,keyasint,omitempty"`
	Values    []uint32  `cbor:"5,keyasint,omitempty"`
}

// Validate checks if the request is well formed.
func (r *Request) Validate() error {
	if r.MessageID == 0 {
		return fmt.Errorf("%w: messageId 0 is reserved", ErrInvalidRequest)
	}
	if r.Address%WordSize != 0 {
		return fmt.Errorf("%w: unaligned address 0x%08x", ErrInvalidRequest, r.Address)
	}
	switch r.Operation {
	case OpRead:
		if r.Count == 0 || r.Count > MaxWords {
			return fmt.Errorf("%w: read of %d words", ErrInvalidRequest, r.Count)
		}
	case OpWrite:
		if len(r.Values) == 0 || len(r.Values) > MaxWords {
			return fmt.Errorf("%w: write of %d words", ErrInvalidRequest, len(r.Values))
		}
	default:
		return fmt.Errorf("%w: operation %d", ErrInvalidRequest, r.Operation)
	}
	return nil
}

// Response answers a Request.
type Response struct {
	MessageID uint32   `cbor:"1,keyasint"`
	Status    Status   `cbor:"2,keyasint"`
	Values    []uint32 `cbor:"3,keyasint,omitempty"`
	Message   string   `cbor:"4,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Err returns nil for a successful response and a *StatusError otherwise.
func (r *Response) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return &StatusError{Status: r.Status, Message: r.Message}
}
