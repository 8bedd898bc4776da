package wire

import "fmt"

// Status is a response status code.
type Status uint8

const (
	// StatusSuccess indicates the operation completed.
	StatusSuccess Status = 0

	// StatusInvalidRequest indicates a malformed request.
	StatusInvalidRequest Status = 1

	// StatusBusError indicates the register access itself failed.
	StatusBusError Status = 2

	// StatusBusy indicates the server cannot take the request now.
	StatusBusy Status = 3
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusInvalidRequest:
		return "INVALID_REQUEST"
	case StatusBusError:
		return "BUS_ERROR"
	case StatusBusy:
		return "BUSY"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true for StatusSuccess.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// StatusError is a failed response turned into an error.
type StatusError struct {
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return e.Status.String()
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}
