package model

import (
	"errors"
	"fmt"
	"strings"
)

// Module errors.
var (
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrStateNotFound    = errors.New("state not found")
	ErrInvalidConfig    = errors.New("invalid module configuration")
	ErrNoRegisterBank   = errors.New("module has no register bank")
	ErrNoCurveSink      = errors.New("no curve sink configured")
)

// UnknownAttributeError reports keys that are not setup attributes of a
// module. Recognized keys of the same call have already been applied.
type UnknownAttributeError struct {
	Module string
	Names  []string
}

func (e *UnknownAttributeError) Error() string {
	quoted := make([]string, len(e.Names))
	for i, n := range e.Names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return fmt.Sprintf("module %s: unknown attribute %s", e.Module, strings.Join(quoted, ", "))
}

// Is matches ErrUnknownAttribute.
func (e *UnknownAttributeError) Is(target error) bool {
	return target == ErrUnknownAttribute
}

// StateNotFoundError reports a missing named state.
type StateNotFoundError struct {
	Module string
	State  string
}

func (e *StateNotFoundError) Error() string {
	return fmt.Sprintf("module %s: state %q not found", e.Module, e.State)
}

// Is matches ErrStateNotFound.
func (e *StateNotFoundError) Is(target error) bool {
	return target == ErrStateNotFound
}

// MissingCapabilityWarning describes a capability a module's parent does
// not provide. It is logged, never returned.
type MissingCapabilityWarning struct {
	Module     string
	Capability string
	Default    any
}

func (w MissingCapabilityWarning) String() string {
	return fmt.Sprintf("parent of %s has no %s, using %v", w.Module, w.Capability, w.Default)
}
