package model

import (
	"fmt"
	"log/slog"

	"github.com/ograsdijk/pyrpl/pkg/register"
)

// Attrs is the view of a module passed to its hooks. It works without
// taking the module lock and is only valid while the hook runs.
type Attrs struct {
	m *Module
}

// Module returns the module name.
func (a *Attrs) Module() string {
	return a.m.name
}

// Get returns the current value of an attribute.
func (a *Attrs) Get(name string) (any, error) {
	return a.m.getLocked(name)
}

// Set writes an attribute without triggering the callback.
func (a *Attrs) Set(name string, value any) error {
	return a.m.setLocked(name, value, false)
}

// Setup runs the module's setup with the given overrides.
func (a *Attrs) Setup(overrides map[string]any) error {
	return a.m.setupLocked(overrides)
}

// SetOptions replaces the options of an enum attribute.
func (a *Attrs) SetOptions(name string, options []any) error {
	return a.m.setOptionsLocked(name, options)
}

// Owner returns the current owner, or "" if the module is free.
func (a *Attrs) Owner() string {
	return a.m.owner
}

// Bank returns the module's register bank.
func (a *Attrs) Bank() *register.Bank {
	return a.m.bank
}

// Logger returns the module's logger.
func (a *Attrs) Logger() *slog.Logger {
	return a.m.logger
}

// FrequencyCorrection returns the device's clock correction factor.
func (a *Attrs) FrequencyCorrection() float64 {
	return a.m.FrequencyCorrection()
}

// Float returns a numeric attribute as float64.
func (a *Attrs) Float(name string) (float64, error) {
	v, err := a.Get(name)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat64(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %T", ErrValueType, name, v)
	}
	return f, nil
}

// Int returns an integer attribute.
func (a *Attrs) Int(name string) (int64, error) {
	v, err := a.Get(name)
	if err != nil {
		return 0, err
	}
	return toInt64(v)
}

// Bool returns a boolean attribute.
func (a *Attrs) Bool(name string) (bool, error) {
	v, err := a.Get(name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s is %T", ErrValueType, name, v)
	}
	return b, nil
}

// String returns a string or enum attribute.
func (a *Attrs) String(name string) (string, error) {
	v, err := a.Get(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T", ErrValueType, name, v)
	}
	return s, nil
}
