package model

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/ograsdijk/pyrpl/pkg/log"
	"github.com/ograsdijk/pyrpl/pkg/notify"
)

// Setting is one attribute value.
type Setting struct {
	Name  string
	Value any
}

// Settings is an ordered attribute snapshot.
type Settings []Setting

// Map returns the settings as a map.
func (s Settings) Map() map[string]any {
	m := make(map[string]any, len(s))
	for _, e := range s {
		m[e.Name] = e.Value
	}
	return m
}

// Get returns the value of name.
func (s Settings) Get(name string) (any, bool) {
	for _, e := range s {
		if e.Name == name {
			return e.Value, true
		}
	}
	return nil, false
}

// Names returns the setting names in order.
func (s Settings) Names() []string {
	names := make([]string, len(s))
	for i, e := range s {
		names[i] = e.Name
	}
	return names
}

// Setup applies overrides to the setup attributes with callbacks suppressed
// and then runs the Setup hook. Attributes missing from overrides keep their
// current values. Callbacks are active again when Setup returns, whether it
// failed or not.
func (m *Module) Setup(overrides map[string]any) error {
	return m.locked(func() error {
		return m.setupLocked(overrides)
	})
}

// Set writes an attribute. Setup attributes are persisted while autosave is
// active, and writing a callback attribute runs the callback.
func (m *Module) Set(name string, value any) error {
	return m.locked(func() error {
		return m.setLocked(name, value, true)
	})
}

// Get returns the current value of an attribute. Register backed
// attributes are read from the device.
func (m *Module) Get(name string) (any, error) {
	var v any
	err := m.locked(func() error {
		var err error
		v, err = m.getLocked(name)
		return err
	})
	return v, err
}

// SetupAttributes returns the current values of all setup attributes in
// declaration order.
func (m *Module) SetupAttributes() (Settings, error) {
	var s Settings
	err := m.locked(func() error {
		var err error
		s, err = m.snapshotLocked()
		return err
	})
	return s, err
}

// SetSetupAttributes writes the given setup attributes without running the
// callback or the Setup hook. Recognized keys are applied before unknown
// keys are reported with an UnknownAttributeError.
func (m *Module) SetSetupAttributes(values map[string]any) error {
	return m.locked(func() error {
		return m.applyLocked(values)
	})
}

// LoadSetupAttributes applies the setup attributes persisted in the
// module's config branch. Keys that are not setup attributes are ignored.
func (m *Module) LoadSetupAttributes() error {
	return m.locked(m.loadSetupAttributesLocked)
}

// Options returns the allowed values of an enum attribute.
func (m *Module) Options(name string) ([]any, error) {
	var opts []any
	err := m.locked(func() error {
		if _, err := m.lookup(name); err != nil {
			return err
		}
		opts = slices.Clone(m.optionsLocked(name))
		return nil
	})
	return opts, err
}

// SetOptions replaces the allowed values of an enum attribute for this
// module and notifies observers.
func (m *Module) SetOptions(name string, options []any) error {
	return m.locked(func() error {
		return m.setOptionsLocked(name, options)
	})
}

// CreatePresentation runs fn with callbacks and autosave off, so that a
// presentation layer can push its initial values without side effects.
func (m *Module) CreatePresentation(fn func(a *Attrs) error) error {
	return m.locked(func() error {
		m.callbackActive = false
		m.autosaveActive = false
		defer func() {
			m.callbackActive = true
			m.autosaveActive = m.owner == ""
		}()
		return fn(m.attrs)
	})
}

func (m *Module) lookup(name string) (*Descriptor, error) {
	d, ok := m.typ.Lookup(name)
	if !ok {
		return nil, &UnknownAttributeError{Module: m.name, Names: []string{name}}
	}
	return d, nil
}

func (m *Module) getLocked(name string) (any, error) {
	d, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	if d.Register != nil {
		return m.readRegister(d)
	}
	return m.values[name], nil
}

func (m *Module) setLocked(name string, value any, callback bool) error {
	d, err := m.lookup(name)
	if err != nil {
		return err
	}

	v, err := d.Validate(value)
	if err != nil {
		return fmt.Errorf("module %s: %s: %w", m.name, name, err)
	}
	if d.Type == DataTypeEnum {
		opts := m.optionsLocked(name)
		i := optionIndex(opts, v)
		if i < 0 {
			return fmt.Errorf("module %s: %s: %w: %v not in %v", m.name, name, ErrInvalidOption, v, opts)
		}
		v = opts[i]
	}

	if d.Register != nil {
		if err := m.writeRegister(d, v); err != nil {
			return err
		}
	} else {
		m.values[name] = v
	}

	if m.autosaveActive && m.typ.isSetup(name) {
		b, err := m.ConfigBranch()
		if err == nil {
			err = b.Set(name, v)
		}
		if err != nil {
			return fmt.Errorf("module %s: persist %s: %w", m.name, name, err)
		}
	}

	m.raise(notify.Event{Kind: notify.KindAttribute, Name: name, Value: v})

	if callback && m.callbackActive && m.typ.isCallback(name) {
		return m.callbackLocked(name)
	}
	return nil
}

func (m *Module) callbackLocked(name string) error {
	if m.hooks.Callback != nil {
		return m.hooks.Callback(m.attrs, name)
	}
	return m.setupLocked(nil)
}

func (m *Module) setupLocked(overrides map[string]any) error {
	start := time.Now()
	prev := m.state
	m.state = StateInSetup
	m.callbackActive = false
	defer func() {
		// A setup nested in a hook leaves suppression to the outer one.
		if prev != StateInSetup {
			m.callbackActive = true
		}
		m.state = prev
	}()

	if err := m.applyLocked(overrides); err != nil {
		m.logError("setup", err)
		return err
	}
	if m.hooks.Setup != nil {
		if err := m.hooks.Setup(m.attrs); err != nil {
			err = fmt.Errorf("module %s: setup: %w", m.name, err)
			m.logError("setup", err)
			return err
		}
	}

	m.logEvent(log.Event{
		Category: log.CategorySetup,
		Setup:    &log.SetupEvent{Overrides: overrides, Duration: time.Since(start)},
	})
	return nil
}

// applyLocked is the bulk write shared by Setup, SetSetupAttributes and
// LoadSetupAttributes.
func (m *Module) applyLocked(values map[string]any) error {
	prev := m.callbackActive
	m.callbackActive = false
	defer func() { m.callbackActive = prev }()

	for _, name := range m.typ.SetupAttributes() {
		v, ok := values[name]
		if !ok {
			continue
		}
		if err := m.setLocked(name, v, false); err != nil {
			return err
		}
	}

	var unknown []string
	for k := range values {
		if !m.typ.isSetup(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &UnknownAttributeError{Module: m.name, Names: unknown}
	}
	return nil
}

func (m *Module) snapshotLocked() (Settings, error) {
	names := m.typ.SetupAttributes()
	s := make(Settings, 0, len(names))
	for _, name := range names {
		v, err := m.getLocked(name)
		if err != nil {
			return nil, err
		}
		s = append(s, Setting{Name: name, Value: v})
	}
	return s, nil
}

// persistedLocked returns the setup attributes stored in the config branch.
func (m *Module) persistedLocked() (map[string]any, error) {
	b, err := m.ConfigBranch()
	if err != nil {
		return nil, err
	}
	stored := b.Values()
	out := make(map[string]any, len(stored))
	for k, v := range stored {
		if m.typ.isSetup(k) {
			out[k] = v
		}
	}
	return out, nil
}

func (m *Module) loadSetupAttributesLocked() error {
	persisted, err := m.persistedLocked()
	if err != nil {
		return err
	}

	// The values come from the store; writing them back is pointless.
	prev := m.autosaveActive
	m.autosaveActive = false
	defer func() { m.autosaveActive = prev }()

	if err := m.applyLocked(persisted); err != nil {
		m.logError("load", err)
		return err
	}
	return nil
}

func (m *Module) optionsLocked(name string) []any {
	if opts, ok := m.options[name]; ok {
		return opts
	}
	d, _ := m.typ.Lookup(name)
	return d.Options
}

func (m *Module) setOptionsLocked(name string, options []any) error {
	d, err := m.lookup(name)
	if err != nil {
		return err
	}
	if d.Type != DataTypeEnum {
		return fmt.Errorf("module %s: %s: %w: not an enum attribute", m.name, name, ErrValueType)
	}
	if d.Register != nil {
		return fmt.Errorf("module %s: %s: %w: register backed options are fixed", m.name, name, ErrInvalidOption)
	}
	opts := slices.Clone(options)
	m.options[name] = opts
	m.raise(notify.Event{Kind: notify.KindOptions, Name: name, Options: slices.Clone(opts)})
	return nil
}
