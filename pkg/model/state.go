package model

import (
	"fmt"
	"maps"
	"slices"

	"github.com/ograsdijk/pyrpl/pkg/config"
)

// SaveState stores the current setup attributes as the named state,
// replacing a state of the same name.
func (m *Module) SaveState(name string) error {
	return m.locked(func() error {
		snap, err := m.snapshotLocked()
		if err != nil {
			return err
		}
		states, err := m.statesLocked()
		if err != nil {
			return err
		}
		if err := states.Set(name, snap.Map()); err != nil {
			return fmt.Errorf("module %s: save state %q: %w", m.name, name, err)
		}
		return nil
	})
}

// LoadState runs Setup with the values of the named state. A missing state
// fails with a StateNotFoundError before anything is changed.
func (m *Module) LoadState(name string) error {
	return m.locked(func() error {
		values, err := m.stateLocked(name)
		if err != nil {
			return err
		}
		return m.setupLocked(values)
	})
}

// StateValues returns the values stored under the named state.
func (m *Module) StateValues(name string) (map[string]any, error) {
	var values map[string]any
	err := m.locked(func() error {
		var err error
		values, err = m.stateLocked(name)
		return err
	})
	return values, err
}

// States returns the names of the saved states, sorted.
func (m *Module) States() ([]string, error) {
	var names []string
	err := m.locked(func() error {
		states, err := m.savedStatesLocked()
		if err != nil {
			return err
		}
		names = slices.Sorted(maps.Keys(states))
		return nil
	})
	return names, err
}

// DeleteState removes the named state.
func (m *Module) DeleteState(name string) error {
	return m.locked(func() error {
		if _, err := m.stateLocked(name); err != nil {
			return err
		}
		states, err := m.statesLocked()
		if err != nil {
			return err
		}
		return states.Delete(name)
	})
}

// statesLocked returns the states branch, creating it if needed. Only
// writers use it.
func (m *Module) statesLocked() (config.Branch, error) {
	b, err := m.ConfigBranch()
	if err != nil {
		return nil, err
	}
	states, err := b.Branch(statesKey)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", m.name, err)
	}
	return states, nil
}

// savedStatesLocked returns a copy of the saved states without touching the
// store.
func (m *Module) savedStatesLocked() (map[string]any, error) {
	b, err := m.ConfigBranch()
	if err != nil {
		return nil, err
	}
	v, ok := b.Get(statesKey)
	if !ok {
		return nil, nil
	}
	states, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("module %s: %s: %w", m.name, statesKey, config.ErrNotBranch)
	}
	return states, nil
}

func (m *Module) stateLocked(name string) (map[string]any, error) {
	states, err := m.savedStatesLocked()
	if err != nil {
		return nil, err
	}
	v, ok := states[name]
	if !ok {
		return nil, &StateNotFoundError{Module: m.name, State: name}
	}
	values, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q holds a value, not a state", &StateNotFoundError{Module: m.name, State: name}, name)
	}
	return values, nil
}
