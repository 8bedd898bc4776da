package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ograsdijk/pyrpl/pkg/notify"
)

// Owner returns the current owner, or "" if the module is free.
func (m *Module) Owner() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner
}

// SetOwner changes the owner. A non-empty owner disables autosave. Setting
// "" frees the module: autosave is re-enabled and the persisted values are
// re-applied with Setup. If that fails the module stays free and the error
// is returned. Observers are notified in either case.
func (m *Module) SetOwner(owner string) error {
	return m.locked(func() error {
		return m.setOwnerLocked(owner)
	})
}

// Free releases the module from any owner.
func (m *Module) Free() error {
	return m.SetOwner("")
}

// Acquire makes owner the owner of m, replacing any previous owner, and
// returns a Lease to release it. owner must not be empty.
func (m *Module) Acquire(owner string) *Lease {
	if owner == "" {
		panic("model: Acquire with empty owner")
	}
	// Taking ownership never re-applies values, so it cannot fail.
	_ = m.SetOwner(owner)
	return &Lease{module: m, owner: owner}
}

// claim makes owner the owner of m only if m is free.
func (m *Module) claim(owner string) bool {
	claimed := false
	_ = m.locked(func() error {
		if m.owner != "" {
			return nil
		}
		claimed = true
		return m.setOwnerLocked(owner)
	})
	return claimed
}

// Use runs fn while owner holds m and releases m afterwards, also when fn
// fails or panics.
func (m *Module) Use(owner string, fn func(m *Module) error) (err error) {
	lease := m.Acquire(owner)
	defer func() {
		err = errors.Join(err, lease.Release())
	}()
	return fn(m)
}

func (m *Module) setOwnerLocked(owner string) error {
	old := m.owner
	m.owner = owner
	m.autosaveActive = owner == ""

	if m.hooks.OwnershipChanged != nil {
		m.hooks.OwnershipChanged(m.attrs, old, owner)
	}

	var err error
	if owner == "" {
		var persisted map[string]any
		if persisted, err = m.persistedLocked(); err == nil {
			err = m.setupLocked(persisted)
		}
		if err != nil {
			err = fmt.Errorf("module %s: restore on release: %w", m.name, err)
			m.logError("release", err)
		}
	}

	m.raise(notify.Event{Kind: notify.KindOwnership, OldOwner: old, NewOwner: owner})
	m.logger.Debug("ownership changed", "old_owner", old, "new_owner", owner)
	return err
}

// Lease is an acquisition of a module.
type Lease struct {
	module *Module
	owner  string
	once   sync.Once
	err    error
}

// Module returns the leased module.
func (l *Lease) Module() *Module {
	return l.module
}

// Owner returns the owner the lease was taken for.
func (l *Lease) Owner() string {
	return l.owner
}

// Release frees the module. Only the first call has an effect; later calls
// return the first call's result.
func (l *Lease) Release() error {
	l.once.Do(func() {
		l.err = l.module.Free()
	})
	return l.err
}
