package model

import (
	"sync"
	"testing"

	"github.com/ograsdijk/pyrpl/pkg/config"
	"github.com/ograsdijk/pyrpl/pkg/notify"
	"github.com/stretchr/testify/require"
)

// newPIDType declares a fresh software module type. Types are sealed once
// used, so every test gets its own.
func newPIDType() *ModuleType {
	typ := NewModuleType("pid", nil)
	typ.MustRegister("p", &Descriptor{Doc: "proportional gain", Type: DataTypeFloat, Default: 0.0})
	typ.MustRegister("i", &Descriptor{Doc: "integral gain", Type: DataTypeFloat, Default: 0.0})
	typ.MustRegister("setpoint", &Descriptor{Doc: "setpoint", Type: DataTypeInt, Default: 0, Min: -8192, Max: 8191})
	typ.MustRegister("input", &Descriptor{Doc: "input signal", Type: DataTypeEnum, Default: "in1", Options: []any{"in1", "in2", "off"}})
	typ.MustRegister("running", &Descriptor{Doc: "_internal run flag", Type: DataTypeBool, Default: false})
	typ.MustSetSetupAttributes("p", "i", "setpoint", "input")
	return typ
}

// hookCounter counts hook invocations.
type hookCounter struct {
	mu        sync.Mutex
	inits     int
	setups    int
	callbacks []string
	owners    [][2]string

	// setupErr is returned by the Setup hook when set.
	setupErr error
}

func (h *hookCounter) hooks() Hooks {
	return Hooks{
		Init: func(a *Attrs) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.inits++
			return nil
		},
		Setup: func(a *Attrs) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.setups++
			return h.setupErr
		},
		OwnershipChanged: func(a *Attrs, oldOwner, newOwner string) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.owners = append(h.owners, [2]string{oldOwner, newOwner})
		},
	}
}

func (h *hookCounter) setupCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.setups
}

func newTestDevice(t *testing.T, store config.Store) *Device {
	t.Helper()
	return NewDevice(DeviceConfig{Name: "rp-test", Store: store})
}

func newTestModule(t *testing.T, d *Device, typ *ModuleType, name string, h *hookCounter) *Module {
	t.Helper()
	var hooks Hooks
	if h != nil {
		hooks = h.hooks()
	}
	m, err := d.NewModule(Config{Type: typ, Name: name, Hooks: hooks})
	require.NoError(t, err)
	return m
}

// eventRecorder collects notifier events.
type eventRecorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *eventRecorder) AttributeChanged(module, name string, value any) {
	r.add(notify.Event{Kind: notify.KindAttribute, Module: module, Name: name, Value: value})
}

func (r *eventRecorder) OptionsChanged(module, name string, options []any) {
	r.add(notify.Event{Kind: notify.KindOptions, Module: module, Name: name, Options: options})
}

func (r *eventRecorder) OwnershipChanged(module, oldOwner, newOwner string) {
	r.add(notify.Event{Kind: notify.KindOwnership, Module: module, OldOwner: oldOwner, NewOwner: newOwner})
}

func (r *eventRecorder) add(e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) snapshot() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}
