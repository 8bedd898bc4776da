package model

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ograsdijk/pyrpl/pkg/config"
	"github.com/ograsdijk/pyrpl/pkg/curve"
	"github.com/ograsdijk/pyrpl/pkg/log"
	"github.com/ograsdijk/pyrpl/pkg/notify"
	"github.com/ograsdijk/pyrpl/pkg/register"
)

// State is the lifecycle state of a module.
type State uint8

const (
	StateConstructing State = iota
	StateIdle
	StateInSetup
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConstructing:
		return "CONSTRUCTING"
	case StateIdle:
		return "IDLE"
	case StateInSetup:
		return "IN_SETUP"
	default:
		return "UNKNOWN"
	}
}

// Parent is what a module hangs off: the Device or another module.
type Parent interface {
	// ConfigBranch returns the branch below which children keep their
	// sections.
	ConfigBranch() (config.Branch, error)
}

// Hooks are the module-specific parts of the lifecycle. All hooks run with
// the module locked and receive a view of the module to work with.
type Hooks struct {
	// Init runs once during construction with autosave off. It must not
	// depend on persisted values, which are loaded afterwards.
	Init func(a *Attrs) error

	// Setup prepares the module for operation with the current attribute
	// values. It may run any number of times.
	Setup func(a *Attrs) error

	// Callback runs after a callback attribute was written outside setup.
	// When nil, the module re-runs its setup.
	Callback func(a *Attrs, name string) error

	// OwnershipChanged runs on every owner change, before the module is
	// restored on release.
	OwnershipChanged func(a *Attrs, oldOwner, newOwner string)
}

// Config configures a new module.
type Config struct {
	// Type is required.
	Type *ModuleType

	// Name defaults to the type name.
	Name string

	// Parent is required.
	Parent Parent

	Hooks Hooks

	// Bank gives access to the module's registers. Required if the type
	// has register backed attributes.
	Bank *register.Bank

	// Curves, Logger and Events default to the device's.
	Curves curve.Sink
	Logger *slog.Logger
	Events log.Logger
}

// Module is one instance of a ModuleType.
type Module struct {
	typ      *ModuleType
	name     string
	parent   Parent
	hooks    Hooks
	bank     *register.Bank
	curves   curve.Sink
	logger   *slog.Logger
	events   log.Logger
	notifier *notify.Notifier
	attrs    *Attrs

	mu             sync.Mutex
	state          State
	values         map[string]any
	options        map[string][]any
	owner          string
	callbackActive bool
	autosaveActive bool
	pending        []notify.Event
}

// NewModule constructs a module: it runs the Init hook with autosave off,
// then loads the persisted setup attributes.
func NewModule(cfg Config) (*Module, error) {
	if cfg.Type == nil {
		return nil, fmt.Errorf("%w: no module type", ErrInvalidConfig)
	}
	if cfg.Parent == nil {
		return nil, fmt.Errorf("%w: module %s has no parent", ErrInvalidConfig, cfg.Type.Name())
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Type.Name()
	}
	if name == statesKey {
		return nil, fmt.Errorf("%w: %q is reserved", ErrInvalidConfig, name)
	}

	m := &Module{
		typ:      cfg.Type,
		name:     name,
		parent:   cfg.Parent,
		hooks:    cfg.Hooks,
		bank:     cfg.Bank,
		curves:   cfg.Curves,
		logger:   cfg.Logger,
		events:   cfg.Events,
		notifier: notify.New(),
		values:   make(map[string]any),
		options:  make(map[string][]any),
	}
	m.attrs = &Attrs{m: m}
	m.inheritFromDevice()
	m.logger = m.logger.With("module", name)

	cfg.Type.seal()

	for _, d := range cfg.Type.Attributes() {
		if d.Register != nil {
			if m.bank == nil {
				return nil, fmt.Errorf("%w: %s.%s", ErrNoRegisterBank, name, d.Name())
			}
			continue
		}
		if d.Default == nil {
			m.values[d.Name()] = nil
			continue
		}
		v, err := d.Validate(d.Default)
		if err != nil {
			return nil, fmt.Errorf("%w: default of %s.%s: %v", ErrInvalidConfig, cfg.Type.Name(), d.Name(), err)
		}
		m.values[d.Name()] = v
	}

	err := m.locked(func() error {
		m.state = StateConstructing
		m.callbackActive = true
		if m.hooks.Init != nil {
			if err := m.hooks.Init(m.attrs); err != nil {
				return fmt.Errorf("module %s: init: %w", name, err)
			}
		}
		m.autosaveActive = true
		err := m.loadSetupAttributesLocked()
		m.state = StateIdle
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Module) inheritFromDevice() {
	if d := m.Device(); d != nil {
		if m.logger == nil {
			m.logger = d.logger
		}
		if m.events == nil {
			m.events = d.events
		}
		if m.curves == nil {
			m.curves = d.curves
		}
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.events == nil {
		m.events = log.NoopLogger{}
	}
}

// Name returns the instance name.
func (m *Module) Name() string {
	return m.name
}

// Type returns the module type.
func (m *Module) Type() *ModuleType {
	return m.typ
}

// Parent returns the module's parent.
func (m *Module) Parent() Parent {
	return m.parent
}

// Bank returns the register bank, or nil for software modules.
func (m *Module) Bank() *register.Bank {
	return m.bank
}

// Logger returns the module's logger.
func (m *Module) Logger() *slog.Logger {
	return m.logger
}

// State returns the lifecycle state.
func (m *Module) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CallbackActive reports whether attribute writes currently trigger the
// callback.
func (m *Module) CallbackActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callbackActive
}

// AutosaveActive reports whether attribute writes are persisted.
func (m *Module) AutosaveActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autosaveActive
}

// Subscribe registers an observer of the module's change events.
func (m *Module) Subscribe(o notify.Observer) (unsubscribe func()) {
	return m.notifier.Subscribe(o)
}

// Device returns the root device, or nil if the module is not attached to
// one.
func (m *Module) Device() *Device {
	p := m.parent
	for {
		switch x := p.(type) {
		case *Device:
			return x
		case *Module:
			p = x.parent
		default:
			return nil
		}
	}
}

// ConfigBranch returns the module's own branch, creating it if needed. It
// is resolved on every call so reloaded config is always seen.
func (m *Module) ConfigBranch() (config.Branch, error) {
	pb, err := m.parent.ConfigBranch()
	if err != nil {
		return nil, err
	}
	section, err := pb.Branch(m.typ.Section())
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", m.name, err)
	}
	b, err := section.Branch(m.name)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", m.name, err)
	}
	return b, nil
}

// locked runs fn with the module locked and then delivers the events fn
// raised.
func (m *Module) locked(fn func() error) error {
	m.mu.Lock()
	err := fn()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, e := range pending {
		m.notifier.Dispatch(e)
	}
	return err
}

func (m *Module) raise(e notify.Event) {
	e.Module = m.name
	m.pending = append(m.pending, e)
}

func (m *Module) logEvent(e log.Event) {
	e.Timestamp = time.Now()
	e.Module = m.name
	if d := m.Device(); d != nil {
		e.Device = d.name
	}
	m.events.Log(e)
}

func (m *Module) logError(op string, err error) {
	m.logger.Warn("module operation failed", "operation", op, "error", err)
	m.logEvent(log.Event{
		Category: log.CategoryError,
		Error:    &log.ErrorEventData{Operation: op, Message: err.Error()},
	})
}

// FrequencyCorrection returns the device's clock correction factor. If the
// device does not provide one, a warning is logged and 1.0 is used.
func (m *Module) FrequencyCorrection() float64 {
	if d := m.Device(); d != nil {
		if f, ok := d.FrequencyCorrection(); ok {
			return f
		}
	}
	w := MissingCapabilityWarning{Module: m.name, Capability: "frequency correction", Default: 1.0}
	m.logger.Warn(w.String())
	return 1.0
}

// SaveCurve stores a result curve. The module name is added to the
// attributes unless they already carry one.
func (m *Module) SaveCurve(x, y []float64, attributes map[string]any) (curve.Handle, error) {
	if m.curves == nil {
		return curve.Handle{}, fmt.Errorf("module %s: %w", m.name, ErrNoCurveSink)
	}
	attrs := make(map[string]any, len(attributes)+1)
	for k, v := range attributes {
		attrs[k] = v
	}
	if _, ok := attrs["module"]; !ok {
		attrs["module"] = m.name
	}
	return m.curves.Create(x, y, attrs)
}
