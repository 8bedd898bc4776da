package model

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/ograsdijk/pyrpl/pkg/bus"
	"github.com/ograsdijk/pyrpl/pkg/config"
	"github.com/ograsdijk/pyrpl/pkg/curve"
	"github.com/ograsdijk/pyrpl/pkg/log"
	"github.com/ograsdijk/pyrpl/pkg/notify"
	"github.com/ograsdijk/pyrpl/pkg/register"
)

// ModulesKey is the root config branch holding all module sections.
const ModulesKey = "modules"

// Device errors.
var (
	ErrDuplicateModule = errors.New("module name already in use")
	ErrModuleNotFound  = errors.New("module not found")
	ErrNoBus           = errors.New("device has no bus client")
)

// DeviceConfig configures a Device.
type DeviceConfig struct {
	// Name identifies the device in event logs. Default "device".
	Name string

	// Store holds the persisted module state. Default: an in-memory tree.
	Store config.Store

	// Client performs register access for hardware modules.
	Client bus.Client

	// FrequencyCorrection is the clock correction factor offered to
	// modules. Zero means the device does not provide one.
	FrequencyCorrection float64

	// Curves receives curves saved by modules.
	Curves curve.Sink

	Logger *slog.Logger
	Events log.Logger
}

// Device is the root of a module tree.
type Device struct {
	name      string
	store     config.Store
	client    bus.Client
	freqCorr  float64
	curves    curve.Sink
	logger    *slog.Logger
	events    log.Logger
	observers *notify.Notifier

	mu      sync.RWMutex
	modules []*Module
	byName  map[string]*Module
}

// NewDevice creates a device without modules.
func NewDevice(cfg DeviceConfig) *Device {
	d := &Device{
		name:      cfg.Name,
		store:     cfg.Store,
		client:    cfg.Client,
		freqCorr:  cfg.FrequencyCorrection,
		curves:    cfg.Curves,
		logger:    cfg.Logger,
		events:    cfg.Events,
		observers: notify.New(),
		byName:    make(map[string]*Module),
	}
	if d.name == "" {
		d.name = "device"
	}
	if d.store == nil {
		d.store = config.NewTree()
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	if d.events == nil {
		d.events = log.NoopLogger{}
	}
	return d
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// Store returns the config store.
func (d *Device) Store() config.Store {
	return d.store
}

// Client returns the bus client, or nil.
func (d *Device) Client() bus.Client {
	return d.client
}

// ConfigBranch returns the "modules" root branch.
func (d *Device) ConfigBranch() (config.Branch, error) {
	return d.store.Root().Branch(ModulesKey)
}

// FrequencyCorrection returns the clock correction factor and whether the
// device provides one.
func (d *Device) FrequencyCorrection() (float64, bool) {
	return d.freqCorr, d.freqCorr != 0
}

// Bank returns a register bank at base on the device's bus.
func (d *Device) Bank(base uint32) (*register.Bank, error) {
	if d.client == nil {
		return nil, ErrNoBus
	}
	return register.NewBank(d.client, base), nil
}

// Subscribe registers an observer of all modules' change events.
func (d *Device) Subscribe(o notify.Observer) (unsubscribe func()) {
	return d.observers.Subscribe(o)
}

// AddModule attaches a constructed module. Module names are unique per
// device.
func (d *Device) AddModule(m *Module) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byName[m.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, m.Name())
	}
	d.modules = append(d.modules, m)
	d.byName[m.Name()] = m
	m.Subscribe(forwarder{d.observers})
	return nil
}

// NewModule constructs a module with the device as parent and adds it.
func (d *Device) NewModule(cfg Config) (*Module, error) {
	if cfg.Parent == nil {
		cfg.Parent = d
	}
	m, err := NewModule(cfg)
	if err != nil {
		return nil, err
	}
	if err := d.AddModule(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Module returns the module with the given name.
func (d *Device) Module(name string) (*Module, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return m, nil
}

// Modules returns all modules in the order they were added.
func (d *Device) Modules() []*Module {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.modules)
}

// Pool returns a pool of all modules of type t or a subtype.
func (d *Device) Pool(t *ModuleType) *Pool {
	p := NewPool(t.Name())
	for _, m := range d.Modules() {
		if m.Type().IsA(t) {
			p.Add(m)
		}
	}
	return p
}

// ReloadConfig re-applies persisted setup attributes to every module, e.g.
// after the config file changed on disk.
func (d *Device) ReloadConfig() error {
	var errs []error
	for _, m := range d.Modules() {
		if err := m.LoadSetupAttributes(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		d.logger.Warn("config reload incomplete", "errors", len(errs))
	}
	return errors.Join(errs...)
}

// forwarder re-raises module events on the device notifier.
type forwarder struct {
	n *notify.Notifier
}

func (f forwarder) AttributeChanged(module, name string, value any) {
	f.n.NotifyAttributeChanged(module, name, value)
}

func (f forwarder) OptionsChanged(module, name string, options []any) {
	f.n.NotifyOptionsChanged(module, name, options)
}

func (f forwarder) OwnershipChanged(module, oldOwner, newOwner string) {
	f.n.NotifyOwnershipChanged(module, oldOwner, newOwner)
}
