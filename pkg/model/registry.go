package model

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Declaration errors. They are returned at module type definition time;
// the Must helpers panic with them.
var (
	ErrDescriptorBound      = errors.New("descriptor already bound to a field")
	ErrDuplicateAttribute   = errors.New("attribute name already declared")
	ErrMalformedDeclaration = errors.New("malformed attribute declaration")
	ErrTypeSealed           = errors.New("module type already in use")
	ErrDuplicateType        = errors.New("module type already registered")
)

// statesKey is the config key holding named states. It cannot be used as an
// attribute name.
const statesKey = "states"

// ModuleType is the static description of a kind of module: its attributes
// and which of them are setup and callback attributes.
type ModuleType struct {
	mu     sync.RWMutex
	name     string
	parent   *ModuleType
	children []*ModuleType

	attrs  []*Descriptor
	byName map[string]*Descriptor

	setup    []string
	callback []string
	hasSetup bool
	hasCB    bool

	sealed      bool
	setupSet    map[string]bool
	callbackSet map[string]bool
}

// NewModuleType creates a module type. parent may be nil.
func NewModuleType(name string, parent *ModuleType) *ModuleType {
	t := &ModuleType{
		name:   name,
		parent: parent,
		byName: make(map[string]*Descriptor),
	}
	if parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, t)
		parent.mu.Unlock()
	}
	return t
}

// Name returns the type name.
func (t *ModuleType) Name() string {
	return t.name
}

// Parent returns the parent type, or nil.
func (t *ModuleType) Parent() *ModuleType {
	return t.parent
}

// Section returns the config section holding instances of this type.
func (t *ModuleType) Section() string {
	return t.name + "s"
}

// IsA reports whether t is other or derives from it.
func (t *ModuleType) IsA(other *ModuleType) bool {
	for c := t; c != nil; c = c.parent {
		if c == other {
			return true
		}
	}
	return false
}

// Register binds d to field.
func (t *ModuleType) Register(field string, d *Descriptor) error {
	if d == nil {
		return fmt.Errorf("%w: nil descriptor for %s.%s", ErrMalformedDeclaration, t.name, field)
	}
	if field == "" || field == statesKey || strings.ContainsAny(field, ".\n") {
		return fmt.Errorf("%w: invalid field name %q", ErrMalformedDeclaration, field)
	}
	if d.Type == DataTypeEnum && len(d.Options) == 0 && d.Register != nil {
		return fmt.Errorf("%w: register backed enum %s.%s has no options", ErrMalformedDeclaration, t.name, field)
	}
	if t.parent != nil {
		if _, ok := t.parent.Lookup(field); ok {
			return fmt.Errorf("%w: %s.%s shadows an inherited attribute", ErrDuplicateAttribute, t.name, field)
		}
	}
	if sub := t.subtypeBinding(field); sub != nil {
		return fmt.Errorf("%w: %s.%s is already declared by subtype %s", ErrDuplicateAttribute, t.name, field, sub.name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		return fmt.Errorf("%w: %s", ErrTypeSealed, t.name)
	}
	if d.owner != nil {
		return fmt.Errorf("%w: %s.%s is already bound as %s.%s",
			ErrDescriptorBound, t.name, field, d.owner.name, d.name)
	}
	if _, ok := t.byName[field]; ok {
		return fmt.Errorf("%w: %s.%s", ErrDuplicateAttribute, t.name, field)
	}

	d.name = field
	d.owner = t
	t.attrs = append(t.attrs, d)
	t.byName[field] = d
	return nil
}

// subtypeBinding returns the first subtype of t that binds field itself.
func (t *ModuleType) subtypeBinding(field string) *ModuleType {
	t.mu.RLock()
	children := slices.Clone(t.children)
	t.mu.RUnlock()

	for _, c := range children {
		c.mu.RLock()
		_, ok := c.byName[field]
		c.mu.RUnlock()
		if ok {
			return c
		}
		if sub := c.subtypeBinding(field); sub != nil {
			return sub
		}
	}
	return nil
}

// MustRegister is like Register but panics on error. It returns d so
// descriptors can be declared as package variables.
func (t *ModuleType) MustRegister(field string, d *Descriptor) *Descriptor {
	if err := t.Register(field, d); err != nil {
		panic(err)
	}
	return d
}

// SetSetupAttributes declares the ordered setup attributes. Every name must
// be bound in t or one of its ancestors. Without a declaration a type
// inherits its parent's list.
func (t *ModuleType) SetSetupAttributes(names ...string) error {
	if err := t.checkNames(names); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return fmt.Errorf("%w: %s", ErrTypeSealed, t.name)
	}
	t.setup = slices.Clone(names)
	t.hasSetup = true
	return nil
}

// MustSetSetupAttributes is like SetSetupAttributes but panics on error.
func (t *ModuleType) MustSetSetupAttributes(names ...string) {
	if err := t.SetSetupAttributes(names...); err != nil {
		panic(err)
	}
}

// SetCallbackAttributes declares which attributes trigger the callback when
// written outside setup. Without a declaration they are the setup
// attributes.
func (t *ModuleType) SetCallbackAttributes(names ...string) error {
	if err := t.checkNames(names); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return fmt.Errorf("%w: %s", ErrTypeSealed, t.name)
	}
	t.callback = slices.Clone(names)
	t.hasCB = true
	return nil
}

// MustSetCallbackAttributes is like SetCallbackAttributes but panics on
// error.
func (t *ModuleType) MustSetCallbackAttributes(names ...string) {
	if err := t.SetCallbackAttributes(names...); err != nil {
		panic(err)
	}
}

func (t *ModuleType) checkNames(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return fmt.Errorf("%w: %s lists %q twice", ErrMalformedDeclaration, t.name, n)
		}
		seen[n] = true
		if _, ok := t.Lookup(n); !ok {
			return fmt.Errorf("%w: %s has no attribute %q", ErrMalformedDeclaration, t.name, n)
		}
	}
	return nil
}

// SetupAttributes returns the ordered setup attribute names.
func (t *ModuleType) SetupAttributes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.hasSetup || t.parent == nil {
		return slices.Clone(t.setup)
	}
	return t.parent.SetupAttributes()
}

// CallbackAttributes returns the names that trigger the callback.
func (t *ModuleType) CallbackAttributes() []string {
	t.mu.RLock()
	hasCB := t.hasCB
	cb := slices.Clone(t.callback)
	t.mu.RUnlock()

	if hasCB {
		return cb
	}
	for p := t.parent; p != nil; p = p.parent {
		p.mu.RLock()
		if p.hasCB {
			cb = slices.Clone(p.callback)
		}
		found := p.hasCB
		p.mu.RUnlock()
		if found {
			return cb
		}
	}
	return t.SetupAttributes()
}

// Attributes returns all descriptors, ancestors first, each type's own
// attributes in declaration order.
func (t *ModuleType) Attributes() []*Descriptor {
	var out []*Descriptor
	if t.parent != nil {
		out = t.parent.Attributes()
	}
	t.mu.RLock()
	out = append(out, t.attrs...)
	t.mu.RUnlock()
	return out
}

// Lookup finds the descriptor bound to name in t or its ancestors.
func (t *ModuleType) Lookup(name string) (*Descriptor, bool) {
	for c := t; c != nil; c = c.parent {
		c.mu.RLock()
		d, ok := c.byName[name]
		c.mu.RUnlock()
		if ok {
			return d, true
		}
	}
	return nil, false
}

// seal freezes t and its ancestors and caches the attribute sets.
func (t *ModuleType) seal() {
	for c := t; c != nil; c = c.parent {
		c.mu.Lock()
		c.sealed = true
		c.mu.Unlock()
	}

	setup := toSet(t.SetupAttributes())
	callback := toSet(t.CallbackAttributes())

	t.mu.Lock()
	if t.setupSet == nil {
		t.setupSet = setup
		t.callbackSet = callback
	}
	t.mu.Unlock()
}

func (t *ModuleType) isSetup(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.setupSet[name]
}

func (t *ModuleType) isCallback(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.callbackSet[name]
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Global module type table, used by tools to resolve type names.
var (
	typesMu sync.RWMutex
	types   = make(map[string]*ModuleType)
)

// RegisterType adds t to the global type table.
func RegisterType(t *ModuleType) error {
	typesMu.Lock()
	defer typesMu.Unlock()
	if _, ok := types[t.name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, t.name)
	}
	types[t.name] = t
	return nil
}

// MustRegisterType is like RegisterType but panics on error.
func MustRegisterType(t *ModuleType) *ModuleType {
	if err := RegisterType(t); err != nil {
		panic(err)
	}
	return t
}

// LookupType returns the registered type with the given name.
func LookupType(name string) (*ModuleType, bool) {
	typesMu.RLock()
	defer typesMu.RUnlock()
	t, ok := types[name]
	return t, ok
}

// Types returns the names of all registered types, sorted.
func Types() []string {
	typesMu.RLock()
	defer typesMu.RUnlock()
	names := make([]string, 0, len(types))
	for n := range types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
