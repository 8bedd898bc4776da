package notify

import (
	"sync"
)

// Kind identifies the type of a change event.
type Kind uint8

const (
	// KindAttribute is raised when an attribute value changes.
	KindAttribute Kind = iota
	// KindOptions is raised when the allowed values of an attribute change.
	KindOptions
	// KindOwnership is raised when a module changes owner.
	KindOwnership
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAttribute:
		return "ATTRIBUTE"
	case KindOptions:
		return "OPTIONS"
	case KindOwnership:
		return "OWNERSHIP"
	default:
		return "UNKNOWN"
	}
}

// Event is a single change event.
type Event struct {
	Kind   Kind
	Module string

	// Name is the attribute name (attribute and options events).
	Name string

	// Value is the new attribute value.
	Value any

	// Options is the new option list.
	Options []any

	// OldOwner and NewOwner describe an ownership change. An empty string
	// means the module is free.
	OldOwner string
	NewOwner string
}

// Observer receives change events.
type Observer interface {
	AttributeChanged(module, name string, value any)
	OptionsChanged(module, name string, options []any)
	OwnershipChanged(module, oldOwner, newOwner string)
}

// Funcs adapts plain functions to Observer. Nil fields ignore their event.
type Funcs struct {
	Attribute func(module, name string, value any)
	Options   func(module, name string, options []any)
	Ownership func(module, oldOwner, newOwner string)
}

// AttributeChanged calls f.Attribute.
func (f Funcs) AttributeChanged(module, name string, value any) {
	if f.Attribute != nil {
		f.Attribute(module, name, value)
	}
}

// OptionsChanged calls f.Options.
func (f Funcs) OptionsChanged(module, name string, options []any) {
	if f.Options != nil {
		f.Options(module, name, options)
	}
}

// OwnershipChanged calls f.Ownership.
func (f Funcs) OwnershipChanged(module, oldOwner, newOwner string) {
	if f.Ownership != nil {
		f.Ownership(module, oldOwner, newOwner)
	}
}

// Notifier delivers events to its observers.
// The zero value is ready to use.
type Notifier struct {
	mu        sync.RWMutex
	nextID    uint64
	observers []subscription
}

type subscription struct {
	id       uint64
	observer Observer
}

// New creates an empty notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers o and returns a function that removes it again.
func (n *Notifier) Subscribe(o Observer) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.observers = append(n.observers, subscription{id: id, observer: o})

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, s := range n.observers {
			if s.id == id {
				n.observers = append(n.observers[:i:i], n.observers[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of subscribed observers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

// NotifyAttributeChanged raises an attribute event.
func (n *Notifier) NotifyAttributeChanged(module, name string, value any) {
	n.Dispatch(Event{Kind: KindAttribute, Module: module, Name: name, Value: value})
}

// NotifyOptionsChanged raises an options event.
func (n *Notifier) NotifyOptionsChanged(module, name string, options []any) {
	n.Dispatch(Event{Kind: KindOptions, Module: module, Name: name, Options: options})
}

// NotifyOwnershipChanged raises an ownership event.
func (n *Notifier) NotifyOwnershipChanged(module, oldOwner, newOwner string) {
	n.Dispatch(Event{Kind: KindOwnership, Module: module, OldOwner: oldOwner, NewOwner: newOwner})
}

// Dispatch delivers e to every observer before returning.
func (n *Notifier) Dispatch(e Event) {
	n.mu.RLock()
	subs := make([]subscription, len(n.observers))
	copy(subs, n.observers)
	n.mu.RUnlock()

	for _, s := range subs {
		deliver(s.observer, e)
	}
}

func deliver(o Observer, e Event) {
	switch e.Kind {
	case KindAttribute:
		o.AttributeChanged(e.Module, e.Name, e.Value)
	case KindOptions:
		o.OptionsChanged(e.Module, e.Name, e.Options)
	case KindOwnership:
		o.OwnershipChanged(e.Module, e.OldOwner, e.NewOwner)
	}
}

// Compile-time interface satisfaction check.
var _ Observer = Funcs{}
