package log

import (
	"time"

	"github.com/ograsdijk/pyrpl/pkg/notify"
)

// Observer records notifier events in a Logger.
type Observer struct {
	logger Logger
	device string
	now    func() time.Time
}

// NewObserver creates an observer that logs events for the named device.
func NewObserver(logger Logger, device string) *Observer {
	return &Observer{logger: logger, device: device, now: time.Now}
}

// AttributeChanged logs an attribute event.
func (o *Observer) AttributeChanged(module, name string, value any) {
	o.logger.Log(Event{
		Timestamp: o.now(),
		Device:    o.device,
		Module:    module,
		Category:  CategoryAttribute,
		Attribute: &AttributeEvent{Name: name, Value: value},
	})
}

// OptionsChanged logs an options event.
func (o *Observer) OptionsChanged(module, name string, options []any) {
	o.logger.Log(Event{
		Timestamp: o.now(),
		Device:    o.device,
		Module:    module,
		Category:  CategoryOptions,
		Options:   &OptionsEvent{Name: name, Options: options},
	})
}

// OwnershipChanged logs an ownership event.
func (o *Observer) OwnershipChanged(module, oldOwner, newOwner string) {
	o.logger.Log(Event{
		Timestamp: o.now(),
		Device:    o.device,
		Module:    module,
		Category:  CategoryOwnership,
		Ownership: &OwnershipEvent{OldOwner: oldOwner, NewOwner: newOwner},
	})
}

// Compile-time interface satisfaction check.
var _ notify.Observer = (*Observer)(nil)
