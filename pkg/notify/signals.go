package notify

import (
	"context"
	"fmt"

	"github.com/zoobzio/capitan"
)

// Module change signals.
var (
	// AttributeChangedSignal is emitted when a module attribute changes.
	AttributeChangedSignal = capitan.NewSignal(
		"pyrpl.module.attribute.changed",
		"Module attribute changed",
	)

	// OptionsChangedSignal is emitted when an attribute's options change.
	OptionsChangedSignal = capitan.NewSignal(
		"pyrpl.module.options.changed",
		"Module attribute options changed",
	)

	// OwnershipChangedSignal is emitted when a module changes owner.
	OwnershipChangedSignal = capitan.NewSignal(
		"pyrpl.module.ownership.changed",
		"Module ownership changed",
	)
)

// Field keys for module signals.
var (
	KeyModule    = capitan.NewStringKey("module")
	KeyAttribute = capitan.NewStringKey("attribute")
	KeyValue     = capitan.NewStringKey("value")
	KeyOptions   = capitan.NewStringKey("options")
	KeyOldOwner  = capitan.NewStringKey("old_owner")
	KeyNewOwner  = capitan.NewStringKey("new_owner")
)

// SignalObserver re-emits change events as capitan signals. Values are
// rendered with %v since signal fields are strings.
type SignalObserver struct {
	ctx context.Context
}

// NewSignalObserver creates an observer that emits with ctx.
func NewSignalObserver(ctx context.Context) *SignalObserver {
	return &SignalObserver{ctx: ctx}
}

// AttributeChanged emits AttributeChangedSignal.
func (o *SignalObserver) AttributeChanged(module, name string, value any) {
	capitan.Emit(o.ctx, AttributeChangedSignal,
		KeyModule.Field(module),
		KeyAttribute.Field(name),
		KeyValue.Field(fmt.Sprint(value)),
	)
}

// OptionsChanged emits OptionsChangedSignal.
func (o *SignalObserver) OptionsChanged(module, name string, options []any) {
	capitan.Emit(o.ctx, OptionsChangedSignal,
		KeyModule.Field(module),
		KeyAttribute.Field(name),
		KeyOptions.Field(fmt.Sprint(options)),
	)
}

// OwnershipChanged emits OwnershipChangedSignal.
func (o *SignalObserver) OwnershipChanged(module, oldOwner, newOwner string) {
	capitan.Emit(o.ctx, OwnershipChangedSignal,
		KeyModule.Field(module),
		KeyOldOwner.Field(oldOwner),
		KeyNewOwner.Field(newOwner),
	)
}

// Compile-time interface satisfaction check.
var _ Observer = (*SignalObserver)(nil)
