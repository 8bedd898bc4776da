package notify

import (
	"context"
	"log/slog"
)

// SlogObserver writes change events to an slog.Logger at Debug level.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver creates an observer logging to logger.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	return &SlogObserver{logger: logger}
}

// AttributeChanged logs the new value.
func (o *SlogObserver) AttributeChanged(module, name string, value any) {
	o.logger.LogAttrs(context.Background(), slog.LevelDebug, "attribute changed",
		slog.String("module", module),
		slog.String("attribute", name),
		slog.Any("value", value),
	)
}

// OptionsChanged logs the new options.
func (o *SlogObserver) OptionsChanged(module, name string, options []any) {
	o.logger.LogAttrs(context.Background(), slog.LevelDebug, "options changed",
		slog.String("module", module),
		slog.String("attribute", name),
		slog.Any("options", options),
	)
}

// OwnershipChanged logs the owner transition.
func (o *SlogObserver) OwnershipChanged(module, oldOwner, newOwner string) {
	o.logger.LogAttrs(context.Background(), slog.LevelDebug, "ownership changed",
		slog.String("module", module),
		slog.String("old_owner", oldOwner),
		slog.String("new_owner", newOwner),
	)
}

// Compile-time interface satisfaction check.
var _ Observer = (*SlogObserver)(nil)
