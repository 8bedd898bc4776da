package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger.
// Useful during development to see module activity on the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event at Debug level, or Warn for error events.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("module", event.Module),
		slog.String("category", event.Category.String()),
	}
	if event.Device != "" {
		attrs = append(attrs, slog.String("device", event.Device))
	}

	level := slog.LevelDebug
	switch {
	case event.Attribute != nil:
		attrs = append(attrs,
			slog.String("attribute", event.Attribute.Name),
			slog.Any("value", event.Attribute.Value),
		)
	case event.Options != nil:
		attrs = append(attrs,
			slog.String("attribute", event.Options.Name),
			slog.Any("options", event.Options.Options),
		)
	case event.Ownership != nil:
		attrs = append(attrs,
			slog.String("old_owner", event.Ownership.OldOwner),
			slog.String("new_owner", event.Ownership.NewOwner),
		)
	case event.Setup != nil:
		attrs = append(attrs, slog.Duration("duration", event.Setup.Duration))
		if len(event.Setup.Overrides) > 0 {
			attrs = append(attrs, slog.Any("overrides", event.Setup.Overrides))
		}
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("operation", event.Error.Operation),
			slog.String("error", event.Error.Message),
		)
	}

	a.logger.LogAttrs(context.Background(), level, "module event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
