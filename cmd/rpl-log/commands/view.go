// Package commands implements the rpl-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/ograsdijk/pyrpl/pkg/log"
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp device/module CATEGORY
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	source := event.Module
	if event.Device != "" {
		source = event.Device + "/" + event.Module
	}
	fmt.Fprintf(w, "%s %-16s %s\n", ts, source, event.Category)

	switch {
	case event.Attribute != nil:
		fmt.Fprintf(w, "  %s = %v\n", event.Attribute.Name, event.Attribute.Value)
	case event.Options != nil:
		fmt.Fprintf(w, "  %s options: %v\n", event.Options.Name, event.Options.Options)
	case event.Ownership != nil:
		fmt.Fprintf(w, "  %s -> %s\n", ownerLabel(event.Ownership.OldOwner), ownerLabel(event.Ownership.NewOwner))
	case event.Setup != nil:
		formatSetupDetails(w, event.Setup)
	case event.Error != nil:
		fmt.Fprintf(w, "  %s failed: %s\n", event.Error.Operation, event.Error.Message)
	}

	fmt.Fprintln(w) // Blank line between events
}

func ownerLabel(owner string) string {
	if owner == "" {
		return "(free)"
	}
	return owner
}

func formatSetupDetails(w io.Writer, s *log.SetupEvent) {
	fmt.Fprintf(w, "  Duration: %s\n", formatDuration(s.Duration))
	if len(s.Overrides) == 0 {
		return
	}
	keys := slices.Sorted(maps.Keys(s.Overrides))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, s.Overrides[k])
	}
	fmt.Fprintf(w, "  Overrides: %s\n", strings.Join(parts, " "))
}

// formatDuration formats a duration with a unit suited to its size.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	default:
		return d.Round(time.Millisecond).String()
	}
}

// ParseCategoryFlag parses a category name (case insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	c, ok := log.ParseCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !ok {
		return 0, fmt.Errorf("unknown category: %s (valid: attribute, options, ownership, setup, error)", s)
	}
	return c, nil
}

// RunView executes the view command.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
