package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/ograsdijk/pyrpl/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents      int
	EventsByCategory map[log.Category]int
	Modules          map[string]*ModuleStats
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// ModuleStats holds statistics for a single module.
type ModuleStats struct {
	Events       int
	Setups       int
	SetupTime    time.Duration
	OwnerChanges int
	LastOwner    string
}

// CollectStats reads the whole log file.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory: make(map[log.Category]int),
		Modules:          make(map[string]*ModuleStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		mod, ok := stats.Modules[event.Module]
		if !ok {
			mod = &ModuleStats{}
			stats.Modules[event.Module] = mod
		}
		mod.Events++

		switch {
		case event.Setup != nil:
			mod.Setups++
			mod.SetupTime += event.Setup.Duration
		case event.Ownership != nil:
			mod.OwnerChanges++
			mod.LastOwner = event.Ownership.NewOwner
		case event.Error != nil:
			stats.Errors++
		}
	}

	return stats, nil
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Module Event Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintf(w, "Errors:       %d\n", stats.Errors)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range slices.Sorted(maps.Keys(stats.EventsByCategory)) {
		fmt.Fprintf(w, "  %-10s %d\n", c, stats.EventsByCategory[c])
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Modules:")
	for _, name := range slices.Sorted(maps.Keys(stats.Modules)) {
		m := stats.Modules[name]
		line := fmt.Sprintf("  %-10s events=%d setups=%d", name, m.Events, m.Setups)
		if m.Setups > 0 {
			line += fmt.Sprintf(" avg_setup=%s", formatDuration(m.SetupTime/time.Duration(m.Setups)))
		}
		if m.OwnerChanges > 0 {
			line += fmt.Sprintf(" owner=%s", ownerLabel(m.LastOwner))
		}
		fmt.Fprintln(w, line)
	}
}
