package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func logOne(t *testing.T, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(event)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	return entry
}

func TestSlogAdapterAttributeEvent(t *testing.T) {
	entry := logOne(t, Event{
		Device:    "rp-1",
		Module:    "pid0",
		Category:  CategoryAttribute,
		Attribute: &AttributeEvent{Name: "p", Value: 0.5},
	})

	if entry["level"] != "DEBUG" {
		t.Errorf("level = %v, want DEBUG", entry["level"])
	}
	if entry["module"] != "pid0" {
		t.Errorf("module = %v, want pid0", entry["module"])
	}
	if entry["attribute"] != "p" {
		t.Errorf("attribute = %v, want p", entry["attribute"])
	}
	if entry["value"] != 0.5 {
		t.Errorf("value = %v, want 0.5", entry["value"])
	}
	if entry["device"] != "rp-1" {
		t.Errorf("device = %v, want rp-1", entry["device"])
	}
}

func TestSlogAdapterErrorEventIsWarning(t *testing.T) {
	entry := logOne(t, Event{
		Module:   "asg0",
		Category: CategoryError,
		Error:    &ErrorEventData{Operation: "release", Message: "bus down"},
	})

	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
	if entry["operation"] != "release" {
		t.Errorf("operation = %v, want release", entry["operation"])
	}
	if entry["error"] != "bus down" {
		t.Errorf("error = %v, want %q", entry["error"], "bus down")
	}
}

func TestSlogAdapterOwnershipEvent(t *testing.T) {
	entry := logOne(t, Event{
		Module:    "asg0",
		Category:  CategoryOwnership,
		Ownership: &OwnershipEvent{NewOwner: "sweep"},
	})

	if entry["category"] != "OWNERSHIP" {
		t.Errorf("category = %v, want OWNERSHIP", entry["category"])
	}
	if entry["new_owner"] != "sweep" {
		t.Errorf("new_owner = %v, want sweep", entry["new_owner"])
	}
}
