package inspect

import (
	"errors"
	"testing"

	"github.com/ograsdijk/pyrpl/pkg/bus"
	"github.com/ograsdijk/pyrpl/pkg/examples"
	"github.com/ograsdijk/pyrpl/pkg/model"
)

// createTestDevice creates a Red Pitaya over a simulated bus.
func createTestDevice(t *testing.T) (*model.Device, *bus.Memory) {
	t.Helper()
	mem := bus.NewMemory()
	rp, err := examples.NewRedPitaya(examples.RedPitayaConfig{
		Device: model.DeviceConfig{Name: "rp-test", Client: mem},
		PIDs:   1,
		ASGs:   1,
	})
	if err != nil {
		t.Fatalf("NewRedPitaya failed: %v", err)
	}
	return rp.Device(), mem
}

func mustPath(t *testing.T, s string) *Path {
	t.Helper()
	p, err := ParsePath(s)
	if err != nil {
		t.Fatalf("ParsePath(%q) failed: %v", s, err)
	}
	return p
}

func TestInspectorListModules(t *testing.T) {
	device, _ := createTestDevice(t)
	insp := NewInspector(device)

	if insp.Device() != device {
		t.Error("Device() should return the underlying device")
	}

	got := insp.ListModules()
	want := []string{"pid0", "asg0", "sweep"}
	if len(got) != len(want) {
		t.Fatalf("ListModules() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListModules()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestInspectorInspectModule(t *testing.T) {
	device, _ := createTestDevice(t)
	insp := NewInspector(device)

	info, err := insp.InspectModule("pid0")
	if err != nil {
		t.Fatalf("InspectModule failed: %v", err)
	}
	if info.Type != "pid" {
		t.Errorf("Type = %q, want pid", info.Type)
	}

	byName := make(map[string]AttributeInfo)
	for _, a := range info.Attributes {
		byName[a.Name] = a
	}

	input := byName["input"]
	if !input.Setup || !input.Register || len(input.Options) == 0 {
		t.Errorf("input = %+v, want setup register enum with options", input)
	}
	if !byName["ival"].Hidden() || byName["ival"].Setup {
		t.Errorf("ival should be hidden and not a setup attribute")
	}

	if _, err := insp.InspectModule("iir0"); !errors.Is(err, model.ErrModuleNotFound) {
		t.Errorf("expected ErrModuleNotFound, got %v", err)
	}
}

func TestInspectorReadWrite(t *testing.T) {
	device, mem := createTestDevice(t)
	insp := NewInspector(device)

	if err := insp.WriteString(mustPath(t, "pid0/setpoint"), "0.25"); err != nil {
		t.Fatalf("WriteString failed: %v", err)
	}
	if got := mem.Peek(examples.DSPBase + 0x104); got != 0x800 {
		t.Errorf("setpoint register = 0x%x, want 0x800", got)
	}

	v, err := insp.Read(mustPath(t, "pid0.setpoint"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if v != 0.25 {
		t.Errorf("Read = %v, want 0.25", v)
	}

	all, err := insp.Read(mustPath(t, "pid0"))
	if err != nil {
		t.Fatalf("Read module failed: %v", err)
	}
	if all.(map[string]any)["setpoint"] != 0.25 {
		t.Errorf("module read = %v", all)
	}

	if err := insp.WriteString(mustPath(t, "pid0/input"), "bogus"); !errors.Is(err, model.ErrInvalidOption) {
		t.Errorf("expected ErrInvalidOption, got %v", err)
	}
	if err := insp.Write(mustPath(t, "pid0"), 1); !errors.Is(err, ErrNotWritable) {
		t.Errorf("expected ErrNotWritable, got %v", err)
	}
	if _, err := insp.Read(mustPath(t, "pid0/nope")); !errors.Is(err, model.ErrUnknownAttribute) {
		t.Errorf("expected ErrUnknownAttribute, got %v", err)
	}
}

func TestInspectorRegisters(t *testing.T) {
	device, mem := createTestDevice(t)
	insp := NewInspector(device)

	if err := insp.WriteString(mustPath(t, "0x40300108"), "0x1000"); err != nil {
		t.Fatalf("register write failed: %v", err)
	}
	if mem.Peek(0x40300108) != 0x1000 {
		t.Errorf("register = 0x%x", mem.Peek(0x40300108))
	}

	p, err := device.Module("pid0")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := p.Get("p"); v != 1.0 {
		t.Errorf("p = %v, want 1 after raw write", v)
	}

	v, err := insp.Read(mustPath(t, "0x40300108"))
	if err != nil || v != uint32(0x1000) {
		t.Errorf("register read = %v, %v", v, err)
	}

	if err := insp.WriteString(mustPath(t, "0x0"), "-1"); err == nil {
		t.Error("negative register word should be rejected")
	}
}

func TestInspectorStates(t *testing.T) {
	device, _ := createTestDevice(t)
	insp := NewInspector(device)

	m, _ := device.Module("asg0")
	if err := m.Setup(map[string]any{"frequency": 1e3}); err != nil {
		t.Fatal(err)
	}
	if err := m.SaveState("lock"); err != nil {
		t.Fatal(err)
	}

	v, err := insp.Read(mustPath(t, "asg0/states/lock"))
	if err != nil {
		t.Fatalf("state read failed: %v", err)
	}
	if v.(map[string]any)["frequency"] != 1e3 {
		t.Errorf("state = %v", v)
	}

	if _, err := insp.Read(mustPath(t, "asg0/states/missing")); !errors.Is(err, model.ErrStateNotFound) {
		t.Errorf("expected ErrStateNotFound, got %v", err)
	}

	info, _ := insp.InspectModule("asg0")
	if len(info.States) != 1 || info.States[0] != "lock" {
		t.Errorf("States = %v", info.States)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"-3", -3},
		{"0x10", 16},
		{"1e3", 1000.0},
		{"0.5", 0.5},
		{"in1", "in1"},
		{"off", "off"},
		{`"42"`, "42"},
	}
	for _, tt := range tests {
		got, err := ParseValue(tt.in)
		if err != nil {
			t.Errorf("ParseValue(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "[1, 2]", "{a: 1}", "~"} {
		if _, err := ParseValue(bad); err == nil {
			t.Errorf("ParseValue(%q) should fail", bad)
		}
	}
}

func TestParseSettings(t *testing.T) {
	got, err := ParseSettings([]string{"p=0.5", "input=in2"})
	if err != nil {
		t.Fatalf("ParseSettings failed: %v", err)
	}
	if got["p"] != 0.5 || got["input"] != "in2" {
		t.Errorf("ParseSettings = %v", got)
	}

	if _, err := ParseSettings([]string{"p"}); err == nil {
		t.Error("missing '=' should fail")
	}
}
