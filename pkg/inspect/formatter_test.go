package inspect

import (
	"strings"
	"testing"

	"github.com/ograsdijk/pyrpl/pkg/model"
)

func TestFormatValue(t *testing.T) {
	f := NewFormatter()

	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{true, "true"},
		{"in1", `"in1"`},
		{0.25, "0.25"},
		{1e6, "1e+06"},
		{int64(-8), "-8"},
		{uint32(0x1000), "0x00001000"},
		{[]any{"a", 1}, `["a", 1]`},
		{map[string]any{"p": 1.5, "i": 0.0}, "i=0 p=1.5"},
	}
	for _, tt := range tests {
		if got := f.FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatAttribute(t *testing.T) {
	f := NewFormatter()
	a := AttributeInfo{
		Name: "input", Type: model.DataTypeEnum, Value: "in1",
		Options: []any{"in1", "in2"}, Setup: true, Register: true,
	}

	got := f.FormatAttribute(a)
	want := `input = "in1"  [enum, register, setup] options: ["in1", "in2"]`
	if got != want {
		t.Errorf("FormatAttribute = %q, want %q", got, want)
	}

	f.ShowMetadata = false
	if got := f.FormatAttribute(a); got != `input = "in1"` {
		t.Errorf("without metadata = %q", got)
	}
}

func TestFormatModuleHidesInternal(t *testing.T) {
	device, _ := createTestDevice(t)
	insp := NewInspector(device)
	f := NewFormatter()

	info, err := insp.InspectModule("pid0")
	if err != nil {
		t.Fatal(err)
	}

	out := f.FormatModule(info)
	if !strings.HasPrefix(out, "pid0 (pid)\n") {
		t.Errorf("unexpected header:\n%s", out)
	}
	if strings.Contains(out, "ival") {
		t.Errorf("hidden attribute shown:\n%s", out)
	}

	f.ShowHidden = true
	if !strings.Contains(f.FormatModule(info), "ival") {
		t.Error("ShowHidden should include ival")
	}

	m, _ := device.Module("pid0")
	m.Acquire("lockbox")
	tree := insp.InspectDevice()
	list := f.FormatModuleList(tree)
	if !strings.Contains(list, "owned by lockbox") || !strings.Contains(list, "free") {
		t.Errorf("module list:\n%s", list)
	}
	if !strings.HasPrefix(f.FormatDevice(tree), "device rp-test\n") {
		t.Errorf("device header missing")
	}
}

func TestIndent(t *testing.T) {
	f := &Formatter{}
	if got := f.Indent(2, "x"); got != "    x" {
		t.Errorf("Indent = %q", got)
	}
}
