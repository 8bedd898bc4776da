package inspect

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/ograsdijk/pyrpl/pkg/model"
)

// Formatter formats inspection output.
type Formatter struct {
	// ShowMetadata includes type, options and storage information
	ShowMetadata bool

	// ShowHidden includes attributes whose doc starts with "_"
	ShowHidden bool

	// IndentWidth is the number of spaces per indent level
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowMetadata: true,
		IndentWidth:  2,
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	return strings.Repeat(" ", depth*width) + content
}

// FormatValue formats a value for display.
func (f *Formatter) FormatValue(value any) string {
	if value == nil {
		return "null"
	}

	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case uint32:
		return fmt.Sprintf("0x%08x", v)
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = f.FormatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		return f.FormatValues(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FormatValues formats a flat map as sorted "name=value" pairs.
func (f *Formatter) FormatValues(values map[string]any) string {
	keys := slices.Sorted(maps.Keys(values))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + f.FormatValue(values[k])
	}
	return strings.Join(parts, " ")
}

// FormatSettings formats an ordered snapshot one attribute per line.
func (f *Formatter) FormatSettings(s model.Settings) string {
	var sb strings.Builder
	for _, e := range s {
		sb.WriteString(f.Indent(1, e.Name+": "+f.FormatValue(e.Value)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatAttribute formats one attribute line.
func (f *Formatter) FormatAttribute(a AttributeInfo) string {
	var sb strings.Builder
	sb.WriteString(a.Name)
	sb.WriteString(" = ")
	if a.Err != nil {
		sb.WriteString("<error: " + a.Err.Error() + ">")
	} else {
		sb.WriteString(f.FormatValue(a.Value))
	}

	if f.ShowMetadata {
		var meta []string
		meta = append(meta, a.Type.String())
		if a.Register {
			meta = append(meta, "register")
		}
		if a.Setup {
			meta = append(meta, "setup")
		}
		sb.WriteString("  [" + strings.Join(meta, ", ") + "]")
		if len(a.Options) > 0 {
			sb.WriteString(" options: " + f.FormatValue(a.Options))
		}
	}
	return sb.String()
}

// FormatModule formats a module with its attributes.
func (f *Formatter) FormatModule(m *ModuleInfo) string {
	var sb strings.Builder

	header := fmt.Sprintf("%s (%s)", m.Name, m.Type)
	if m.Owner != "" {
		header += " owned by " + m.Owner
	}
	sb.WriteString(header + "\n")

	for _, a := range m.Attributes {
		if a.Hidden() && !f.ShowHidden {
			continue
		}
		sb.WriteString(f.Indent(1, f.FormatAttribute(a)) + "\n")
	}
	if len(m.States) > 0 {
		sb.WriteString(f.Indent(1, "states: "+strings.Join(m.States, ", ")) + "\n")
	}
	return sb.String()
}

// FormatDevice formats the complete device tree.
func (f *Formatter) FormatDevice(tree *DeviceTree) string {
	var sb strings.Builder
	sb.WriteString("device " + tree.Name + "\n")
	for i := range tree.Modules {
		for _, line := range strings.Split(strings.TrimRight(f.FormatModule(&tree.Modules[i]), "\n"), "\n") {
			sb.WriteString(f.Indent(1, line) + "\n")
		}
	}
	return sb.String()
}

// FormatModuleList formats module names with their owners.
func (f *Formatter) FormatModuleList(tree *DeviceTree) string {
	var sb strings.Builder
	for _, m := range tree.Modules {
		owner := "free"
		if m.Owner != "" {
			owner = "owned by " + m.Owner
		}
		sb.WriteString(fmt.Sprintf("%-10s %-8s %s\n", m.Name, m.Type, owner))
	}
	return sb.String()
}
