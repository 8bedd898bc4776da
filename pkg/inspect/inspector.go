package inspect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ograsdijk/pyrpl/pkg/bus"
	"github.com/ograsdijk/pyrpl/pkg/model"
	"gopkg.in/yaml.v3"
)

// Inspector errors.
var (
	ErrNotWritable = errors.New("path is not writable")
)

// Inspector provides inspection and mutation capabilities for a device.
type Inspector struct {
	device *model.Device
}

// NewInspector creates a new Inspector for the given device.
func NewInspector(device *model.Device) *Inspector {
	return &Inspector{device: device}
}

// Device returns the underlying device model.
func (i *Inspector) Device() *model.Device {
	return i.device
}

// DeviceTree represents the complete device structure for display.
type DeviceTree struct {
	Name    string
	Modules []ModuleInfo
}

// ModuleInfo represents module information for display.
type ModuleInfo struct {
	Name       string
	Type       string
	Owner      string
	States     []string
	Attributes []AttributeInfo
}

// AttributeInfo represents attribute information for display.
type AttributeInfo struct {
	Name     string
	Doc      string
	Type     model.DataType
	Value    any
	Options  []any
	Setup    bool
	Register bool

	// Err is set when the value could not be read.
	Err error
}

// Hidden reports whether the attribute is internal.
func (a AttributeInfo) Hidden() bool {
	return strings.HasPrefix(a.Doc, "_")
}

// ListModules returns the module names in device order.
func (i *Inspector) ListModules() []string {
	var names []string
	for _, m := range i.device.Modules() {
		names = append(names, m.Name())
	}
	return names
}

// InspectDevice returns a complete tree of the device structure.
func (i *Inspector) InspectDevice() *DeviceTree {
	tree := &DeviceTree{Name: i.device.Name()}
	for _, m := range i.device.Modules() {
		tree.Modules = append(tree.Modules, inspectModule(m))
	}
	return tree
}

// InspectModule returns information about a specific module.
func (i *Inspector) InspectModule(name string) (*ModuleInfo, error) {
	m, err := i.device.Module(name)
	if err != nil {
		return nil, err
	}
	info := inspectModule(m)
	return &info, nil
}

func inspectModule(m *model.Module) ModuleInfo {
	info := ModuleInfo{
		Name:  m.Name(),
		Type:  m.Type().Name(),
		Owner: m.Owner(),
	}
	info.States, _ = m.States()

	setup := make(map[string]bool)
	for _, name := range m.Type().SetupAttributes() {
		setup[name] = true
	}

	for _, d := range m.Type().Attributes() {
		a := AttributeInfo{
			Name:     d.Name(),
			Doc:      d.Doc,
			Type:     d.Type,
			Setup:    setup[d.Name()],
			Register: d.Register != nil,
		}
		a.Value, a.Err = m.Get(d.Name())
		if d.Type == model.DataTypeEnum {
			a.Options, _ = m.Options(d.Name())
		}
		info.Attributes = append(info.Attributes, a)
	}
	return info
}

// Read returns the value at path: an attribute value, the setup attributes
// of a module, the values of a saved state or a raw register word.
func (i *Inspector) Read(p *Path) (any, error) {
	if p.IsRegister {
		client := i.device.Client()
		if client == nil {
			return nil, model.ErrNoBus
		}
		return bus.Read(client, p.Address)
	}

	m, err := i.device.Module(p.Module)
	if err != nil {
		return nil, err
	}

	switch {
	case p.IsPartial:
		s, err := m.SetupAttributes()
		if err != nil {
			return nil, err
		}
		return s.Map(), nil
	case p.IsState:
		return m.StateValues(p.State)
	default:
		return m.Get(p.Attribute)
	}
}

// Write sets the attribute or register at path. Attribute writes run the
// module's callback like any direct write.
func (i *Inspector) Write(p *Path, value any) error {
	if p.IsRegister {
		client := i.device.Client()
		if client == nil {
			return model.ErrNoBus
		}
		word, ok := value.(int)
		if !ok || word < 0 || word > 0xFFFFFFFF {
			return fmt.Errorf("register value %v is not a 32-bit word", value)
		}
		return bus.Write(client, p.Address, uint32(word))
	}
	if p.IsPartial || p.IsState {
		return fmt.Errorf("%w: %s", ErrNotWritable, p)
	}

	m, err := i.device.Module(p.Module)
	if err != nil {
		return err
	}
	return m.Set(p.Attribute, value)
}

// WriteString parses input with ParseValue and writes it to path.
func (i *Inspector) WriteString(p *Path, input string) error {
	v, err := ParseValue(input)
	if err != nil {
		return err
	}
	return i.Write(p, v)
}

// ParseValue parses a user supplied scalar using YAML rules: "true" is a
// bool, "0x10" and "-3" are ints, "1e3" is a float and anything else is a
// string. Attribute validation converts the result further.
func ParseValue(input string) (any, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty value")
	}

	var v any
	if err := yaml.Unmarshal([]byte(input), &v); err != nil {
		return nil, fmt.Errorf("invalid value %q: %w", input, err)
	}
	switch v.(type) {
	case map[string]any, []any:
		return nil, fmt.Errorf("invalid value %q: not a scalar", input)
	case nil:
		return nil, fmt.Errorf("invalid value %q", input)
	}
	return v, nil
}

// ParseSettings parses "name=value" arguments into a setup override map.
func ParseSettings(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", arg)
		}
		v, err := ParseValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}
