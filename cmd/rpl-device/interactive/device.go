// Package interactive provides the interactive command-line interface
// for rpl-device.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/ograsdijk/pyrpl/pkg/examples"
	"github.com/ograsdijk/pyrpl/pkg/inspect"
	"github.com/ograsdijk/pyrpl/pkg/model"
	"github.com/ograsdijk/pyrpl/pkg/notify"
)

// shellOwner is the owner name used by the own command when none is given.
const shellOwner = "shell"

// Device handles interactive mode for rpl-device.
type Device struct {
	rp        *examples.RedPitaya
	inspector *inspect.Inspector
	formatter *inspect.Formatter
	rl        *readline.Instance
	out       io.Writer

	// Leases taken with the own command, by module name.
	leases map[string]*model.Lease

	// Echo attribute changes while set.
	watching    bool
	unsubscribe func()
}

// New creates a new interactive device handler.
func New(rp *examples.RedPitaya) (*Device, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "rpl> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(rp.Device()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	d := newDevice(rp, rl.Stdout())
	d.rl = rl
	return d, nil
}

func newDevice(rp *examples.RedPitaya, out io.Writer) *Device {
	return &Device{
		rp:        rp,
		inspector: inspect.NewInspector(rp.Device()),
		formatter: inspect.NewFormatter(),
		out:       out,
		leases:    make(map[string]*model.Lease),
	}
}

func completer(d *model.Device) *readline.PrefixCompleter {
	var modules []readline.PrefixCompleterInterface
	for _, m := range d.Modules() {
		modules = append(modules, readline.PcItem(m.Name()))
	}
	var items []readline.PrefixCompleterInterface
	for _, cmd := range []string{"inspect", "help", "get", "set", "setup", "save", "load", "states", "own", "free"} {
		items = append(items, readline.PcItem(cmd, modules...))
	}
	items = append(items,
		readline.PcItem("list"),
		readline.PcItem("reg"),
		readline.PcItem("sweep"),
		readline.PcItem("watch"),
		readline.PcItem("quit"),
	)
	return readline.NewPrefixCompleter(items...)
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (d *Device) Stdout() io.Writer {
	return d.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (d *Device) Stderr() io.Writer {
	return d.rl.Stderr()
}

// Run starts the interactive command loop.
func (d *Device) Run(ctx context.Context, cancel context.CancelFunc) {
	defer d.rl.Close()
	defer d.releaseAll()

	d.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := d.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(d.out, "Exiting...")
			cancel()
			return
		}

		if d.Exec(ctx, line) {
			cancel()
			return
		}
	}
}

// Exec runs one command line. It returns true when the shell should exit.
func (d *Device) Exec(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		d.cmdHelp(args)

	case "list", "ls":
		fmt.Fprint(d.out, d.formatter.FormatModuleList(d.inspector.InspectDevice()))

	case "inspect", "i":
		d.cmdInspect(args)

	case "get", "g":
		d.cmdGet(args)

	case "set", "s":
		d.cmdSet(args)

	case "setup":
		d.cmdSetup(args)

	case "save":
		d.cmdSave(args)

	case "load":
		d.cmdLoad(args)

	case "states":
		d.cmdStates(args)

	case "own":
		d.cmdOwn(args)

	case "free":
		d.cmdFree(args)

	case "reg":
		d.cmdReg(args)

	case "sweep":
		d.cmdSweep(ctx)

	case "watch":
		d.cmdWatch()

	case "quit", "exit", "q":
		fmt.Fprintln(d.out, "Exiting...")
		d.releaseAll()
		return true

	default:
		fmt.Fprintf(d.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (d *Device) printHelp() {
	fmt.Fprintln(d.out, `
RedPitaya Device Commands:
  Inspection:
    list                    - List modules and their owners
    inspect [module]        - Show all attributes (of the device or one module)
    help <module> [attr]    - Show attribute documentation
    get <path>              - Read an attribute, module settings or a saved state
    reg <addr> [value]      - Read or write a raw register word

  Configuration:
    set <module/attr> <val> - Write an attribute (runs the module callback)
    setup <module> [k=v..]  - Apply setup attributes with overrides
    save <module> <state>   - Save current setup attributes as a named state
    load <module> <state>   - Load a named state
    states <module>         - List saved states

  Ownership:
    own <module> [owner]    - Take ownership of a module
    free <module>           - Release a module and restore its settings

  Measurement:
    sweep                   - Run a frequency sweep and store the curve
    watch                   - Toggle echo of attribute changes

  General:
    help                    - Show this help
    quit                    - Exit device

  Path Format:
    module/attribute        - e.g., pid0/setpoint or pid0.p
    module/states/name      - a saved state
    0x40300104              - a register address`)
}

func (d *Device) errorf(err error) {
	fmt.Fprintf(d.out, "Error: %v\n", err)
}

func (d *Device) module(args []string, usage string) (*model.Module, bool) {
	if len(args) == 0 {
		fmt.Fprintf(d.out, "Usage: %s\n", usage)
		return nil, false
	}
	m, err := d.rp.Device().Module(args[0])
	if err != nil {
		d.errorf(err)
		return nil, false
	}
	return m, true
}

func (d *Device) cmdHelp(args []string) {
	if len(args) == 0 {
		d.printHelp()
		return
	}
	m, ok := d.module(args, "help <module> [attribute]")
	if !ok {
		return
	}
	if len(args) == 1 {
		text, _ := m.Help("")
		fmt.Fprint(d.out, text)
		fmt.Fprintln(d.out, m.SetupDoc())
		return
	}
	doc, err := m.Help(args[1])
	if err != nil {
		d.errorf(err)
		return
	}
	fmt.Fprintf(d.out, "%s: %s\n", args[1], doc)
}

func (d *Device) cmdInspect(args []string) {
	if len(args) == 0 {
		fmt.Fprint(d.out, d.formatter.FormatDevice(d.inspector.InspectDevice()))
		return
	}
	info, err := d.inspector.InspectModule(args[0])
	if err != nil {
		d.errorf(err)
		return
	}
	fmt.Fprint(d.out, d.formatter.FormatModule(info))
}

func (d *Device) cmdGet(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(d.out, "Usage: get <path>")
		return
	}
	path, err := inspect.ParsePath(args[0])
	if err != nil {
		fmt.Fprintf(d.out, "Invalid path: %v\n", err)
		return
	}

	if path.IsPartial {
		m, err := d.rp.Device().Module(path.Module)
		if err != nil {
			d.errorf(err)
			return
		}
		s, err := m.SetupAttributes()
		if err != nil {
			d.errorf(err)
			return
		}
		fmt.Fprintf(d.out, "%s:\n%s", m.Name(), d.formatter.FormatSettings(s))
		return
	}

	value, err := d.inspector.Read(path)
	if err != nil {
		d.errorf(err)
		return
	}
	fmt.Fprintf(d.out, "%s = %s\n", path, d.formatter.FormatValue(value))
}

func (d *Device) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(d.out, "Usage: set <module/attribute> <value>")
		return
	}
	path, err := inspect.ParsePath(args[0])
	if err != nil {
		fmt.Fprintf(d.out, "Invalid path: %v\n", err)
		return
	}
	if path.IsRegister {
		fmt.Fprintln(d.out, "Use reg to write registers")
		return
	}
	if err := d.inspector.WriteString(path, strings.Join(args[1:], " ")); err != nil {
		d.errorf(err)
		return
	}
	value, err := d.inspector.Read(path)
	if err != nil {
		d.errorf(err)
		return
	}
	fmt.Fprintf(d.out, "%s = %s\n", path, d.formatter.FormatValue(value))
}

func (d *Device) cmdSetup(args []string) {
	m, ok := d.module(args, "setup <module> [name=value ...]")
	if !ok {
		return
	}
	overrides, err := inspect.ParseSettings(args[1:])
	if err != nil {
		d.errorf(err)
		return
	}
	if err := m.Setup(overrides); err != nil {
		d.errorf(err)
		return
	}
	s, err := m.SetupAttributes()
	if err != nil {
		d.errorf(err)
		return
	}
	fmt.Fprintf(d.out, "%s set up:\n%s", m.Name(), d.formatter.FormatSettings(s))
}

func (d *Device) cmdSave(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(d.out, "Usage: save <module> <state>")
		return
	}
	m, ok := d.module(args, "")
	if !ok {
		return
	}
	if err := m.SaveState(args[1]); err != nil {
		d.errorf(err)
		return
	}
	fmt.Fprintf(d.out, "Saved state %q of %s\n", args[1], m.Name())
}

func (d *Device) cmdLoad(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(d.out, "Usage: load <module> <state>")
		return
	}
	m, ok := d.module(args, "")
	if !ok {
		return
	}
	if err := m.LoadState(args[1]); err != nil {
		d.errorf(err)
		return
	}
	fmt.Fprintf(d.out, "Loaded state %q into %s\n", args[1], m.Name())
}

func (d *Device) cmdStates(args []string) {
	m, ok := d.module(args, "states <module>")
	if !ok {
		return
	}
	states, err := m.States()
	if err != nil {
		d.errorf(err)
		return
	}
	if len(states) == 0 {
		fmt.Fprintf(d.out, "%s has no saved states\n", m.Name())
		return
	}
	for _, name := range states {
		values, err := m.StateValues(name)
		if err != nil {
			d.errorf(err)
			continue
		}
		fmt.Fprintf(d.out, "  %-12s %s\n", name, d.formatter.FormatValues(values))
	}
}

func (d *Device) cmdOwn(args []string) {
	m, ok := d.module(args, "own <module> [owner]")
	if !ok {
		return
	}
	owner := shellOwner
	if len(args) > 1 {
		owner = args[1]
	}
	if prev := m.Owner(); prev != "" && prev != owner {
		fmt.Fprintf(d.out, "Warning: taking %s from %s\n", m.Name(), prev)
	}
	d.leases[m.Name()] = m.Acquire(owner)
	fmt.Fprintf(d.out, "%s owned by %s\n", m.Name(), owner)
}

func (d *Device) cmdFree(args []string) {
	m, ok := d.module(args, "free <module>")
	if !ok {
		return
	}
	var err error
	if lease, ok := d.leases[m.Name()]; ok {
		delete(d.leases, m.Name())
		err = lease.Release()
	} else {
		err = m.Free()
	}
	if err != nil {
		fmt.Fprintf(d.out, "%s freed, restoring settings failed: %v\n", m.Name(), err)
		return
	}
	fmt.Fprintf(d.out, "%s freed\n", m.Name())
}

func (d *Device) releaseAll() {
	for name, lease := range d.leases {
		if err := lease.Release(); err != nil {
			fmt.Fprintf(d.out, "Error: releasing %s: %v\n", name, err)
		}
		delete(d.leases, name)
	}
}

func (d *Device) cmdReg(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(d.out, "Usage: reg <addr> [value]")
		return
	}
	path, err := inspect.ParsePath(args[0])
	if err != nil || !path.IsRegister {
		fmt.Fprintf(d.out, "Invalid register address: %s\n", args[0])
		return
	}
	if len(args) > 1 {
		if err := d.inspector.WriteString(path, args[1]); err != nil {
			d.errorf(err)
			return
		}
	}
	value, err := d.inspector.Read(path)
	if err != nil {
		d.errorf(err)
		return
	}
	fmt.Fprintf(d.out, "%s = %s\n", path, d.formatter.FormatValue(value))
}

func (d *Device) cmdSweep(ctx context.Context) {
	freqs, err := d.rp.Sweep.Frequencies()
	if err != nil {
		d.errorf(err)
		return
	}
	fmt.Fprintf(d.out, "Sweeping %d points from %g Hz to %g Hz...\n", len(freqs), freqs[0], freqs[len(freqs)-1])
	h, err := d.rp.Sweep.Run(ctx)
	if err != nil {
		d.errorf(err)
		return
	}
	fmt.Fprintf(d.out, "Curve %s saved\n", h.ID)
}

func (d *Device) cmdWatch() {
	if d.watching {
		d.unsubscribe()
		d.watching = false
		fmt.Fprintln(d.out, "Watch off")
		return
	}
	d.unsubscribe = d.rp.Device().Subscribe(notify.Funcs{
		Attribute: func(module, name string, value any) {
			fmt.Fprintf(d.out, "[CHANGE] %s/%s = %s\n", module, name, d.formatter.FormatValue(value))
		},
		Ownership: func(module, oldOwner, newOwner string) {
			fmt.Fprintf(d.out, "[OWNER] %s: %q -> %q\n", module, oldOwner, newOwner)
		},
	})
	d.watching = true
	fmt.Fprintln(d.out, "Watch on")
}
