// Command rpl-log is a tool for viewing and analyzing module event logs.
//
// Event logs are written by rpl-device with the -event-log flag.
//
// Usage:
//
//	rpl-log <command> [flags] <file.rlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON lines or CSV
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	rpl-log view device.rlog
//
//	# View only ownership changes of asg0
//	rpl-log view -module asg0 -kind ownership device.rlog
//
//	# Export setup events to CSV
//	rpl-log export -format csv -kind setup -o setups.csv device.rlog
//
//	# Show statistics
//	rpl-log stats device.rlog
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ograsdijk/pyrpl/cmd/rpl-log/commands"
	"github.com/ograsdijk/pyrpl/pkg/log"
)

const usage = `rpl-log - Module Event Log Analyzer

Usage:
  rpl-log <command> [flags] <file.rlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON lines or CSV
  stats    Show statistics about the log file

Use "rpl-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// filterFlags are the event filter flags shared by view and export.
type filterFlags struct {
	device string
	module string
	kind   string
	since  time.Duration
}

func (f *filterFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.device, "device", "", "Filter by device name")
	fs.StringVar(&f.module, "module", "", "Filter by module name")
	fs.StringVar(&f.kind, "kind", "", "Filter by kind (attribute, options, ownership, setup, error)")
	fs.DurationVar(&f.since, "since", 0, "Only events newer than this (e.g. 10m)")
}

func (f *filterFlags) build() (log.Filter, error) {
	filter := log.Filter{Device: f.device, Module: f.module}
	if f.kind != "" {
		c, err := commands.ParseCategoryFlag(f.kind)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	if f.since > 0 {
		start := time.Now().Add(-f.since)
		filter.TimeStart = &start
	}
	return filter, nil
}

func parseArgs(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `rpl-log view - View log file in human-readable format

Usage:
  rpl-log view [flags] <file.rlog>

Flags:
`)
		fs.PrintDefaults()
	}

	var ff filterFlags
	ff.register(fs)
	path := parseArgs(fs, args)

	filter, err := ff.build()
	if err != nil {
		fail(err)
	}
	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `rpl-log export - Export log file to JSON lines or CSV

Usage:
  rpl-log export [flags] <file.rlog>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	var ff filterFlags
	ff.register(fs)
	path := parseArgs(fs, args)

	filter, err := ff.build()
	if err != nil {
		fail(err)
	}
	if err := commands.RunExport(path, *format, *output, filter); err != nil {
		fail(err)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `rpl-log stats - Show statistics about the log file

Usage:
  rpl-log stats <file.rlog>
`)
	}

	path := parseArgs(fs, args)
	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
