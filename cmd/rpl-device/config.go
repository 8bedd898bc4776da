package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the device configuration.
type Config struct {
	ConfigFile string `yaml:"-"`

	Name                string  `yaml:"name"`
	StateFile           string  `yaml:"state"`
	Remote              string  `yaml:"remote"`
	EventLog            string  `yaml:"event_log"`
	LogLevel            string  `yaml:"log_level"`
	FrequencyCorrection float64 `yaml:"frequency_correction"`
	CurveDir            string  `yaml:"curves"`
	PIDs                int     `yaml:"pids"`
	ASGs                int     `yaml:"asgs"`
	Interactive         bool    `yaml:"interactive"`
	Watch               bool    `yaml:"watch"`
}

// flagNames maps the YAML keys to the flags that override them.
var flagNames = map[string]string{
	"name":                 "name",
	"state":                "state",
	"remote":               "remote",
	"event_log":            "event-log",
	"log_level":            "log-level",
	"frequency_correction": "freq-correction",
	"curves":               "curves",
	"pids":                 "pids",
	"asgs":                 "asgs",
	"interactive":          "interactive",
	"watch":                "watch",
}

func registerFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.ConfigFile, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&c.Name, "name", "redpitaya", "Device name used in event logs")
	fs.StringVar(&c.StateFile, "state", "rpl-device.yaml", "Module state file (YAML)")
	fs.StringVar(&c.Remote, "remote", "", "Register server host:port (default: simulated registers)")
	fs.StringVar(&c.EventLog, "event-log", "", "Write module events to this file (CBOR)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.Float64Var(&c.FrequencyCorrection, "freq-correction", 1.0, "Clock frequency correction factor (0 disables)")
	fs.StringVar(&c.CurveDir, "curves", "", "Directory for saved curves (default: in memory)")
	fs.IntVar(&c.PIDs, "pids", 3, "Number of PID modules")
	fs.IntVar(&c.ASGs, "asgs", 2, "Number of signal generators")
	fs.BoolVar(&c.Interactive, "interactive", false, "Enable interactive command mode")
	fs.BoolVar(&c.Watch, "watch", true, "Reload module state when the state file changes")
}

// loadConfigFile applies the YAML file at c.ConfigFile to every field whose
// flag was not given explicitly.
func loadConfigFile(fs *flag.FlagSet, c *Config) error {
	if c.ConfigFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", c.ConfigFile, err)
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config %s: %w", c.ConfigFile, err)
	}

	for key := range raw {
		name, ok := flagNames[key]
		if !ok {
			return fmt.Errorf("config %s: unknown key %q", c.ConfigFile, key)
		}
		if set[name] {
			continue
		}
		switch key {
		case "name":
			c.Name = file.Name
		case "state":
			c.StateFile = file.StateFile
		case "remote":
			c.Remote = file.Remote
		case "event_log":
			c.EventLog = file.EventLog
		case "log_level":
			c.LogLevel = file.LogLevel
		case "frequency_correction":
			c.FrequencyCorrection = file.FrequencyCorrection
		case "curves":
			c.CurveDir = file.CurveDir
		case "pids":
			c.PIDs = file.PIDs
		case "asgs":
			c.ASGs = file.ASGs
		case "interactive":
			c.Interactive = file.Interactive
		case "watch":
			c.Watch = file.Watch
		}
	}
	return nil
}

func validateConfig(c *Config) error {
	if c.PIDs < 1 || c.PIDs > 8 {
		return fmt.Errorf("pids must be 1-8, got %d", c.PIDs)
	}
	if c.ASGs < 1 || c.ASGs > 4 {
		return fmt.Errorf("asgs must be 1-4, got %d", c.ASGs)
	}
	if c.FrequencyCorrection < 0 {
		return fmt.Errorf("frequency correction must not be negative, got %g", c.FrequencyCorrection)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func applyDefaults(c *Config) {
	if c.Name == "" {
		c.Name = "redpitaya"
	}
	if c.StateFile == "" {
		c.StateFile = "rpl-device.yaml"
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s (use: debug, info, warn, error)", s)
	}
}
