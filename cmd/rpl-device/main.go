// Command rpl-device runs a Red Pitaya module tree.
//
// The device is built from PID controllers, signal generators and a
// frequency sweep. Registers live in a simulated register file unless
// -remote points at an rpl-sim (or a real register server). Module
// settings are persisted to a YAML state file, which is reloaded when it
// is edited while the device runs.
//
// Usage:
//
//	rpl-device [flags]
//
// Flags:
//
//	-config string          Configuration file path (YAML)
//	-state string           Module state file (default "rpl-device.yaml")
//	-remote string          Register server host:port
//	-event-log string       Write module events to this file (CBOR)
//	-log-level string       Log level: debug, info, warn, error (default "info")
//	-freq-correction float  Clock frequency correction factor (default 1)
//	-curves string          Directory for saved curves
//	-interactive            Enable interactive command mode
//
// Examples:
//
//	# Simulated device with an interactive shell
//	rpl-device -interactive
//
//	# Talk to a register server and record events
//	rpl-device -remote rp-f0a1b2:2222 -event-log rp.rlog -interactive
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ograsdijk/pyrpl/cmd/rpl-device/interactive"
	"github.com/ograsdijk/pyrpl/pkg/bus"
	"github.com/ograsdijk/pyrpl/pkg/config"
	"github.com/ograsdijk/pyrpl/pkg/curve"
	"github.com/ograsdijk/pyrpl/pkg/examples"
	"github.com/ograsdijk/pyrpl/pkg/log"
	"github.com/ograsdijk/pyrpl/pkg/model"
	"github.com/ograsdijk/pyrpl/pkg/notify"
	"github.com/ograsdijk/pyrpl/pkg/transport"
)

var cfg Config

func init() {
	registerFlags(flag.CommandLine, &cfg)
}

// logOutput lets the interactive shell take over log output once its
// readline instance exists.
type logOutput struct {
	mu sync.Mutex
	w  io.Writer
}

func (o *logOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.w.Write(p)
}

func (o *logOutput) set(w io.Writer) {
	o.mu.Lock()
	o.w = w
	o.mu.Unlock()
}

func main() {
	flag.Parse()

	if err := loadConfigFile(flag.CommandLine, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if err := validateConfig(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	applyDefaults(&cfg)

	level, _ := parseLevel(cfg.LogLevel)
	out := &logOutput{w: os.Stderr}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	if err := run(logger, out); err != nil {
		logger.Error("device failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, out *logOutput) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting device", "name", cfg.Name, "state", cfg.StateFile)

	client, closeClient, err := openBus(ctx, logger)
	if err != nil {
		return err
	}
	defer closeClient()

	store, err := config.OpenFileStore(cfg.StateFile, config.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}

	var curves curve.Sink = curve.NewMemoryStore()
	if cfg.CurveDir != "" {
		fs, err := curve.NewFileStore(cfg.CurveDir, logger)
		if err != nil {
			return fmt.Errorf("open curve store: %w", err)
		}
		curves = fs
	}

	var events log.Logger = log.NoopLogger{}
	if cfg.EventLog != "" {
		fl, err := log.NewFileLogger(cfg.EventLog)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		defer fl.Close()
		events = fl
		logger.Info("recording module events", "path", cfg.EventLog)
	}

	rp, err := examples.NewRedPitaya(examples.RedPitayaConfig{
		Device: model.DeviceConfig{
			Name:                cfg.Name,
			Store:               store,
			Client:              client,
			FrequencyCorrection: cfg.FrequencyCorrection,
			Curves:              curves,
			Logger:              logger,
			Events:              events,
		},
		PIDs: cfg.PIDs,
		ASGs: cfg.ASGs,
	})
	if err != nil {
		return fmt.Errorf("create device: %w", err)
	}
	device := rp.Device()
	logger.Info("device ready", "modules", len(device.Modules()))

	device.Subscribe(log.NewObserver(events, device.Name()))
	device.Subscribe(notify.NewSlogObserver(logger))
	device.Subscribe(notify.NewSignalObserver(ctx))

	if cfg.Watch {
		w := config.NewWatcher(store, func() {
			logger.Info("state file changed, reloading modules")
			if err := device.ReloadConfig(); err != nil {
				logger.Warn("reload failed", "error", err)
			}
		}, logger)
		if err := w.Start(ctx); err != nil {
			logger.Warn("state file watch disabled", "error", err)
		}
	}

	if cfg.Interactive {
		shell, err := interactive.New(rp)
		if err != nil {
			return fmt.Errorf("create interactive shell: %w", err)
		}
		out.set(shell.Stderr())
		go shell.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return nil
}

// openBus connects to the register server named by -remote, or creates a
// simulated register file.
func openBus(ctx context.Context, logger *slog.Logger) (bus.Client, func(), error) {
	if cfg.Remote == "" {
		logger.Info("using simulated registers")
		return bus.NewMemory(), func() {}, nil
	}

	client, err := transport.Dial(ctx, transport.ClientConfig{
		Address: cfg.Remote,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", cfg.Remote, err)
	}
	logger.Info("connected to register server", "address", cfg.Remote)
	return client, func() { client.Close() }, nil
}
