// Command rpl-sim serves a simulated Red Pitaya register file over TCP.
//
// rpl-device connects to it with -remote. Registers start at zero and keep
// whatever is written to them until the simulator exits.
//
// Usage:
//
//	rpl-sim [flags]
//
// Flags:
//
//	-listen string     Listen address (default ":2222")
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-in1 float         Constant voltage presented on input 1
//	-in2 float         Constant voltage presented on input 2
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ograsdijk/pyrpl/pkg/bus"
	"github.com/ograsdijk/pyrpl/pkg/examples"
	"github.com/ograsdijk/pyrpl/pkg/register"
	"github.com/ograsdijk/pyrpl/pkg/transport"
)

// Config holds the simulator configuration.
type Config struct {
	Listen   string
	LogLevel string
	In1      float64
	In2      float64
}

var config Config

func init() {
	flag.StringVar(&config.Listen, "listen", transport.DefaultAddress, "Listen address")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.Float64Var(&config.In1, "in1", 0, "Constant voltage presented on input 1")
	flag.Float64Var(&config.In2, "in2", 0, "Constant voltage presented on input 2")
}

func main() {
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(config.LogLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %s\n", config.LogLevel)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger); err != nil {
		logger.Error("simulator failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	mem := bus.NewMemory()
	if err := presetInputs(mem, config.In1, config.In2); err != nil {
		return err
	}

	srv, err := transport.NewServer(transport.ServerConfig{
		Address: config.Listen,
		Backend: mem,
		Logger:  logger,
		OnError: func(connID string, err error) {
			logger.Warn("connection failed", "conn", connID, "error", err)
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal", "signal", sig)

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}
	reads, writes := mem.Stats()
	logger.Info("simulator stopped", "reads", reads, "writes", writes)
	return nil
}

// presetInputs writes the sampler input registers.
func presetInputs(c bus.Client, in1, in2 float64) error {
	bank := register.NewBank(c, examples.SamplerBase)
	if err := examples.SetSamplerInput(bank, "in1", in1); err != nil {
		return err
	}
	return examples.SetSamplerInput(bank, "in2", in2)
}
