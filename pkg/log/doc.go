// Package log records module events for later inspection.
//
// This package defines the Logger interface and the Event type used to
// capture what happened to a device's modules: attribute writes, option
// changes, owner transitions, completed setups and failures. It is separate
// from operational logging (slog); the event log is a complete
// machine-readable trace that can be replayed with the rpl-log tool.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: append to a binary file
//	cfg.EventLogger, _ = log.NewFileLogger("/var/log/pyrpl/device.elog")
//
//	// Both
//	cfg.EventLogger = log.NewMultiLogger(adapter, fileLogger)
//
// NewObserver turns a Logger into a notify.Observer so that every change
// raised by a module's notifier ends up in the log.
//
// # File Format
//
// Log files are a sequence of CBOR-encoded events with integer keys.
package log
