package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends CBOR events to a file. Events are written back to
// back with no framing; Reader decodes them one at a time.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	enc     *cbor.Encoder
	dropped int
}

// NewFileLogger opens path for appending, creating it and its directory
// as needed.
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create event log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &FileLogger{file: f, enc: logEncMode.NewEncoder(f)}, nil
}

// Log appends event. Write failures never reach the module that raised
// the event; they are counted in Dropped. Events logged after Close are
// dropped as well.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil || l.enc.Encode(event) != nil {
		l.dropped++
	}
}

// Dropped returns the number of events that could not be written.
func (l *FileLogger) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close closes the file. Closing twice is a no-op.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

var _ Logger = (*FileLogger)(nil)
