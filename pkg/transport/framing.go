package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

const (
	// LengthPrefixSize is the size of the big-endian length prefix.
	LengthPrefixSize = 4

	// DefaultMaxMessageSize bounds a message (64 KB), which is enough
	// for a full wire.MaxWords register block.
	DefaultMaxMessageSize = 65536
)

// Framing errors.
var (
	ErrMessageTooLarge = errors.New("message too large")
	ErrMessageEmpty    = errors.New("message is empty")
	ErrFrameTruncated  = errors.New("frame truncated")
)

// Framer reads and writes length-prefixed messages on a stream. Writes
// may come from several goroutines; reads must not.
type Framer struct {
	rw      io.ReadWriter
	maxSize uint32
	logger  *slog.Logger

	wmu    sync.Mutex
	prefix [LengthPrefixSize]byte
}

// NewFramer creates a framer on rw. A maxSize of 0 means
// DefaultMaxMessageSize.
func NewFramer(rw io.ReadWriter, maxSize uint32) *Framer {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Framer{rw: rw, maxSize: maxSize}
}

// SetLogger enables debug logging of frame sizes. nil disables it.
func (f *Framer) SetLogger(logger *slog.Logger) {
	f.logger = logger
}

func (f *Framer) checkSize(n int) error {
	if n == 0 {
		return ErrMessageEmpty
	}
	if uint64(n) > uint64(f.maxSize) {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, n, f.maxSize)
	}
	return nil
}

// WriteFrame sends msg with its length prefix in a single write.
func (f *Framer) WriteFrame(msg []byte) error {
	if err := f.checkSize(len(msg)); err != nil {
		return err
	}

	frame := make([]byte, LengthPrefixSize, LengthPrefixSize+len(msg))
	binary.BigEndian.PutUint32(frame, uint32(len(msg)))
	frame = append(frame, msg...)

	f.wmu.Lock()
	_, err := f.rw.Write(frame)
	f.wmu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	f.trace("out", len(frame))
	return nil
}

// ReadFrame returns the next message. io.EOF is returned as is when the
// stream ends between frames.
func (f *Framer) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(f.rw, f.prefix[:]); err != nil {
		switch {
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, ErrFrameTruncated
		case err == io.EOF:
			return nil, err
		}
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	n := binary.BigEndian.Uint32(f.prefix[:])
	if err := f.checkSize(int(n)); err != nil {
		return nil, err
	}

	msg := make([]byte, n)
	if _, err := io.ReadFull(f.rw, msg); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	f.trace("in", LengthPrefixSize+len(msg))
	return msg, nil
}

func (f *Framer) trace(direction string, size int) {
	if f.logger == nil || !f.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	f.logger.Debug("frame", "direction", direction, "size", size)
}
