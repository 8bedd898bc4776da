package bus

import (
	"errors"
	"fmt"
	"sync"
)

// Memory errors.
var (
	ErrUnaligned   = errors.New("unaligned address")
	ErrInvalidSize = errors.New("invalid read length")
)

// Memory is an in-process register file. Unwritten words read as zero.
// It is safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	words map[uint32]uint32
	fault error

	reads  int
	writes int
}

// NewMemory creates an empty register file.
func NewMemory() *Memory {
	return &Memory{words: make(map[uint32]uint32)}
}

// Reads returns n consecutive words starting at addr.
func (m *Memory) Reads(addr uint32, n int) ([]uint32, error) {
	if addr%WordSize != 0 {
		return nil, &TransportError{Op: "read", Addr: addr, Err: ErrUnaligned}
	}
	if n <= 0 {
		return nil, &TransportError{Op: "read", Addr: addr, Err: fmt.Errorf("%w: %d", ErrInvalidSize, n)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFault(); err != nil {
		return nil, &TransportError{Op: "read", Addr: addr, Err: err}
	}

	m.reads++
	out := make([]uint32, n)
	for i := range out {
		out[i] = m.words[addr+uint32(i)*WordSize]
	}
	return out, nil
}

// Writes stores values at consecutive words starting at addr.
func (m *Memory) Writes(addr uint32, values []uint32) error {
	if addr%WordSize != 0 {
		return &TransportError{Op: "write", Addr: addr, Err: ErrUnaligned}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFault(); err != nil {
		return &TransportError{Op: "write", Addr: addr, Err: err}
	}

	m.writes++
	for i, v := range values {
		m.words[addr+uint32(i)*WordSize] = v
	}
	return nil
}

// Peek returns the word at addr without counting an access.
func (m *Memory) Peek(addr uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.words[addr]
}

// Poke stores a word without counting an access.
func (m *Memory) Poke(addr uint32, value uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.words[addr] = value
}

// FailNext makes the next Reads or Writes call fail with err.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = err
}

// Stats returns the number of read and write calls served.
func (m *Memory) Stats() (reads, writes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads, m.writes
}

func (m *Memory) takeFault() error {
	err := m.fault
	m.fault = nil
	return err
}

// Compile-time interface satisfaction check.
var _ Client = (*Memory)(nil)
