package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReadsWrites(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.Writes(0x100, []uint32{1, 2, 3}))

	got, err := m.Reads(0x100, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, got)

	assert.Equal(t, uint32(2), m.Peek(0x104))
	assert.Equal(t, uint32(0), m.Peek(0x200))

	reads, writes := m.Stats()
	assert.Equal(t, 1, reads)
	assert.Equal(t, 1, writes)
}

func TestSingleWordHelpers(t *testing.T) {
	m := NewMemory()

	require.NoError(t, Write(m, 0x8, 0xdead))
	v, err := Read(m, 0x8)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdead), v)
}

func TestMemoryErrors(t *testing.T) {
	m := NewMemory()

	t.Run("Unaligned", func(t *testing.T) {
		_, err := m.Reads(0x3, 1)
		assert.ErrorIs(t, err, ErrUnaligned)
		assert.ErrorIs(t, err, ErrTransport)
	})

	t.Run("InvalidSize", func(t *testing.T) {
		_, err := m.Reads(0x0, 0)
		assert.ErrorIs(t, err, ErrInvalidSize)
	})

	t.Run("InjectedFault", func(t *testing.T) {
		boom := errors.New("link down")
		m.FailNext(boom)

		err := m.Writes(0x0, []uint32{1})
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, ErrTransport)

		// Fault is consumed by the first call.
		assert.NoError(t, m.Writes(0x0, []uint32{1}))
	})
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("read", 0, nil))

	err := Wrap("read", 0x10, errors.New("timeout"))
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, uint32(0x10), te.Addr)

	// Already wrapped errors are passed through.
	assert.Same(t, err, Wrap("write", 0x20, err))
}
