package register

import (
	"github.com/ograsdijk/pyrpl/pkg/bus"
)

// WordBits is the width of a bus word.
const WordBits = 32

// Bank is a window of registers starting at a base address.
type Bank struct {
	client bus.Client
	base   uint32
}

// NewBank creates a bank for the registers at base.
func NewBank(client bus.Client, base uint32) *Bank {
	return &Bank{client: client, base: base}
}

// Base returns the base address.
func (b *Bank) Base() uint32 {
	return b.base
}

// Reads reads n consecutive words starting at offset.
func (b *Bank) Reads(offset uint32, n int) ([]uint32, error) {
	addr := b.base + offset
	words, err := b.client.Reads(addr, n)
	if err != nil {
		return nil, bus.Wrap("read", addr, err)
	}
	return words, nil
}

// Writes writes consecutive words starting at offset.
func (b *Bank) Writes(offset uint32, values []uint32) error {
	addr := b.base + offset
	return bus.Wrap("write", addr, b.client.Writes(addr, values))
}

// Read reads the word at offset.
func (b *Bank) Read(offset uint32) (uint32, error) {
	addr := b.base + offset
	word, err := bus.Read(b.client, addr)
	if err != nil {
		return 0, bus.Wrap("read", addr, err)
	}
	return word, nil
}

// Write writes the word at offset.
func (b *Bank) Write(offset uint32, value uint32) error {
	return b.Writes(offset, []uint32{value})
}

// ReadValue reads a signed bitLength-wide value.
func (b *Bank) ReadValue(offset uint32, bitLength uint) (int64, error) {
	raw, err := b.Read(offset)
	if err != nil {
		return 0, err
	}
	return ToSigned(uint64(raw), bitLength), nil
}

// WriteValue writes value as a signed bitLength-wide word.
func (b *Bank) WriteValue(offset uint32, value int64, bitLength uint) error {
	return b.Write(offset, uint32(ToRaw(value, min(bitLength, WordBits))))
}

// ReadUnsigned reads an unsigned bitLength-wide value.
func (b *Bank) ReadUnsigned(offset uint32, bitLength uint) (uint64, error) {
	raw, err := b.Read(offset)
	if err != nil {
		return 0, err
	}
	return ToUnsigned(uint64(raw), bitLength), nil
}

// WriteUnsigned writes the low bitLength bits of value.
func (b *Bank) WriteUnsigned(offset uint32, value uint64, bitLength uint) error {
	return b.Write(offset, uint32(ToUnsigned(value, min(bitLength, WordBits))))
}

// ReadField reads a bit field of the word at offset.
func (b *Bank) ReadField(offset uint32, f Field) (int64, error) {
	raw, err := b.Read(offset)
	if err != nil {
		return 0, err
	}
	return f.Extract(uint64(raw)), nil
}

// WriteField updates a bit field of the word at offset, leaving the other
// bits unchanged.
func (b *Bank) WriteField(offset uint32, f Field, value int64) error {
	raw, err := b.Read(offset)
	if err != nil {
		return err
	}
	return b.Write(offset, uint32(f.Insert(uint64(raw), value)))
}
