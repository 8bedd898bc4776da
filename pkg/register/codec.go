package register

// DefaultBitLength is the width of most signal registers.
const DefaultBitLength = 14

// Mask returns a mask with the low bitLength bits set.
func Mask(bitLength uint) uint64 {
	if bitLength >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bitLength) - 1
}

// ToSigned decodes the low bitLength bits of raw as a two's-complement value.
func ToSigned(raw uint64, bitLength uint) int64 {
	if bitLength == 0 {
		return 0
	}
	if bitLength > 64 {
		bitLength = 64
	}
	shift := 64 - bitLength
	// Move the field's top bit into the sign position and shift back.
	return int64(raw<<shift) >> shift
}

// ToRaw encodes value as a bitLength-wide two's-complement word.
// Out-of-range values wrap.
func ToRaw(value int64, bitLength uint) uint64 {
	// uint64(value) already adds 2^64 to negatives; masking leaves the
	// same low bits as adding 2^bitLength.
	return uint64(value) & Mask(bitLength)
}

// ToUnsigned masks raw to bitLength bits.
func ToUnsigned(raw uint64, bitLength uint) uint64 {
	return raw & Mask(bitLength)
}

// MinSigned returns the smallest value representable in bitLength bits.
func MinSigned(bitLength uint) int64 {
	if bitLength == 0 {
		return 0
	}
	return -int64(Mask(bitLength-1)) - 1
}

// MaxSigned returns the largest value representable in bitLength bits.
func MaxSigned(bitLength uint) int64 {
	if bitLength == 0 {
		return 0
	}
	return int64(Mask(bitLength - 1))
}

// Field describes a bit field inside a register word.
type Field struct {
	Shift  uint
	Width  uint
	Signed bool
}

// Extract returns the field's value from word.
func (f Field) Extract(word uint64) int64 {
	v := (word >> f.Shift) & Mask(f.Width)
	if f.Signed {
		return ToSigned(v, f.Width)
	}
	return int64(v)
}

// Insert returns word with the field replaced by value.
func (f Field) Insert(word uint64, value int64) uint64 {
	m := Mask(f.Width) << f.Shift
	return (word &^ m) | ((ToRaw(value, f.Width) << f.Shift) & m)
}
