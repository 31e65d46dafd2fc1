// Package bit provides small helpers for packing/unpacking the byte and bit
// level values the SM83 and its peripherals traffic in.
package bit

// Combine combines two 8 bit values into a single 16 bit value.
// The high byte will be the most significant one.
func Combine(high, low uint8) uint16 {
	return (uint16(high) << 8) | uint16(low)
}

// IsSet checks if the bit at the specified index is set to 1 or not.
func IsSet(index, b uint8) bool {
	return ((b >> index) & 1) == 1
}

// IsSet16 checks if the bit at the specified index of a 16-bit value is set.
func IsSet16(index, value uint16) bool {
	return ((value >> index) & 1) == 1
}

// Clear returns the passed byte with the bit at the specified index set to 0.
func Clear(index, b uint8) uint8 {
	return b &^ (1 << index)
}

// Set returns the passed byte with the bit at the specified index set to 1.
func Set(index, b uint8) uint8 {
	return b | (1 << index)
}

// Reset is an alias of Clear, kept for symmetry with Set at call sites.
func Reset(index, b uint8) uint8 {
	return Clear(index, b)
}

// Low returns the low (LSB) byte of a 16 bit number.
func Low(value uint16) uint8 {
	return uint8(value)
}

// High returns the high (MSB) byte of a 16 bit number.
func High(value uint16) uint8 {
	return uint8(value >> 8)
}

// ExtractBits extracts bits from highBit to lowBit (inclusive).
// Example: ExtractBits(0b11010110, 6, 4) -> 0b101 (extracts bits 6, 5, 4)
func ExtractBits(value uint8, highBit, lowBit uint8) uint8 {
	width := highBit - lowBit + 1
	mask := uint8((1 << width) - 1)
	return (value >> lowBit) & mask
}
