package video

import "github.com/wakka810/pocketgb/gb/bit"

// tileRow is one 8-pixel row of a tile, stored as the two bit-plane bytes
// VRAM actually holds: bit 7 of each byte is the leftmost pixel.
//
//	Colors[n] = (high bit n) << 1 | (low bit n)
type tileRow struct {
	low, high uint8
}

// pixel returns the 2-bit color index (0-3) at column x (0=leftmost).
func (t tileRow) pixel(x int) uint8 {
	bitIdx := uint8(7 - x)
	var p uint8
	if bit.IsSet(bitIdx, t.low) {
		p |= 1
	}
	if bit.IsSet(bitIdx, t.high) {
		p |= 2
	}
	return p
}

// pixelFlipped is pixel() with the row read right-to-left, for sprites
// with the X-flip attribute set.
func (t tileRow) pixelFlipped(x int) uint8 {
	bitIdx := uint8(x)
	var p uint8
	if bit.IsSet(bitIdx, t.low) {
		p |= 1
	}
	if bit.IsSet(bitIdx, t.high) {
		p |= 2
	}
	return p
}
