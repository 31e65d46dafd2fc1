package memory

import (
	"github.com/wakka810/pocketgb/gb/addr"
	"github.com/wakka810/pocketgb/gb/bit"
	"github.com/wakka810/pocketgb/gb/interrupt"
)

// Key identifies one of the eight DMG buttons.
type Key uint8

const (
	KeyRight Key = iota
	KeyLeft
	KeyUp
	KeyDown
	KeyA
	KeyB
	KeySelect
	KeyStart
)

// Joypad models the P1 (FF00) register: a write-only 2-bit selector over
// two 4-bit button groups, each bit 0 when its button is held down.
type Joypad struct {
	buttons  uint8 // A/B/Select/Start, bits 0-3, 1 = released
	dpad     uint8 // Right/Left/Up/Down, bits 0-3, 1 = released
	selector uint8 // bits 4-5 as last written to P1

	irq *interrupt.Controller
}

// NewJoypad creates a Joypad with all buttons released, reporting button
// transitions through the given controller.
func NewJoypad(irq *interrupt.Controller) *Joypad {
	return &Joypad{buttons: 0x0F, dpad: 0x0F, irq: irq}
}

// Read returns the P1 register as software would see it: bits 6-7 always
// 1, bits 4-5 the last-written selection, bits 0-3 the selected group(s)
// ANDed together if both are selected.
func (j *Joypad) Read() uint8 {
	result := uint8(0xC0) | j.selector

	selectDpad := !bit.IsSet(4, j.selector)
	selectButtons := !bit.IsSet(5, j.selector)

	switch {
	case selectButtons && !selectDpad:
		result |= j.buttons & 0x0F
	case selectDpad && !selectButtons:
		result |= j.dpad & 0x0F
	case selectButtons && selectDpad:
		result |= j.buttons & j.dpad & 0x0F
	default:
		result |= 0x0F
	}

	return result
}

// Write stores the selector bits (4-5); the rest of P1 is read-only.
func (j *Joypad) Write(value uint8) {
	j.selector = value & 0x30
}

// Press marks a key as held. A 1->0 transition on a currently-selected
// line raises the Joypad interrupt, matching real hardware's "any
// selected line pulled low" wiring.
func (j *Joypad) Press(key Key) {
	before := j.Read()
	j.setBit(key, &j.buttons, &j.dpad, false)
	after := j.Read()
	if before&^after&0x0F != 0 {
		j.irq.Request(addr.Joypad)
	}
}

// Release marks a key as no longer held.
func (j *Joypad) Release(key Key) {
	j.setBit(key, &j.buttons, &j.dpad, true)
}

func (j *Joypad) setBit(key Key, buttons, dpad *uint8, released bool) {
	var target *uint8
	var index uint8

	switch key {
	case KeyRight:
		target, index = dpad, 0
	case KeyLeft:
		target, index = dpad, 1
	case KeyUp:
		target, index = dpad, 2
	case KeyDown:
		target, index = dpad, 3
	case KeyA:
		target, index = buttons, 0
	case KeyB:
		target, index = buttons, 1
	case KeySelect:
		target, index = buttons, 2
	case KeyStart:
		target, index = buttons, 3
	default:
		return
	}

	if released {
		*target = bit.Set(index, *target)
	} else {
		*target = bit.Reset(index, *target)
	}
}
