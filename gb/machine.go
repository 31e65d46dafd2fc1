// Package gb ties the CPU, memory bus, PPU and APU together into a
// runnable machine: ROM loading, button input, frame stepping and
// snapshot/restore, matching the boundary a frontend actually needs.
package gb

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/wakka810/pocketgb/gb/cpu"
	"github.com/wakka810/pocketgb/gb/memory"
	"github.com/wakka810/pocketgb/gb/video"
)

// Button identifies one of the eight DMG inputs, using the bit order
// set_buttons expects: A=0, B=1, Select=2, Start=3, Right=4, Left=5,
// Up=6, Down=7.
type Button uint8

const (
	ButtonA Button = iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonRight
	ButtonLeft
	ButtonUp
	ButtonDown
)

var buttonKeys = [8]memory.Key{
	ButtonA:      memory.KeyA,
	ButtonB:      memory.KeyB,
	ButtonSelect: memory.KeySelect,
	ButtonStart:  memory.KeyStart,
	ButtonRight:  memory.KeyRight,
	ButtonLeft:   memory.KeyLeft,
	ButtonUp:     memory.KeyUp,
	ButtonDown:   memory.KeyDown,
}

// ErrorKind distinguishes the conditions a frontend needs to react to
// differently, per spec §7.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrRomFormat
	ErrIllegalOpcode
	ErrIoFailure
	ErrFrontendDisconnect
)

// CrashError is returned by RunFrame once the CPU has locked up on an
// undefined opcode. The machine's state remains inspectable; nothing
// further will execute until a fresh ROM is loaded.
type CrashError struct {
	Opcode uint8
	PC     uint16
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("illegal opcode 0x%02X at PC=0x%04X", e.Opcode, e.PC)
}

// Kind implements the ErrorKind-carrying convention used across the
// machine's error returns.
func (e *CrashError) Kind() ErrorKind { return ErrIllegalOpcode }

// Machine is the whole emulated console: CPU, bus (which in turn owns
// the PPU/APU/timer/joypad/serial/cartridge), wired the way a frontend
// drives it one frame at a time.
type Machine struct {
	cpu *cpu.CPU
	bus *memory.Bus

	lastButtons uint8
	crashed     bool
}

// New returns a Machine with no cartridge loaded.
func New() *Machine {
	bus := memory.New()
	return &Machine{
		cpu: cpu.New(bus),
		bus: bus,
	}
}

// LoadROM parses rom's header, selects the right MBC, and maps it in.
// Any previously loaded cartridge (and its unsaved RAM) is replaced.
// Per spec §7, a malformed ROM surfaces as a *memory.RomFormatError and
// leaves the previously loaded cartridge (if any) untouched.
func (m *Machine) LoadROM(rom []byte) error {
	cart, err := memory.NewCartridge(rom)
	if err != nil {
		return err
	}
	m.bus.LoadCartridge(cart)
	m.cpu = cpu.New(m.bus)
	m.crashed = false
	return nil
}

// LoadSave restores a cartridge's battery-backed RAM from a previously
// written <rom>.sav image. No-op if the current cartridge has none.
func (m *Machine) LoadSave(data []byte) {
	if cart := m.bus.Cartridge(); cart != nil {
		cart.LoadRAM(data)
	}
}

// SaveData returns the current cartridge's battery-backed RAM for
// persisting to <rom>.sav, or nil if it has none worth saving.
func (m *Machine) SaveData() []byte {
	cart := m.bus.Cartridge()
	if cart == nil || !cart.HasBatteryRAM() {
		return nil
	}
	return cart.RAM()
}

// SetButtons applies the eight-bit button mask described in spec §6; a
// set bit means the button is held. Pressing a button pulls its P1 line
// from 1 to 0, which raises the Joypad interrupt when that button's group
// is selected in P1; releasing never does. Only buttons whose bit changed
// since the previous call are pressed or released.
func (m *Machine) SetButtons(mask uint8) {
	changed := m.lastButtons ^ mask
	for i := 0; i < 8; i++ {
		if changed&(1<<i) == 0 {
			continue
		}
		key := buttonKeys[i]
		if mask&(1<<i) != 0 {
			m.bus.Joypad.Press(key)
		} else {
			m.bus.Joypad.Release(key)
		}
	}
	m.lastButtons = mask
}

// RunFrame advances the machine until the PPU enters VBlank for the next
// frame, returning the completed framebuffer and any PCM samples the APU
// produced along the way. If the CPU has locked up on an illegal opcode
// it returns immediately with a *CrashError and an empty frame.
func (m *Machine) RunFrame() (video.FrameBuffer, []int16, error) {
	if m.crashed {
		return video.FrameBuffer{}, nil, &CrashError{Opcode: m.cpu.LockedOpcode(), PC: m.cpu.PC()}
	}

	for {
		m.cpu.Step()

		if m.cpu.IsLockedUp() {
			m.crashed = true
			return video.FrameBuffer{}, nil, &CrashError{Opcode: m.cpu.LockedOpcode(), PC: m.cpu.PC()}
		}

		if fb, ready := m.bus.PPU.Frame(); ready {
			samples := m.bus.APU.GetSamples(m.bus.APU.PendingSampleCount())
			return fb, samples, nil
		}
	}
}

// CPU exposes the underlying CPU for debug frontends (--debug) that want
// register/flag inspection without a full snapshot round-trip.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// snapshot is the flat, deterministic serialization format spec §6's
// snapshot()/restore() calls for: the CPU register file and IME, the last
// button mask, and the RAM regions. Peripheral state (PPU, APU, timer,
// serial, IF/IE) and the MBC's bank registers are not part of it.
type snapshot struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
	IME                    bool
	LastButtons            uint8

	WRAM [0x2000]uint8
	HRAM [0x7F]uint8

	CartRAM []byte

	VRAM [0x2000]uint8
	OAM  [160]uint8
}

// Snapshot captures the register file, IME, the last button mask,
// WRAM/HRAM, VRAM/OAM and cartridge RAM. It does not capture I/O register
// or internal peripheral state (PPU mode/line, APU, timer, serial, IF/IE)
// or the MBC's bank selection, so Restore leaves those as they are on the
// restoring machine. It also omits anything purely presentational
// (the PPU's last-rendered framebuffer, queued audio samples) since
// spec §9 treats snapshots as a flat state dump, not a rewind log.
func (m *Machine) Snapshot() ([]byte, error) {
	a, f, b, c, d, e, h, l := m.cpu.Registers()
	snap := snapshot{
		A: a, F: f, B: b, C: c, D: d, E: e, H: h, L: l,
		SP:          m.cpu.SP(),
		PC:          m.cpu.PC(),
		IME:         m.cpu.IME(),
		LastButtons: m.lastButtons,
	}
	m.bus.CopyWRAM(&snap.WRAM)
	m.bus.CopyHRAM(&snap.HRAM)
	m.bus.PPU.CopyVRAM(&snap.VRAM)
	m.bus.PPU.CopyOAM(&snap.OAM)
	if cart := m.bus.Cartridge(); cart != nil {
		snap.CartRAM = append([]byte(nil), cart.RAM()...)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore replaces the machine's live state with a previously captured
// Snapshot. The currently loaded cartridge's ROM (and MBC wiring) is
// kept; only its RAM contents are restored, since ROM is immutable and
// was never part of the snapshot.
func (m *Machine) Restore(blob []byte) error {
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&snap); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	m.cpu.Restore(snap.A, snap.F, snap.B, snap.C, snap.D, snap.E, snap.H, snap.L, snap.SP, snap.PC, snap.IME)
	m.lastButtons = snap.LastButtons
	m.bus.RestoreWRAM(&snap.WRAM)
	m.bus.RestoreHRAM(&snap.HRAM)
	m.bus.PPU.RestoreVRAM(&snap.VRAM)
	m.bus.PPU.RestoreOAM(&snap.OAM)
	if cart := m.bus.Cartridge(); cart != nil && snap.CartRAM != nil {
		cart.LoadRAM(snap.CartRAM)
	}
	m.crashed = false
	return nil
}
