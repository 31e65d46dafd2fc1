package memory

import (
	"log/slog"

	"github.com/wakka810/pocketgb/gb/addr"
	"github.com/wakka810/pocketgb/gb/audio"
	"github.com/wakka810/pocketgb/gb/interrupt"
	"github.com/wakka810/pocketgb/gb/serial"
	"github.com/wakka810/pocketgb/gb/video"
)

type region uint8

const (
	regionROM region = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

// dmaCycles is how long an OAM DMA transfer occupies the bus: 160 bytes
// at one M-cycle each, per spec §6's supplemented DMA timing (the teacher
// copies all 160 bytes instantly on the triggering write).
const dmaCycles = 160

// Bus implements cpu.Bus: it owns WRAM/HRAM directly, decodes the DMG
// memory map, and fans I/O register access out to the cartridge, PPU,
// APU, timer, serial port and joypad. Read and Write tick every
// peripheral by one M-cycle *before* performing the access, per spec §5's
// ordering (Timer, then PPU, then APU, then the access itself).
type Bus struct {
	cart *Cartridge

	wram [0x2000]uint8
	hram [0x7F]uint8

	regionMap [256]region

	PPU     *video.PPU
	APU     *audio.APU
	Timer   *Timer
	Serial  *serial.Port
	Joypad  *Joypad
	IRQ     *interrupt.Controller

	dmaCountdown int
	dmaSource    uint16

	bootDisabled uint8
}

// New returns a Bus with no cartridge loaded: ROM/external-RAM reads
// return 0xFF, matching a DMG with an empty cartridge slot.
func New() *Bus {
	irq := &interrupt.Controller{}
	b := &Bus{
		IRQ:    irq,
		PPU:    video.New(irq),
		APU:    audio.New(),
		Timer:  NewTimer(irq),
		Serial: serial.NewPort(irq),
		Joypad: NewJoypad(irq),
	}
	b.initRegionMap()
	return b
}

// NewWithCartridge returns a Bus with the given cartridge mapped in at
// 0x0000-0x7FFF/0xA000-0xBFFF.
func NewWithCartridge(cart *Cartridge) *Bus {
	b := New()
	b.cart = cart
	return b
}

func (b *Bus) initRegionMap() {
	for i := 0x00; i <= 0x7F; i++ {
		b.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		b.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		b.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		b.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		b.regionMap[i] = regionEcho
	}
	b.regionMap[0xFE] = regionOAM
	b.regionMap[0xFF] = regionIO
}

// Read implements cpu.Bus.
func (b *Bus) Read(address uint16) uint8 {
	b.tickPeripherals(4)
	return b.readNoTick(address)
}

func (b *Bus) readNoTick(address uint16) uint8 {
	if b.dmaBlocks(address) {
		return 0xFF
	}
	switch b.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if b.cart == nil {
			slog.Warn("read with no cartridge loaded", "addr", address)
			return 0xFF
		}
		return b.cart.Read(address)
	case regionVRAM:
		return b.PPU.ReadVRAM(address)
	case regionWRAM:
		return b.wram[address-addr.WRAMStart]
	case regionEcho:
		return b.wram[address-addr.EchoStart]
	case regionOAM:
		if address <= addr.OAMEnd {
			return b.PPU.ReadOAM(address)
		}
		return 0xFF // unusable 0xFEA0-0xFEFF
	case regionIO:
		return b.readIO(address)
	}
	return 0xFF
}

func (b *Bus) readIO(address uint16) uint8 {
	switch {
	case address == addr.P1:
		return b.Joypad.Read()
	case address == addr.SB || address == addr.SC:
		return b.Serial.Read(address)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		return b.Timer.Read(address)
	case address == addr.IF:
		return b.IRQ.ReadIF()
	case address == addr.IE:
		return b.IRQ.ReadIE()
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		return b.APU.Read(address)
	case address == addr.LCDC, address == addr.STAT, address == addr.SCY, address == addr.SCX,
		address == addr.LY, address == addr.LYC, address == addr.BGP, address == addr.OBP0,
		address == addr.OBP1, address == addr.WY, address == addr.WX:
		return b.PPU.Read(address)
	case address == addr.DMA:
		return 0xFF
	case address == addr.BootROMDisable:
		return b.bootDisabled
	case address >= addr.HRAMStart && address <= addr.HRAMEnd:
		return b.hram[address-addr.HRAMStart]
	default:
		return 0xFF
	}
}

// Write implements cpu.Bus.
func (b *Bus) Write(address uint16, value uint8) {
	b.tickPeripherals(4)
	b.writeNoTick(address, value)
}

func (b *Bus) writeNoTick(address uint16, value uint8) {
	if b.dmaBlocks(address) {
		return
	}
	switch b.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if b.cart == nil {
			slog.Warn("write with no cartridge loaded", "addr", address, "value", value)
			return
		}
		b.cart.Write(address, value)
	case regionVRAM:
		b.PPU.WriteVRAM(address, value)
	case regionWRAM:
		b.wram[address-addr.WRAMStart] = value
	case regionEcho:
		b.wram[address-addr.EchoStart] = value
	case regionOAM:
		if address <= addr.OAMEnd {
			b.PPU.WriteOAM(address, value)
		}
	case regionIO:
		b.writeIO(address, value)
	}
}

func (b *Bus) writeIO(address uint16, value uint8) {
	switch {
	case address == addr.P1:
		b.Joypad.Write(value)
	case address == addr.SB || address == addr.SC:
		b.Serial.Write(address, value)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		b.Timer.Write(address, value)
	case address == addr.IF:
		b.IRQ.WriteIF(value)
	case address == addr.IE:
		b.IRQ.WriteIE(value)
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		b.APU.Write(address, value)
	case address == addr.LCDC, address == addr.STAT, address == addr.SCY, address == addr.SCX,
		address == addr.LY, address == addr.LYC, address == addr.BGP, address == addr.OBP0,
		address == addr.OBP1, address == addr.WY, address == addr.WX:
		b.PPU.Write(address, value)
	case address == addr.DMA:
		b.startDMA(value)
	case address == addr.BootROMDisable:
		b.bootDisabled = value
	case address >= addr.HRAMStart && address <= addr.HRAMEnd:
		b.hram[address-addr.HRAMStart] = value
	}
}

func (b *Bus) startDMA(page uint8) {
	b.dmaSource = uint16(page) << 8
	b.dmaCountdown = dmaCycles
}

// dmaBlocks reports whether an in-flight OAM DMA transfer steals the bus
// from the CPU at the given address. HRAM stays reachable since the CPU
// can run a tight wait loop from HRAM while DMA drains (spec.md §8).
func (b *Bus) dmaBlocks(address uint16) bool {
	return b.dmaCountdown > 0 && (address < addr.HRAMStart || address > addr.HRAMEnd)
}

// Tick implements cpu.Bus: accounts for M-cycles that don't touch memory
// (register-only ALU ops, internal decode cycles).
func (b *Bus) Tick(mCycles int) {
	b.tickPeripherals(mCycles * 4)
}

func (b *Bus) tickPeripherals(tCycles int) {
	b.Timer.Tick(tCycles)
	b.PPU.Tick(tCycles)
	b.APU.Tick(tCycles, b.Timer.Read(addr.DIV))
	b.Serial.Tick(tCycles)
	mCycles := tCycles / 4
	b.stepDMA(mCycles)
	if b.cart != nil {
		b.cart.Tick(mCycles)
	}
}

// stepDMA drains one OAM byte per M-cycle, the way real hardware's DMA
// unit steals bus cycles from the CPU. OAM writes bypass the PPU's
// mode-based blocking, and ROM, external RAM and WRAM sources are read
// directly; a VRAM source is read through PPU.ReadVRAM, so it reads 0xFF
// while the PPU is in mode 3.
func (b *Bus) stepDMA(mCycles int) {
	for i := 0; i < mCycles && b.dmaCountdown > 0; i++ {
		offset := uint8(dmaCycles - b.dmaCountdown)
		b.PPU.WriteOAMRaw(offset, b.dmaReadByte(b.dmaSource+uint16(offset)))
		b.dmaCountdown--
	}
}

func (b *Bus) dmaReadByte(address uint16) uint8 {
	switch b.regionMap[address>>8] {
	case regionROM:
		if b.cart == nil {
			return 0xFF
		}
		return b.cart.Read(address)
	case regionVRAM:
		return b.PPU.ReadVRAM(address)
	case regionExtRAM:
		if b.cart == nil {
			return 0xFF
		}
		return b.cart.Read(address)
	case regionWRAM:
		return b.wram[address-addr.WRAMStart]
	case regionEcho:
		return b.wram[address-addr.EchoStart]
	default:
		return 0xFF
	}
}

// PendingInterrupts implements cpu.Bus.
func (b *Bus) PendingInterrupts() uint8 {
	return b.IRQ.Pending()
}

// ClearInterruptFlag implements cpu.Bus.
func (b *Bus) ClearInterruptFlag(bitPos uint8) {
	b.IRQ.Clear(addr.Interrupt(1 << bitPos))
}

// LowestPendingInterrupt implements cpu.Bus.
func (b *Bus) LowestPendingInterrupt() (uint8, bool) {
	return b.IRQ.LowestPending()
}

// ResetDivider implements cpu.Bus.
func (b *Bus) ResetDivider() {
	b.Timer.SetSeed(0)
}

// LoadCartridge swaps in a freshly parsed cartridge, replacing any ROM
// previously mapped in. Used by Machine.LoadROM.
func (b *Bus) LoadCartridge(cart *Cartridge) {
	b.cart = cart
}

// Cartridge exposes the currently loaded cartridge, for battery-RAM save
// handling at the Machine level.
func (b *Bus) Cartridge() *Cartridge {
	return b.cart
}

// CopyWRAM/CopyHRAM/RestoreWRAM/RestoreHRAM support Machine's flat
// snapshot/restore: plain byte-array copies, no derived state.
func (b *Bus) CopyWRAM(dst *[0x2000]uint8)  { *dst = b.wram }
func (b *Bus) CopyHRAM(dst *[0x7F]uint8)    { *dst = b.hram }
func (b *Bus) RestoreWRAM(src *[0x2000]uint8) { b.wram = *src }
func (b *Bus) RestoreHRAM(src *[0x7F]uint8)   { b.hram = *src }

