// Package video implements the DMG picture processing unit: per-scanline
// background/window tile rendering, OAM sprite scanning, the mode 0-3
// scanline state machine and the register file (LCDC/STAT/SCY/SCX/LY/LYC/
// BGP/OBP0/OBP1/WY/WX).
package video

import (
	"github.com/wakka810/pocketgb/gb/addr"
	"github.com/wakka810/pocketgb/gb/bit"
	"github.com/wakka810/pocketgb/gb/interrupt"
)

// Mode is one of the four PPU states a scanline cycles through.
type Mode uint8

const (
	ModeHBlank Mode = 0
	ModeVBlank Mode = 1
	ModeOAM    Mode = 2
	ModeDraw   Mode = 3
)

const (
	dotsOAM      = 80
	dotsPerLine  = 456
	linesPerFrame = 154
	firstVBlankLine = 144
)

// lcdc bit positions
const (
	lcdcEnable       = 7
	lcdcWindowMap    = 6
	lcdcWindowEnable = 5
	lcdcBGWinTiles   = 4
	lcdcBGMap        = 3
	lcdcObjSize      = 2
	lcdcObjEnable    = 1
	lcdcBGEnable     = 0
)

// stat bit positions
const (
	statLYCEnable   = 6
	statOAMEnable   = 5
	statVBlankEnable = 4
	statHBlankEnable = 3
	statLYCFlag      = 2
)

// PPU owns VRAM and OAM directly and self-enforces the mode-based access
// restrictions real hardware applies to the CPU: both regions are
// unreadable (0xFF) and unwritable (dropped) during mode 3, and OAM is
// additionally blocked during mode 2.
type PPU struct {
	vram [0x2000]uint8
	oam  [160]uint8

	lcdc, stat         uint8
	scy, scx           uint8
	ly, lyc            uint8
	bgp, obp0, obp1    uint8
	wy, wx             uint8

	mode Mode
	dot  int

	mode3Len   int
	statLine   bool
	windowLine int

	pendingFrame FrameBuffer
	frame        FrameBuffer
	frameReady   bool

	irq *interrupt.Controller
}

// New returns a PPU in the post-boot-ROM state: LCD enabled, mode 0, LY 0.
func New(irq *interrupt.Controller) *PPU {
	return &PPU{
		lcdc: 0x91,
		bgp:  0xFC,
		obp0: 0xFF,
		obp1: 0xFF,
		irq:  irq,
	}
}

func (p *PPU) enabled() bool { return bit.IsSet(lcdcEnable, p.lcdc) }

// Tick advances the PPU by tCycles T-cycles (always a multiple of 4 in
// practice, since the bus only ticks peripherals from whole M-cycles, but
// the loop works for any count).
func (p *PPU) Tick(tCycles int) {
	if !p.enabled() {
		return
	}
	for i := 0; i < tCycles; i++ {
		p.tickDot()
	}
}

func (p *PPU) tickDot() {
	p.dot++

	switch p.mode {
	case ModeOAM:
		if p.dot >= dotsOAM {
			p.mode3Len = p.computeMode3Length()
			p.mode = ModeDraw
		}
	case ModeDraw:
		if p.dot >= dotsOAM+p.mode3Len {
			p.renderLine()
			p.mode = ModeHBlank
		}
	case ModeHBlank:
		if p.dot >= dotsPerLine {
			p.advanceLine()
		}
	case ModeVBlank:
		if p.dot >= dotsPerLine {
			p.advanceLine()
		}
	}

	p.updateStatLine()
}

func (p *PPU) advanceLine() {
	p.dot = 0
	p.ly++

	if p.ly == firstVBlankLine {
		p.mode = ModeVBlank
		p.irq.Request(addr.VBlank)
		p.frame = p.pendingFrame
		p.frameReady = true
		p.windowLine = 0
	} else if p.ly >= linesPerFrame {
		p.ly = 0
		p.mode = ModeOAM
		p.windowLine = 0
	} else if p.mode == ModeVBlank {
		// stay in vblank until wraparound above
	} else {
		p.mode = ModeOAM
	}
}

// lyRegister is the value the CPU actually reads at FF44. It diverges from
// the internal line counter for most of line 153: a few dots in, hardware
// already reads back 0 even though the line itself doesn't wrap until the
// line's 456 dots elapse.
func (p *PPU) lyRegister() uint8 {
	if p.ly == 153 && p.dot >= 4 {
		return 0
	}
	return p.ly
}

func (p *PPU) updateStatLine() {
	coincidence := p.lyRegister() == p.lyc
	p.stat = (p.stat &^ (1 << statLYCFlag))
	if coincidence {
		p.stat |= 1 << statLYCFlag
	}
	p.stat = (p.stat &^ 0x03) | uint8(p.mode)

	line := (coincidence && bit.IsSet(statLYCEnable, p.stat)) ||
		(p.mode == ModeOAM && bit.IsSet(statOAMEnable, p.stat)) ||
		(p.mode == ModeVBlank && bit.IsSet(statVBlankEnable, p.stat)) ||
		(p.mode == ModeHBlank && bit.IsSet(statHBlankEnable, p.stat))

	if line && !p.statLine {
		p.irq.Request(addr.LCDSTAT)
	}
	p.statLine = line
}

// computeMode3Length approximates the documented mode-3 length formula:
// a 172 T-cycle base, plus the SCX fine-scroll discard, plus a penalty for
// an active window and for each sprite visible on the line. Sprite timing
// on real hardware depends on fetch-pause interactions this emulator
// doesn't model pixel-by-pixel; the penalty below keeps the total in the
// documented range while still summing to exactly 456 T-cycles per line.
func (p *PPU) computeMode3Length() int {
	length := 172 + int(p.scx&7)

	if p.windowActiveOnLine() {
		length += 6
	}

	if bit.IsSet(lcdcObjEnable, p.lcdc) {
		sprites := scanSprites(p.oam, p.lcdc, int(p.ly))
		length += len(sprites) * 6
	}

	if length > dotsPerLine-dotsOAM {
		length = dotsPerLine - dotsOAM
	}
	return length
}

func (p *PPU) windowActiveOnLine() bool {
	if !bit.IsSet(lcdcWindowEnable, p.lcdc) {
		return false
	}
	if p.wx > 166 {
		return false
	}
	return int(p.ly) >= int(p.wy)
}

// renderLine computes every pixel of the current scanline (background,
// window, sprites) and writes it into the in-progress frame. Rendering a
// full line at once instead of pixel-at-a-time is the fetcher-timing
// simplification noted in the design. The line is drawn from the register
// and VRAM state at the end of mode 3, so LCDC, scroll, window, palette or
// VRAM writes made during mode 3 of a line are not reflected in that line.
func (p *PPU) renderLine() {
	ly := int(p.ly)
	if ly >= Height {
		return
	}

	bgEnabled := bit.IsSet(lcdcBGEnable, p.lcdc)
	windowOnLine := p.windowActiveOnLine()

	var sprites []Sprite
	if bit.IsSet(lcdcObjEnable, p.lcdc) {
		sprites = scanSprites(p.oam, p.lcdc, ly)
	}

	bgPalette := Palette(p.bgp)
	obp0 := Palette(p.obp0)
	obp1 := Palette(p.obp1)

	windowAdvanced := false

	for x := 0; x < Width; x++ {
		var colorIdx uint8
		isWindowPixel := windowOnLine && x+7 >= int(p.wx)

		if isWindowPixel {
			windowAdvanced = true
			if bgEnabled {
				colorIdx = p.windowPixel(x)
			}
		} else if bgEnabled {
			colorIdx = p.backgroundPixel(x)
		}

		shade := bgPalette.Apply(colorIdx)

		if sprite, spriteColor, ok := p.spritePixelAt(sprites, x, ly); ok {
			behindBG := sprite.BehindBG && colorIdx != 0 && bgEnabled
			if !behindBG {
				pal := obp0
				if sprite.OBP1 {
					pal = obp1
				}
				shade = pal.Apply(spriteColor)
			}
		}

		p.pendingFrame.Set(x, ly, shade)
	}

	if windowAdvanced {
		p.windowLine++
	}
}

func (p *PPU) backgroundPixel(screenX int) uint8 {
	x := (screenX + int(p.scx)) & 0xFF
	y := (int(p.ly) + int(p.scy)) & 0xFF
	return p.tilemapPixel(p.bgMapBase(), x, y)
}

func (p *PPU) windowPixel(screenX int) uint8 {
	x := screenX + 7 - int(p.wx)
	y := p.windowLine
	return p.tilemapPixel(p.windowMapBase(), x&0xFF, y&0xFF)
}

func (p *PPU) bgMapBase() uint16 {
	if bit.IsSet(lcdcBGMap, p.lcdc) {
		return addr.TileMap1
	}
	return addr.TileMap0
}

func (p *PPU) windowMapBase() uint16 {
	if bit.IsSet(lcdcWindowMap, p.lcdc) {
		return addr.TileMap1
	}
	return addr.TileMap0
}

func (p *PPU) tilemapPixel(mapBase uint16, x, y int) uint8 {
	tileCol := x / 8
	tileRowIdx := y / 8
	mapOffset := mapBase - addr.VRAMStart + uint16(tileRowIdx*32+tileCol)
	tileNumber := p.vram[mapOffset]

	var tileAddr uint16
	if bit.IsSet(lcdcBGWinTiles, p.lcdc) {
		tileAddr = addr.TileData0 + uint16(tileNumber)*16
	} else {
		tileAddr = addr.TileData2 + uint16(int8(tileNumber))*16
	}

	rowOffset := tileAddr - addr.VRAMStart + uint16((y%8)*2)
	row := tileRow{low: p.vram[rowOffset], high: p.vram[rowOffset+1]}
	return row.pixel(x % 8)
}

// spritePixelAt resolves sprite-vs-sprite priority per pixel: sprites are
// already sorted by (X, OAM index), so the first covering sprite whose
// pixel isn't transparent wins. A transparent pixel on the highest-
// priority sprite falls through to the next sprite underneath it, rather
// than exposing the background just because that one sprite missed.
func (p *PPU) spritePixelAt(sprites []Sprite, screenX, ly int) (Sprite, uint8, bool) {
	for i := range sprites {
		s := &sprites[i]
		col := screenX - s.X
		if col < 0 || col >= 8 {
			continue
		}

		tileY := ly - s.Y
		if s.FlipY {
			tileY = s.Height - 1 - tileY
		}

		tileIndex := s.TileIndex
		if s.Height == 16 {
			tileIndex &^= 1
			tileIndex += uint8(tileY / 8)
			tileY %= 8
		}

		tileAddr := addr.TileData0 + uint16(tileIndex)*16
		rowOffset := tileAddr - addr.VRAMStart + uint16(tileY*2)
		row := tileRow{low: p.vram[rowOffset], high: p.vram[rowOffset+1]}

		var colorIdx uint8
		if s.FlipX {
			colorIdx = row.pixelFlipped(col)
		} else {
			colorIdx = row.pixel(col)
		}

		if colorIdx == 0 {
			continue // transparent
		}
		return *s, colorIdx, true
	}
	return Sprite{}, 0, false
}

// Frame returns the most recently completed frame and clears the ready
// flag. Callers poll this once per host frame tick.
func (p *PPU) Frame() (FrameBuffer, bool) {
	if !p.frameReady {
		return FrameBuffer{}, false
	}
	p.frameReady = false
	return p.frame, true
}

// CopyVRAM/CopyOAM/RestoreVRAM/RestoreOAM support Machine's flat
// snapshot/restore. They bypass mode-based blocking deliberately: a
// snapshot captures true storage, not what the CPU would currently see.
func (p *PPU) CopyVRAM(dst *[0x2000]uint8)    { *dst = p.vram }
func (p *PPU) CopyOAM(dst *[160]uint8)        { *dst = p.oam }
func (p *PPU) RestoreVRAM(src *[0x2000]uint8) { p.vram = *src }
func (p *PPU) RestoreOAM(src *[160]uint8)     { p.oam = *src }

// Mode reports the current PPU mode, for tests and debugging.
func (p *PPU) Mode() Mode { return p.mode }

// LY reports the value the CPU would read at FF44, for tests and debugging.
func (p *PPU) LY() uint8 { return p.lyRegister() }

func (p *PPU) oamBlocked() bool {
	return p.enabled() && (p.mode == ModeOAM || p.mode == ModeDraw)
}

func (p *PPU) vramBlocked() bool {
	return p.enabled() && p.mode == ModeDraw
}

// ReadVRAM implements the CPU-visible view of 0x8000-0x9FFF.
func (p *PPU) ReadVRAM(address uint16) uint8 {
	if p.vramBlocked() {
		return 0xFF
	}
	return p.vram[address-addr.VRAMStart]
}

// WriteVRAM implements the CPU-visible view of 0x8000-0x9FFF.
func (p *PPU) WriteVRAM(address uint16, value uint8) {
	if p.vramBlocked() {
		return
	}
	p.vram[address-addr.VRAMStart] = value
}

// ReadOAM implements the CPU-visible view of 0xFE00-0xFE9F.
func (p *PPU) ReadOAM(address uint16) uint8 {
	if p.oamBlocked() {
		return 0xFF
	}
	return p.oam[address-addr.OAMStart]
}

// WriteOAM implements the CPU-visible view of 0xFE00-0xFE9F.
func (p *PPU) WriteOAM(address uint16, value uint8) {
	if p.oamBlocked() {
		return
	}
	p.oam[address-addr.OAMStart] = value
}

// WriteOAMRaw writes directly into OAM bypassing mode blocking, for OAM
// DMA transfers (the DMA engine itself owns timing, not the PPU).
func (p *PPU) WriteOAMRaw(offset uint8, value uint8) {
	p.oam[offset] = value
}

func (p *PPU) Read(address uint16) uint8 {
	switch address {
	case addr.LCDC:
		return p.lcdc
	case addr.STAT:
		return p.stat | 0x80
	case addr.SCY:
		return p.scy
	case addr.SCX:
		return p.scx
	case addr.LY:
		return p.lyRegister()
	case addr.LYC:
		return p.lyc
	case addr.BGP:
		return p.bgp
	case addr.OBP0:
		return p.obp0
	case addr.OBP1:
		return p.obp1
	case addr.WY:
		return p.wy
	case addr.WX:
		return p.wx
	}
	return 0xFF
}

func (p *PPU) Write(address uint16, value uint8) {
	switch address {
	case addr.LCDC:
		wasEnabled := p.enabled()
		p.lcdc = value
		if wasEnabled && !p.enabled() {
			p.mode = ModeHBlank
			p.ly = 0
			p.dot = 0
			p.statLine = false
		} else if !wasEnabled && p.enabled() {
			p.mode = ModeOAM
			p.dot = 0
		}
	case addr.STAT:
		p.stat = (p.stat & 0x07) | (value &^ 0x07)
	case addr.SCY:
		p.scy = value
	case addr.SCX:
		p.scx = value
	case addr.LY:
		// read-only on hardware
	case addr.LYC:
		p.lyc = value
	case addr.BGP:
		p.bgp = value
	case addr.OBP0:
		p.obp0 = value
	case addr.OBP1:
		p.obp1 = value
	case addr.WY:
		p.wy = value
	case addr.WX:
		p.wx = value
	}
}
