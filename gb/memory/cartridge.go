package memory

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
)

const (
	entryPointAddress     = 0x0100
	logoAddress           = 0x0104
	titleAddress          = 0x0134
	titleLength           = 16
	cgbFlagAddress        = 0x0143
	cartridgeTypeAddress  = 0x0147
	romSizeAddress        = 0x0148
	ramSizeAddress        = 0x0149
	headerChecksumAddress = 0x014D

	minHeaderSize = 0x0150
)

// nintendoLogo is the fixed bitmap every licensed cartridge carries at
// 0x0104-0x0133; the boot ROM refuses to run anything where it doesn't
// match. Reference: https://gbdev.io/pandocs/The_Cartridge_Header.html#0104-0133--logo
var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B,
	0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC,
	0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// MBCKind identifies which memory bank controller a cartridge header
// requests.
type MBCKind uint8

const (
	KindNone MBCKind = iota
	KindMBC1
	KindMBC1Multicart
	KindMBC2
	KindMBC3
	KindMBC5
	KindUnsupported
)

func (k MBCKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindMBC1:
		return "MBC1"
	case KindMBC1Multicart:
		return "MBC1 (multicart)"
	case KindMBC2:
		return "MBC2"
	case KindMBC3:
		return "MBC3"
	case KindMBC5:
		return "MBC5"
	default:
		return "unsupported"
	}
}

// cartridgeTypeTable maps the byte at 0x147 to (kind, battery, RTC, rumble).
// Reference: https://gbdev.io/pandocs/The_Cartridge_Header.html#0147--cartridge-type
var cartridgeTypeTable = map[uint8]struct {
	kind    MBCKind
	battery bool
	rtc     bool
	rumble  bool
}{
	0x00: {KindNone, false, false, false},
	0x08: {KindNone, false, false, false}, // ROM+RAM
	0x09: {KindNone, true, false, false},  // ROM+RAM+BATTERY
	0x01: {KindMBC1, false, false, false},
	0x02: {KindMBC1, false, false, false},
	0x03: {KindMBC1, true, false, false},
	0x05: {KindMBC2, false, false, false},
	0x06: {KindMBC2, true, false, false},
	0x0F: {KindMBC3, false, true, false},
	0x10: {KindMBC3, true, true, false},
	0x11: {KindMBC3, false, false, false},
	0x12: {KindMBC3, false, false, false},
	0x13: {KindMBC3, true, false, false},
	0x19: {KindMBC5, false, false, false},
	0x1A: {KindMBC5, false, false, false},
	0x1B: {KindMBC5, true, false, false},
	0x1C: {KindMBC5, false, false, true},
	0x1D: {KindMBC5, false, false, true},
	0x1E: {KindMBC5, true, false, true},
}

// Header holds the parsed contents of the cartridge's 0x0100-0x014F
// header block.
type Header struct {
	Title          string
	MBC            MBCKind
	HasBattery     bool
	HasRTC         bool
	HasRumble      bool
	ROMSizeBytes   int
	RAMSizeBytes   int
	HeaderChecksum uint8
}

// ramSizeTable maps the byte at 0x149 to the external RAM size in bytes.
var ramSizeTable = map[uint8]int{
	0x00: 0,
	0x01: 2 * 1024,
	0x02: 8 * 1024,
	0x03: 32 * 1024,
	0x04: 128 * 1024,
	0x05: 64 * 1024,
}

// ParseHeader reads the cartridge header out of raw ROM bytes and
// validates it enough to decide whether this ROM can be loaded at all.
// It returns RomFormatError for anything that can't be emulated.
func ParseHeader(rom []byte) (Header, error) {
	if len(rom) < minHeaderSize {
		return Header{}, &RomFormatError{Reason: fmt.Sprintf("ROM too small to contain a header: %d bytes", len(rom))}
	}

	romSizeCode := rom[romSizeAddress]
	romSize := 32 * 1024 << romSizeCode
	if len(rom) != romSize {
		return Header{}, &RomFormatError{Reason: fmt.Sprintf("ROM size mismatch: header declares %d bytes, file has %d", romSize, len(rom))}
	}

	if !bytes.Equal(rom[logoAddress:logoAddress+len(nintendoLogo)], nintendoLogo[:]) {
		return Header{}, &RomFormatError{Reason: "Nintendo logo bytes at 0x0104-0x0133 do not match"}
	}

	cartType := rom[cartridgeTypeAddress]
	entry, ok := cartridgeTypeTable[cartType]
	if !ok {
		return Header{}, &RomFormatError{Reason: fmt.Sprintf("unsupported cartridge type byte: 0x%02X", cartType)}
	}
	if entry.kind == KindUnsupported {
		return Header{}, &RomFormatError{Reason: fmt.Sprintf("unsupported MBC for cartridge type 0x%02X", cartType)}
	}

	ramSize, ok := ramSizeTable[rom[ramSizeAddress]]
	if !ok {
		return Header{}, &RomFormatError{Reason: fmt.Sprintf("unrecognized RAM size byte: 0x%02X", rom[ramSizeAddress])}
	}

	return Header{
		Title:          cleanGameboyTitle(rom[titleAddress : titleAddress+titleLength]),
		MBC:            entry.kind,
		HasBattery:     entry.battery,
		HasRTC:         entry.rtc,
		HasRumble:      entry.rumble,
		ROMSizeBytes:   romSize,
		RAMSizeBytes:   ramSize,
		HeaderChecksum: rom[headerChecksumAddress],
	}, nil
}

// RomFormatError is returned by ParseHeader/NewCartridge for any ROM that
// pocketgb can't represent: bad size, missing logo, unsupported MBC.
type RomFormatError struct {
	Reason string
}

func (e *RomFormatError) Error() string {
	return fmt.Sprintf("rom format: %s", e.Reason)
}

// cleanGameboyTitle converts the raw, NUL-padded title bytes from the
// cartridge header into a printable string.
func cleanGameboyTitle(titleBytes []byte) string {
	runes := make([]rune, 0, len(titleBytes))
	for _, b := range titleBytes {
		r := rune(b)
		switch {
		case r == 0:
			r = ' '
		case !unicode.IsPrint(r):
			r = '?'
		}
		runes = append(runes, r)
	}

	title := strings.TrimSpace(string(runes))
	if title == "" {
		return "(untitled)"
	}
	return title
}

// Cartridge owns the immutable ROM image, the cartridge header it was
// parsed from, and the MBC instance selected for it.
type Cartridge struct {
	Header Header
	rom    []byte
	mbc    MBC
}

// NewCartridge parses the header and constructs the right MBC for the
// given ROM image.
func NewCartridge(rom []byte) (*Cartridge, error) {
	header, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}

	romCopy := make([]byte, len(rom))
	copy(romCopy, rom)

	cart := &Cartridge{Header: header, rom: romCopy}
	cart.mbc = newMBC(header, romCopy)
	return cart, nil
}

// HasBatteryRAM reports whether this cartridge's RAM should be persisted
// to a .sav file on clean shutdown (spec.md §6). MBC2's RAM is built into
// the mapper chip, not sized by the header's RAM-size byte, so it counts
// on battery alone.
func (c *Cartridge) HasBatteryRAM() bool {
	if !c.Header.HasBattery {
		return false
	}
	return c.Header.RAMSizeBytes > 0 || c.Header.MBC == KindMBC2
}

// RAM returns the external RAM backing store, for save-file persistence.
// Returns an empty slice if this cartridge has no RAM.
func (c *Cartridge) RAM() []byte {
	return c.mbc.RAM()
}

// LoadRAM restores external RAM from a previously saved image, e.g. from
// a <rom>.sav file read at startup.
func (c *Cartridge) LoadRAM(data []byte) {
	ram := c.mbc.RAM()
	n := len(data)
	if n > len(ram) {
		n = len(ram)
	}
	copy(ram, data[:n])
}

func (c *Cartridge) Read(address uint16) uint8 {
	return c.mbc.Read(address)
}

func (c *Cartridge) Write(address uint16, value uint8) {
	c.mbc.Write(address, value)
}

// tickingMBC is implemented by MBC types that advance with emulated
// M-cycle time, currently only MBC3's real-time clock.
type tickingMBC interface {
	Tick(cycles int)
}

// Tick advances any time-based cartridge hardware (MBC3's RTC). A no-op
// for every other MBC.
func (c *Cartridge) Tick(cycles int) {
	if t, ok := c.mbc.(tickingMBC); ok {
		t.Tick(cycles)
	}
}
