package memory

import "testing"

func TestEchoRAMMirrorsWRAM(t *testing.T) {
	b := New()
	b.Write(0xC123, 0x42)
	if got := b.Read(0xE123); got != 0x42 {
		t.Errorf("echo read = %#x; want 0x42 mirrored from WRAM", got)
	}

	b.Write(0xE200, 0x99)
	if got := b.Read(0xC200); got != 0x99 {
		t.Errorf("WRAM read = %#x; want 0x99 written through the echo region", got)
	}
}

func TestReadWriteTickPeripheralsByOneMCycle(t *testing.T) {
	b := New()
	// 256 single-byte accesses tick exactly 256 M-cycles (1024 T-cycles) of
	// the timer; DIV increments every 256 T-cycles, so it should move by 4.
	start := b.Timer.Read(0xFF04)
	for i := 0; i < 256; i++ {
		b.Read(0xC000)
	}
	end := b.Timer.Read(0xFF04)
	if uint8(end-start) != 4 {
		t.Errorf("DIV advanced by %d after 256 accesses; want 4", uint8(end-start))
	}
}

func TestDMACopiesAllOAMBytesOverDMACycles(t *testing.T) {
	b := New()
	b.Write(0xC000, 0xAB) // source page: WRAM at 0xC000-0xC09F
	for i := 1; i < 160; i++ {
		b.Write(0xC000+uint16(i), uint8(i))
	}

	b.Write(0xFF46, 0xC0) // start DMA from page 0xC0

	for i := 0; i < dmaCycles; i++ {
		b.Tick(1)
	}

	var oam [160]uint8
	b.PPU.CopyOAM(&oam)
	if oam[0] != 0xAB {
		t.Errorf("OAM[0] after DMA = %#x; want 0xAB", oam[0])
	}
	if oam[1] != 0x01 {
		t.Errorf("OAM[1] after DMA = %#x; want 0x01", oam[1])
	}
}

func TestDMABlocksCPUBusExceptHRAM(t *testing.T) {
	b := New()
	b.Write(0xFF80, 0x77) // HRAM, written before DMA starts
	b.Write(0xC000, 0x01)

	b.Write(0xFF46, 0xC0) // start DMA

	if got := b.Read(0xC000); got != 0xFF {
		t.Errorf("WRAM read during DMA = %#x; want 0xFF (bus stolen)", got)
	}
	if got := b.Read(0xFF80); got != 0x77 {
		t.Errorf("HRAM read during DMA = %#x; want 0x77 (HRAM stays reachable)", got)
	}
}

func TestNoCartridgeReadsReturnOpenBusValue(t *testing.T) {
	b := New()
	if got := b.Read(0x0000); got != 0xFF {
		t.Errorf("ROM read with no cartridge = %#x; want 0xFF", got)
	}
	if got := b.Read(0xA000); got != 0xFF {
		t.Errorf("external RAM read with no cartridge = %#x; want 0xFF", got)
	}
}
