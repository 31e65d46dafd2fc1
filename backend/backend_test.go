package backend

import (
	"testing"

	"github.com/wakka810/pocketgb/gb"
)

func TestExtractDebugInfoReflectsCPUState(t *testing.T) {
	rom := make([]byte, 32*1024)
	rom[0x0148] = 0x00
	rom[0x0147] = 0x00
	rom[0x0149] = 0x00
	copy(rom[0x0104:0x0104+48], []byte{
		0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B,
		0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
		0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
		0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
		0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC,
		0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
	})

	m := gb.New()
	if err := m.LoadROM(rom); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}

	info := ExtractDebugInfo(m)
	if info.PC != 0x0100 {
		t.Errorf("PC = %#x; want 0x0100 at reset", info.PC)
	}
}
