package video

import "testing"

func spriteOAMEntry(oam []uint8, index int, y, x, tile, flags uint8) {
	base := index * 4
	oam[base] = y
	oam[base+1] = x
	oam[base+2] = tile
	oam[base+3] = flags
}

func TestScanSpritesCapsAtTenPerLine(t *testing.T) {
	var oam [160]uint8
	for i := 0; i < 15; i++ {
		spriteOAMEntry(oam[:], i, 16, uint8(8+i), 0, 0) // all overlap scanline 0
	}

	sprites := scanSprites(oam, 0x91, 0)
	if len(sprites) != 10 {
		t.Fatalf("len(sprites) = %d; want 10", len(sprites))
	}
	for i, s := range sprites {
		if s.OAMIndex != i {
			t.Errorf("sprites[%d].OAMIndex = %d; want %d (OAM order preserved)", i, s.OAMIndex, i)
		}
	}
}

func TestScanSpritesTallModeDoublesHeight(t *testing.T) {
	var oam [160]uint8
	spriteOAMEntry(oam[:], 0, 16, 8, 0, 0) // y=0 on screen, spans 0-15 when tall

	sprites := scanSprites(oam, 0x91|1<<2, 15)
	if len(sprites) != 1 {
		t.Fatalf("expected the sprite to cover line 15 in 8x16 mode, got %d sprites", len(sprites))
	}
	if sprites[0].Height != 16 {
		t.Errorf("Height = %d; want 16", sprites[0].Height)
	}
}

func TestScanSpritesSortsByXThenOAMIndex(t *testing.T) {
	var oam [160]uint8
	spriteOAMEntry(oam[:], 0, 16, 16, 0, 0) // screen X=8
	spriteOAMEntry(oam[:], 1, 16, 12, 0, 0) // screen X=4: should sort first

	sprites := scanSprites(oam, 0x91, 0)
	if len(sprites) != 2 {
		t.Fatalf("len(sprites) = %d; want 2", len(sprites))
	}
	if sprites[0].OAMIndex != 1 || sprites[1].OAMIndex != 0 {
		t.Errorf("sprite order = [%d, %d]; want the lower-X sprite first", sprites[0].OAMIndex, sprites[1].OAMIndex)
	}
}

func TestScanSpritesSortTiesBreakByOAMIndex(t *testing.T) {
	var oam [160]uint8
	spriteOAMEntry(oam[:], 5, 16, 16, 0, 0) // same X as below, higher OAM index
	spriteOAMEntry(oam[:], 2, 16, 16, 0, 0)

	sprites := scanSprites(oam, 0x91, 0)
	if sprites[0].OAMIndex != 2 || sprites[1].OAMIndex != 5 {
		t.Errorf("sprite order = [%d, %d]; want the lower OAM index first on an X tie", sprites[0].OAMIndex, sprites[1].OAMIndex)
	}
}

func TestPaletteApplyDecodesEachShade(t *testing.T) {
	p := Palette(0b11_10_01_00) // index 0->0, 1->1, 2->2, 3->3

	for i := uint8(0); i < 4; i++ {
		if got := p.Apply(i); got != i {
			t.Errorf("Apply(%d) = %d; want %d", i, got, i)
		}
	}
}

func TestPaletteApplyRemapsColors(t *testing.T) {
	p := Palette(0b00_00_00_11) // index 0 -> shade 3, rest -> shade 0

	if got := p.Apply(0); got != 3 {
		t.Errorf("Apply(0) = %d; want 3", got)
	}
	if got := p.Apply(1); got != 0 {
		t.Errorf("Apply(1) = %d; want 0", got)
	}
}

func TestTileRowPixelReadsLeftmostAtBitSeven(t *testing.T) {
	row := tileRow{low: 0x80, high: 0x00} // bit 7 set: leftmost pixel = color 1

	if got := row.pixel(0); got != 1 {
		t.Errorf("pixel(0) = %d; want 1", got)
	}
	if got := row.pixel(7); got != 0 {
		t.Errorf("pixel(7) = %d; want 0", got)
	}
}

func TestTileRowPixelFlippedMirrorsColumns(t *testing.T) {
	row := tileRow{low: 0x80, high: 0x00} // bit 7 (normally leftmost) set

	if got := row.pixelFlipped(7); got != 1 {
		t.Errorf("pixelFlipped(7) = %d; want 1 (bit 7 maps to the rightmost column when flipped)", got)
	}
	if got := row.pixelFlipped(0); got != 0 {
		t.Errorf("pixelFlipped(0) = %d; want 0", got)
	}
}

func TestTileRowColorCombinesBothPlanes(t *testing.T) {
	row := tileRow{low: 0x80, high: 0x80} // both bit 7 set: color 3

	if got := row.pixel(0); got != 3 {
		t.Errorf("pixel(0) = %d; want 3 (low|high both set)", got)
	}
}
