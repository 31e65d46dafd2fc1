package video

import (
	"sort"

	"github.com/wakka810/pocketgb/gb/bit"
)

// Sprite is one OAM entry resolved against a scanline.
type Sprite struct {
	Y, X      int
	TileIndex uint8
	OBP1      bool
	FlipX     bool
	FlipY     bool
	BehindBG  bool
	OAMIndex  int
	Height    int
}

// scanSprites picks up to 10 sprites overlapping the given scanline,
// sorted by (X, OAM index) so the first sprite in the slice that covers a
// given screen column and isn't transparent there wins sprite-vs-sprite
// priority, per the X-then-OAM-index tie-break in spec §4.3.
func scanSprites(oam [160]uint8, lcdc uint8, scanline int) []Sprite {
	height := 8
	if bit.IsSet(2, lcdc) {
		height = 16
	}

	var sprites []Sprite

	for i := 0; i < 40 && len(sprites) < 10; i++ {
		base := i * 4
		rawY := int(oam[base])
		y := rawY - 16
		if !(y <= scanline && scanline < y+height) {
			continue
		}

		rawX := int(oam[base+1])
		flags := oam[base+3]

		sprites = append(sprites, Sprite{
			Y:         y,
			X:         rawX - 8,
			TileIndex: oam[base+2],
			OBP1:      bit.IsSet(4, flags),
			FlipX:     bit.IsSet(5, flags),
			FlipY:     bit.IsSet(6, flags),
			BehindBG:  bit.IsSet(7, flags),
			OAMIndex:  i,
			Height:    height,
		})
	}

	sort.Slice(sprites, func(i, j int) bool {
		if sprites[i].X != sprites[j].X {
			return sprites[i].X < sprites[j].X
		}
		return sprites[i].OAMIndex < sprites[j].OAMIndex
	})

	return sprites
}
