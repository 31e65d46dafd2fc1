package terminal

import "github.com/gdamore/tcell/v2"

// shadeColors maps a post-palette color index (0=lightest, 3=darkest) to
// a terminal color, matching the DMG's four-shade grayscale.
var shadeColors = [4]tcell.Color{
	tcell.ColorWhite,
	tcell.ColorSilver,
	tcell.ColorGray,
	tcell.ColorBlack,
}

// halfBlockChar picks the glyph that best represents two stacked
// 2-bit-shade pixels in one terminal cell.
func halfBlockChar(top, bottom uint8) (rune, tcell.Color, tcell.Color) {
	topColor, bottomColor := shadeColors[top], shadeColors[bottom]
	if top == bottom {
		return '█', topColor, tcell.ColorDefault
	}
	return '▀', topColor, bottomColor
}
