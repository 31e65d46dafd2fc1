package terminal

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestHalfBlockCharSamePixelsUseFullBlock(t *testing.T) {
	r, fg, bg := halfBlockChar(2, 2)
	if r != '█' {
		t.Errorf("rune = %q; want full block for two identical pixels", r)
	}
	if fg != tcell.ColorGray {
		t.Errorf("fg = %v; want ColorGray", fg)
	}
	if bg != tcell.ColorDefault {
		t.Errorf("bg = %v; want ColorDefault for a single-color cell", bg)
	}
}

func TestHalfBlockCharDifferentPixelsUseHalfBlock(t *testing.T) {
	r, fg, bg := halfBlockChar(0, 3)
	if r != '▀' {
		t.Errorf("rune = %q; want a half block for two different pixels", r)
	}
	if fg != tcell.ColorWhite {
		t.Errorf("fg = %v; want ColorWhite (top pixel)", fg)
	}
	if bg != tcell.ColorBlack {
		t.Errorf("bg = %v; want ColorBlack (bottom pixel)", bg)
	}
}
