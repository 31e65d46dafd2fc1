// Package terminal implements a Backend that renders the framebuffer as
// half-block characters in a tcell screen, with the arrow keys, Enter and
// Z/X/A/S for input. No audio output: a terminal has nowhere to put PCM
// samples.
package terminal

import (
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/wakka810/pocketgb/backend"
	"github.com/wakka810/pocketgb/gb"
	"github.com/wakka810/pocketgb/gb/video"
)

const (
	minTermWidth  = video.Width + 2
	minTermHeight = video.Height/2 + 2
)

// keyMapping maps tcell key codes to the pocketgb button bit they hold
// down. Runes are handled separately since A/B/Select/Start use letters.
var keyMapping = map[tcell.Key]gb.Button{
	tcell.KeyUp:    gb.ButtonUp,
	tcell.KeyDown:  gb.ButtonDown,
	tcell.KeyLeft:  gb.ButtonLeft,
	tcell.KeyRight: gb.ButtonRight,
	tcell.KeyEnter: gb.ButtonStart,
}

var runeMapping = map[rune]gb.Button{
	'z': gb.ButtonA,
	'x': gb.ButtonB,
	'a': gb.ButtonSelect,
	's': gb.ButtonStart,
}

// Backend implements backend.Backend over a tcell terminal screen.
type Backend struct {
	screen  tcell.Screen
	cfg     backend.Config
	buttons uint8
}

// New returns an uninitialized terminal Backend.
func New() *Backend {
	return &Backend{}
}

func (t *Backend) Init(cfg backend.Config) error {
	t.cfg = cfg

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	t.screen = screen
	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	slog.Info("terminal backend initialized")
	return nil
}

func (t *Backend) Update(frame video.FrameBuffer, samples []int16) (uint8, bool, error) {
	quit := false

	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
				quit = true
				continue
			}
			t.applyKey(ev)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}

	buttons := t.buttons
	t.render(frame)
	t.screen.Show()

	return buttons, quit, nil
}

// applyKey sets or clears the button bit for a key's press/release. tcell
// doesn't distinguish key-up from key-down for most terminals, so held
// buttons are released on the following frame unless the key repeats
// (the same tradeoff the teacher's terminal backend makes with a
// short-lived "active" window).
func (t *Backend) applyKey(ev *tcell.EventKey) {
	if btn, ok := keyMapping[ev.Key()]; ok {
		t.buttons |= 1 << btn
		return
	}
	if btn, ok := runeMapping[ev.Rune()]; ok {
		t.buttons |= 1 << btn
	}
}

func (t *Backend) render(frame video.FrameBuffer) {
	width, height := t.screen.Size()
	if width < minTermWidth || height < minTermHeight {
		t.drawTooSmall(width, height)
		return
	}

	t.screen.Clear()
	for y := 0; y < video.Height; y += 2 {
		for x := 0; x < video.Width; x++ {
			top := frame.Get(x, y)
			bottom := uint8(0)
			if y+1 < video.Height {
				bottom = frame.Get(x, y+1)
			}
			ch, fg, bg := halfBlockChar(top, bottom)
			t.screen.SetContent(x+1, y/2+1, ch, nil, tcell.StyleDefault.Foreground(fg).Background(bg))
		}
	}

	// clear the per-frame button state; held keys re-arrive next frame
	// as a fresh EventKey while the physical key repeats.
	t.buttons = 0
}

func (t *Backend) drawTooSmall(width, height int) {
	t.screen.Clear()
	msg := fmt.Sprintf("terminal too small: need at least %dx%d", minTermWidth, minTermHeight)
	style := tcell.StyleDefault.Foreground(tcell.ColorRed)
	for i, r := range msg {
		if i >= width {
			break
		}
		t.screen.SetContent(i, height/2, r, nil, style)
	}
}

func (t *Backend) Cleanup() error {
	if t.screen != nil {
		t.screen.Fini()
	}
	return nil
}
