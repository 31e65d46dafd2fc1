// Package backend defines the interface a frontend implements to drive a
// Machine: render its framebuffer, play its audio samples, and translate
// platform input events into button presses.
package backend

import (
	"github.com/wakka810/pocketgb/gb"
	"github.com/wakka810/pocketgb/gb/video"
)

// Config configures a Backend at startup, matching the CLI surface in
// spec §6.
type Config struct {
	Title string
	Scale int
	FPS   int
	Debug bool
}

// Backend renders frames and audio and reports button state, the way a
// frontend actually touches the core: never reaching into gb.Machine's
// internals beyond the framebuffer/sample/button boundary.
type Backend interface {
	// Init prepares the backend (opens a window, starts a terminal
	// screen, etc). Called once before the first Update.
	Init(cfg Config) error

	// Update presents one completed frame and its audio samples, polls
	// for platform events, and returns the button mask to apply on the
	// next RunFrame (spec §6's set_buttons bit order). Returns
	// quit=true once the backend wants the frontend loop to stop.
	Update(frame video.FrameBuffer, samples []int16) (buttons uint8, quit bool, err error)

	// Cleanup releases platform resources (window, terminal screen).
	Cleanup() error
}

// DebugInfo is the subset of Machine state a --debug frontend displays.
// Backends that don't support a debug view ignore it.
type DebugInfo struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
	IME                    bool
	TotalCycles            uint64
}

// ExtractDebugInfo reads the current register file off a Machine's CPU.
func ExtractDebugInfo(m *gb.Machine) DebugInfo {
	a, f, b, c, d, e, h, l := m.CPU().Registers()
	return DebugInfo{
		A: a, F: f, B: b, C: c, D: d, E: e, H: h, L: l,
		SP:          m.CPU().SP(),
		PC:          m.CPU().PC(),
		IME:         m.CPU().IME(),
		TotalCycles: m.CPU().TotalCycles(),
	}
}
