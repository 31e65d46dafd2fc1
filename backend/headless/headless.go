// Package headless implements a Backend that renders nothing: it drives
// a given number of frames (or runs without limit) and optionally dumps
// PNG snapshots, for
// batch test-ROM runs and CI.
package headless

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/wakka810/pocketgb/backend"
	"github.com/wakka810/pocketgb/gb/video"
)

// SnapshotConfig controls periodic PNG dumps of the framebuffer, used by
// test-ROM harnesses to compare against reference images.
type SnapshotConfig struct {
	Enabled   bool
	Interval  int
	Directory string
	Prefix    string
}

// Backend runs the machine to completion without any presentation.
type Backend struct {
	maxFrames  int
	snapshot   SnapshotConfig
	frameCount int
}

// New returns a headless Backend that quits after maxFrames frames, or
// never quits on its own when maxFrames is 0.
func New(maxFrames int, snapshot SnapshotConfig) *Backend {
	return &Backend{maxFrames: maxFrames, snapshot: snapshot}
}

func (h *Backend) Init(cfg backend.Config) error {
	slog.Info("running headless", "frames", h.maxFrames)
	if h.snapshot.Enabled {
		if err := os.MkdirAll(h.snapshot.Directory, 0755); err != nil {
			return fmt.Errorf("headless: creating snapshot dir: %w", err)
		}
	}
	return nil
}

func (h *Backend) Update(frame video.FrameBuffer, samples []int16) (uint8, bool, error) {
	h.frameCount++

	if h.snapshot.Enabled && h.frameCount%h.snapshot.Interval == 0 {
		if err := h.saveSnapshot(frame); err != nil {
			slog.Error("headless: snapshot failed", "frame", h.frameCount, "error", err)
		}
	}

	if h.maxFrames > 0 && h.frameCount >= h.maxFrames {
		return 0, true, nil
	}
	return 0, false, nil
}

func (h *Backend) Cleanup() error { return nil }

// shades maps the post-palette 2-bit color index to the DMG's four
// grayscale shades, for PNG snapshot output.
var shades = [4]uint8{0xFF, 0xAA, 0x55, 0x00}

func (h *Backend) saveSnapshot(frame video.FrameBuffer) error {
	img := image.NewGray(image.Rect(0, 0, video.Width, video.Height))
	for y := 0; y < video.Height; y++ {
		for x := 0; x < video.Width; x++ {
			img.SetGray(x, y, color.Gray{Y: shades[frame.Get(x, y)]})
		}
	}

	path := filepath.Join(h.snapshot.Directory, fmt.Sprintf("%s_frame_%d.png", h.snapshot.Prefix, h.frameCount))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
