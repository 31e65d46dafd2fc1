//go:build !sdl2

package sdl2

import (
	"fmt"

	"github.com/wakka810/pocketgb/backend"
	"github.com/wakka810/pocketgb/gb/video"
)

// Backend stubs out the SDL2 backend when built without the sdl2 tag
// (the default, since it needs SDL2's development libraries installed).
type Backend struct{}

func New() *Backend { return &Backend{} }

func (s *Backend) Init(cfg backend.Config) error {
	return fmt.Errorf("sdl2 backend not available: rebuild with -tags sdl2 and SDL2 installed")
}

func (s *Backend) Update(frame video.FrameBuffer, samples []int16) (uint8, bool, error) {
	return 0, true, fmt.Errorf("sdl2 backend not available")
}

func (s *Backend) Cleanup() error { return nil }
