//go:build sdl2

// Package sdl2 implements a Backend using SDL2 bindings for a scaled
// window, keyboard input and queued audio playback. Building this
// requires SDL2 development libraries and the sdl2 build tag; other
// builds get the stub in sdl2_stub.go.
package sdl2

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/wakka810/pocketgb/backend"
	"github.com/wakka810/pocketgb/gb"
	"github.com/wakka810/pocketgb/gb/video"
)

const sampleRate = 44100

// shades maps a post-palette 2-bit color index to an RGBA8888 DMG
// grayscale shade.
var shades = [4]uint32{0xFFFFFFFF, 0x989898FF, 0x4C4C4CFF, 0x000000FF}

var keyMapping = map[sdl.Keycode]gb.Button{
	sdl.K_UP:     gb.ButtonUp,
	sdl.K_DOWN:   gb.ButtonDown,
	sdl.K_LEFT:   gb.ButtonLeft,
	sdl.K_RIGHT:  gb.ButtonRight,
	sdl.K_RETURN: gb.ButtonStart,
	sdl.K_z:      gb.ButtonA,
	sdl.K_x:      gb.ButtonB,
	sdl.K_a:      gb.ButtonSelect,
	sdl.K_s:      gb.ButtonStart,
}

// Backend implements backend.Backend with an SDL2 window, texture-backed
// framebuffer blit and a queued audio device.
type Backend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	audioDev sdl.AudioDeviceID

	running bool
	buttons uint8
	scale   int
}

// New returns an uninitialized SDL2 Backend.
func New() *Backend {
	return &Backend{}
}

func (s *Backend) Init(cfg backend.Config) error {
	scale := cfg.Scale
	if scale <= 0 {
		scale = 3
	}
	s.scale = scale

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("sdl2: init: %w", err)
	}

	title := cfg.Title
	if title == "" {
		title = "pocketgb"
	}

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(video.Width*scale), int32(video.Height*scale), sdl.WINDOW_SHOWN)
	if err != nil {
		sdl.Quit()
		return fmt.Errorf("sdl2: create window: %w", err)
	}
	s.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("sdl2: create renderer: %w", err)
	}
	s.renderer = renderer

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_RGBA8888, sdl.TEXTUREACCESS_STREAMING,
		int32(video.Width), int32(video.Height))
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return fmt.Errorf("sdl2: create texture: %w", err)
	}
	s.texture = texture

	spec := &sdl.AudioSpec{Freq: sampleRate, Format: sdl.AUDIO_S16SYS, Channels: 2, Samples: 1024}
	dev, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		slog.Warn("sdl2: audio device unavailable", "error", err)
	} else {
		s.audioDev = dev
		sdl.PauseAudioDevice(dev, false)
	}

	s.running = true
	slog.Info("sdl2 backend initialized", "scale", scale)
	return nil
}

func (s *Backend) Update(frame video.FrameBuffer, samples []int16) (uint8, bool, error) {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		s.handleEvent(event)
	}
	if !s.running {
		return s.buttons, true, nil
	}

	s.renderFrame(frame)
	s.queueAudio(samples)

	return s.buttons, false, nil
}

func (s *Backend) handleEvent(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		s.running = false
	case *sdl.KeyboardEvent:
		btn, ok := keyMapping[e.Keysym.Sym]
		if !ok {
			if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
				s.running = false
			}
			return
		}
		if e.Type == sdl.KEYDOWN {
			s.buttons |= 1 << btn
		} else if e.Type == sdl.KEYUP {
			s.buttons &^= 1 << btn
		}
	}
}

func (s *Backend) renderFrame(frame video.FrameBuffer) {
	pixels := frame.Pixels()
	argb := make([]byte, video.Width*video.Height*4)
	for i, idx := range pixels {
		shade := shades[idx]
		argb[i*4+0] = byte(shade >> 24)
		argb[i*4+1] = byte(shade >> 16)
		argb[i*4+2] = byte(shade >> 8)
		argb[i*4+3] = byte(shade)
	}

	s.texture.Update(nil, unsafe.Pointer(&argb[0]), video.Width*4)
	s.renderer.Clear()
	s.renderer.Copy(s.texture, nil, nil)
	s.renderer.Present()
}

func (s *Backend) queueAudio(samples []int16) {
	if s.audioDev == 0 || len(samples) == 0 {
		return
	}
	buf := make([]byte, len(samples)*2)
	for i, v := range samples {
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(v >> 8)
	}
	sdl.QueueAudio(s.audioDev, buf)
}

func (s *Backend) Cleanup() error {
	slog.Info("cleaning up sdl2 backend")
	if s.audioDev != 0 {
		sdl.CloseAudioDevice(s.audioDev)
	}
	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()
	return nil
}
