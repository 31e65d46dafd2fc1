package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/wakka810/pocketgb/backend"
	"github.com/wakka810/pocketgb/backend/headless"
	"github.com/wakka810/pocketgb/backend/sdl2"
	"github.com/wakka810/pocketgb/backend/terminal"
	"github.com/wakka810/pocketgb/gb"
)

// exit codes per spec §6: 0 clean quit, 1 ROM load failure, 2 illegal-opcode crash.
const (
	exitOK           = 0
	exitRomLoadError = 1
	exitCrash        = 2
)

func main() {
	app := cli.NewApp()
	app.Name = "pocketgb"
	app.Usage = "pocketgb [options] <ROM file>"
	app.Description = "A DMG-01 Game Boy emulator core"
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "scale", Usage: "window integer scale", Value: 3},
		cli.IntFlag{Name: "fps", Usage: "frame cap", Value: 60},
		cli.BoolFlag{Name: "headless", Usage: "run without a window, in batch mode"},
		cli.IntFlag{Name: "frames", Usage: "frames to run in headless mode (0 = unbounded)", Value: 0},
		cli.BoolFlag{Name: "debug", Usage: "log CPU register state to stderr"},
		cli.StringFlag{Name: "snapshot-dir", Usage: "directory for headless PNG frame snapshots"},
		cli.IntFlag{Name: "snapshot-interval", Usage: "save a headless snapshot every N frames (0 = disabled)"},
	}
	os.Exit(runMain(app))
}

func runMain(app *cli.App) int {
	exitCode := exitOK
	app.Action = func(c *cli.Context) error {
		code, err := run(c)
		exitCode = code
		return err
	}
	if err := app.Run(os.Args); err != nil {
		slog.Error("pocketgb exited with an error", "error", err)
		if exitCode == exitOK {
			exitCode = exitRomLoadError
		}
	}
	return exitCode
}

func run(c *cli.Context) (int, error) {
	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if c.NArg() == 0 {
		cli.ShowAppHelp(c)
		return exitRomLoadError, fmt.Errorf("no ROM path given")
	}
	romPath := c.Args().Get(0)

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return exitRomLoadError, fmt.Errorf("reading ROM: %w", err)
	}

	machine := gb.New()
	if err := machine.LoadROM(rom); err != nil {
		return exitRomLoadError, fmt.Errorf("loading ROM: %w", err)
	}

	savePath := strings.TrimSuffix(romPath, filepath.Ext(romPath)) + ".sav"
	if saveData, err := os.ReadFile(savePath); err == nil {
		machine.LoadSave(saveData)
	}

	var be backend.Backend
	if c.Bool("headless") {
		snapshotCfg := headless.SnapshotConfig{
			Enabled:   c.Int("snapshot-interval") > 0,
			Interval:  c.Int("snapshot-interval"),
			Directory: c.String("snapshot-dir"),
			Prefix:    strings.TrimSuffix(filepath.Base(romPath), filepath.Ext(romPath)),
		}
		if snapshotCfg.Enabled && snapshotCfg.Directory == "" {
			dir, err := os.MkdirTemp("", "pocketgb-snapshots-*")
			if err != nil {
				return exitRomLoadError, fmt.Errorf("creating snapshot dir: %w", err)
			}
			snapshotCfg.Directory = dir
		}
		be = headless.New(c.Int("frames"), snapshotCfg)
	} else if isSDL2Requested() {
		be = sdl2.New()
	} else {
		be = terminal.New()
	}

	cfg := backend.Config{
		Title: fmt.Sprintf("pocketgb - %s", filepath.Base(romPath)),
		Scale: c.Int("scale"),
		FPS:   c.Int("fps"),
		Debug: c.Bool("debug"),
	}
	if err := be.Init(cfg); err != nil {
		return exitRomLoadError, fmt.Errorf("initializing backend: %w", err)
	}
	defer be.Cleanup()

	frameInterval := time.Second / time.Duration(cfg.FPS)

	for {
		frame, samples, runErr := machine.RunFrame()
		if runErr != nil {
			if crash, ok := runErr.(*gb.CrashError); ok {
				slog.Error("illegal opcode crash", "opcode", fmt.Sprintf("0x%02X", crash.Opcode), "pc", fmt.Sprintf("0x%04X", crash.PC))
				persistSave(machine, savePath)
				return exitCrash, nil
			}
			return exitCrash, runErr
		}

		if cfg.Debug {
			info := backend.ExtractDebugInfo(machine)
			slog.Debug("cpu state", "pc", fmt.Sprintf("0x%04X", info.PC), "sp", fmt.Sprintf("0x%04X", info.SP), "ime", info.IME, "cycles", info.TotalCycles)
		}

		start := time.Now()
		buttons, quit, err := be.Update(frame, samples)
		if err != nil {
			return exitCrash, err
		}
		machine.SetButtons(buttons)

		if quit {
			persistSave(machine, savePath)
			return exitOK, nil
		}

		if elapsed := time.Since(start); elapsed < frameInterval {
			time.Sleep(frameInterval - elapsed)
		}
	}
}

// isSDL2Requested reports whether the binary was built with -tags sdl2;
// the stub backend always returns an error from Init, so main falls back
// to the terminal backend unless a caller actually wants SDL2. Since
// build tags are resolved at compile time, this is a constant baked in
// by sdl2_build.go/sdl2_nobuild.go.
func isSDL2Requested() bool {
	return sdl2Enabled
}

func persistSave(m *gb.Machine, path string) {
	data := m.SaveData()
	if data == nil {
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		slog.Error("failed to write save file", "path", path, "error", err)
	}
}
