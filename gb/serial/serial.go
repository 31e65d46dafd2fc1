// Package serial models the DMG's link-cable port (SB/SC). pocketgb never
// connects two emulator instances together, so the port's only job is to
// behave correctly from the cartridge's point of view: accept transfers,
// time them out, and fire the Serial interrupt.
package serial

import (
	"log/slog"

	"github.com/wakka810/pocketgb/gb/addr"
	"github.com/wakka810/pocketgb/gb/bit"
	"github.com/wakka810/pocketgb/gb/interrupt"
)

// transferCycles is the T-cycle cost of shifting one byte over the link
// cable at the internal clock (8 bits at 8192 Hz on DMG = 4096 T-cycles).
const transferCycles = 4096

// Port implements SB/SC for a Game Boy with nothing plugged into the link
// port. No byte ever actually arrives; a started transfer completes after
// the usual number of cycles and reads back 0xFF, which is what real
// hardware reports with an open connector.
type Port struct {
	sb, sc         uint8
	transferActive bool
	countdown      int

	irq    *interrupt.Controller
	logger *slog.Logger
	line   []byte
}

// NewPort creates a serial port that requests its interrupt through the
// given controller and logs completed bytes at Info level, buffering a
// text line between newlines the way test ROMs print their status output.
func NewPort(irq *interrupt.Controller) *Port {
	return &Port{irq: irq, logger: slog.Default()}
}

func (p *Port) Read(address uint16) uint8 {
	switch address {
	case addr.SB:
		return p.sb
	case addr.SC:
		return p.sc | 0x7E
	default:
		return 0xFF
	}
}

func (p *Port) Write(address uint16, value uint8) {
	switch address {
	case addr.SB:
		p.sb = value
	case addr.SC:
		p.sc = value
		p.maybeStartTransfer()
	}
}

// Tick advances a pending transfer by the given number of T-cycles.
func (p *Port) Tick(tCycles int) {
	if !p.transferActive {
		return
	}
	p.countdown -= tCycles
	if p.countdown <= 0 {
		p.completeTransfer()
	}
}

func (p *Port) maybeStartTransfer() {
	if p.transferActive {
		return
	}
	// Start requires bit 7 (transfer start) and bit 0 (internal clock);
	// an external-clock request never completes with nothing attached.
	if !bit.IsSet(7, p.sc) || !bit.IsSet(0, p.sc) {
		return
	}

	b := p.sb
	if b == 0 || b == '\n' || b == '\r' {
		if len(p.line) > 0 {
			p.logger.Info("serial", "line", string(p.line))
			p.line = p.line[:0]
		}
	} else {
		p.line = append(p.line, b)
	}

	p.transferActive = true
	p.countdown = transferCycles
}

func (p *Port) completeTransfer() {
	p.sb = 0xFF
	p.sc = bit.Clear(7, p.sc)
	p.transferActive = false
	p.countdown = 0
	p.irq.Request(addr.Serial)
}
