package serial

import (
	"testing"

	"github.com/wakka810/pocketgb/gb/addr"
	"github.com/wakka810/pocketgb/gb/interrupt"
)

func TestSCReadAlwaysSetsUnusedBits(t *testing.T) {
	p := NewPort(&interrupt.Controller{})
	p.Write(addr.SC, 0x00)
	if got := p.Read(addr.SC); got&0x7E != 0x7E {
		t.Errorf("SC = %#x; want bits 1-6 always set", got)
	}
}

func TestTransferRequiresStartAndInternalClockBits(t *testing.T) {
	p := NewPort(&interrupt.Controller{})
	p.Write(addr.SB, 0x42)
	p.Write(addr.SC, 0x80) // start bit set, internal clock bit clear
	if p.transferActive {
		t.Error("a transfer with an external clock request should never start")
	}
}

func TestTransferCompletesAfterTransferCycles(t *testing.T) {
	irq := &interrupt.Controller{}
	p := NewPort(irq)
	p.Write(addr.SB, 0x42)
	p.Write(addr.SC, 0x81) // start + internal clock

	if !p.transferActive {
		t.Fatal("transfer should have started")
	}

	p.Tick(transferCycles - 1)
	if !p.transferActive {
		t.Fatal("transfer should still be active one T-cycle before completion")
	}

	p.Tick(1)
	if p.transferActive {
		t.Error("transfer should be done once its countdown reaches zero")
	}
	if p.sb != 0xFF {
		t.Errorf("SB after completion = %#x; want 0xFF (nothing attached)", p.sb)
	}
	if irq.ReadIF()&uint8(addr.Serial) == 0 {
		t.Error("completing a transfer should request the Serial interrupt")
	}
	if got := p.Read(addr.SC); got&0x80 != 0 {
		t.Errorf("SC bit 7 should clear once the transfer completes, got %#x", got)
	}
}

func TestSecondTransferDoesNotRestartAnActiveOne(t *testing.T) {
	p := NewPort(&interrupt.Controller{})
	p.Write(addr.SB, 0x01)
	p.Write(addr.SC, 0x81)
	p.Tick(transferCycles / 2)

	p.Write(addr.SC, 0x81) // rewriting SC while active must not reset the countdown
	if p.countdown != transferCycles/2 {
		t.Errorf("countdown = %d; want unchanged at %d", p.countdown, transferCycles/2)
	}
}
