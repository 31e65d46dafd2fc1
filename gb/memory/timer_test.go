package memory

import (
	"testing"

	"github.com/wakka810/pocketgb/gb/addr"
	"github.com/wakka810/pocketgb/gb/interrupt"
)

func TestDivIncrementsOnTick(t *testing.T) {
	timer := NewTimer(&interrupt.Controller{})
	timer.Tick(256)
	if got := timer.Read(addr.DIV); got != 1 {
		t.Errorf("DIV after 256 T-cycles = %d; want 1", got)
	}
}

func TestWritingDivResetsIt(t *testing.T) {
	timer := NewTimer(&interrupt.Controller{})
	timer.Tick(1000)
	timer.Write(addr.DIV, 0x42) // any value written resets DIV to 0
	if got := timer.Read(addr.DIV); got != 0 {
		t.Errorf("DIV after write = %d; want 0", got)
	}
}

func TestTimaIncrementsAtSelectedRate(t *testing.T) {
	timer := NewTimer(&interrupt.Controller{})
	timer.Write(addr.TAC, 0x05) // enabled, clock select 01 -> bit 3 (262144 Hz, every 16 T-cycles)

	timer.Tick(16)
	if got := timer.Read(addr.TIMA); got != 1 {
		t.Errorf("TIMA after 16 T-cycles at 262144Hz = %d; want 1", got)
	}
}

func TestTimaOverflowReloadsFromTmaAfterDelay(t *testing.T) {
	irq := &interrupt.Controller{}
	timer := NewTimer(irq)
	timer.Write(addr.TMA, 0xAB)
	timer.Write(addr.TAC, 0x05)
	timer.Write(addr.TIMA, 0xFF)

	timer.Tick(16) // overflow to 0, reload pending
	if got := timer.Read(addr.TIMA); got != 0 {
		t.Errorf("TIMA immediately after overflow = %#x; want 0", got)
	}

	timer.Tick(3)
	if got := timer.Read(addr.TIMA); got != 0 {
		t.Errorf("TIMA 3 T-cycles into reload delay = %#x; want still 0", got)
	}

	timer.Tick(1)
	if got := timer.Read(addr.TIMA); got != 0xAB {
		t.Errorf("TIMA after 4-cycle reload delay = %#x; want %#x", got, 0xAB)
	}

	irq.WriteIE(uint8(addr.Timer))
	timer.Tick(1) // the interrupt request fires on the cycle after the reload
	if irq.Pending() == 0 {
		t.Error("Timer interrupt should have been requested on reload")
	}
}

func TestWriteDuringReloadWindowCancelsIt(t *testing.T) {
	timer := NewTimer(&interrupt.Controller{})
	timer.Write(addr.TMA, 0xAB)
	timer.Write(addr.TAC, 0x05)
	timer.Write(addr.TIMA, 0xFF)

	timer.Tick(16) // triggers overflow, TIMA=0, reload pending
	timer.Write(addr.TIMA, 0x10)

	timer.Tick(4)
	if got := timer.Read(addr.TIMA); got != 0x10 {
		t.Errorf("TIMA after cancelled reload = %#x; want 0x10 (the written value stands)", got)
	}
}
