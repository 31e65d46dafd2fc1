package audio

import (
	"testing"

	"github.com/wakka810/pocketgb/gb/addr"
)

func TestReadOnlyBitsAlwaysReadHigh(t *testing.T) {
	a := New()
	if got := a.Read(addr.NR13); got != 0xFF {
		t.Errorf("NR13 = %#x; want 0xFF (write-only)", got)
	}
	a.Write(addr.NR10, 0x00)
	if got := a.Read(addr.NR10); got&0x80 == 0 {
		t.Errorf("NR10 = %#x; bit 7 should always read 1", got)
	}
}

func TestNR52ReflectsChannelEnableState(t *testing.T) {
	a := New()
	a.ch1.enabled = true
	a.ch3.enabled = true

	got := a.Read(addr.NR52)
	if got&0x01 == 0 {
		t.Error("NR52 bit 0 should reflect CH1 enabled")
	}
	if got&0x04 == 0 {
		t.Error("NR52 bit 2 should reflect CH3 enabled")
	}
	if got&0x02 != 0 {
		t.Error("NR52 bit 1 should reflect CH2 disabled")
	}
	if got&0x80 == 0 {
		t.Error("NR52 bit 7 should reflect APU powered on")
	}
}

func TestPowerOffClearsRegistersButNotLength(t *testing.T) {
	a := New()
	a.Write(addr.NR11, 0x20) // duty=00, length data = 0x20 -> counter = 64-32=32
	a.Write(addr.NR12, 0xF0)
	a.ch1.enabled = true

	a.Write(addr.NR52, 0x00) // power off

	if a.enabled {
		t.Fatal("APU should be powered off")
	}
	if a.nr12 != 0 {
		t.Errorf("nr12 = %#x; want 0 after power-off", a.nr12)
	}
	if a.ch1.enabled {
		t.Error("power-off should disable all channels")
	}
	if a.ch1.length.counter != 32 {
		t.Errorf("ch1 length counter = %d; want 32 (length data survives power-off)", a.ch1.length.counter)
	}
}

func TestWritesIgnoredWhilePoweredOffExceptLengthData(t *testing.T) {
	a := New()
	a.Write(addr.NR52, 0x00) // power off

	a.Write(addr.NR12, 0xF0) // should be dropped entirely
	if a.nr12 != 0 {
		t.Errorf("nr12 = %#x; want 0 (writes other than length data are dropped while off)", a.nr12)
	}

	a.Write(addr.NR11, 0x3F) // length data: 63 -> counter = 64-63=1
	if a.ch1.length.counter != 1 {
		t.Errorf("ch1 length counter = %d; want 1", a.ch1.length.counter)
	}
}

// fallingEdge advances DIV bit 5 from high to low, the transition that
// clocks the frame sequencer by one step.
func fallingEdge(a *APU) {
	a.Tick(4, 0x20)
	a.Tick(4, 0x00)
}

func TestFrameSequencerStepsOnlyOnFallingEdge(t *testing.T) {
	a := New()

	a.Tick(4, 0x20) // 0 -> 1 is a rising edge: must not step
	if a.frameSeqStep != 0 {
		t.Fatalf("frameSeqStep = %d; want 0 (no step on a rising edge)", a.frameSeqStep)
	}

	a.Tick(4, 0x00) // 1 -> 0 is the falling edge: steps once
	if a.frameSeqStep != 1 {
		t.Fatalf("frameSeqStep = %d; want 1 after one falling edge", a.frameSeqStep)
	}
}

func TestFrameSequencerClocksLengthOnStep2(t *testing.T) {
	a := New()
	a.Write(addr.NR11, 0x3F) // length data 63 -> counter = 64-63 = 1
	a.Write(addr.NR14, 0xC0) // trigger + length enable
	if !a.ch1.enabled {
		t.Fatal("CH1 should be enabled after trigger")
	}

	fallingEdge(a) // step 0 -> 1: no length clock
	fallingEdge(a) // step 1 -> 2: clocks length

	if a.ch1.length.counter != 0 {
		t.Errorf("ch1 length counter = %d; want 0 after reaching sequencer step 2", a.ch1.length.counter)
	}
	if a.ch1.enabled {
		t.Error("CH1 should be disabled once its length counter reaches 0")
	}
}

func TestGetSamplesDrainsExactlyWhatsBuffered(t *testing.T) {
	a := New()
	for i := 0; i < cyclesPerSample*10; i += 4 {
		a.Tick(4, 0)
	}

	pending := a.PendingSampleCount()
	if pending == 0 {
		t.Fatal("expected some buffered samples after ticking past several sample periods")
	}

	got := a.GetSamples(pending)
	if len(got) != pending {
		t.Errorf("GetSamples returned %d samples; want %d", len(got), pending)
	}
	if a.PendingSampleCount() != 0 {
		t.Errorf("PendingSampleCount() = %d after draining; want 0", a.PendingSampleCount())
	}
}

func TestWaveRAMReadWrite(t *testing.T) {
	a := New()
	a.Write(addr.WaveRAMStart, 0xAB)
	if got := a.Read(addr.WaveRAMStart); got != 0xAB {
		t.Errorf("wave RAM byte 0 = %#x; want 0xAB", got)
	}
}
