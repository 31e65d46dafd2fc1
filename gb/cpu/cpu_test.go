package cpu

import "testing"

// fakeBus is a flat 64KB memory with an interrupt mailbox, enough to drive
// the CPU's fetch/decode/execute loop without the rest of the machine.
type fakeBus struct {
	mem         [0x10000]uint8
	ie, ifr     uint8
	tickedCycles int
	divReset    bool
}

func (b *fakeBus) Read(address uint16) uint8  { return b.mem[address] }
func (b *fakeBus) Write(address uint16, v uint8) { b.mem[address] = v }
func (b *fakeBus) Tick(mCycles int)           { b.tickedCycles += mCycles }
func (b *fakeBus) PendingInterrupts() uint8   { return b.ie & b.ifr & 0x1F }
func (b *fakeBus) LowestPendingInterrupt() (uint8, bool) {
	pending := b.ie & b.ifr & 0x1F
	if pending == 0 {
		return 0, false
	}
	for n := uint8(0); n < 5; n++ {
		if pending&(1<<n) != 0 {
			return n, true
		}
	}
	return 0, false
}
func (b *fakeBus) ClearInterruptFlag(bitPos uint8) { b.ifr &^= 1 << bitPos }
func (b *fakeBus) ResetDivider()              { b.divReset = true }

func newTestCPU() (*CPU, *fakeBus) {
	bus := &fakeBus{}
	return New(bus), bus
}

func (b *fakeBus) load(pc uint16, opcodes ...uint8) {
	for i, op := range opcodes {
		b.mem[pc+uint16(i)] = op
	}
}

func TestNopAdvancesPCByOne(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x100
	bus.load(0x100, 0x00)

	c.Step()

	if c.pc != 0x101 {
		t.Errorf("pc = %#x; want 0x101", c.pc)
	}
}

func TestIncAZeroFlagAndHalfCarry(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x100
	c.a = 0xFF
	bus.load(0x100, 0x3C) // INC A

	c.Step()

	if c.a != 0 {
		t.Errorf("a = %#x; want 0", c.a)
	}
	if !c.flag(FlagZ) || !c.flag(FlagH) {
		t.Errorf("f = %#x; want Z and H set", c.f)
	}
	if c.flag(FlagN) {
		t.Error("INC must clear N")
	}
}

func TestLowNibbleOfFAlwaysZero(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x100
	c.a = 0x01
	bus.load(0x100, 0xB7) // OR A (sets Z=0,N=0,H=0,C=0, low nibble untouched)

	c.Step()

	if c.f&0x0F != 0 {
		t.Errorf("low nibble of F = %#x; must always read 0", c.f&0x0F)
	}
}

func TestAddSetsCarryAndHalfCarry(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x100
	c.a = 0xFF
	c.b = 0x01
	bus.load(0x100, 0x80) // ADD A,B

	c.Step()

	if c.a != 0 {
		t.Errorf("a = %#x; want 0", c.a)
	}
	if !c.flag(FlagC) || !c.flag(FlagH) || !c.flag(FlagZ) {
		t.Errorf("f = %#x; want Z,H,C all set", c.f)
	}
}

func TestDAAAfterBCDAddition(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x100
	c.a = 0x45
	c.b = 0x38
	bus.load(0x100, 0x80, 0x27) // ADD A,B ; DAA

	c.Step()
	c.Step()

	if c.a != 0x83 {
		t.Errorf("a after DAA = %#x; want 0x83 (BCD 45+38=83)", c.a)
	}
}

func TestJumpRelativeTaken(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x100
	bus.load(0x100, 0x18, 0x05) // JR +5

	c.Step()

	// pc after fetching the two-byte instruction is 0x102, plus the offset.
	if c.pc != 0x107 {
		t.Errorf("pc = %#x; want 0x107", c.pc)
	}
}

func TestCallAndReturnRoundTrip(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x100
	c.sp = 0xFFFE
	bus.load(0x100, 0xCD, 0x00, 0x02) // CALL 0x0200
	bus.load(0x200, 0xC9)             // RET

	c.Step() // CALL
	if c.pc != 0x200 {
		t.Fatalf("pc after CALL = %#x; want 0x200", c.pc)
	}

	c.Step() // RET
	if c.pc != 0x103 {
		t.Errorf("pc after RET = %#x; want 0x103", c.pc)
	}
}

func TestUndefinedOpcodeLocksUp(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x100
	bus.load(0x100, 0xD3) // undefined

	c.Step()

	if !c.IsLockedUp() {
		t.Fatal("CPU should be locked up after an undefined opcode")
	}
	if c.LockedOpcode() != 0xD3 {
		t.Errorf("LockedOpcode() = %#x; want 0xD3", c.LockedOpcode())
	}

	pcBefore := c.pc
	c.Step()
	if c.pc != pcBefore {
		t.Error("a locked-up CPU must not advance PC on further Step calls")
	}
}

func TestEIDelaysEnablingInterrupts(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x100
	c.ime = false
	bus.load(0x100, 0xFB, 0x00) // EI ; NOP

	c.Step() // EI: doesn't take effect until after the next instruction
	if c.ime {
		t.Error("IME must not be set immediately after EI")
	}

	c.Step() // NOP: EI's delayed effect applies here
	if !c.ime {
		t.Error("IME should be set after the instruction following EI")
	}
}

func TestDIDisablesInterruptsImmediately(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x100
	c.ime = true
	bus.load(0x100, 0xF3) // DI

	c.Step()

	if c.ime {
		t.Error("DI should clear IME immediately")
	}
}

func TestEIThenDIWithPendingInterruptNeverDispatches(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x100
	c.sp = 0xFFFE
	c.ime = false
	bus.load(0x100, 0xFB, 0xF3) // EI ; DI
	bus.ie = 0x01
	bus.ifr = 0x01 // VBlank pending the whole time

	c.Step() // EI: IME stays off, pending-enable armed
	if c.ime {
		t.Fatal("IME must not be set immediately after EI")
	}

	c.Step() // DI: must cancel the pending enable before it ever applies
	if c.ime {
		t.Error("IME should still be off: DI must win the race with EI's delayed enable")
	}
	if c.pc != 0x102 {
		t.Errorf("pc = %#x; want 0x102 (no interrupt dispatch pushed a return address)", c.pc)
	}
	if c.sp != 0xFFFE {
		t.Errorf("sp = %#x; want 0xFFFE unchanged: no interrupt was dispatched between EI and DI", c.sp)
	}
	if bus.ifr&0x01 == 0 {
		t.Error("IF should still have VBlank pending: it was never serviced")
	}
}

func TestInterruptDispatchPriorityAndTiming(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x100
	c.sp = 0xFFFE
	c.ime = true
	bus.ie = 0x1F
	bus.ifr = 0x1F // all five requested at once; VBlank (bit 0) wins

	serviced := c.serviceInterrupts()

	if !serviced {
		t.Fatal("serviceInterrupts should report a dispatch happened")
	}
	if c.pc != 0x40 {
		t.Errorf("pc after dispatch = %#x; want 0x40 (VBlank vector)", c.pc)
	}
	if c.ime {
		t.Error("dispatching an interrupt should clear IME")
	}
	if bus.ifr&0x01 != 0 {
		t.Error("dispatch should clear the VBlank IF bit")
	}
	if bus.ifr&0x1E != 0x1E {
		t.Error("dispatch must not touch the other pending IF bits")
	}
	if bus.tickedCycles != 3 {
		t.Errorf("dispatch should spend 3 idle M-cycles in Tick (2 before the 2-write push, 1 after; 5 in total), got %d", bus.tickedCycles)
	}
}

func TestHaltWakesOnPendingInterruptEvenWithIMEOff(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x100
	c.ime = false
	bus.load(0x100, 0x76, 0x00) // HALT ; NOP
	c.Step()                    // HALT: IME=0, no pending interrupt yet, so it actually halts
	if c.status != Halted {
		t.Fatal("CPU should be halted")
	}

	bus.ie = 0x01
	bus.ifr = 0x01

	c.Step() // wakes but does not service the interrupt (IME=0), and executes the NOP at 0x101
	if c.status == Halted {
		t.Error("CPU should wake from HALT once an interrupt is pending, regardless of IME")
	}
	if c.pc != 0x102 {
		t.Errorf("pc = %#x; want 0x102 (woke, fetched the NOP, no dispatch since IME=0)", c.pc)
	}
}

func TestHaltBugDoublesNextFetch(t *testing.T) {
	c, bus := newTestCPU()
	c.pc = 0x100
	c.a = 0 // New seeds A=0x01; start from 0 so each INC A is countable
	c.ime = false
	bus.ie = 0x01
	bus.ifr = 0x01 // pending before HALT executes, triggering the HALT bug
	bus.load(0x100, 0x76, 0x3C) // HALT ; INC A

	c.Step() // HALT doesn't actually halt; it arms haltBug instead
	if c.status == Halted {
		t.Fatal("HALT with IME=0 and a pending interrupt should not actually halt")
	}
	if c.pc != 0x101 {
		t.Errorf("pc after HALT = %#x; want 0x101", c.pc)
	}

	c.Step() // first read of the byte at 0x101: PC fails to advance
	if c.a != 1 {
		t.Errorf("a = %d; want 1 (INC A executed once)", c.a)
	}
	if c.pc != 0x101 {
		t.Errorf("pc = %#x; want 0x101 (unchanged: the HALT bug's defining symptom)", c.pc)
	}

	c.Step() // second read of the same byte, this time PC advances normally
	if c.a != 2 {
		t.Errorf("a = %d; want 2 (INC A executed a second time on the same byte)", c.a)
	}
	if c.pc != 0x102 {
		t.Errorf("pc = %#x; want 0x102", c.pc)
	}
}

func TestRestoreResetsStatusToRunning(t *testing.T) {
	c, _ := newTestCPU()
	c.status = LockedUp

	c.Restore(1, 2, 3, 4, 5, 6, 7, 8, 0x1234, 0x5678, true)

	if c.status != Running {
		t.Error("Restore should always leave the CPU in Running status")
	}
	if c.pc != 0x5678 || c.sp != 0x1234 {
		t.Errorf("pc/sp = %#x/%#x; want 0x5678/0x1234", c.pc, c.sp)
	}
	if !c.ime {
		t.Error("Restore should set IME from its argument")
	}
}
