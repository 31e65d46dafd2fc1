// Package cpu implements the Sharp SM83 instruction set: registers, flags,
// the base and CB-prefixed opcode tables, HALT/STOP semantics and
// interrupt dispatch. It knows nothing about memory layout; all access
// goes through the Bus interface, which is responsible for ticking the
// rest of the machine at the right points.
package cpu

import (
	"github.com/wakka810/pocketgb/gb/addr"
	"github.com/wakka810/pocketgb/gb/bit"
)

// Bus is everything the CPU needs from the rest of the machine. Read and
// Write are expected to tick Timer/PPU/APU by one M-cycle (4 T-cycles)
// themselves, before performing the access, per the ordering in spec §5;
// Tick lets the CPU account for M-cycles that don't touch memory (ALU ops
// on registers, internal decode cycles).
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
	Tick(mCycles int)

	// PendingInterrupts returns IE & IF & 0x1F. Checking it costs no
	// machine cycles: on real hardware the interrupt flip-flops feed the
	// CPU's control logic directly, not through the data bus.
	PendingInterrupts() uint8
	// LowestPendingInterrupt returns the bit position (0-4) of the
	// highest-priority pending interrupt, and whether one exists.
	LowestPendingInterrupt() (uint8, bool)
	// ClearInterruptFlag clears the given IF bit (0-4) as part of
	// dispatching that interrupt.
	ClearInterruptFlag(bitPos uint8)
	// ResetDivider zeroes the timer's internal divider, as STOP does on
	// real hardware.
	ResetDivider()
}

// Flag is one of the four bits of the F register.
type Flag uint8

const (
	FlagZ Flag = 0x80
	FlagN Flag = 0x40
	FlagH Flag = 0x20
	FlagC Flag = 0x10
)

// Status distinguishes the CPU's run state, orthogonal to register
// contents.
type Status uint8

const (
	Running Status = iota
	Halted
	Stopped
	LockedUp // hit an undefined opcode; CPU stops making progress
)

// CPU holds the SM83 register file and execution state.
type CPU struct {
	a, f, b, c, d, e, h, l uint8
	sp, pc                 uint16

	ime        bool
	eiPending  bool
	status     Status
	haltBug    bool
	lockedOp   uint8
	totalCycles uint64

	bus Bus
}

// New returns a CPU seeded with the documented DMG post-boot register
// values (as if the boot ROM had just run). It sets only the CPU's own
// register file and writes no I/O register: the bus's peripherals keep
// whatever state they were constructed with.
func New(bus Bus) *CPU {
	c := &CPU{bus: bus}
	c.setAF(0x01B0)
	c.setBC(0x0013)
	c.setDE(0x00D8)
	c.setHL(0x014D)
	c.sp = 0xFFFE
	c.pc = 0x0100
	return c
}

// Status reports the CPU's current run state.
func (c *CPU) Status() Status { return c.status }

// IsLockedUp reports whether the CPU hit an undefined opcode and the
// Machine should report an illegal-opcode condition to the frontend.
func (c *CPU) IsLockedUp() bool { return c.status == LockedUp }

// LockedOpcode returns the undefined opcode byte that locked up the CPU.
func (c *CPU) LockedOpcode() uint8 { return c.lockedOp }

// PC, SP expose the program counter and stack pointer for debugging/tests.
func (c *CPU) PC() uint16 { return c.pc }
func (c *CPU) SP() uint16 { return c.sp }

// Registers returns the eight 8-bit registers, for debugging/tests.
func (c *CPU) Registers() (a, f, b, cc, d, e, h, l uint8) {
	return c.a, c.f, c.b, c.c, c.d, c.e, c.h, c.l
}

// IME reports whether the interrupt master enable flag is set.
func (c *CPU) IME() bool { return c.ime }

// Restore overwrites the register file and IME from a snapshot. It
// leaves halt/stop/lockup status at Running, matching a snapshot taken
// mid-instruction boundary where Step never observes those states.
func (c *CPU) Restore(a, f, b, cc, d, e, h, l uint8, sp, pc uint16, ime bool) {
	c.a, c.f, c.b, c.c, c.d, c.e, c.h, c.l = a, f, b, cc, d, e, h, l
	c.sp, c.pc = sp, pc
	c.ime = ime
	c.eiPending = false
	c.status = Running
	c.haltBug = false
}

// TotalCycles returns the number of T-cycles executed since power-on.
func (c *CPU) TotalCycles() uint64 { return c.totalCycles }

// Step executes exactly one instruction (or, while halted or locked up,
// one idle M-cycle),
// including interrupt dispatch if one is pending. It does not return a
// cycle count: every cycle was already reported to the bus via Read/Write/
// Tick calls as it happened.
func (c *CPU) Step() {
	if c.status == LockedUp {
		c.busTick(1)
		return
	}

	// eiApply is IME's pending-enable state captured before this
	// instruction runs. EI only takes effect once the instruction
	// following it has also executed, giving that instruction a
	// guaranteed interrupt-free slot.
	eiApply := c.eiPending

	woke := c.serviceInterrupts()

	if c.status == Halted {
		if woke {
			c.status = Running
		} else {
			c.busTick(1)
			return
		}
	}

	opcode := c.fetchOpcode()
	c.execute(opcode)

	if eiApply && c.eiPending {
		c.ime = true
		c.eiPending = false
	}
}

// fetchOpcode reads the next opcode byte, honoring the HALT bug: the byte
// after HALT is read twice because PC fails to increment the first time.
func (c *CPU) fetchOpcode() uint8 {
	op := c.busRead(c.pc)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.pc++
	}
	return op
}

// serviceInterrupts runs the interrupt-dispatch sequence from spec §4.2
// when IME is set and a requested interrupt is enabled. It always reports
// whether an enabled+requested interrupt exists, which is what wakes the
// CPU from HALT regardless of IME.
func (c *CPU) serviceInterrupts() bool {
	if c.bus.PendingInterrupts() == 0 {
		return false
	}

	if !c.ime {
		return true
	}

	n, _ := c.bus.LowestPendingInterrupt()

	c.ime = false
	c.bus.ClearInterruptFlag(n)

	c.busTick(2)
	c.pushWord(c.pc)
	c.pc = addr.InterruptVector(n)
	c.busTick(1)

	return true
}

func (c *CPU) totalCyclesAdd(mCycles int) {
	c.totalCycles += uint64(mCycles) * 4
}

// busRead/busWrite/busTick are the only points that touch the bus, so
// cycle accounting always flows through one place.
func (c *CPU) busRead(address uint16) uint8 {
	c.totalCyclesAdd(1)
	return c.bus.Read(address)
}

func (c *CPU) busWrite(address uint16, value uint8) {
	c.totalCyclesAdd(1)
	c.bus.Write(address, value)
}

func (c *CPU) busTick(mCycles int) {
	c.totalCyclesAdd(mCycles)
	c.bus.Tick(mCycles)
}

// register pair accessors

func (c *CPU) setBC(v uint16) { c.b, c.c = bit.High(v), bit.Low(v) }
func (c *CPU) getBC() uint16  { return bit.Combine(c.b, c.c) }
func (c *CPU) setDE(v uint16) { c.d, c.e = bit.High(v), bit.Low(v) }
func (c *CPU) getDE() uint16  { return bit.Combine(c.d, c.e) }
func (c *CPU) setHL(v uint16) { c.h, c.l = bit.High(v), bit.Low(v) }
func (c *CPU) getHL() uint16  { return bit.Combine(c.h, c.l) }
func (c *CPU) setAF(v uint16) { c.a, c.f = bit.High(v), bit.Low(v)&0xF0 }
func (c *CPU) getAF() uint16  { return bit.Combine(c.a, c.f) }

// flag helpers

func (c *CPU) setFlag(fl Flag)             { c.f |= uint8(fl) }
func (c *CPU) clearFlag(fl Flag)           { c.f &^= uint8(fl) }
func (c *CPU) flag(fl Flag) bool           { return c.f&uint8(fl) != 0 }
func (c *CPU) setFlagIf(fl Flag, cond bool) {
	if cond {
		c.setFlag(fl)
	} else {
		c.clearFlag(fl)
	}
}
