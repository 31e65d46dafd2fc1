package cpu

import "github.com/wakka810/pocketgb/gb/bit"

// execute dispatches a fetched base opcode. Every memory access and every
// cycle that isn't implied by a Read/Write call is charged explicitly via
// busTick, so the sum of calls made here always equals the opcode's
// documented M-cycle count.
func (c *CPU) execute(opcode uint8) {
	switch {
	case opcode == 0x76:
		c.halt()
		return
	case opcode >= 0x40 && opcode <= 0x7F:
		dest, src := (opcode>>3)&7, opcode&7
		c.writeReg(dest, c.readReg(src))
		return
	case opcode >= 0x80 && opcode <= 0xBF:
		c.executeALU((opcode>>3)&7, c.readReg(opcode&7))
		return
	}

	switch opcode {
	case 0x00: // NOP

	case 0x01:
		c.setBC(c.fetch16())
	case 0x02:
		c.busWrite(c.getBC(), c.a)
	case 0x03:
		c.busTick(1)
		c.setBC(c.getBC() + 1)
	case 0x04:
		c.b = c.inc8(c.b)
	case 0x05:
		c.b = c.dec8(c.b)
	case 0x06:
		c.b = c.fetch8()
	case 0x07:
		c.a = c.rlc(c.a)
		c.clearFlag(FlagZ)
	case 0x08:
		addr16 := c.fetch16()
		c.busWrite(addr16, bit.Low(c.sp))
		c.busWrite(addr16+1, bit.High(c.sp))
	case 0x09:
		c.busTick(1)
		c.addHL16(c.getBC())
	case 0x0A:
		c.a = c.busRead(c.getBC())
	case 0x0B:
		c.busTick(1)
		c.setBC(c.getBC() - 1)
	case 0x0C:
		c.c = c.inc8(c.c)
	case 0x0D:
		c.c = c.dec8(c.c)
	case 0x0E:
		c.c = c.fetch8()
	case 0x0F:
		c.a = c.rrc(c.a)
		c.clearFlag(FlagZ)

	case 0x10:
		c.pc++ // skip the STOP padding byte without a bus access, per hardware quirk
		c.bus.ResetDivider()

	case 0x11:
		c.setDE(c.fetch16())
	case 0x12:
		c.busWrite(c.getDE(), c.a)
	case 0x13:
		c.busTick(1)
		c.setDE(c.getDE() + 1)
	case 0x14:
		c.d = c.inc8(c.d)
	case 0x15:
		c.d = c.dec8(c.d)
	case 0x16:
		c.d = c.fetch8()
	case 0x17:
		c.a = c.rl(c.a)
		c.clearFlag(FlagZ)
	case 0x18:
		c.jr(true)
	case 0x19:
		c.busTick(1)
		c.addHL16(c.getDE())
	case 0x1A:
		c.a = c.busRead(c.getDE())
	case 0x1B:
		c.busTick(1)
		c.setDE(c.getDE() - 1)
	case 0x1C:
		c.e = c.inc8(c.e)
	case 0x1D:
		c.e = c.dec8(c.e)
	case 0x1E:
		c.e = c.fetch8()
	case 0x1F:
		c.a = c.rr(c.a)
		c.clearFlag(FlagZ)

	case 0x20:
		c.jr(!c.flag(FlagZ))
	case 0x21:
		c.setHL(c.fetch16())
	case 0x22:
		hl := c.getHL()
		c.busWrite(hl, c.a)
		c.setHL(hl + 1)
	case 0x23:
		c.busTick(1)
		c.setHL(c.getHL() + 1)
	case 0x24:
		c.h = c.inc8(c.h)
	case 0x25:
		c.h = c.dec8(c.h)
	case 0x26:
		c.h = c.fetch8()
	case 0x27:
		c.daa()
	case 0x28:
		c.jr(c.flag(FlagZ))
	case 0x29:
		c.busTick(1)
		c.addHL16(c.getHL())
	case 0x2A:
		hl := c.getHL()
		c.a = c.busRead(hl)
		c.setHL(hl + 1)
	case 0x2B:
		c.busTick(1)
		c.setHL(c.getHL() - 1)
	case 0x2C:
		c.l = c.inc8(c.l)
	case 0x2D:
		c.l = c.dec8(c.l)
	case 0x2E:
		c.l = c.fetch8()
	case 0x2F:
		c.a = ^c.a
		c.setFlag(FlagN)
		c.setFlag(FlagH)

	case 0x30:
		c.jr(!c.flag(FlagC))
	case 0x31:
		c.sp = c.fetch16()
	case 0x32:
		hl := c.getHL()
		c.busWrite(hl, c.a)
		c.setHL(hl - 1)
	case 0x33:
		c.busTick(1)
		c.sp++
	case 0x34:
		hl := c.getHL()
		c.busWrite(hl, c.inc8(c.busRead(hl)))
	case 0x35:
		hl := c.getHL()
		c.busWrite(hl, c.dec8(c.busRead(hl)))
	case 0x36:
		v := c.fetch8()
		c.busWrite(c.getHL(), v)
	case 0x37:
		c.setFlag(FlagC)
		c.clearFlag(FlagN)
		c.clearFlag(FlagH)
	case 0x38:
		c.jr(c.flag(FlagC))
	case 0x39:
		c.busTick(1)
		c.addHL16(c.sp)
	case 0x3A:
		hl := c.getHL()
		c.a = c.busRead(hl)
		c.setHL(hl - 1)
	case 0x3B:
		c.busTick(1)
		c.sp--
	case 0x3C:
		c.a = c.inc8(c.a)
	case 0x3D:
		c.a = c.dec8(c.a)
	case 0x3E:
		c.a = c.fetch8()
	case 0x3F:
		c.setFlagIf(FlagC, !c.flag(FlagC))
		c.clearFlag(FlagN)
		c.clearFlag(FlagH)

	case 0xC0:
		c.ret(!c.flag(FlagZ))
	case 0xC1:
		c.setBC(c.popWord())
	case 0xC2:
		c.jp(!c.flag(FlagZ))
	case 0xC3:
		c.jp(true)
	case 0xC4:
		c.call(!c.flag(FlagZ))
	case 0xC5:
		c.busTick(1)
		c.pushWord(c.getBC())
	case 0xC6:
		c.executeALU(0, c.fetch8())
	case 0xC7:
		c.rst(0x00)
	case 0xC8:
		c.ret(c.flag(FlagZ))
	case 0xC9:
		c.pc = c.popWord()
		c.busTick(1)
	case 0xCA:
		c.jp(c.flag(FlagZ))
	case 0xCB:
		c.executeCB(c.fetch8())
	case 0xCC:
		c.call(c.flag(FlagZ))
	case 0xCD:
		c.call(true)
	case 0xCE:
		c.executeALU(1, c.fetch8())
	case 0xCF:
		c.rst(0x08)

	case 0xD0:
		c.ret(!c.flag(FlagC))
	case 0xD1:
		c.setDE(c.popWord())
	case 0xD2:
		c.jp(!c.flag(FlagC))
	case 0xD4:
		c.call(!c.flag(FlagC))
	case 0xD5:
		c.busTick(1)
		c.pushWord(c.getDE())
	case 0xD6:
		c.executeALU(2, c.fetch8())
	case 0xD7:
		c.rst(0x10)
	case 0xD8:
		c.ret(c.flag(FlagC))
	case 0xD9:
		c.pc = c.popWord()
		c.busTick(1)
		c.ime = true
		c.eiPending = false
	case 0xDA:
		c.jp(c.flag(FlagC))
	case 0xDC:
		c.call(c.flag(FlagC))
	case 0xDE:
		c.executeALU(3, c.fetch8())
	case 0xDF:
		c.rst(0x18)

	case 0xE0:
		a := 0xFF00 | uint16(c.fetch8())
		c.busWrite(a, c.a)
	case 0xE1:
		c.setHL(c.popWord())
	case 0xE2:
		c.busWrite(0xFF00|uint16(c.c), c.a)
	case 0xE5:
		c.busTick(1)
		c.pushWord(c.getHL())
	case 0xE6:
		c.executeALU(4, c.fetch8())
	case 0xE7:
		c.rst(0x20)
	case 0xE8:
		offset := int8(c.fetch8())
		c.busTick(2)
		c.sp = c.addSPSigned(offset)
	case 0xE9:
		c.pc = c.getHL()
	case 0xEA:
		a := c.fetch16()
		c.busWrite(a, c.a)
	case 0xEE:
		c.executeALU(5, c.fetch8())
	case 0xEF:
		c.rst(0x28)

	case 0xF0:
		a := 0xFF00 | uint16(c.fetch8())
		c.a = c.busRead(a)
	case 0xF1:
		c.setAF(c.popWord())
	case 0xF2:
		c.a = c.busRead(0xFF00 | uint16(c.c))
	case 0xF3:
		c.ime = false
		c.eiPending = false
	case 0xF5:
		c.busTick(1)
		c.pushWord(c.getAF())
	case 0xF6:
		c.executeALU(6, c.fetch8())
	case 0xF7:
		c.rst(0x30)
	case 0xF8:
		offset := int8(c.fetch8())
		c.busTick(1)
		c.setHL(c.addSPSigned(offset))
	case 0xF9:
		c.busTick(1)
		c.sp = c.getHL()
	case 0xFA:
		a := c.fetch16()
		c.a = c.busRead(a)
	case 0xFB:
		c.eiPending = true
	case 0xFE:
		c.executeALU(7, c.fetch8())
	case 0xFF:
		c.rst(0x38)

	default:
		// D3 DB DD E3 E4 EB EC ED F4 FC FD: undefined, hardware lockup.
		c.status = LockedUp
		c.lockedOp = opcode
	}
}

// executeALU applies one of the eight A,<op> operations selected by the
// same 3-bit index used in the opcode's destination/source fields:
// 0=ADD 1=ADC 2=SUB 3=SBC 4=AND 5=XOR 6=OR 7=CP.
func (c *CPU) executeALU(op uint8, v uint8) {
	switch op {
	case 0:
		c.add8(v)
	case 1:
		c.adc8(v)
	case 2:
		c.a = c.sub8(v)
	case 3:
		c.a = c.sbc8(v)
	case 4:
		c.and8(v)
	case 5:
		c.xor8(v)
	case 6:
		c.or8(v)
	case 7:
		c.cp8(v)
	}
}

func (c *CPU) halt() {
	// HALT with IME=0 and a pending interrupt doesn't actually halt: the
	// CPU keeps running but the next opcode fetch fails to advance PC
	// (the "HALT bug"), causing the following byte to be read twice.
	if !c.ime && c.bus.PendingInterrupts() != 0 {
		c.haltBug = true
		return
	}
	c.status = Halted
}

func (c *CPU) jr(taken bool) {
	offset := int8(c.fetch8())
	if !taken {
		return
	}
	c.busTick(1)
	c.pc = uint16(int32(c.pc) + int32(offset))
}

func (c *CPU) jp(taken bool) {
	target := c.fetch16()
	if !taken {
		return
	}
	c.busTick(1)
	c.pc = target
}

func (c *CPU) call(taken bool) {
	target := c.fetch16()
	if !taken {
		return
	}
	c.busTick(1)
	c.pushWord(c.pc)
	c.pc = target
}

func (c *CPU) ret(taken bool) {
	c.busTick(1)
	if !taken {
		return
	}
	c.pc = c.popWord()
	c.busTick(1)
}

func (c *CPU) rst(target uint16) {
	c.busTick(1)
	c.pushWord(c.pc)
	c.pc = target
}
