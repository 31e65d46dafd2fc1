// Package audio implements the DMG audio processing unit: the four sound
// channels, the DIV-driven frame sequencer, NR50/NR51 stereo mixing and a
// DC-blocking high-pass filter on the final output.
package audio

import (
	"github.com/wakka810/pocketgb/gb/addr"
	"github.com/wakka810/pocketgb/gb/bit"
)

// APU owns all FF10-FF3F register state and channel generators.
type APU struct {
	enabled bool

	ch1 pulseChannel
	ch2 pulseChannel
	ch3 waveChannel
	ch4 noiseChannel

	nr10, nr11, nr12, nr13, nr14 uint8
	nr21, nr22, nr23, nr24       uint8
	nr30, nr31, nr32, nr33, nr34 uint8
	nr41, nr42, nr43, nr44       uint8
	nr50, nr51                  uint8

	frameSeqStep int
	lastDivBit5  bool

	sampleAcc int
	samples   []int16 // interleaved L, R

	hpL, hpR dcBlocker
}

// New returns an APU in the documented DMG power-on state.
func New() *APU {
	a := &APU{enabled: true}
	a.ch1.hasSweep = true
	a.nr10, a.nr11, a.nr12, a.nr14 = 0x80, 0xBF, 0xF3, 0xBF
	a.nr21, a.nr24 = 0x3F, 0xBF
	a.nr30, a.nr31, a.nr32, a.nr34 = 0x7F, 0xFF, 0x9F, 0xBF
	a.nr41 = 0xFF
	a.nr50, a.nr51 = 0x77, 0xF3
	a.samples = make([]int16, 0, maxSampleBuffer)
	a.hpL.init()
	a.hpR.init()
	return a
}

// Tick advances every channel's frequency timer by tCycles T-cycles,
// steps the 512 Hz frame sequencer off DIV's bit 5 falling edge, and
// resamples the mix down to the output sample rate.
func (a *APU) Tick(tCycles int, div uint8) {
	bit5 := bit.IsSet(5, div)
	if a.lastDivBit5 && !bit5 {
		a.stepFrameSequencer()
	}
	a.lastDivBit5 = bit5

	if a.enabled {
		a.ch1.tickTimer(tCycles)
		a.ch2.tickTimer(tCycles)
		a.ch3.tickTimer(tCycles)
		a.ch4.tickTimer(tCycles)
	}

	a.sampleAcc += tCycles
	for a.sampleAcc >= cyclesPerSample {
		a.sampleAcc -= cyclesPerSample
		a.pushSample()
	}
}

// stepFrameSequencer runs one of the 8 steps shown in spec §4.4: length
// at steps 0/2/4/6, sweep at 2/6, envelope at 7.
func (a *APU) stepFrameSequencer() {
	a.frameSeqStep = (a.frameSeqStep + 1) & 7
	switch a.frameSeqStep {
	case 0, 4:
		a.tickLength()
	case 2, 6:
		a.tickLength()
		a.tickSweep()
	case 7:
		a.ch1.env.tick()
		a.ch2.env.tick()
		a.ch4.env.tick()
	}
}

func (a *APU) tickLength() {
	a.ch1.length.tick(&a.ch1.enabled)
	a.ch2.length.tick(&a.ch2.enabled)
	a.ch3.length.tick(&a.ch3.enabled)
	a.ch4.length.tick(&a.ch4.enabled)
}

func (a *APU) tickSweep() {
	if newFreq, ok := a.ch1.swp.tick(&a.ch1.enabled); ok {
		a.ch1.freq = newFreq
		a.nr13 = uint8(newFreq)
		a.nr14 = (a.nr14 &^ 0x07) | uint8(newFreq>>8)
	}
}

func (a *APU) pushSample() {
	c1 := int32(a.ch1.sample())
	c2 := int32(a.ch2.sample())
	c3 := int32(a.ch3.sample())
	c4 := int32(a.ch4.sample())

	var left, right int32
	if bit.IsSet(4, a.nr51) {
		left += c1
	}
	if bit.IsSet(5, a.nr51) {
		left += c2
	}
	if bit.IsSet(6, a.nr51) {
		left += c3
	}
	if bit.IsSet(7, a.nr51) {
		left += c4
	}
	if bit.IsSet(0, a.nr51) {
		right += c1
	}
	if bit.IsSet(1, a.nr51) {
		right += c2
	}
	if bit.IsSet(2, a.nr51) {
		right += c3
	}
	if bit.IsSet(3, a.nr51) {
		right += c4
	}

	leftVol := int32((a.nr50>>4)&0x07) + 1
	rightVol := int32(a.nr50&0x07) + 1

	leftOut := a.hpL.apply(float32(left) * float32(leftVol) / (4 * 8 * 15))
	rightOut := a.hpR.apply(float32(right) * float32(rightVol) / (4 * 8 * 15))

	a.samples = append(a.samples, floatToPCM(leftOut), floatToPCM(rightOut))
	if len(a.samples) > maxSampleBuffer*2 {
		a.samples = a.samples[len(a.samples)-maxSampleBuffer:]
	}
}

func floatToPCM(v float32) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}

// PendingSampleCount returns how many interleaved L/R samples are
// currently buffered, for callers draining exactly what's available
// each frame rather than polling with an arbitrary count.
func (a *APU) PendingSampleCount() int {
	return len(a.samples)
}

// GetSamples drains up to count interleaved L/R samples.
func (a *APU) GetSamples(count int) []int16 {
	if count > len(a.samples) {
		count = len(a.samples)
	}
	out := make([]int16, count)
	copy(out, a.samples[:count])
	a.samples = a.samples[count:]
	return out
}

func (a *APU) Read(address uint16) uint8 {
	if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
		return a.readWaveRAM(address)
	}

	switch address {
	case addr.NR10:
		return a.nr10 | 0x80
	case addr.NR11:
		return (a.nr11 & 0xC0) | 0x3F
	case addr.NR12:
		return a.nr12
	case addr.NR13:
		return 0xFF
	case addr.NR14:
		return (a.nr14 & 0x40) | 0xBF
	case addr.NR21:
		return (a.nr21 & 0xC0) | 0x3F
	case addr.NR22:
		return a.nr22
	case addr.NR23:
		return 0xFF
	case addr.NR24:
		return (a.nr24 & 0x40) | 0xBF
	case addr.NR30:
		return (a.nr30 & 0x80) | 0x7F
	case addr.NR31:
		return 0xFF
	case addr.NR32:
		return (a.nr32 & 0x60) | 0x9F
	case addr.NR33:
		return 0xFF
	case addr.NR34:
		return (a.nr34 & 0x40) | 0xBF
	case addr.NR41:
		return 0xFF
	case addr.NR42:
		return a.nr42
	case addr.NR43:
		return a.nr43
	case addr.NR44:
		return (a.nr44 & 0x40) | 0xBF
	case addr.NR50:
		return a.nr50
	case addr.NR51:
		return a.nr51
	case addr.NR52:
		return a.readNR52()
	}
	return 0xFF
}

func (a *APU) readNR52() uint8 {
	var status uint8
	if a.enabled {
		status |= 1 << nr52PowerBit
	}
	if a.ch1.enabled {
		status |= 0x01
	}
	if a.ch2.enabled {
		status |= 0x02
	}
	if a.ch3.enabled {
		status |= 0x04
	}
	if a.ch4.enabled {
		status |= 0x08
	}
	return status | 0x70
}

func (a *APU) readWaveRAM(address uint16) uint8 {
	return a.ch3.waveRAM[address-addr.WaveRAMStart]
}

func (a *APU) Write(address uint16, value uint8) {
	if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
		a.ch3.waveRAM[address-addr.WaveRAMStart] = value
		return
	}

	if address == addr.NR52 {
		wasEnabled := a.enabled
		a.enabled = bit.IsSet(nr52PowerBit, value)
		if wasEnabled && !a.enabled {
			a.powerOff()
		}
		return
	}

	if !a.enabled {
		// Only length-data bits survive with the APU powered off.
		switch address {
		case addr.NR11:
			a.nr11 = (a.nr11 & 0xC0) | (value & 0x3F)
			a.ch1.length.counter = 64 - uint16(value&0x3F)
		case addr.NR21:
			a.nr21 = (a.nr21 & 0xC0) | (value & 0x3F)
			a.ch2.length.counter = 64 - uint16(value&0x3F)
		case addr.NR31:
			a.nr31 = value
			a.ch3.length.counter = 256 - uint16(value)
		case addr.NR41:
			a.nr41 = (a.nr41 & 0xC0) | (value & 0x3F)
			a.ch4.length.counter = 64 - uint16(value&0x3F)
		}
		return
	}

	switch address {
	case addr.NR10:
		a.nr10 = value
	case addr.NR11:
		a.nr11 = value
		a.ch1.duty = value >> 6
		a.ch1.length.counter = 64 - uint16(value&0x3F)
	case addr.NR12:
		a.nr12 = value
		a.ch1.dacOn = (value & 0xF8) != 0
	case addr.NR13:
		a.nr13 = value
	case addr.NR14:
		a.nr14 = value
		a.ch1.length.enabled = bit.IsSet(lengthEnableBit, value)
		if bit.IsSet(triggerBit, value) {
			a.ch1.trigger(a.freq13_14(a.nr13, a.nr14), a.ch1.duty, a.nr11, a.nr12, a.nr10)
		}

	case addr.NR21:
		a.nr21 = value
		a.ch2.duty = value >> 6
		a.ch2.length.counter = 64 - uint16(value&0x3F)
	case addr.NR22:
		a.nr22 = value
		a.ch2.dacOn = (value & 0xF8) != 0
	case addr.NR23:
		a.nr23 = value
	case addr.NR24:
		a.nr24 = value
		a.ch2.length.enabled = bit.IsSet(lengthEnableBit, value)
		if bit.IsSet(triggerBit, value) {
			a.ch2.trigger(a.freq13_14(a.nr23, a.nr24), a.ch2.duty, a.nr21, a.nr22, 0)
		}

	case addr.NR30:
		a.nr30 = value
		a.ch3.dacOn = bit.IsSet(waveDACBit, value)
	case addr.NR31:
		a.nr31 = value
		a.ch3.length.counter = 256 - uint16(value)
	case addr.NR32:
		a.nr32 = value
		a.ch3.level = (value >> 5) & 0x03
	case addr.NR33:
		a.nr33 = value
	case addr.NR34:
		a.nr34 = value
		a.ch3.length.enabled = bit.IsSet(lengthEnableBit, value)
		if bit.IsSet(triggerBit, value) {
			a.ch3.trigger(a.freq13_14(a.nr33, a.nr34), a.nr31)
		}

	case addr.NR41:
		a.nr41 = value
		a.ch4.length.counter = 64 - uint16(value&0x3F)
	case addr.NR42:
		a.nr42 = value
		a.ch4.dacOn = (value & 0xF8) != 0
	case addr.NR43:
		a.nr43 = value
		a.ch4.divisorCode = value & 0x07
		a.ch4.shift = (value >> 4) & 0x0F
		a.ch4.width7 = bit.IsSet(noiseWidthBit, value)
	case addr.NR44:
		a.nr44 = value
		a.ch4.length.enabled = bit.IsSet(lengthEnableBit, value)
		if bit.IsSet(triggerBit, value) {
			a.ch4.trigger(a.nr41, a.nr42)
		}

	case addr.NR50:
		a.nr50 = value
	case addr.NR51:
		a.nr51 = value
	}
}

func (a *APU) freq13_14(lo, hi uint8) uint16 {
	return uint16(hi&0x07)<<8 | uint16(lo)
}

// powerOff clears every register except the length counters and NR52
// itself, per spec §4.4.
func (a *APU) powerOff() {
	a.nr10, a.nr12, a.nr13, a.nr14 = 0, 0, 0, 0
	a.nr22, a.nr23, a.nr24 = 0, 0, 0
	a.nr30, a.nr32, a.nr33, a.nr34 = 0, 0, 0, 0
	a.nr42, a.nr43, a.nr44 = 0, 0, 0
	a.nr50, a.nr51 = 0, 0

	a.ch1.enabled, a.ch2.enabled, a.ch3.enabled, a.ch4.enabled = false, false, false, false
	a.ch1.dutyPos, a.ch2.dutyPos = 0, 0
}

// Enabled reports NR52 bit 7, for tests.
func (a *APU) Enabled() bool { return a.enabled }
