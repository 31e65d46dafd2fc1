package audio

import "github.com/wakka810/pocketgb/gb/bit"

// lengthCounter is shared by all four channels: it silences the channel
// when it reaches zero, but only while length is enabled (NRx4 bit 6).
type lengthCounter struct {
	enabled bool
	counter uint16
}

func (l *lengthCounter) tick(enabled *bool) {
	if !l.enabled || l.counter == 0 {
		return
	}
	l.counter--
	if l.counter == 0 {
		*enabled = false
	}
}

// envelope is the volume ramp on CH1/CH2/CH4 (CH3 has none: its output
// level comes straight from NR32).
type envelope struct {
	period    uint8
	increase  bool
	timer     uint8
	volume    uint8
}

func (e *envelope) trigger(nrx2 uint8) {
	e.volume = nrx2 >> 4
	e.period = nrx2 & 0x07
	e.increase = bit.IsSet(envelopeIncreaseBit, nrx2)
	e.timer = 0
}

func (e *envelope) tick() {
	if e.period == 0 {
		return
	}
	e.timer++
	if e.timer < e.period {
		return
	}
	e.timer = 0
	if e.increase && e.volume < 15 {
		e.volume++
	} else if !e.increase && e.volume > 0 {
		e.volume--
	}
}

// sweep is CH1's frequency sweep. It runs off the shadow frequency, not
// the live NR13/NR14 value, per pandocs.
type sweep struct {
	period     uint8
	negate     bool
	shift      uint8
	timer      uint8
	shadowFreq uint16
	enabled    bool
}

func (s *sweep) period8() uint8 {
	if s.period == 0 {
		return 8
	}
	return s.period
}

func (s *sweep) trigger(freq uint16, nr10 uint8) {
	s.shadowFreq = freq
	s.period = (nr10 >> 4) & 0x07
	s.negate = bit.IsSet(sweepIncreaseBit, nr10)
	s.shift = nr10 & 0x07
	s.timer = s.period8()
	s.enabled = s.period != 0 || s.shift != 0
}

// calc returns the next candidate frequency and whether it overflows
// (>2047), which disables the channel.
func (s *sweep) calc() (uint16, bool) {
	delta := s.shadowFreq >> s.shift
	var next uint16
	if s.negate {
		next = s.shadowFreq - delta
	} else {
		next = s.shadowFreq + delta
	}
	return next, next > 2047
}

// tick runs at 128 Hz (frame sequencer steps 2 and 6). It returns the new
// live frequency value when the sweep updates it, or ok=false otherwise.
func (s *sweep) tick(enabled *bool) (newFreq uint16, ok bool) {
	if s.timer > 0 {
		s.timer--
	}
	if s.timer != 0 {
		return 0, false
	}
	s.timer = s.period8()

	if !s.enabled || s.period == 0 {
		return 0, false
	}

	next, overflow := s.calc()
	if overflow {
		*enabled = false
		return 0, false
	}
	if s.shift == 0 {
		return 0, false
	}

	s.shadowFreq = next
	if _, overflow2 := s.calc(); overflow2 {
		*enabled = false
	}
	return next, true
}

// pulseChannel implements CH1/CH2: a frequency timer driving an 8-step
// duty pattern, gated by length and envelope, with optional sweep (CH1).
type pulseChannel struct {
	enabled  bool
	dacOn    bool
	freq     uint16
	duty     uint8
	dutyPos  uint8
	timer    int

	length   lengthCounter
	env      envelope
	swp      sweep
	hasSweep bool
}

func (p *pulseChannel) period() int {
	return (2048 - int(p.freq)) * 4
}

func (p *pulseChannel) trigger(freq uint16, duty uint8, nrx1, nrx2, nr10 uint8) {
	p.freq = freq
	p.duty = duty
	p.dacOn = (nrx2 & 0xF8) != 0
	p.enabled = p.dacOn

	if p.length.counter == 0 {
		p.length.counter = 64 - uint16(nrx1&0x3F)
	}

	p.env.trigger(nrx2)
	p.timer = p.period()

	if p.hasSweep {
		p.swp.trigger(freq, nr10)
		if p.swp.shift != 0 {
			if _, overflow := p.swp.calc(); overflow {
				p.enabled = false
			}
		}
	}
}

func (p *pulseChannel) tickTimer(tCycles int) {
	p.timer -= tCycles
	for p.timer <= 0 {
		period := p.period()
		if period <= 0 {
			p.timer += 4
			continue
		}
		p.timer += period
		p.dutyPos = (p.dutyPos + 1) & 7
	}
}

func (p *pulseChannel) sample() uint8 {
	if !p.enabled || !p.dacOn {
		return 0
	}
	bitVal := (dutyPatterns[p.duty&3] >> (7 - p.dutyPos)) & 1
	if bitVal == 0 {
		return 0
	}
	return p.env.volume
}

// waveChannel implements CH3: a 32-entry 4-bit wave table played back at
// a programmable rate, with a coarse output-level shift instead of an
// envelope.
type waveChannel struct {
	enabled   bool
	dacOn     bool
	freq      uint16
	level     uint8 // NR32 bits 6-5: 0=mute,1=100%,2=50%,3=25%
	position  uint8
	timer     int
	length    lengthCounter
	waveRAM   [waveRAMSize]uint8
}

func (w *waveChannel) period() int {
	return (2048 - int(w.freq)) * 2
}

func (w *waveChannel) trigger(freq uint16, nr31 uint8) {
	w.freq = freq
	w.enabled = w.dacOn
	if w.length.counter == 0 {
		w.length.counter = 256 - uint16(nr31)
	}
	w.position = 0
	w.timer = w.period()
}

func (w *waveChannel) tickTimer(tCycles int) {
	w.timer -= tCycles
	for w.timer <= 0 {
		period := w.period()
		if period <= 0 {
			w.timer += 2
			continue
		}
		w.timer += period
		w.position = (w.position + 1) & 31
	}
}

func (w *waveChannel) sample() uint8 {
	if !w.enabled || !w.dacOn || w.level == 0 {
		return 0
	}
	byteVal := w.waveRAM[w.position/2]
	var nibble uint8
	if w.position%2 == 0 {
		nibble = byteVal >> 4
	} else {
		nibble = byteVal & 0x0F
	}
	return nibble >> (w.level - 1)
}

// noiseChannel implements CH4: an envelope-gated LFSR clocked by a
// divisor/shift-derived period.
type noiseChannel struct {
	enabled bool
	dacOn   bool
	lfsr    uint16
	width7  bool
	divisorCode uint8
	shift       uint8
	timer       int
	length      lengthCounter
	env         envelope
}

func (n *noiseChannel) period() int {
	return noiseDivisors[n.divisorCode] << n.shift
}

func (n *noiseChannel) trigger(nr41, nr42 uint8) {
	n.dacOn = (nr42 & 0xF8) != 0
	n.enabled = n.dacOn
	n.lfsr = 0x7FFF
	if n.length.counter == 0 {
		n.length.counter = 64 - uint16(nr41&0x3F)
	}
	n.env.trigger(nr42)
	n.timer = n.period()
}

func (n *noiseChannel) tickTimer(tCycles int) {
	n.timer -= tCycles
	for n.timer <= 0 {
		n.timer += n.period()
		feedback := (n.lfsr & 1) ^ ((n.lfsr >> 1) & 1)
		n.lfsr = (n.lfsr >> 1) | (feedback << 14)
		if n.width7 {
			n.lfsr = (n.lfsr &^ (1 << 6)) | (feedback << 6)
		}
	}
}

func (n *noiseChannel) sample() uint8 {
	if !n.enabled || !n.dacOn {
		return 0
	}
	if n.lfsr&1 == 1 {
		return 0
	}
	return n.env.volume
}
