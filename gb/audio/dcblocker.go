package audio

import "math"

// dcBlocker is a one-pole high-pass filter modeling the DC-blocking
// capacitor on the DMG's audio output, time constant ~40ms per spec §4.4.
type dcBlocker struct {
	r      float32
	prevIn float32
	prevOut float32
}

func (d *dcBlocker) init() {
	const tau = 0.040
	d.r = float32(math.Exp(-1.0 / (tau * sampleRate)))
}

func (d *dcBlocker) apply(in float32) float32 {
	out := in - d.prevIn + d.r*d.prevOut
	d.prevIn = in
	d.prevOut = out
	return out
}
