package audio

import "testing"

func TestDCBlockerRemovesConstantOffset(t *testing.T) {
	var d dcBlocker
	d.init()

	var out float32
	for i := 0; i < 10000; i++ {
		out = d.apply(1.0)
	}

	if out > 0.01 || out < -0.01 {
		t.Errorf("dcBlocker output settled at %f; want close to 0 for a constant input", out)
	}
}

func TestDCBlockerPassesAStepImmediately(t *testing.T) {
	var d dcBlocker
	d.init()

	out := d.apply(1.0)
	if out != 1.0 {
		t.Errorf("first sample after a step = %f; want 1.0 (prevIn/prevOut start at 0)", out)
	}
}
