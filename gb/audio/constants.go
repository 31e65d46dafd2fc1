package audio

// Timing constants, all derived from the 4.194304 MHz system clock.
// Reference: https://gbdev.io/pandocs/Audio_details.html
const (
	// sampleRate is the output PCM sample rate this package resamples to.
	sampleRate = 44100
	// cyclesPerSample is the number of T-cycles per output sample,
	// truncated to an integer (95). sampleAcc carries leftover whole cycles
	// between samples, but the dropped fraction makes the actual output
	// rate about 44150 Hz, slightly above sampleRate.
	cyclesPerSample = 4194304 / sampleRate

	waveRAMSize = 16 // 16 bytes = 32 nibbles

	maxSampleBuffer = sampleRate // 1 second of headroom
)

// dutyPatterns are the 8-step high/low patterns selected by NR11/NR21
// bits 7-6, read MSB-first.
var dutyPatterns = [4]uint8{
	0b00000001, // 12.5%
	0b10000001, // 25%
	0b10000111, // 50%
	0b01111110, // 75%
}

// noiseDivisors maps NR43 bits 2-0 to the base divisor used to compute the
// channel 4 LFSR clock period.
var noiseDivisors = [8]int{8, 16, 32, 48, 64, 80, 96, 112}

const (
	triggerBit          = 7
	lengthEnableBit      = 6
	envelopeIncreaseBit = 3
	sweepIncreaseBit    = 3
	noiseWidthBit       = 3
	waveDACBit          = 7

	nr52PowerBit = 7
)
