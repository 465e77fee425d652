package effects

import "github.com/cartomix/djcore/internal/djmodel"

// assumedGateBPM is spec §4.5's gate fallback tempo when no tempo context
// is available to the effect kernel.
const assumedGateBPM = 120.0

// applyGate cuts volume on alternating 16th-note segments, attenuating
// every other segment by (1-intensity).
func applyGate(e djmodel.TransitionEffect, buf []float64, channels, sampleRate int) {
	sixteenthSeconds := 60.0 / assumedGateBPM / 4
	segmentFrames := int(sixteenthSeconds * float64(sampleRate))
	if segmentFrames < 1 {
		segmentFrames = 1
	}
	frames := numFrames(buf, channels)
	atten := 1 - e.Intensity

	for i := 0; i < frames; i++ {
		segment := i / segmentFrames
		if segment%2 == 1 {
			for ch := 0; ch < channels; ch++ {
				buf[i*channels+ch] *= atten
			}
		}
	}
}
