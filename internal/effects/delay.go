package effects

import "github.com/cartomix/djcore/internal/djmodel"

// applyTappedDelay implements spec §4.5's echo and delay kernels, which
// share one formula shape: a single-tap delay line with feedback and a
// dry/wet mix, differing only in their default delay_ms and feedback
// constants (the call sites in effects.go supply those).
func applyTappedDelay(buf []float64, channels, sampleRate int, delayMs, feedback, wet float64) {
	delaySamples := int(delayMs / 1000 * float64(sampleRate))
	if delaySamples < 1 {
		delaySamples = 1
	}
	frames := numFrames(buf, channels)
	line := make([][]float64, channels)
	for ch := range line {
		line[ch] = make([]float64, delaySamples)
	}

	for i := 0; i < frames; i++ {
		tap := i % delaySamples
		for ch := 0; ch < channels; ch++ {
			idx := i*channels + ch
			dry := buf[idx]
			delayed := line[ch][tap]
			buf[idx] = dry*(1-wet) + delayed*wet
			line[ch][tap] = dry + delayed*feedback
		}
	}
}

// reverbTapsMs / reverbTapGains are spec §4.5's four fixed early-reflection
// taps and their relative gains.
var (
	reverbTapsMs  = [4]float64{13, 27, 37, 43}
	reverbTapGain = [4]float64{0.8, 0.6, 0.4, 0.3}
)

// applyReverb sums four fixed-delay taps (13/27/37/43ms, scaled by
// room_size) at decreasing gains into a wet signal mixed against dry.
func applyReverb(e djmodel.TransitionEffect, buf []float64, channels, sampleRate int) {
	roomSize := 0.3 + 0.5*e.Intensity
	wet := 0.3 + 0.5*e.Intensity
	frames := numFrames(buf, channels)

	delaySamples := make([]int, 4)
	maxDelay := 0
	for i, ms := range reverbTapsMs {
		d := int(ms * roomSize / 1000 * float64(sampleRate))
		if d < 1 {
			d = 1
		}
		delaySamples[i] = d
		if d > maxDelay {
			maxDelay = d
		}
	}

	line := make([][]float64, channels)
	for ch := range line {
		line[ch] = make([]float64, maxDelay+1)
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			idx := i*channels + ch
			dry := buf[idx]
			line[ch][i%len(line[ch])] = dry

			var tapSum float64
			for t, d := range delaySamples {
				src := i - d
				if src < 0 {
					continue
				}
				tapSum += line[ch][((src%len(line[ch]))+len(line[ch]))%len(line[ch])] * reverbTapGain[t]
			}
			buf[idx] = dry*(1-wet) + tapSum*wet
		}
	}
}
