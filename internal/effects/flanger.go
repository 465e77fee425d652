package effects

import (
	"math"

	"github.com/cartomix/djcore/internal/djmodel"
)

// flangerLFOHz / flangerBaseDelayMs are spec §4.5's flanger constants: a
// 0.5Hz LFO modulating a delay centered at 5ms.
const (
	flangerLFOHz       = 0.5
	flangerBaseDelayMs = 5.0
)

// applyFlanger modulates a short delay with a sinusoidal LFO and mixes
// 50/50 with the dry signal. The LFO phase offset is derived from e.StartAt
// so the effect is reproducible without depending on wall-clock time,
// per spec §4.5's determinism requirement.
func applyFlanger(e djmodel.TransitionEffect, buf []float64, channels, sampleRate int) {
	depthMs := e.Intensity * 0.8 * flangerBaseDelayMs
	frames := numFrames(buf, channels)
	phase0 := 2 * math.Pi * math.Mod(e.StartAt, 1.0/flangerLFOHz) * flangerLFOHz

	maxDelaySamples := int((flangerBaseDelayMs+depthMs)/1000*float64(sampleRate)) + 2
	line := make([][]float64, channels)
	for ch := range line {
		line[ch] = make([]float64, maxDelaySamples+1)
	}

	for i := 0; i < frames; i++ {
		t := float64(i) / float64(sampleRate)
		lfo := math.Sin(2*math.Pi*flangerLFOHz*t + phase0)
		delayMs := flangerBaseDelayMs + depthMs*lfo
		delaySamplesF := delayMs / 1000 * float64(sampleRate)

		for ch := 0; ch < channels; ch++ {
			idx := i*channels + ch
			dry := buf[idx]
			ring := line[ch]
			ringLen := len(ring)
			ring[i%ringLen] = dry

			readPos := float64(i) - delaySamplesF
			lo := int(math.Floor(readPos))
			frac := readPos - float64(lo)
			s0 := ring[((lo%ringLen)+ringLen)%ringLen]
			s1 := ring[(((lo+1)%ringLen)+ringLen)%ringLen]
			delayed := s0 + (s1-s0)*frac
			if lo < 0 {
				delayed = 0
			}

			buf[idx] = 0.5*dry + 0.5*delayed
		}
	}
}
