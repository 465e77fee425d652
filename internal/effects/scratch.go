package effects

import (
	"math"

	"github.com/cartomix/djcore/internal/djmodel"
)

// scratchWindowSeconds is spec §4.5's ~0.25s scratch analysis window.
const scratchWindowSeconds = 0.25

// applyScratch resamples successive ~0.25s windows at a sinusoidally
// varying rate (amplitude intensity*0.5), time-stretches each window back
// to its original length by linear interpolation, and crossfades the
// result into the dry signal by intensity*0.7. The rate LFO's phase is
// seeded from e.StartAt so the same effect placement always scratches the
// same way, per spec §4.5's determinism requirement.
func applyScratch(e djmodel.TransitionEffect, buf []float64, channels, sampleRate int) {
	windowFrames := int(scratchWindowSeconds * float64(sampleRate))
	if windowFrames < 1 {
		return
	}
	frames := numFrames(buf, channels)
	rateAmplitude := e.Intensity * 0.5
	wet := e.Intensity * 0.7
	phase0 := 2 * math.Pi * math.Mod(e.StartAt, scratchWindowSeconds) / scratchWindowSeconds

	dry := make([]float64, len(buf))
	copy(dry, buf)

	for ch := 0; ch < channels; ch++ {
		original := make([]float64, frames)
		for i := 0; i < frames; i++ {
			original[i] = dry[i*channels+ch]
		}

		for winStart := 0; winStart < frames; winStart += windowFrames {
			winEnd := winStart + windowFrames
			if winEnd > frames {
				winEnd = frames
			}
			winLen := winEnd - winStart
			if winLen < 2 {
				continue
			}

			rate := 1 + rateAmplitude*math.Sin(phase0+2*math.Pi*float64(winStart)/float64(windowFrames))
			if rate <= 0.01 {
				rate = 0.01
			}

			// Resample the window at `rate`, then linearly time-stretch the
			// resampled span back to winLen samples so the output stays in
			// sync with the rest of the mix.
			resampledLen := int(float64(winLen) / rate)
			if resampledLen < 1 {
				resampledLen = 1
			}
			resampled := make([]float64, resampledLen)
			for i := range resampled {
				srcPos := float64(winStart) + float64(i)*rate
				lo := int(math.Floor(srcPos))
				frac := srcPos - float64(lo)
				if lo < winStart {
					lo = winStart
				}
				if lo >= frames-1 {
					resampled[i] = original[frames-1]
					continue
				}
				resampled[i] = original[lo] + (original[lo+1]-original[lo])*frac
			}

			for i := 0; i < winLen; i++ {
				srcPos := float64(i) / float64(winLen) * float64(resampledLen-1)
				lo := int(math.Floor(srcPos))
				frac := srcPos - float64(lo)
				if lo >= resampledLen-1 {
					lo = resampledLen - 2
					if lo < 0 {
						lo = 0
					}
					frac = 1
				}
				scratched := resampled[lo] + (resampled[lo+1]-resampled[lo])*frac
				idx := (winStart+i)*channels + ch
				buf[idx] = dry[idx]*(1-wet) + scratched*wet
			}
		}
	}
}
