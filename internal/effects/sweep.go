package effects

import (
	"log/slog"
	"math"

	"github.com/cartomix/djcore/internal/djerr"
	"github.com/cartomix/djcore/internal/djmodel"
)

// filterSweepBaseHz / filterSweepTopHz are spec §4.5's filter_sweep
// cutoff endpoints: 200Hz -> 200Hz + (8kHz-200Hz)*intensity.
const (
	filterSweepBaseHz = 200.0
	filterSweepTopHz  = 8000.0
)

// applyFilterSweep runs a 4th-order Butterworth lowpass whose cutoff
// log-interpolates from filterSweepBaseHz to the intensity-scaled target
// over the effect's duration, clamped to [100, 0.95*Nyquist]. Since the
// cutoff changes every sample, the cascade's coefficients are rederived
// per frame rather than held fixed — the direct-form state per channel is
// preserved across that recomputation, which is an approximation of a
// true time-varying filter but is deterministic and stable for the
// durations (a few seconds) spec §4.5 transitions actually use.
func applyFilterSweep(e djmodel.TransitionEffect, buf []float64, channels, sampleRate int) error {
	nyquist := float64(sampleRate) / 2
	target := filterSweepBaseHz + (filterSweepTopHz-filterSweepBaseHz)*e.Intensity
	if target <= filterSweepBaseHz {
		target = filterSweepBaseHz + 1
	}

	frames := numFrames(buf, channels)
	stages := make([][2]*Biquad, channels)
	for ch := range stages {
		stages[ch] = [2]*Biquad{}
	}

	for i := 0; i < frames; i++ {
		p := frameProgress(i, frames)
		cutoff := filterSweepBaseHz * math.Pow(target/filterSweepBaseHz, p)
		if cutoff < 100 {
			cutoff = 100
		}
		if max := 0.95 * nyquist; cutoff > max {
			cutoff = max
		}

		cascade, err := FourthOrderLowpass(cutoff, float64(sampleRate))
		if err != nil {
			applyAmplitudeFallback(e, buf, channels, frames, err)
			return nil
		}

		for ch := 0; ch < channels; ch++ {
			idx := i*channels + ch
			x := buf[idx]
			if stages[ch][0] == nil {
				stages[ch][0], stages[ch][1] = cascade[0], cascade[1]
			} else {
				// Preserve accumulated filter memory across the coefficient
				// update by copying state into the freshly derived section.
				cascade[0].x1, cascade[0].x2, cascade[0].y1, cascade[0].y2 = stages[ch][0].x1, stages[ch][0].x2, stages[ch][0].y1, stages[ch][0].y2
				cascade[1].x1, cascade[1].x2, cascade[1].y1, cascade[1].y2 = stages[ch][1].x1, stages[ch][1].x2, stages[ch][1].y1, stages[ch][1].y2
				stages[ch][0], stages[ch][1] = cascade[0], cascade[1]
			}
			buf[idx] = stages[ch][1].Process(stages[ch][0].Process(x))
		}
	}
	return nil
}

// applyAmplitudeFallback implements spec §4.5's filter_sweep fallback when
// the Butterworth cascade cannot be constructed: scale the remaining
// samples by 1 - intensity*progress*0.5 instead of filtering.
func applyAmplitudeFallback(e djmodel.TransitionEffect, buf []float64, channels, frames int, cause error) {
	slog.Default().Warn("filter_sweep cascade construction failed, falling back to amplitude attenuation", "error", cause)
	for i := 0; i < frames; i++ {
		p := frameProgress(i, frames)
		scale := 1 - e.Intensity*p*0.5
		for ch := 0; ch < channels; ch++ {
			buf[i*channels+ch] *= scale
		}
	}
}

// eqSweepBaseHz / eqSweepTopHz are spec §4.5's eq_sweep center-frequency
// endpoints: 200Hz -> 4kHz, log-linear over the effect's duration.
const (
	eqSweepBaseHz = 200.0
	eqSweepTopHz  = 4000.0
	eqSweepQ      = 1.0
)

// applyEQSweep runs a peaking-EQ boost whose center frequency slides
// log-linearly from 200Hz to 4kHz, boost gain intensity*12dB, mixed with
// the dry signal at intensity*0.5.
func applyEQSweep(e djmodel.TransitionEffect, buf []float64, channels, sampleRate int) error {
	frames := numFrames(buf, channels)
	wet := e.Intensity * 0.5
	gainDB := e.Intensity * 12

	sections := make([]*Biquad, channels)
	for i := 0; i < frames; i++ {
		p := frameProgress(i, frames)
		freq := eqSweepBaseHz * math.Pow(eqSweepTopHz/eqSweepBaseHz, p)

		for ch := 0; ch < channels; ch++ {
			idx := i*channels + ch
			dry := buf[idx]

			coeffs, err := PeakingCoeffs(freq, gainDB, eqSweepQ, float64(sampleRate))
			if err != nil {
				return djerr.Effect(string(djmodel.EffectEQSweep), err)
			}
			if sections[ch] != nil {
				coeffs.x1, coeffs.x2, coeffs.y1, coeffs.y2 = sections[ch].x1, sections[ch].x2, sections[ch].y1, sections[ch].y2
			}
			sections[ch] = coeffs
			wetSample := sections[ch].Process(dry)
			buf[idx] = dry*(1-wet) + wetSample*wet
		}
	}
	return nil
}
