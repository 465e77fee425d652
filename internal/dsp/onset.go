package dsp

import (
	"math"
	"sort"
)

// BeatTracker holds the intermediate results of spec §4.1 step 2, beat
// tracking: onset detection then BPM/beat-grid derivation.
type BeatTracker struct {
	FrameSize int
	HopSize   int
}

// NewBeatTracker returns a tracker with the frame/hop sizes djbot's pipeline
// uses in practice (1024/512 at 22050 Hz gives ~46ms frames and ~23ms hops).
func NewBeatTracker() *BeatTracker {
	return &BeatTracker{FrameSize: 1024, HopSize: 512}
}

// OnsetEnvelope computes a spectral-flux onset strength curve over mono
// samples at sr Hz.
func (bt *BeatTracker) OnsetEnvelope(samples []float64, sr int) []float64 {
	n := len(samples)
	numFrames := (n - bt.FrameSize) / bt.HopSize
	if numFrames <= 0 {
		return nil
	}
	fftSize := nextPow2(bt.FrameSize)
	window := hannWindow(bt.FrameSize)
	onset := make([]float64, numFrames)
	prevMag := make([]float64, fftSize/2+1)
	frame := make([]complex128, fftSize)

	for i := 0; i < numFrames; i++ {
		start := i * bt.HopSize
		for k := range frame {
			frame[k] = 0
		}
		for j := 0; j < bt.FrameSize && start+j < n; j++ {
			frame[j] = complex(samples[start+j]*window[j], 0)
		}
		mag := magnitudeSpectrum(frame)

		flux := 0.0
		for j := range mag {
			if d := mag[j] - prevMag[j]; d > 0 {
				flux += d
			}
		}
		onset[i] = flux
		copy(prevMag, mag)
	}
	return onset
}

// EstimateBPM runs autocorrelation over the onset envelope in the 60-200 BPM
// range, with perceptual weighting toward 120-130 BPM to resist octave
// errors, then folds the raw estimate back into [60,200] per spec §4.1 step 2.
func EstimateBPM(onset []float64, sr, hopSize int) float64 {
	if len(onset) < 100 {
		return 120.0
	}

	minLag := sr * 60 / (200 * hopSize)
	maxLag := sr * 60 / (60 * hopSize)
	if maxLag >= len(onset) {
		maxLag = len(onset) - 1
	}
	if minLag < 1 {
		minLag = 1
	}

	bestLag := minLag
	bestCorr := -1.0
	for lag := minLag; lag <= maxLag; lag++ {
		corr := 0.0
		count := 0
		for i := 0; i+lag < len(onset); i++ {
			corr += onset[i] * onset[i+lag]
			count++
		}
		if count > 0 {
			corr /= float64(count)
		}

		bpmApprox := 60.0 / (float64(lag) * float64(hopSize) / float64(sr))
		weight := math.Exp(-0.5 * math.Pow((bpmApprox-120.0)/40.0, 2))
		weighted := corr * (0.8 + 0.2*weight)

		if weighted > bestCorr {
			bestCorr = weighted
			bestLag = lag
		}
	}

	period := float64(bestLag) * float64(hopSize) / float64(sr)
	if period <= 0 {
		return 120.0
	}
	bpm := 60.0 / period

	for bpm > 200 {
		bpm /= 2
	}
	for bpm < 60 {
		bpm *= 2
	}
	return math.Round(bpm*10) / 10
}

// EstimateBeatTimes anchors the beat grid to the strongest onset in the
// first 5 seconds, then walks the fixed period backward and forward across
// [0, duration).
func EstimateBeatTimes(onset []float64, sr int, duration, bpm float64, hopSize int) []float64 {
	if bpm <= 0 {
		bpm = 120
	}
	period := 60.0 / bpm

	anchor := 0.0
	if len(onset) > 0 {
		searchFrames := int(5.0 * float64(sr) / float64(hopSize))
		if searchFrames > len(onset) {
			searchFrames = len(onset)
		}
		bestIdx, bestVal := 0, 0.0
		for i := 0; i < searchFrames; i++ {
			if onset[i] > bestVal {
				bestVal = onset[i]
				bestIdx = i
			}
		}
		anchor = float64(bestIdx) * float64(hopSize) / float64(sr)
	}

	var beats []float64
	for t := anchor; t >= 0; t -= period {
		beats = append(beats, math.Round(t*1000)/1000)
	}
	for t := anchor + period; t < duration; t += period {
		beats = append(beats, math.Round(t*1000)/1000)
	}

	sort.Float64s(beats)
	return beats
}
