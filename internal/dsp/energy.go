package dsp

import (
	"math"

	"github.com/cartomix/djcore/internal/djmodel"
)

// RMSFrames computes per-frame RMS over mono samples.
func RMSFrames(samples []float64, frameSize, hopSize int) []float64 {
	n := len(samples)
	numFrames := (n - frameSize) / hopSize
	if numFrames <= 0 {
		return []float64{0.5}
	}
	rms := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		start := i * hopSize
		sum := 0.0
		count := 0
		for j := 0; j < frameSize && start+j < n; j++ {
			v := samples[start+j]
			sum += v * v
			count++
		}
		if count > 0 {
			rms[i] = math.Sqrt(sum / float64(count))
		}
	}
	return rms
}

// EnergyLevel implements spec §4.1 step 4: energy_level = clamp(2*mean(rms), 0, 1).
func EnergyLevel(rms []float64) float64 {
	if len(rms) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range rms {
		sum += v
	}
	mean := sum / float64(len(rms))
	level := 2 * mean
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}

// ClassifyEnergyProfile implements spec §4.1 step 4's variance-of-RMS
// thresholds: var>0.3 -> dynamic; else level>0.7 -> high; level<0.3 -> low;
// else medium.
func ClassifyEnergyProfile(rms []float64, level float64) djmodel.EnergyProfile {
	variance := varianceOf(rms)
	switch {
	case variance > 0.3:
		return djmodel.EnergyProfileDynamic
	case level > 0.7:
		return djmodel.EnergyProfileHigh
	case level < 0.3:
		return djmodel.EnergyProfileLow
	default:
		return djmodel.EnergyProfileMedium
	}
}

func varianceOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range xs {
		mean += v
	}
	mean /= float64(len(xs))
	sumSq := 0.0
	for _, v := range xs {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(len(xs))
}

// BeatSynchronousEnergy aggregates RMS into one value per beat interval,
// normalized to [0,1] by the loudest beat — used both for energy_profile
// support and as the per-phrase energy input to structural segmentation.
func BeatSynchronousEnergy(samples []float64, sr int, beatTimes []float64) []float64 {
	frameSize := 2048
	hopSize := 512
	rms := RMSFrames(samples, frameSize, hopSize)
	if len(beatTimes) < 2 {
		return []float64{0.5}
	}

	energy := make([]float64, len(beatTimes))
	for i, bt := range beatTimes {
		frameIdx := int(bt * float64(sr) / float64(hopSize))
		var nextFrameIdx int
		if i+1 < len(beatTimes) {
			nextFrameIdx = int(beatTimes[i+1] * float64(sr) / float64(hopSize))
		} else {
			nextFrameIdx = frameIdx + int(float64(sr)/float64(hopSize)*0.5)
		}
		if frameIdx >= len(rms) {
			frameIdx = len(rms) - 1
		}
		if nextFrameIdx > len(rms) {
			nextFrameIdx = len(rms)
		}
		if frameIdx < 0 {
			frameIdx = 0
		}
		sum := 0.0
		count := 0
		for j := frameIdx; j < nextFrameIdx; j++ {
			sum += rms[j]
			count++
		}
		if count > 0 {
			energy[i] = sum / float64(count)
		}
	}

	maxE := 0.0
	for _, e := range energy {
		if e > maxE {
			maxE = e
		}
	}
	if maxE > 1e-6 {
		for i := range energy {
			energy[i] /= maxE
		}
	}
	return energy
}
