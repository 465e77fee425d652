package dsp

import (
	"math"
	"strconv"

	"github.com/cartomix/djcore/internal/djmodel"
)

var (
	noteNames  = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	majProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// camelotMajor/camelotMinor map pitch-class index (0=C) to Camelot wheel
// position for major/minor keys, per the Glossary's standard table.
var camelotMajor = [12]int{8, 3, 10, 5, 12, 7, 2, 9, 4, 11, 6, 1}
var camelotMinor = [12]int{5, 12, 7, 2, 9, 4, 11, 6, 1, 8, 3, 10}

// Chroma computes a 12-bin pitch-class energy profile over mono samples,
// summing FFT magnitude in [65Hz, 4kHz] folded to semitone classes.
func Chroma(samples []float64, sr int) [12]float64 {
	frameSize := 4096
	hopSize := 2048
	n := len(samples)
	numFrames := (n - frameSize) / hopSize
	var chroma [12]float64
	if numFrames <= 0 {
		return chroma
	}

	fftSize := nextPow2(frameSize)
	window := hannWindow(frameSize)
	frame := make([]complex128, fftSize)

	for i := 0; i < numFrames; i++ {
		start := i * hopSize
		for k := range frame {
			frame[k] = 0
		}
		for j := 0; j < frameSize && start+j < n; j++ {
			frame[j] = complex(samples[start+j]*window[j], 0)
		}
		mag := magnitudeSpectrum(frame)
		for bin := 1; bin < len(mag); bin++ {
			freq := float64(bin) * float64(sr) / float64(fftSize)
			if freq < 65 || freq > 4000 {
				continue
			}
			semitones := 12 * math.Log2(freq/261.63)
			pc := ((int(math.Round(semitones)) % 12) + 12) % 12
			chroma[pc] += mag[bin]
		}
	}
	return chroma
}

// DetectKey correlates a chroma vector against Krumhansl-Schmuckler
// major/minor templates across all 12 rotations and returns the pitch
// class, scale, and a [0,1] confidence (spec §4.1 step 3).
func DetectKey(chroma [12]float64) (pitchClass int, scale djmodel.KeyScale, strength float64) {
	bestCorr := -2.0
	bestPC := 0
	bestScale := djmodel.KeyScaleMajor

	for rot := 0; rot < 12; rot++ {
		var rolled [12]float64
		for j := 0; j < 12; j++ {
			rolled[j] = chroma[(j+rot)%12]
		}
		corrMaj := pearson(rolled[:], majProfile)
		corrMin := pearson(rolled[:], minProfile)
		if corrMaj > bestCorr {
			bestCorr = corrMaj
			bestPC = rot
			bestScale = djmodel.KeyScaleMajor
		}
		if corrMin > bestCorr {
			bestCorr = corrMin
			bestPC = rot
			bestScale = djmodel.KeyScaleMinor
		}
	}
	// Pearson correlation ranges [-1,1]; rescale to a [0,1] confidence.
	strength = (bestCorr + 1) / 2
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}
	return bestPC, bestScale, strength
}

func pearson(a, b []float64) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0
	}
	var sumA, sumB, sumAB, sumA2, sumB2 float64
	for i := 0; i < n; i++ {
		sumA += a[i]
		sumB += b[i]
		sumAB += a[i] * b[i]
		sumA2 += a[i] * a[i]
		sumB2 += b[i] * b[i]
	}
	num := float64(n)*sumAB - sumA*sumB
	den := math.Sqrt((float64(n)*sumA2 - sumA*sumA) * (float64(n)*sumB2 - sumB*sumB))
	if den < 1e-12 {
		return 0
	}
	return num / den
}

// KeyName renders "C Major"-style text for a pitch class and scale.
func KeyName(pitchClass int, scale djmodel.KeyScale) string {
	name := noteNames[((pitchClass%12)+12)%12]
	if scale == djmodel.KeyScaleMinor {
		return name + " Minor"
	}
	return name + " Major"
}

// Camelot converts a pitch class and scale to wheel notation, e.g. "8A".
func Camelot(pitchClass int, scale djmodel.KeyScale) string {
	pc := ((pitchClass % 12) + 12) % 12
	var pos int
	var suffix string
	if scale == djmodel.KeyScaleMinor {
		pos = camelotMinor[pc]
		suffix = "A"
	} else {
		pos = camelotMajor[pc]
		suffix = "B"
	}
	return strconv.Itoa(pos) + suffix
}
