// Package dsp implements the signal-processing primitives behind track
// analysis: FFT, onset detection, BPM estimation, key detection, energy
// classification, and structural segmentation. Hand-rolled rather than
// library-backed — no DSP or FFT library is imported anywhere in the
// example corpus, and the one repo with a working pipeline (vividhyeok/djbot)
// hand-rolls its own FFT too, so this follows the same precedent.
package dsp

import (
	"math"
	"math/cmplx"
)

// SampleRate is the canonical rate audio is decoded to for analysis, spec §4.1.
const SampleRate = 22050

func nextPow2(n int) int {
	v := 1
	for v < n {
		v <<= 1
	}
	return v
}

// fft computes an in-place-equivalent iterative radix-2 Cooley-Tukey FFT.
// Input length must be a power of two; callers zero-pad via nextPow2.
func fft(x []complex128) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	copy(out, x)
	if n <= 1 {
		return out
	}

	j := 0
	for i := 0; i < n-1; i++ {
		if i < j {
			out[i], out[j] = out[j], out[i]
		}
		m := n >> 1
		for j >= m && m > 0 {
			j -= m
			m >>= 1
		}
		j += m
	}

	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		step := -2 * math.Pi / float64(size)
		wLen := complex(math.Cos(step), math.Sin(step))
		for i := 0; i < n; i += size {
			w := complex(1, 0)
			for k := 0; k < half; k++ {
				u := out[i+k]
				v := out[i+k+half] * w
				out[i+k] = u + v
				out[i+k+half] = u - v
				w *= wLen
			}
		}
	}
	return out
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// magnitudeSpectrum runs a windowed FFT over frame (padded to fftSize) and
// returns the magnitude of bins [0, fftSize/2].
func magnitudeSpectrum(frame []complex128) []float64 {
	spec := fft(frame)
	mag := make([]float64, len(frame)/2+1)
	for j := range mag {
		mag[j] = cmplx.Abs(spec[j])
	}
	return mag
}
