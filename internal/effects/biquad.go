package effects

import (
	"fmt"
	"math"
)

// Biquad is a Direct Form I second-order IIR section (RBJ audio cookbook
// topology). It is the shared building block behind filter_sweep,
// eq_sweep, and the Renderer's 3-band pre-effects EQ (spec §4.5) — the one
// piece of the corpus-wide "no DSP library" constraint that is worth
// sharing across packages rather than re-deriving per effect.
type Biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

// Process filters one sample through the section, updating its state.
func (b *Biquad) Process(x float64) float64 {
	y := b.b0*x + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
	b.x2, b.x1 = b.x1, x
	b.y2, b.y1 = b.y1, y
	return y
}

// Reset clears filter memory, e.g. between unrelated buffers or channels.
func (b *Biquad) Reset() {
	b.x1, b.x2, b.y1, b.y2 = 0, 0, 0, 0
}

// 4th-order Butterworth lowpass pole Qs (n=4 maximally-flat cascade of two
// 2nd-order sections), 1/(2*cos(pi/8)) and 1/(2*cos(3pi/8)).
const (
	butterworthQ1 = 0.5411961001461969
	butterworthQ2 = 1.3065629648763766
)

// LowpassCoeffs derives an RBJ cookbook 2nd-order lowpass section at the
// given Q. Returns an error if cutoff is not a valid frequency for
// sampleRate (construction failure callers should fall back per spec §4.5).
func LowpassCoeffs(cutoff, sampleRate, q float64) (*Biquad, error) {
	nyquist := sampleRate / 2
	if cutoff <= 0 || cutoff >= nyquist {
		return nil, fmt.Errorf("lowpass cutoff %.1fHz out of range (0, %.1f)", cutoff, nyquist)
	}
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosW0, sinW0 := math.Cos(w0), math.Sin(w0)
	alpha := sinW0 / (2 * q)

	a0 := 1 + alpha
	b0 := (1 - cosW0) / 2 / a0
	b1 := (1 - cosW0) / a0
	b2 := b0
	a1 := -2 * cosW0 / a0
	a2 := (1 - alpha) / a0
	return &Biquad{b0: b0, b1: b1, b2: b2, a1: a1, a2: a2}, nil
}

// HighpassCoeffs derives an RBJ cookbook 2nd-order highpass section.
func HighpassCoeffs(cutoff, sampleRate, q float64) (*Biquad, error) {
	nyquist := sampleRate / 2
	if cutoff <= 0 || cutoff >= nyquist {
		return nil, fmt.Errorf("highpass cutoff %.1fHz out of range (0, %.1f)", cutoff, nyquist)
	}
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosW0, sinW0 := math.Cos(w0), math.Sin(w0)
	alpha := sinW0 / (2 * q)

	a0 := 1 + alpha
	b0 := (1 + cosW0) / 2 / a0
	b1 := -(1 + cosW0) / a0
	b2 := b0
	a1 := -2 * cosW0 / a0
	a2 := (1 - alpha) / a0
	return &Biquad{b0: b0, b1: b1, b2: b2, a1: a1, a2: a2}, nil
}

// PeakingCoeffs derives an RBJ cookbook peaking-EQ section: a gainDB boost
// (negative for cut) centered at freq with bandwidth controlled by q.
func PeakingCoeffs(freq, gainDB, q, sampleRate float64) (*Biquad, error) {
	nyquist := sampleRate / 2
	if freq <= 0 || freq >= nyquist {
		return nil, fmt.Errorf("peaking center %.1fHz out of range (0, %.1f)", freq, nyquist)
	}
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	cosW0, sinW0 := math.Cos(w0), math.Sin(w0)
	alpha := sinW0 / (2 * q)

	a0 := 1 + alpha/a
	b0 := (1 + alpha*a) / a0
	b1 := (-2 * cosW0) / a0
	b2 := (1 - alpha*a) / a0
	a1 := (-2 * cosW0) / a0
	a2 := (1 - alpha/a) / a0
	return &Biquad{b0: b0, b1: b1, b2: b2, a1: a1, a2: a2}, nil
}

// FourthOrderLowpass builds a 4-pole Butterworth lowpass as a cascade of
// two RBJ sections at the standard Butterworth pole Qs.
func FourthOrderLowpass(cutoff, sampleRate float64) ([2]*Biquad, error) {
	var stages [2]*Biquad
	s1, err := LowpassCoeffs(cutoff, sampleRate, butterworthQ1)
	if err != nil {
		return stages, err
	}
	s2, err := LowpassCoeffs(cutoff, sampleRate, butterworthQ2)
	if err != nil {
		return stages, err
	}
	stages[0], stages[1] = s1, s2
	return stages, nil
}
