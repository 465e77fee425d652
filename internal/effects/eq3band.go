package effects

// crossover frequencies for the Renderer's pre-effects 3-band EQ, spec §4.5.
const (
	eqLowCrossoverHz  = 250.0
	eqHighCrossoverHz = 4000.0
	eqButterworthQ    = 0.7071067811865476 // 1/sqrt(2), standard 2nd-order Butterworth Q.
)

// ThreeBandEQ splits buf into low/mid/high bands at 250Hz/4kHz (low band: a
// 4th-order Butterworth lowpass; high band: a 2nd-order Butterworth
// highpass; mid band: the remainder), scales each band by 1+value, and sums the
// bands back together in place. This is the Renderer's pre-effects EQ step
// (spec §4.5): each band's own djmodel.DJSetTrack.EQLow/EQMid/EQHigh value
// is its `band_value`.
func ThreeBandEQ(buf []float64, channels, sampleRate int, lowVal, midVal, highVal float64) error {
	lowFilter, err := FourthOrderLowpass(eqLowCrossoverHz, float64(sampleRate))
	if err != nil {
		return err
	}
	highStage, err := HighpassCoeffs(eqHighCrossoverHz, float64(sampleRate), eqButterworthQ)
	if err != nil {
		return err
	}

	// Independent filter memory per channel.
	lowStages := make([][2]*Biquad, channels)
	highStages := make([]*Biquad, channels)
	for ch := 0; ch < channels; ch++ {
		l0 := *lowFilter[0]
		l1 := *lowFilter[1]
		lowStages[ch] = [2]*Biquad{&l0, &l1}
		h := *highStage
		highStages[ch] = &h
	}

	for i := 0; i < len(buf); i += channels {
		for ch := 0; ch < channels; ch++ {
			x := buf[i+ch]
			low := lowStages[ch][1].Process(lowStages[ch][0].Process(x))
			high := highStages[ch].Process(x)
			mid := x - low - high
			buf[i+ch] = low*(1+lowVal) + mid*(1+midVal) + high*(1+highVal)
		}
	}
	return nil
}
