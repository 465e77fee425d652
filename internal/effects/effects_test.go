package effects

import (
	"math"
	"testing"

	"github.com/cartomix/djcore/internal/djmodel"
)

const testSampleRate = 44100

func sineBuffer(seconds float64, freq float64, channels int) []float64 {
	n := int(seconds * testSampleRate)
	buf := make([]float64, n*channels)
	for i := 0; i < n; i++ {
		v := 0.5 * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
		for ch := 0; ch < channels; ch++ {
			buf[i*channels+ch] = v
		}
	}
	return buf
}

func assertFinite(t *testing.T, buf []float64, label string) {
	t.Helper()
	for i, v := range buf {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%s: sample %d is non-finite: %v", label, i, v)
		}
	}
}

func TestCurveEndpoints(t *testing.T) {
	for _, c := range []djmodel.CrossfadeCurve{djmodel.CurveLinear, djmodel.CurveSCurve, djmodel.CurveExponential} {
		if got := Curve(c, 0); math.Abs(got) > 1e-9 {
			t.Errorf("%s: Curve(0) = %v, want 0", c, got)
		}
		if got := Curve(c, 1); math.Abs(got-1) > 1e-9 {
			t.Errorf("%s: Curve(1) = %v, want 1", c, got)
		}
	}
}

func TestApplyAllKernelsProduceFiniteOutput(t *testing.T) {
	kinds := []djmodel.EffectType{
		djmodel.EffectFilterSweep, djmodel.EffectEcho, djmodel.EffectReverb,
		djmodel.EffectDelay, djmodel.EffectGate, djmodel.EffectFlanger,
		djmodel.EffectEQSweep, djmodel.EffectScratch,
	}
	for _, kind := range kinds {
		buf := sineBuffer(2, 440, 2)
		e := djmodel.TransitionEffect{Type: kind, StartAt: 0, Duration: 2, Intensity: 0.6}
		if err := Apply(e, buf, 2, testSampleRate); err != nil {
			t.Fatalf("%s: Apply returned error: %v", kind, err)
		}
		assertFinite(t, buf, string(kind))
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	kinds := []djmodel.EffectType{djmodel.EffectFlanger, djmodel.EffectScratch, djmodel.EffectFilterSweep}
	for _, kind := range kinds {
		e := djmodel.TransitionEffect{Type: kind, StartAt: 3.5, Duration: 1.5, Intensity: 0.4}

		first := sineBuffer(1.5, 300, 2)
		if err := Apply(e, first, 2, testSampleRate); err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		second := sineBuffer(1.5, 300, 2)
		if err := Apply(e, second, 2, testSampleRate); err != nil {
			t.Fatalf("%s: %v", kind, err)
		}

		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("%s: non-deterministic at sample %d: %v != %v", kind, i, first[i], second[i])
			}
		}
	}
}

func TestFilterSweepAttenuatesHighFrequencies(t *testing.T) {
	buf := sineBuffer(3, 12000, 1)
	e := djmodel.TransitionEffect{Type: djmodel.EffectFilterSweep, Duration: 3, Intensity: 0.1}
	if err := Apply(e, buf, 1, testSampleRate); err != nil {
		t.Fatalf("apply: %v", err)
	}

	peak := 0.0
	for _, v := range buf[len(buf)-testSampleRate/2:] {
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}
	if peak > 0.4 {
		t.Errorf("expected low-intensity filter_sweep to substantially attenuate a 12kHz tone by the end of the sweep, peak=%v", peak)
	}
}

func TestGateAttenuatesAlternateSegments(t *testing.T) {
	buf := make([]float64, testSampleRate) // 1s mono of constant amplitude
	for i := range buf {
		buf[i] = 1.0
	}
	e := djmodel.TransitionEffect{Type: djmodel.EffectGate, Duration: 1, Intensity: 1.0}
	applyGate(e, buf, 1, testSampleRate)

	sixteenthSeconds := 60.0 / assumedGateBPM / 4
	segmentFrames := int(sixteenthSeconds * float64(testSampleRate))
	if buf[0] == 0 {
		t.Errorf("expected first segment unattenuated, got %v", buf[0])
	}
	if buf[segmentFrames+1] != 0 {
		t.Errorf("expected second segment fully gated at intensity 1.0, got %v", buf[segmentFrames+1])
	}
}

func TestApplyUnknownEffectIsError(t *testing.T) {
	buf := sineBuffer(0.5, 440, 1)
	e := djmodel.TransitionEffect{Type: djmodel.EffectType("not_a_real_effect"), Duration: 0.5, Intensity: 0.5}
	if err := Apply(e, buf, 1, testSampleRate); err == nil {
		t.Fatalf("expected an error for an unrecognized effect type")
	}
}
