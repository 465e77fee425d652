package render

import (
	"log/slog"
	"math"

	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/effects"
)

// effectFloor is the crossfade gain floor held while a transition effect
// is actively running over a sample, spec §4.5 step 2f: the crossfade
// curve is never allowed to silence a track entirely out from under an
// active effect.
const effectFloor = 0.5

// applyBoundaryShaping runs every transition effect scheduled against
// track idx's window and applies the matching crossfade curve (or, for a
// boundary with no adjoining transition, the standard fade-in/out), all
// in place against seg.
func applyBoundaryShaping(seg []float64, track djmodel.DJSetTrack, set *djmodel.DJSet, idx int, logger *slog.Logger) {
	var outgoing, incoming *djmodel.TransitionPlan
	if idx < len(set.Transitions) {
		outgoing = &set.Transitions[idx]
	}
	if idx > 0 && idx-1 < len(set.Transitions) {
		incoming = &set.Transitions[idx-1]
	}

	if outgoing != nil {
		applyEffectsWindow(seg, *outgoing, track.StartTime, logger)
		applyOutgoingCrossfade(seg, *outgoing, track)
	} else {
		applyLinearFadeOut(seg, defaultFadeSeconds)
	}

	if incoming != nil {
		// Effect DSP is applied only on the outgoing side (spec §4.5 2d); the
		// incoming side gets the crossfade curve and the effect floor rule
		// (2e/2f) but never re-runs the kernel, or it would double-process
		// the overlapping canvas region once per adjoining track.
		applyIncomingCrossfade(seg, *incoming, track)
	} else {
		applyLinearFadeIn(seg, defaultFadeSeconds)
	}
}

// applyEffectsWindow runs every effect scheduled in plan against the
// portion of seg it overlaps. trackStart is this segment's absolute
// StartTime; effect StartAt is measured from plan.StartTime (spec §3), so
// the local sample offset is (plan.StartTime + e.StartAt - trackStart).
func applyEffectsWindow(seg []float64, plan djmodel.TransitionPlan, trackStart float64, logger *slog.Logger) {
	for _, e := range plan.Effects {
		localStart := plan.StartTime + e.StartAt - trackStart
		startFrame := int(math.Round(localStart * float64(sampleRate)))
		lenFrames := int(math.Round(e.Duration * float64(sampleRate)))
		if lenFrames < 1 {
			continue
		}
		startSample := startFrame * channels
		endSample := startSample + lenFrames*channels
		if startSample < 0 {
			startSample = 0
		}
		if endSample > len(seg) {
			endSample = len(seg)
		}
		if startSample >= endSample {
			continue
		}

		window := seg[startSample:endSample]
		if err := effects.Apply(e, window, channels, sampleRate); err != nil {
			logger.Warn("effect kernel failed, skipping effect and continuing render", "effect", e.Type, "error", err)
		}
	}
}

// effectActiveAt reports whether any of plan's effects covers localFrame,
// used to decide the crossfade floor for that sample (spec §4.5 step 2f).
func effectActiveAt(plan djmodel.TransitionPlan, trackStart float64, localFrame int) bool {
	t := float64(localFrame) / float64(sampleRate)
	absTime := trackStart + t
	for _, e := range plan.Effects {
		start := plan.StartTime + e.StartAt
		if absTime >= start && absTime < start+e.Duration {
			return true
		}
	}
	return false
}

// applyOutgoingCrossfade fades the tail of seg (the outgoing side of
// plan) using f_out(progress) = curve(1-progress), floored at 0.5 while an
// effect is active over that sample, else unfloored.
func applyOutgoingCrossfade(seg []float64, plan djmodel.TransitionPlan, track djmodel.DJSetTrack) {
	windowFrames := int(math.Round(plan.Duration * float64(sampleRate)))
	totalFrames := len(seg) / channels
	startFrame := totalFrames - windowFrames
	if startFrame < 0 {
		startFrame = 0
	}

	for f := startFrame; f < totalFrames; f++ {
		progress := frameProgress(f-startFrame, totalFrames-startFrame)
		gain := effects.Curve(plan.CrossfadeCurve, 1-progress)
		floor := 0.0
		if effectActiveAt(plan, track.StartTime, f) {
			floor = effectFloor
		}
		if gain < floor {
			gain = floor
		}
		for ch := 0; ch < channels; ch++ {
			seg[f*channels+ch] *= gain
		}
	}
}

// applyIncomingCrossfade fades the head of seg (the incoming side of
// plan) using f_in(progress) = curve(progress), with the same effect
// floor rule as applyOutgoingCrossfade.
func applyIncomingCrossfade(seg []float64, plan djmodel.TransitionPlan, track djmodel.DJSetTrack) {
	windowFrames := int(math.Round(plan.Duration * float64(sampleRate)))
	totalFrames := len(seg) / channels
	if windowFrames > totalFrames {
		windowFrames = totalFrames
	}

	for f := 0; f < windowFrames; f++ {
		progress := frameProgress(f, windowFrames)
		gain := effects.Curve(plan.CrossfadeCurve, progress)
		floor := 0.0
		if effectActiveAt(plan, track.StartTime, f) {
			floor = effectFloor
		}
		if gain < floor {
			gain = floor
		}
		for ch := 0; ch < channels; ch++ {
			seg[f*channels+ch] *= gain
		}
	}
}

func applyLinearFadeOut(seg []float64, seconds float64) {
	windowFrames := int(seconds * float64(sampleRate))
	totalFrames := len(seg) / channels
	startFrame := totalFrames - windowFrames
	if startFrame < 0 {
		startFrame = 0
	}
	for f := startFrame; f < totalFrames; f++ {
		gain := 1 - frameProgress(f-startFrame, totalFrames-startFrame)
		for ch := 0; ch < channels; ch++ {
			seg[f*channels+ch] *= gain
		}
	}
}

func applyLinearFadeIn(seg []float64, seconds float64) {
	windowFrames := int(seconds * float64(sampleRate))
	totalFrames := len(seg) / channels
	if windowFrames > totalFrames {
		windowFrames = totalFrames
	}
	for f := 0; f < windowFrames; f++ {
		gain := frameProgress(f, windowFrames)
		for ch := 0; ch < channels; ch++ {
			seg[f*channels+ch] *= gain
		}
	}
}

func frameProgress(i, frames int) float64 {
	if frames <= 1 {
		return 0
	}
	return float64(i) / float64(frames-1)
}
