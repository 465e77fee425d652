package oracle

import (
	"context"
	"testing"

	"github.com/cartomix/djcore/internal/djmodel"
)

func TestHeuristicAnalyzeVibePeak(t *testing.T) {
	f := NewHeuristicFallback()
	v, err := f.AnalyzeVibe(context.Background(), "hard peak time techno banger", "")
	if err != nil {
		t.Fatalf("analyze vibe: %v", err)
	}
	if v.EnergyLevel < 0.8 {
		t.Fatalf("expected high energy for peak-time vibe, got %v", v.EnergyLevel)
	}
	if v.MixingStyle != djmodel.MixingAggressive {
		t.Fatalf("expected aggressive mixing style, got %s", v.MixingStyle)
	}
}

func TestHeuristicAnalyzeVibeChill(t *testing.T) {
	f := NewHeuristicFallback()
	v, err := f.AnalyzeVibe(context.Background(), "chill ambient lounge", "")
	if err != nil {
		t.Fatalf("analyze vibe: %v", err)
	}
	if v.EnergyLevel > 0.4 {
		t.Fatalf("expected low energy for chill vibe, got %v", v.EnergyLevel)
	}
}

func TestHeuristicEvaluateTrackPrefersEnergyMatch(t *testing.T) {
	f := NewHeuristicFallback()
	vibe := djmodel.VibeAnalysis{EnergyLevel: 0.8, BPMRange: djmodel.BPMRange{Min: 120, Max: 130}}

	close, err := f.EvaluateTrack(context.Background(), &djmodel.Track{Filepath: "a", EnergyLevel: 0.8, BPM: 125}, vibe, nil, "")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	far, err := f.EvaluateTrack(context.Background(), &djmodel.Track{Filepath: "b", EnergyLevel: 0.1, BPM: 90}, vibe, nil, "")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if close.Score <= far.Score {
		t.Fatalf("expected closer energy/bpm match to score higher: close=%v far=%v", close.Score, far.Score)
	}
}

func TestHeuristicPlanTransitionDefaultsToSmoothBlendWithFilterSweep(t *testing.T) {
	f := NewHeuristicFallback()
	plan, err := f.PlanTransition(context.Background(), &djmodel.Track{CamelotKey: "8A"}, &djmodel.Track{CamelotKey: "9A"}, djmodel.VibeAnalysis{}, "")
	if err != nil {
		t.Fatalf("plan transition: %v", err)
	}
	if plan.Type != djmodel.TransitionSmoothBlend {
		t.Fatalf("expected smooth_blend, got %s", plan.Type)
	}
	if len(plan.Effects) != 1 || plan.Effects[0].Type != djmodel.EffectFilterSweep {
		t.Fatalf("expected single filter_sweep effect, got %+v", plan.Effects)
	}
	if plan.Duration < 4 || plan.Duration > 60 {
		t.Fatalf("duration out of spec bounds: %v", plan.Duration)
	}
}

func TestCamelotCompatibilityAdjacentHigherThanClash(t *testing.T) {
	adjacent := camelotCompatibility("8A", "9A")
	clash := camelotCompatibility("8A", "2B")
	if adjacent <= clash {
		t.Fatalf("expected adjacent keys to score higher than a clash: adjacent=%v clash=%v", adjacent, clash)
	}
	if camelotCompatibility("8A", "8A") != 1.0 {
		t.Fatalf("expected identical keys to score 1.0")
	}
}
