package oracle

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/cartomix/djcore/internal/djmodel"
)

// HeuristicFallback is the deterministic oracle substitute invoked when no
// remote oracle is configured, or used directly by the standalone setgen
// tool. It never errors, satisfying spec §4.4/§7's requirement that
// transition planning always eventually produces a valid plan even when the
// oracle is unreachable.
//
// Grounded on djbot's planner.go idealEnergy/sortPlaylist heuristics and the
// teacher's internal/similarity/similarity.go Camelot-compatibility scoring,
// recombined into the oracle Client shape so the Planner never has to know
// whether it is talking to an LLM or to this fallback.
type HeuristicFallback struct{}

// NewHeuristicFallback returns a ready HeuristicFallback.
func NewHeuristicFallback() *HeuristicFallback { return &HeuristicFallback{} }

func (HeuristicFallback) AnalyzeVibe(ctx context.Context, vibe, threadID string) (djmodel.VibeAnalysis, error) {
	lower := strings.ToLower(vibe)
	out := djmodel.VibeAnalysis{
		EnergyLevel:       0.5,
		EnergyProgression: djmodel.ProgressionSteady,
		BPMRange:          djmodel.BPMRange{Min: 100, Max: 140},
		MixingStyle:       djmodel.MixingSmooth,
	}
	switch {
	case containsAny(lower, "peak", "banger", "rave", "hard"):
		out.EnergyLevel = 0.9
		out.BPMRange = djmodel.BPMRange{Min: 128, Max: 150}
		out.MixingStyle = djmodel.MixingAggressive
	case containsAny(lower, "chill", "lounge", "ambient", "downtempo"):
		out.EnergyLevel = 0.25
		out.BPMRange = djmodel.BPMRange{Min: 80, Max: 110}
	case containsAny(lower, "build", "warm up", "warmup"):
		out.EnergyProgression = djmodel.ProgressionBuilding
		out.EnergyLevel = 0.5
	}
	for _, kw := range []string{"house", "techno", "trance", "disco", "funk", "jazz"} {
		if strings.Contains(lower, kw) {
			out.GenrePreferences = append(out.GenrePreferences, kw)
		}
	}
	out.MoodKeywords = strings.Fields(lower)
	return out, nil
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// EvaluateTrack scores candidates by how close their energy level sits to
// the vibe's target energy, matching djbot's idealEnergy distance metric.
func (HeuristicFallback) EvaluateTrack(ctx context.Context, track *djmodel.Track, vibe djmodel.VibeAnalysis, playlist []string, threadID string) (djmodel.TrackEvaluation, error) {
	energyMatch := 1 - math.Abs(track.EnergyLevel-vibe.EnergyLevel)
	if energyMatch < 0 {
		energyMatch = 0
	}
	bpmFit := 1.0
	if track.BPM > 0 {
		if track.BPM < vibe.BPMRange.Min {
			bpmFit = 1 - (vibe.BPMRange.Min-track.BPM)/vibe.BPMRange.Min
		} else if track.BPM > vibe.BPMRange.Max {
			bpmFit = 1 - (track.BPM-vibe.BPMRange.Max)/vibe.BPMRange.Max
		}
	}
	if bpmFit < 0 {
		bpmFit = 0
	}
	score := 0.6*energyMatch + 0.4*bpmFit
	return djmodel.TrackEvaluation{
		Filepath:          track.Filepath,
		Score:             score,
		Reasoning:         "heuristic energy/bpm fit",
		EnergyMatch:       energyMatch,
		SuggestedPosition: -1,
		MixingNotes:       "",
	}, nil
}

// PlanTransition always returns the deterministic smooth_blend + filter_sweep
// plan spec §7 names as the oracle-failure fallback, scoring compatibility
// via Camelot adjacency the way the teacher's similarity.go does.
func (HeuristicFallback) PlanTransition(ctx context.Context, from, to *djmodel.Track, vibe djmodel.VibeAnalysis, threadID string) (djmodel.TransitionPlan, error) {
	duration := 8.0
	compat := camelotCompatibility(from.CamelotKey, to.CamelotKey)
	risk := "low"
	if compat < 0.5 {
		risk = "medium"
	}
	return djmodel.TransitionPlan{
		Duration:           duration,
		Type:               djmodel.TransitionSmoothBlend,
		CrossfadeCurve:     djmodel.CurveSCurve,
		CompatibilityScore: compat,
		RiskLevel:          risk,
		Effects: []djmodel.TransitionEffect{
			{Type: djmodel.EffectFilterSweep, StartAt: 0, Duration: duration, Intensity: 0.7},
		},
	}, nil
}

// camelotCompatibility scores two Camelot codes: 1.0 for identical or
// relative-major/minor, 0.7 for adjacent on the wheel, 0.2 otherwise.
// Grounded on the teacher's internal/similarity/similarity.go keyCompatibility.
func camelotCompatibility(a, b string) float64 {
	if a == "" || b == "" {
		return 0.5
	}
	if a == b {
		return 1.0
	}
	an, aLetter := splitCamelot(a)
	bn, bLetter := splitCamelot(b)
	if an == 0 || bn == 0 {
		return 0.5
	}
	if an == bn && aLetter != bLetter {
		return 1.0
	}
	diff := (an - bn + 12) % 12
	if diff == 1 || diff == 11 {
		return 0.7
	}
	return 0.2
}

func splitCamelot(code string) (int, byte) {
	if len(code) < 2 {
		return 0, 0
	}
	letter := code[len(code)-1]
	numPart := code[:len(code)-1]
	n := 0
	for _, r := range numPart {
		if r < '0' || r > '9' {
			return 0, 0
		}
		n = n*10 + int(r-'0')
	}
	return n, letter
}

// FinalizePlaylist summarizes the set deterministically from the tracks
// given, without any external call.
func (HeuristicFallback) FinalizePlaylist(ctx context.Context, filepaths []string, threadID string) (djmodel.PlaylistFinalization, error) {
	sorted := append([]string(nil), filepaths...)
	sort.Strings(sorted)
	return djmodel.PlaylistFinalization{
		Tracks:      sorted,
		OverallFlow: "heuristically planned set",
		MixingStyle: djmodel.MixingSmooth,
	}, nil
}
