// Package planner implements the Set Planner of spec §4.4: given a vibe
// request, produce a fully timed DJSet. The pipeline is an explicit finite
// state machine (VIBE_ANALYZING → CANDIDATES_SELECTED → EVALUATED →
// ORDERED → TRANSITIONS_PLANNED → TIMED → DONE), re-expressing spec §9's
// redesign note against "LLM/agent graph orchestration": no hidden
// tool-use loop, one retry policy, deterministic fallbacks.
//
// Grounded on the teacher's internal/planner/planner.go (greedy
// nearest-neighbour edge scoring, Camelot parsing) and
// vividhyeok-djbot/backend/planner.go (idealEnergy energy-arc target,
// sortPlaylist's weighted greedy reordering, ComputePlayBounds timing).
package planner

import (
	"context"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/cartomix/djcore/internal/djerr"
	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/oracle"
	"github.com/cartomix/djcore/internal/store"
)

// State names the Planner's finite state machine, spec §4.4.
type State string

const (
	StateVibeAnalyzing      State = "VIBE_ANALYZING"
	StateCandidatesSelected State = "CANDIDATES_SELECTED"
	StateEvaluated          State = "EVALUATED"
	StateOrdered            State = "ORDERED"
	StateTransitionsPlanned State = "TRANSITIONS_PLANNED"
	StateTimed              State = "TIMED"
	StateDone               State = "DONE"
)

// Request is a vibe-driven set planning request, spec §4.4 inputs.
type Request struct {
	Vibe              string
	DurationMinutes   float64
	EnergyPattern     djmodel.EnergyPattern
	PerTrackLengthCap float64 // 0 means uncapped
	ThreadID          string
}

// minCandidates is the floor below which planning fails with
// InsufficientLibrary, spec §4.4 failure semantics.
const minCandidates = 2

// averageTrackMinutes sizes the set: the target track count is the
// requested duration divided by averageTrackMinutes, rounded and clamped to
// [minTrackCount, maxTrackCount]. The oracle interface carries no track
// count, so the oracle does not choose it.
const averageTrackMinutes = 4.0

const (
	minTrackCount = 4
	maxTrackCount = 40
)

// Planner drives the pipeline described above.
type Planner struct {
	oracle oracle.Client
	store  *store.DB
	logger *slog.Logger
}

// New builds a Planner.
func New(o oracle.Client, db *store.DB, logger *slog.Logger) *Planner {
	return &Planner{oracle: o, store: db, logger: logger}
}

// ProgressFunc is invoked with each state transition.
type ProgressFunc func(state State)

// Plan runs the full pipeline and returns a timed DJSet.
func (p *Planner) Plan(ctx context.Context, req Request, onProgress ProgressFunc) (*djmodel.DJSet, error) {
	report := func(s State) {
		if onProgress != nil {
			onProgress(s)
		}
	}

	report(StateVibeAnalyzing)
	vibe, err := p.oracle.AnalyzeVibe(ctx, req.Vibe, req.ThreadID)
	if err != nil {
		p.logger.Warn("vibe analysis failed, using defaults", "error", err)
		vibe = djmodel.VibeAnalysis{EnergyLevel: 0.5, BPMRange: djmodel.BPMRange{Min: 100, Max: 140}}
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	report(StateCandidatesSelected)
	targetCount := clampTrackCount(int(math.Round(req.DurationMinutes / averageTrackMinutes)))
	candidates, err := selectCandidates(p.store, vibe, targetCount)
	if err != nil {
		return nil, err
	}
	if len(candidates) < minCandidates {
		return nil, djerr.ErrInsufficientLibrary
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	report(StateEvaluated)
	evaluated, err := p.evaluateCandidates(ctx, candidates, vibe, targetCount)
	if err != nil {
		return nil, err
	}
	if len(evaluated) < minCandidates {
		return nil, djerr.ErrInsufficientLibrary
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	report(StateOrdered)
	ordered := orderByEnergyPattern(evaluated, req.EnergyPattern)

	report(StateTransitionsPlanned)
	transitions, err := p.planTransitions(ctx, ordered, vibe, req.ThreadID)
	if err != nil {
		return nil, err
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	report(StateTimed)
	set := materializeTiming(ordered, transitions, req.PerTrackLengthCap)
	set.ID = uuid.NewString()
	set.Name = req.Vibe
	set.Vibe = req.Vibe
	set.EnergyPattern = string(req.EnergyPattern)
	for _, t := range ordered {
		set.EnergyGraph = append(set.EnergyGraph, t.track.EnergyLevel)
	}

	report(StateDone)
	return set, nil
}

func clampTrackCount(n int) int {
	if n < minTrackCount {
		return minTrackCount
	}
	if n > maxTrackCount {
		return maxTrackCount
	}
	return n
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return djerr.ErrCancelled
	default:
		return nil
	}
}

// evaluatedTrack pairs a candidate Track with its oracle evaluation.
type evaluatedTrack struct {
	track *djmodel.Track
	eval  djmodel.TrackEvaluation
}

func (p *Planner) evaluateCandidates(ctx context.Context, candidates []*djmodel.Track, vibe djmodel.VibeAnalysis, targetCount int) ([]evaluatedTrack, error) {
	var playlist []string
	evaluated := make([]evaluatedTrack, 0, len(candidates))
	for _, c := range candidates {
		eval, err := p.oracle.EvaluateTrack(ctx, c, vibe, playlist, "")
		if err != nil {
			p.logger.Warn("track evaluation failed, skipping candidate", "filepath", c.Filepath, "error", err)
			continue
		}
		evaluated = append(evaluated, evaluatedTrack{track: c, eval: eval})
		playlist = append(playlist, c.Filepath)
	}

	sortByScoreDescending(evaluated)
	if len(evaluated) > targetCount {
		evaluated = evaluated[:targetCount]
	}
	return evaluated, nil
}

func sortByScoreDescending(evaluated []evaluatedTrack) {
	for i := 1; i < len(evaluated); i++ {
		for j := i; j > 0 && evaluated[j].eval.Score > evaluated[j-1].eval.Score; j-- {
			evaluated[j], evaluated[j-1] = evaluated[j-1], evaluated[j]
		}
	}
}
