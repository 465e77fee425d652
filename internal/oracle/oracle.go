// Package oracle abstracts the planner oracle of spec §6: an opaque,
// stateless, rate-limited external service (typically an LLM) returning
// structured JSON for vibe analysis, per-track evaluation, transition
// planning, and playlist finalization. Grounded on the teacher's
// internal/analyzer client/fallback split, generalized from a single
// analysis RPC to the oracle's four request kinds.
package oracle

import (
	"context"
	"time"

	"github.com/cartomix/djcore/internal/djmodel"
)

// Client is the planner oracle contract, spec §6.
type Client interface {
	AnalyzeVibe(ctx context.Context, vibe, threadID string) (djmodel.VibeAnalysis, error)
	EvaluateTrack(ctx context.Context, track *djmodel.Track, vibe djmodel.VibeAnalysis, playlist []string, threadID string) (djmodel.TrackEvaluation, error)
	PlanTransition(ctx context.Context, from, to *djmodel.Track, vibe djmodel.VibeAnalysis, threadID string) (djmodel.TransitionPlan, error)
	FinalizePlaylist(ctx context.Context, filepaths []string, threadID string) (djmodel.PlaylistFinalization, error)
}

// DefaultCallTimeout is a 30 s oracle call timeout, spec §6 suspension
// points. GRPCClient does not apply it: a call and its retries are bounded
// only by the caller's ctx.
const DefaultCallTimeout = 30 * time.Second

// MaxRetries is the retry budget for a single oracle call before giving up,
// spec §4.4/§6's "3 retries with exponential backoff" rule.
const MaxRetries = 3
