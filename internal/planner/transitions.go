package planner

import (
	"context"

	"github.com/cartomix/djcore/internal/djmodel"
)

// minTransitionDuration/maxTransitionDuration clamp an oracle-proposed
// transition duration, spec §4.4 step 5.
const (
	minTransitionDuration = 4.0
	maxTransitionDuration = 60.0
	maxEffectsPerPlan     = 2

	defaultIntensityLow  = 0.2
	defaultIntensityHigh = 0.5

	defaultFilterSweepIntensity = 0.7
)

func (p *Planner) planTransitions(ctx context.Context, ordered []evaluatedTrack, vibe djmodel.VibeAnalysis, threadID string) ([]djmodel.TransitionPlan, error) {
	transitions := make([]djmodel.TransitionPlan, 0, len(ordered)-1)
	for i := 0; i < len(ordered)-1; i++ {
		from, to := ordered[i].track, ordered[i+1].track

		// oracle.Client implementations (GRPCClient) already retry internally
		// per spec §6/§7's "3 retries with exponential backoff"; a final
		// error here falls back to the deterministic plan below.
		plan, err := p.oracle.PlanTransition(ctx, from, to, vibe, threadID)
		if err != nil {
			p.logger.Warn("transition planning failed after retries, using deterministic fallback", "error", err)
			plan = deterministicFallback()
		}

		// FromOrder/ToOrder reference DJSetTrack.Order, which is 1-based
		// per spec §3 — track index i in ordered corresponds to order i+1.
		plan.FromOrder = i + 1
		plan.ToOrder = i + 2
		validateAndRepair(&plan)
		transitions = append(transitions, plan)
	}
	return transitions, nil
}

// deterministicFallback is spec §7's fallback plan: a smooth_blend with a
// single filter_sweep effect.
func deterministicFallback() djmodel.TransitionPlan {
	return djmodel.TransitionPlan{
		Duration:       8,
		Type:           djmodel.TransitionSmoothBlend,
		CrossfadeCurve: djmodel.CurveSCurve,
		Effects: []djmodel.TransitionEffect{
			{Type: djmodel.EffectFilterSweep, StartAt: 0, Duration: 8, Intensity: defaultFilterSweepIntensity},
		},
	}
}

// validateAndRepair enforces spec §4.4 step 5's clamp/cap/default rules
// in place.
func validateAndRepair(plan *djmodel.TransitionPlan) {
	if plan.Duration < minTransitionDuration {
		plan.Duration = minTransitionDuration
	}
	if plan.Duration > maxTransitionDuration {
		plan.Duration = maxTransitionDuration
	}

	if len(plan.Effects) > maxEffectsPerPlan {
		plan.Effects = plan.Effects[:maxEffectsPerPlan]
	}

	freeIntensity := plan.Type == djmodel.TransitionScratchCut || plan.Type == djmodel.TransitionEffectsOnly
	for i := range plan.Effects {
		e := &plan.Effects[i]
		if e.StartAt < 0 {
			e.StartAt = 0
		}
		if e.Duration <= 0 {
			e.Duration = plan.Duration
		}
		if !freeIntensity {
			if e.Intensity < defaultIntensityLow {
				e.Intensity = defaultIntensityLow
			}
			if e.Intensity > defaultIntensityHigh {
				e.Intensity = defaultIntensityHigh
			}
		}
	}

	if len(plan.Effects) == 0 {
		plan.Effects = []djmodel.TransitionEffect{
			{Type: djmodel.EffectFilterSweep, StartAt: 0, Duration: plan.Duration, Intensity: defaultFilterSweepIntensity},
		}
	}
}
