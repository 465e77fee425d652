package oracle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cartomix/djcore/gen/go/common"
	"github.com/cartomix/djcore/gen/go/oracle"
	"github.com/cartomix/djcore/internal/djerr"
	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/rpcconv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GRPCClient calls a remote OracleAPI service, retrying each call per
// withRetry. Grounded on the teacher's internal/analyzer/client.go
// grpc.NewClient + slog wiring.
type GRPCClient struct {
	conn   *grpc.ClientConn
	client oracle.OracleAPIClient
	logger *slog.Logger
}

// NewGRPCClient dials addr and returns a ready GRPCClient.
func NewGRPCClient(addr string, logger *slog.Logger) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial oracle at %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn, client: oracle.NewOracleAPIClient(conn), logger: logger}, nil
}

// Close releases the underlying connection.
func (c *GRPCClient) Close() error { return c.conn.Close() }

func (c *GRPCClient) AnalyzeVibe(ctx context.Context, vibe, threadID string) (djmodel.VibeAnalysis, error) {
	var resp *oracle.VibeAnalysis
	err := withRetry(ctx, func() error {
		var callErr error
		resp, callErr = c.client.AnalyzeVibe(ctx, &oracle.VibeRequest{Vibe: vibe, ThreadId: threadID})
		return callErr
	})
	if err != nil {
		c.logger.Warn("oracle vibe analysis failed after retries", "error", err)
		return djmodel.VibeAnalysis{}, djerr.Oracle("analyze_vibe", err)
	}
	return rpcconv.VibeAnalysisFromProto(resp), nil
}

func (c *GRPCClient) EvaluateTrack(ctx context.Context, track *djmodel.Track, vibe djmodel.VibeAnalysis, playlist []string, threadID string) (djmodel.TrackEvaluation, error) {
	req := &oracle.TrackEvaluationRequest{
		Track:        rpcconv.TrackToProto(track),
		VibeAnalysis: vibeToProto(vibe),
		ThreadId:     threadID,
	}
	for _, fp := range playlist {
		req.CurrentPlaylist = append(req.CurrentPlaylist, &common.TrackId{Filepath: fp})
	}

	var resp *oracle.TrackEvaluation
	err := withRetry(ctx, func() error {
		var callErr error
		resp, callErr = c.client.EvaluateTrack(ctx, req)
		return callErr
	})
	if err != nil {
		c.logger.Warn("oracle track evaluation failed after retries", "error", err, "filepath", track.Filepath)
		return djmodel.TrackEvaluation{}, djerr.Oracle("evaluate_track", err)
	}
	return rpcconv.TrackEvaluationFromProto(track.Filepath, resp), nil
}

func (c *GRPCClient) PlanTransition(ctx context.Context, from, to *djmodel.Track, vibe djmodel.VibeAnalysis, threadID string) (djmodel.TransitionPlan, error) {
	req := &oracle.TransitionPlanRequest{
		FromTrack:    rpcconv.TrackToProto(from),
		ToTrack:      rpcconv.TrackToProto(to),
		VibeAnalysis: vibeToProto(vibe),
		ThreadId:     threadID,
	}

	var resp *oracle.TransitionPlan
	err := withRetry(ctx, func() error {
		var callErr error
		resp, callErr = c.client.PlanTransition(ctx, req)
		return callErr
	})
	if err != nil {
		c.logger.Warn("oracle transition planning failed after retries", "error", err)
		return djmodel.TransitionPlan{}, djerr.Oracle("plan_transition", err)
	}
	return rpcconv.TransitionPlanFromProto(resp), nil
}

func (c *GRPCClient) FinalizePlaylist(ctx context.Context, filepaths []string, threadID string) (djmodel.PlaylistFinalization, error) {
	req := &oracle.FinalizationRequest{ThreadId: threadID}
	for _, fp := range filepaths {
		req.Tracks = append(req.Tracks, &common.TrackId{Filepath: fp})
	}

	var resp *oracle.PlaylistFinalization
	err := withRetry(ctx, func() error {
		var callErr error
		resp, callErr = c.client.FinalizePlaylist(ctx, req)
		return callErr
	})
	if err != nil {
		c.logger.Warn("oracle playlist finalization failed after retries", "error", err)
		return djmodel.PlaylistFinalization{}, djerr.Oracle("finalize_playlist", err)
	}
	return rpcconv.PlaylistFinalizationFromProto(resp), nil
}

func vibeToProto(v djmodel.VibeAnalysis) *oracle.VibeAnalysis {
	out := &oracle.VibeAnalysis{
		EnergyLevel:      v.EnergyLevel,
		MoodKeywords:     append([]string(nil), v.MoodKeywords...),
		GenrePreferences: append([]string(nil), v.GenrePreferences...),
		BpmRange:         &oracle.BpmRange{Min: v.BPMRange.Min, Max: v.BPMRange.Max},
	}
	switch v.EnergyProgression {
	case djmodel.ProgressionSteady:
		out.EnergyProgression = oracle.EnergyProgression_ENERGY_PROGRESSION_STEADY
	case djmodel.ProgressionBuilding:
		out.EnergyProgression = oracle.EnergyProgression_ENERGY_PROGRESSION_BUILDING
	case djmodel.ProgressionCooling:
		out.EnergyProgression = oracle.EnergyProgression_ENERGY_PROGRESSION_COOLING
	case djmodel.ProgressionWave:
		out.EnergyProgression = oracle.EnergyProgression_ENERGY_PROGRESSION_WAVE
	}
	switch v.MixingStyle {
	case djmodel.MixingSmooth:
		out.MixingStyle = oracle.MixingStyle_MIXING_STYLE_SMOOTH
	case djmodel.MixingAggressive:
		out.MixingStyle = oracle.MixingStyle_MIXING_STYLE_AGGRESSIVE
	case djmodel.MixingCreative:
		out.MixingStyle = oracle.MixingStyle_MIXING_STYLE_CREATIVE
	}
	return out
}
