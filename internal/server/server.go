// Package server implements the DJCoreAPI gRPC service of spec §4.6/§6: a
// thin transport adapter over internal/orchestration, internal/scanner,
// and internal/planner — it translates wire messages to/from this
// project's djmodel types and streams progress, but holds no pipeline
// logic of its own.
//
// Grounded on the teacher's internal/server/server.go (UnimplementedXServer
// embedding, ScanLibrary's progress-channel-to-stream-Send loop,
// codes.InvalidArgument/Internal error-code conventions), generalized from
// the teacher's EngineAPI (analyze/scan/export surface) to DJCoreAPI's
// narrower scan/plan/render surface — spec.md's non-goals place the
// teacher's HTTP/export/similarity endpoints out of scope for this
// service (see DESIGN.md's dropped-modules list).
package server

import (
	"context"
	"errors"
	"log/slog"

	eng "github.com/cartomix/djcore/gen/go/engine"
	"github.com/cartomix/djcore/internal/config"
	"github.com/cartomix/djcore/internal/djerr"
	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/orchestration"
	"github.com/cartomix/djcore/internal/planner"
	"github.com/cartomix/djcore/internal/scanner"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DJCoreServer implements eng.DJCoreAPIServer.
type DJCoreServer struct {
	eng.UnimplementedDJCoreAPIServer
	cfg     *config.Config
	logger  *slog.Logger
	scanner *scanner.Scanner
	orch    *orchestration.Orchestrator
}

// New builds a DJCoreServer from its already-constructed collaborators.
func New(cfg *config.Config, logger *slog.Logger, s *scanner.Scanner, orch *orchestration.Orchestrator) *DJCoreServer {
	return &DJCoreServer{cfg: cfg, logger: logger, scanner: s, orch: orch}
}

// ScanLibrary walks req's roots, enqueuing analysis for new or stale
// tracks and streaming per-file progress, spec §4.6 step 1.
func (s *DJCoreServer) ScanLibrary(req *eng.ScanLibraryRequest, stream grpc.ServerStreamingServer[eng.ScanProgress]) error {
	if len(req.GetRoots()) == 0 {
		return status.Error(codes.InvalidArgument, "at least one root is required")
	}

	ctx := stream.Context()
	progress := make(chan scanner.Progress)
	var scanErr error
	var newTracksFound int64

	go func() {
		scanErr = s.scanner.Scan(ctx, req.GetRoots(), 5, progress)
	}()

	for p := range progress {
		if p.Status == "queued" {
			newTracksFound++
		}
		if err := stream.Send(&eng.ScanProgress{
			CurrentFile:    p.Path,
			Percent:        percentOf(p.Processed, p.Total),
			NewTracksFound: newTracksFound,
		}); err != nil {
			return err
		}
	}

	if scanErr != nil && !errors.Is(scanErr, context.Canceled) {
		s.logger.Error("scan failed", "error", scanErr)
		return status.Errorf(codes.Internal, "scan failed: %v", scanErr)
	}
	return nil
}

// PlanSet runs the Set Planner to produce a fully timed DJSet, spec §4.4.
func (s *DJCoreServer) PlanSet(ctx context.Context, req *eng.PlanSetRequest) (*eng.PlanSetResponse, error) {
	if req.GetVibe() == "" {
		return nil, status.Error(codes.InvalidArgument, "vibe is required")
	}
	if req.GetDurationMinutes() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "duration_minutes must be positive")
	}

	planReq := planner.Request{
		Vibe:              req.GetVibe(),
		DurationMinutes:   req.GetDurationMinutes(),
		EnergyPattern:     djmodel.EnergyPattern(req.GetEnergyPattern()),
		PerTrackLengthCap: req.GetMaxTrackSeconds(),
		ThreadID:          req.GetThreadId(),
	}

	result, err := s.orch.Run(ctx, orchestration.Request{Plan: planReq}, nil)
	if err != nil {
		return nil, translateErr(err)
	}

	return &eng.PlanSetResponse{DjSet: toProtoDJSet(result.DJSet)}, nil
}

// RenderSet renders a previously planned DJSet to a WAV file, streaming
// coarse progress, spec §4.5/§4.6 step 4. Per spec §4.6/§5, once rendering
// has started this RPC does not honor cancellation mid-mix — the stream
// context is still passed through so per-track decode checks still abort
// cleanly before the mix stage begins.
func (s *DJCoreServer) RenderSet(req *eng.RenderSetRequest, stream grpc.ServerStreamingServer[eng.RenderProgress]) error {
	set := fromProtoDJSet(req.GetDjSet())
	if set == nil || len(set.Tracks) == 0 {
		return status.Error(codes.InvalidArgument, "dj_set with at least one track is required")
	}

	ctx := stream.Context()
	var sendErr error
	_, err := s.orch.RenderOnly(ctx, set, "", func(p orchestration.Progress) {
		if sendErr != nil || p.Stage != orchestration.StageRendering {
			return
		}
		sendErr = stream.Send(&eng.RenderProgress{Fraction: p.RenderFrac, Stage: string(p.Stage)})
	})
	if sendErr != nil {
		return sendErr
	}
	if err != nil {
		return translateErr(err)
	}

	return stream.Send(&eng.RenderProgress{Fraction: 1, Stage: "done"})
}

func percentOf(processed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(processed) / float64(total) * 100
}

func translateErr(err error) error {
	switch {
	case errors.Is(err, djerr.ErrCancelled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, djerr.ErrInsufficientLibrary):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}
