package analyzer

import (
	"context"
	"log/slog"
	"time"

	"github.com/cartomix/djcore/gen/go/analyzer"
	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/rpcconv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GRPCClient wraps a remote AnalyzerWorkerAPI client with connection
// management. Preferred over Local when reachable, matching the teacher's
// analyzer.NewClient/NewCPUFallback preference order in cmd/engine/main.go —
// a remote worker (e.g. GPU-accelerated) is tried first; Local is the
// always-available in-process fallback.
type GRPCClient struct {
	conn   *grpc.ClientConn
	client analyzer.AnalyzerWorkerAPIClient
	logger *slog.Logger
}

// NewGRPCClient dials addr and wraps it as an Analyzer.
func NewGRPCClient(addr string, logger *slog.Logger) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, err
	}

	return &GRPCClient{
		conn:   conn,
		client: analyzer.NewAnalyzerWorkerAPIClient(conn),
		logger: logger,
	}, nil
}

// AnalyzeTrack sends an analysis job to the remote worker and validates/
// converts its response at the boundary (spec §9: "validate all oracle
// payloads against the §3 schemas at the boundary").
func (c *GRPCClient) AnalyzeTrack(ctx context.Context, filepath string) (*djmodel.Track, error) {
	c.logger.Debug("sending analysis job to worker", "path", filepath)

	start := time.Now()
	resp, err := c.client.AnalyzeTrack(ctx, &analyzer.AnalyzeJob{
		Filepath:         filepath,
		RequestedVersion: int32(CurrentAnalysisVersion),
	})
	if err != nil {
		c.logger.Error("analysis failed", "path", filepath, "error", err, "duration", time.Since(start))
		return nil, err
	}

	track := rpcconv.TrackFromProto(resp.GetAnalysis())
	c.logger.Info("analysis complete", "path", filepath, "duration", time.Since(start), "bpm", track.BPM)
	return track, nil
}

// Close closes the gRPC connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}
