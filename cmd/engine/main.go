package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/cartomix/djcore/gen/go/engine"
	"github.com/cartomix/djcore/internal/analyzer"
	"github.com/cartomix/djcore/internal/audio"
	"github.com/cartomix/djcore/internal/config"
	"github.com/cartomix/djcore/internal/oracle"
	"github.com/cartomix/djcore/internal/orchestration"
	"github.com/cartomix/djcore/internal/planner"
	"github.com/cartomix/djcore/internal/queue"
	"github.com/cartomix/djcore/internal/rpcmw"
	"github.com/cartomix/djcore/internal/scanner"
	"github.com/cartomix/djcore/internal/server"
	"github.com/cartomix/djcore/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg := config.Parse()

	// Setup structured logger
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if cfg.RenderSampleRate != audio.RenderSampleRate {
		logger.Warn("render-sample-rate does not match the renderer's fixed output rate and is not applied",
			"flag", cfg.RenderSampleRate, "renderer", audio.RenderSampleRate)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error("failed to create data directory", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	// Open database
	db, err := store.Open(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Prefer a networked analyzer worker; fall back to the in-process
	// local analyzer (spec §3's CPU-path reference implementation).
	var analysisBackend analyzer.Analyzer
	analysisBackend, err = analyzer.NewGRPCClient(cfg.AnalyzerAddr, logger)
	if err != nil {
		logger.Warn("analyzer worker unavailable, falling back to local analyzer", "error", err)
		analysisBackend = analyzer.NewLocal(logger)
	} else {
		logger.Info("connected to analyzer worker", "addr", cfg.AnalyzerAddr)
	}
	defer analysisBackend.Close()

	// Prefer a networked Oracle; fall back to the heuristic default so
	// PlanSet keeps working with no oracle peer running, per spec §4.4.
	var oracleClient oracle.Client
	oracleClient, err = oracle.NewGRPCClient(cfg.OracleAddr, logger)
	if err != nil {
		logger.Warn("oracle unavailable, falling back to heuristic planner", "error", err)
		oracleClient = oracle.NewHeuristicFallback()
	} else {
		logger.Info("connected to oracle", "addr", cfg.OracleAddr)
	}

	q := queue.New(analysisBackend, db, logger, cfg.QueueWorkers)
	q.Start(context.Background())
	defer q.Stop()
	sc := scanner.New(db, q, logger)
	pl := planner.New(oracleClient, db, logger)
	orch := orchestration.New(sc, q, pl, db, logger)

	// Create gRPC server with recovery and logging interceptors.
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(rpcmw.RecoveryInterceptor(logger), rpcmw.LoggingInterceptor(logger)),
		grpc.ChainStreamInterceptor(rpcmw.StreamRecoveryInterceptor(logger), rpcmw.StreamLoggingInterceptor(logger)),
	)

	// Register DJCore API
	djServer := server.New(cfg, logger, sc, orch)
	engine.RegisterDJCoreAPIServer(grpcServer, djServer)

	// Register health service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("dj.v1.DJCoreAPI", grpc_health_v1.HealthCheckResponse_SERVING)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	// Start listener
	addr := fmt.Sprintf(":%d", cfg.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen", "addr", addr, "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig)
		healthServer.SetServingStatus("dj.v1.DJCoreAPI", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		grpcServer.GracefulStop()
	}()

	logger.Info("starting engine server",
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"queue_workers", cfg.QueueWorkers,
	)

	if err := grpcServer.Serve(lis); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
