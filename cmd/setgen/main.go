// setgen is a one-shot CLI front end to internal/orchestration: given a
// vibe and a duration it scans a library, plans a set, and renders it to
// a WAV file, without a gRPC server or a running oracle peer (it uses the
// heuristic oracle fallback), useful for exercising the full pipeline
// directly from the command line.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/cartomix/djcore/internal/analyzer"
	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/oracle"
	"github.com/cartomix/djcore/internal/orchestration"
	"github.com/cartomix/djcore/internal/planner"
	"github.com/cartomix/djcore/internal/queue"
	"github.com/cartomix/djcore/internal/scanner"
	"github.com/cartomix/djcore/internal/store"
)

func main() {
	root := flag.String("root", "", "library root directory to scan (repeatable roots not supported from the CLI; pass a single top-level directory)")
	dataDir := flag.String("data-dir", "./setgen-data", "directory for the SQLite library store")
	outputDir := flag.String("out", ".", "directory to write the rendered WAV into")
	vibe := flag.String("vibe", "", "vibe description handed to the planner, e.g. \"deep house sunset\"")
	duration := flag.Float64("minutes", 30, "target set duration in minutes")
	pattern := flag.String("pattern", string(djmodel.PatternBuilding), "energy pattern: building, cooling, peak_time, wave")
	workers := flag.Int("queue-workers", 2, "analysis queue worker count")
	flag.Parse()

	if *vibe == "" {
		log.Fatal("-vibe is required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		logger.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	db, err := store.Open(*dataDir, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	a := analyzer.NewLocal(logger)
	defer a.Close()

	q := queue.New(a, db, logger, *workers)
	q.Start(context.Background())
	defer q.Stop()
	sc := scanner.New(db, q, logger)
	pl := planner.New(oracle.NewHeuristicFallback(), db, logger)
	orch := orchestration.New(sc, q, pl, db, logger)

	var roots []string
	if *root != "" {
		roots = []string{*root}
	}

	req := orchestration.Request{
		Roots: roots,
		Plan: planner.Request{
			Vibe:            *vibe,
			DurationMinutes: *duration,
			EnergyPattern:   djmodel.EnergyPattern(*pattern),
		},
		OutputDir: *outputDir,
	}

	result, err := orch.Run(context.Background(), req, func(p orchestration.Progress) {
		logger.Info("progress", "stage", p.Stage, "planner_state", p.PlannerState, "render_frac", p.RenderFrac)
	})
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("set generated", "output", result.OutputPath, "tracks", len(result.DJSet.Tracks))
	if result.Export != nil {
		logger.Info("export bundle written", "bundle", result.Export.BundlePath, "checksums", result.Export.ChecksumsPath)
	}
}
