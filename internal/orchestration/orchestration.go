// Package orchestration implements spec §4.6's end-to-end pipeline:
// determine the library set, wait for analysis to settle, hand a vibe
// request to the Planner, hand the resulting DJSet to the Renderer, then
// write the generic export bundle (internal/exporter) alongside the
// rendered WAV. It is the glue layer cmd/engine and cmd/setgen call into —
// no gRPC framing here, just the sequencing and cancellation rules.
//
// Grounded on the teacher's cmd/engine/main.go, which wires analyzer,
// storage, and the gRPC server together in exactly this order (open store,
// build dependent components, run), and on internal/server/server.go's
// stage-by-stage progress reporting pattern, re-expressed here as a single
// onProgress callback threaded through Scan/Plan/Render rather than a
// streamed RPC response.
package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cartomix/djcore/internal/djerr"
	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/exporter"
	"github.com/cartomix/djcore/internal/planner"
	"github.com/cartomix/djcore/internal/queue"
	"github.com/cartomix/djcore/internal/render"
	"github.com/cartomix/djcore/internal/scanner"
	"github.com/cartomix/djcore/internal/store"
)

// pollInterval bounds how often Run checks whether the Analysis Queue has
// drained after a scan, per spec §4.6's "await completion" step.
const pollInterval = 200 * time.Millisecond

// Request is the input to a full orchestration run: which library roots to
// refresh (may be empty to skip scanning and plan against the store as-is)
// plus the vibe request handed to the Planner.
type Request struct {
	Roots   []string
	Plan    planner.Request
	// OutputDir is where the rendered WAV is written. Defaults to the
	// current directory if empty.
	OutputDir string
}

// Stage names the coarse phase Run is in, reported via ProgressFunc
// alongside the finer-grained state each sub-component already reports.
type Stage string

const (
	StageScanning   Stage = "scanning"
	StagePlanning   Stage = "planning"
	StageRendering  Stage = "rendering"
	StageDone       Stage = "done"
)

// Progress is reported at coarse stage boundaries and from whatever
// sub-component is currently running.
type Progress struct {
	Stage        Stage
	PlannerState planner.State
	RenderFrac   float64
}

// ProgressFunc receives Progress updates as the pipeline advances.
type ProgressFunc func(Progress)

// Result is the outcome of a successful Run.
type Result struct {
	DJSet      *djmodel.DJSet
	OutputPath string
	Export     *exporter.Result
}

// Orchestrator composes the Scanner, Queue, Planner, and Renderer into the
// single pipeline spec §4.6 describes.
type Orchestrator struct {
	scanner *scanner.Scanner
	queue   *queue.Queue
	planner *planner.Planner
	store   *store.DB
	logger  *slog.Logger
}

// New builds an Orchestrator from its already-constructed collaborators.
func New(s *scanner.Scanner, q *queue.Queue, p *planner.Planner, db *store.DB, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{scanner: s, queue: q, planner: p, store: db, logger: logger}
}

// Run executes the pipeline: scan (if roots given) and wait for the
// Analysis Queue to drain, plan a DJSet, render it to a WAV file.
//
// Cancellation is cooperative and asymmetric, per spec §4.6: ctx is
// checked between the scan, the queue drain, and the call into the
// Planner, any of which abort cleanly and return djerr.ErrCancelled.
// Once render.Render has been invoked, ctx is still
// passed through (render performs its own per-track checks), but an
// in-flight render that is past its mix stage is not abandoned — the
// Orchestrator does not wrap render's own cancellation decisions, it
// simply returns whatever render.Render reports.
func (o *Orchestrator) Run(ctx context.Context, req Request, onProgress ProgressFunc) (*Result, error) {
	report := func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	if len(req.Roots) > 0 {
		report(Progress{Stage: StageScanning})
		if err := o.scanAndWait(ctx, req.Roots); err != nil {
			return nil, err
		}
	}

	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	report(Progress{Stage: StagePlanning})
	set, err := o.planner.Plan(ctx, req.Plan, func(s planner.State) {
		report(Progress{Stage: StagePlanning, PlannerState: s})
	})
	if err != nil {
		return nil, err
	}

	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	outputPath := filepath.Join(outputDir, outputFilename(set))

	report(Progress{Stage: StageRendering})
	if err := render.Render(ctx, set, outputPath, o.logger, func(frac float64) {
		report(Progress{Stage: StageRendering, RenderFrac: frac})
	}); err != nil {
		return nil, err
	}

	exp, expErr := o.exportBundle(set, outputDir)
	if expErr != nil {
		o.logger.Warn("export bundle failed", "error", expErr)
	}

	report(Progress{Stage: StageDone})
	return &Result{DJSet: set, OutputPath: outputPath, Export: exp}, nil
}

// RenderOnly renders an already-planned DJSet directly, skipping scan and
// plan — the path eng.DJCoreAPI's RenderSet RPC takes when a caller has
// already obtained a DJSet from PlanSet and wants it rendered separately.
// As with Run, cancellation is not re-asserted once render.Render starts.
func (o *Orchestrator) RenderOnly(ctx context.Context, set *djmodel.DJSet, outputDir string, onProgress ProgressFunc) (*Result, error) {
	report := func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	if outputDir == "" {
		outputDir = "."
	}
	outputPath := filepath.Join(outputDir, outputFilename(set))

	report(Progress{Stage: StageRendering})
	if err := render.Render(ctx, set, outputPath, o.logger, func(frac float64) {
		report(Progress{Stage: StageRendering, RenderFrac: frac})
	}); err != nil {
		return nil, err
	}

	exp, expErr := o.exportBundle(set, outputDir)
	if expErr != nil {
		o.logger.Warn("export bundle failed", "error", expErr)
	}

	report(Progress{Stage: StageDone})
	return &Result{DJSet: set, OutputPath: outputPath, Export: exp}, nil
}

// exportBundle writes the generic M3U8/analysis-JSON/cues-CSV/checksums/
// tar.gz bundle for a rendered set, spec §4.6's export step, looking up
// each placement's full analysis record from the Library Store so the
// bundle carries cue points and metadata rather than bare filepaths.
// A track that can no longer be found in the store (moved or deleted since
// it was planned) still exports with its placement data, just without the
// analysis fields an exporter.TrackExport.Track would add.
func (o *Orchestrator) exportBundle(set *djmodel.DJSet, outputDir string) (*exporter.Result, error) {
	tracks := make([]exporter.TrackExport, 0, len(set.Tracks))
	for _, placement := range set.Tracks {
		track, err := o.store.Get(placement.Filepath)
		if err != nil {
			track = nil
		}
		tracks = append(tracks, exporter.TrackExport{Track: track, Placement: placement})
	}

	name := set.Name
	if name == "" {
		name = set.ID
	}
	return exporter.WriteGeneric(outputDir, name, tracks)
}

// scanAndWait runs the Scanner over roots and blocks until the Analysis
// Queue has no outstanding (pending or processing) tasks, polling rather
// than tracking individual task IDs since a scan may enqueue an unbounded
// number of tracks across many roots.
func (o *Orchestrator) scanAndWait(ctx context.Context, roots []string) error {
	progress := make(chan scanner.Progress, 16)
	scanErrCh := make(chan error, 1)

	go func() {
		scanErrCh <- o.scanner.Scan(ctx, roots, 5, progress)
	}()

	for range progress {
		// Drain scan progress; the Orchestrator reports coarse stages only,
		// finer per-file detail is logged by the Scanner itself.
	}

	if err := <-scanErrCh; err != nil {
		return err
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if o.queue.Outstanding() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return djerr.ErrCancelled
		case <-ticker.C:
		}
	}
}

// outputFilename follows spec §4.6's naming convention: djset_{id}_{unix_ts}.wav.
func outputFilename(set *djmodel.DJSet) string {
	return fmt.Sprintf("djset_%s_%d.wav", set.ID, time.Now().Unix())
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return djerr.ErrCancelled
	default:
		return nil
	}
}
