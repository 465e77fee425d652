package server

import (
	"context"
	"log/slog"
	"os"
	"testing"

	eng "github.com/cartomix/djcore/gen/go/engine"
	"github.com/cartomix/djcore/internal/analyzer"
	"github.com/cartomix/djcore/internal/config"
	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/orchestration"
	"github.com/cartomix/djcore/internal/planner"
	"github.com/cartomix/djcore/internal/queue"
	"github.com/cartomix/djcore/internal/scanner"
	"github.com/cartomix/djcore/internal/store"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeStream[T any] struct {
	ctx  context.Context
	sent []*T
}

func (f *fakeStream[T]) Send(m *T) error { f.sent = append(f.sent, m); return nil }
func (f *fakeStream[T]) SetHeader(metadata.MD) error { return nil }
func (f *fakeStream[T]) SendHeader(metadata.MD) error { return nil }
func (f *fakeStream[T]) SetTrailer(metadata.MD) {}
func (f *fakeStream[T]) Context() context.Context { return f.ctx }
func (f *fakeStream[T]) SendMsg(m any) error { return nil }
func (f *fakeStream[T]) RecvMsg(m any) error { return nil }

func newTestServer(t *testing.T) *DJCoreServer {
	t.Helper()
	logger := testLogger()
	dataDir := t.TempDir()

	db, err := store.Open(dataDir, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for i := 0; i < 6; i++ {
		tr := &djmodel.Track{
			Filepath:    "/lib/" + string(rune('a'+i)) + ".wav",
			FileHash:    string(rune('a' + i)),
			Duration:    200,
			BPM:         120 + float64(i%5)*2,
			CamelotKey:  "8A",
			EnergyLevel: float64(i%10) / 10,
		}
		if err := db.Upsert(tr); err != nil {
			t.Fatalf("seed track %d: %v", i, err)
		}
	}

	a := analyzer.NewLocal(logger)
	q := queue.New(a, db, logger, 2)
	s := scanner.New(db, q, logger)
	p := planner.New(nil, db, logger)
	orch := orchestration.New(s, q, p, db, logger)

	return New(&config.Config{}, logger, s, orch)
}

func TestScanLibraryRejectsEmptyRoots(t *testing.T) {
	srv := newTestServer(t)
	stream := &fakeStream[eng.ScanProgress]{ctx: context.Background()}

	err := srv.ScanLibrary(&eng.ScanLibraryRequest{}, stream)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestPlanSetRejectsMissingVibe(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.PlanSet(context.Background(), &eng.PlanSetRequest{DurationMinutes: 10})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestRenderSetRejectsEmptySet(t *testing.T) {
	srv := newTestServer(t)
	stream := &fakeStream[eng.RenderProgress]{ctx: context.Background()}

	err := srv.RenderSet(&eng.RenderSetRequest{DjSet: &eng.DJSet{}}, stream)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestDJSetRoundTripsThroughProto(t *testing.T) {
	set := &djmodel.DJSet{
		ID:            "set-1",
		Name:          "warm-up",
		Vibe:          "deep house sunset",
		TotalDuration: 600,
		EnergyPattern: "building",
		Tracks: []djmodel.DJSetTrack{
			{Order: 0, Filepath: "/lib/a.wav", DeckID: djmodel.DeckA, StartTime: 0, EndTime: 200},
			{Order: 1, Filepath: "/lib/b.wav", DeckID: djmodel.DeckB, StartTime: 180, EndTime: 400},
		},
		Transitions: []djmodel.TransitionPlan{
			{FromOrder: 0, ToOrder: 1, StartTime: 180, Duration: 20, Type: djmodel.TransitionSmoothBlend, CrossfadeCurve: djmodel.CurveSCurve},
		},
	}

	pb := toProtoDJSet(set)
	back := fromProtoDJSet(pb)

	if back.ID != set.ID || back.Vibe != set.Vibe || len(back.Tracks) != len(set.Tracks) {
		t.Fatalf("round trip mismatch: got %+v", back)
	}
	if back.Tracks[1].Filepath != "/lib/b.wav" || back.Tracks[1].DeckID != djmodel.DeckB {
		t.Fatalf("track round trip mismatch: got %+v", back.Tracks[1])
	}
	if len(back.Transitions) != 1 || back.Transitions[0].Type != djmodel.TransitionSmoothBlend {
		t.Fatalf("transition round trip mismatch: got %+v", back.Transitions)
	}
}
