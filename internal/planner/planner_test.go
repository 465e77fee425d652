package planner

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/oracle"
	"github.com/cartomix/djcore/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func seedLibrary(t *testing.T, db *store.DB, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		tr := &djmodel.Track{
			Filepath:    "/lib/" + string(rune('a'+i)) + ".wav",
			FileHash:    string(rune('a' + i)),
			Duration:    200,
			BPM:         120 + float64(i%10)*2,
			CamelotKey:  "8A",
			EnergyLevel: float64(i%10) / 10,
			Genre:       "house",
		}
		if err := db.Upsert(tr); err != nil {
			t.Fatalf("seed track %d: %v", i, err)
		}
	}
}

func TestPlanProducesValidSet(t *testing.T) {
	dir := t.TempDir()
	db, err := store.Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()
	seedLibrary(t, db, 8)

	p := New(oracle.NewHeuristicFallback(), db, testLogger())
	req := Request{Vibe: "building house set", DurationMinutes: 20, EnergyPattern: djmodel.PatternBuilding}

	set, err := p.Plan(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(set.Tracks) < minTrackCount {
		t.Fatalf("expected at least %d tracks, got %d", minTrackCount, len(set.Tracks))
	}
	if len(set.Transitions) != len(set.Tracks)-1 {
		t.Fatalf("expected len(transitions) == len(tracks)-1, got %d tracks %d transitions", len(set.Tracks), len(set.Transitions))
	}
	for i, tr := range set.Tracks {
		wantDeck := djmodel.DeckA
		if i%2 == 1 {
			wantDeck = djmodel.DeckB
		}
		if tr.DeckID != wantDeck {
			t.Errorf("track %d: expected deck %s, got %s", i, wantDeck, tr.DeckID)
		}
	}
}

func TestPlanInsufficientLibraryFails(t *testing.T) {
	dir := t.TempDir()
	db, err := store.Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()
	seedLibrary(t, db, 1)

	p := New(oracle.NewHeuristicFallback(), db, testLogger())
	req := Request{Vibe: "anything", DurationMinutes: 20, EnergyPattern: djmodel.PatternBuilding}

	if _, err := p.Plan(context.Background(), req, nil); err == nil {
		t.Fatalf("expected InsufficientLibrary error with only 1 track in library")
	}
}

func TestPlanReportsProgressThroughAllStates(t *testing.T) {
	dir := t.TempDir()
	db, err := store.Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()
	seedLibrary(t, db, 6)

	p := New(oracle.NewHeuristicFallback(), db, testLogger())
	req := Request{Vibe: "cooling down", DurationMinutes: 16, EnergyPattern: djmodel.PatternCooling}

	var seen []State
	_, err = p.Plan(context.Background(), req, func(s State) { seen = append(seen, s) })
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	want := []State{StateVibeAnalyzing, StateCandidatesSelected, StateEvaluated, StateOrdered, StateTransitionsPlanned, StateTimed, StateDone}
	if len(seen) != len(want) {
		t.Fatalf("expected %d state transitions, got %d: %+v", len(want), len(seen), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("state %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}
