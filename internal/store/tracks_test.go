package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cartomix/djcore/internal/djmodel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestTrackUpsertRoundTrip(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	track := &djmodel.Track{
		Filepath:   filepath.Join(dir, "demo.wav"),
		FileHash:   "abc123",
		Title:      "Demo Track",
		BPM:        128.4,
		BeatTimes:  []float64{0.1, 0.6, 1.1},
		Key:        "C",
		KeyScale:   djmodel.KeyScaleMajor,
		CamelotKey: "8B",
		EnergyLevel: 0.72,
		EnergyProfile: djmodel.EnergyProfileHigh,
		Sections: []djmodel.StructureSegment{
			{Start: 0, End: 16, Type: djmodel.SegmentIntro, Energy: 0.3},
		},
		CuePoints: []djmodel.HotCue{
			{Name: "Mix In", Time: 8, Color: "#00FF00", Type: djmodel.CueTypeCue, Index: 0},
		},
		AnalysisVersion: 1,
	}

	if err := db.Upsert(track); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	loaded, err := db.Get(track.Filepath)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.CamelotKey != "8B" {
		t.Fatalf("expected camelot 8B, got %s", loaded.CamelotKey)
	}
	if len(loaded.BeatTimes) != 3 {
		t.Fatalf("expected 3 beat times, got %d", len(loaded.BeatTimes))
	}
	if len(loaded.CuePoints) != 1 || loaded.CuePoints[0].Name != "Mix In" {
		t.Fatalf("expected 1 cue named Mix In, got %+v", loaded.CuePoints)
	}

	// Upsert again with a changed field to exercise ON CONFLICT.
	track.BPM = 130.0
	if err := db.Upsert(track); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	loaded, err = db.Get(track.Filepath)
	if err != nil {
		t.Fatalf("get after re-upsert: %v", err)
	}
	if loaded.BPM != 130.0 {
		t.Fatalf("expected updated bpm 130.0, got %v", loaded.BPM)
	}
}

func TestTrackGetNotFound(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if _, err := db.Get("/no/such/file.wav"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMigrationsApplied(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("schema migrations missing: %v", err)
	}
	if count == 0 {
		t.Fatalf("expected at least one migration row")
	}
}
