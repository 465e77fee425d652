package scanner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cartomix/djcore/internal/analyzer"
	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/queue"
	"github.com/cartomix/djcore/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type stubAnalyzer struct{ calls int }

func (s *stubAnalyzer) AnalyzeTrack(ctx context.Context, filepath string) (*djmodel.Track, error) {
	s.calls++
	return &djmodel.Track{Filepath: filepath, FileHash: "h", Duration: 60}, nil
}

func openTestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func writeDummyFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not real audio"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestScanEnqueuesNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeDummyFile(t, dir, "a.mp3")
	writeDummyFile(t, dir, "b.wav")
	writeDummyFile(t, dir, "notes.txt") // unsupported extension, must be skipped

	db := openTestStore(t)
	an := &stubAnalyzer{}
	q := queue.New(an, db, testLogger(), 1)
	s := New(db, q, testLogger())

	progress := make(chan Progress, 16)
	if err := s.Scan(context.Background(), []string{dir}, 5, progress); err != nil {
		t.Fatalf("scan: %v", err)
	}

	var queuedCount, skippedCount int
	for p := range progress {
		switch p.Status {
		case "queued":
			queuedCount++
		case "skipped":
			skippedCount++
		case "error":
			t.Errorf("unexpected scan error for %s: %s", p.Path, p.Error)
		}
	}
	if queuedCount != 2 {
		t.Fatalf("expected 2 supported files queued for analysis, got %d", queuedCount)
	}
	if skippedCount != 0 {
		t.Fatalf("expected no skips on first scan, got %d", skippedCount)
	}
}

func TestScanSkipsAlreadyAnalyzedTrack(t *testing.T) {
	dir := t.TempDir()
	path := writeDummyFile(t, dir, "track.mp3")

	db := openTestStore(t)
	an := &stubAnalyzer{}
	q := queue.New(an, db, testLogger(), 1)
	s := New(db, q, testLogger())

	hash, err := analyzer.FingerprintHash(path)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if err := db.Upsert(&djmodel.Track{
		Filepath:        path,
		FileHash:        hash,
		LastModified:    info.ModTime(),
		AnalysisVersion: analyzer.CurrentAnalysisVersion,
	}); err != nil {
		t.Fatalf("seed track: %v", err)
	}

	progress := make(chan Progress, 4)
	if err := s.Scan(context.Background(), []string{dir}, 5, progress); err != nil {
		t.Fatalf("scan: %v", err)
	}

	for p := range progress {
		if p.Status != "skipped" {
			t.Errorf("expected already-analyzed track to be skipped, got status %q", p.Status)
		}
	}
}

func TestScanRespectsCancellation(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writeDummyFile(t, dir, filepath.Base(dir)+string(rune('a'+i))+".mp3")
	}

	db := openTestStore(t)
	q := queue.New(&stubAnalyzer{}, db, testLogger(), 1)
	s := New(db, q, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()

	progress := make(chan Progress, 16)
	_ = s.Scan(ctx, []string{dir}, 5, progress)
	for range progress {
		// Drain; the point of this test is that Scan returns rather than
		// hanging when the context is already expired.
	}
}
