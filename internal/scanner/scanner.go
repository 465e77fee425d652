// Package scanner implements Orchestration step 1 of spec §4.6: walk a
// library root, fingerprint every supported audio file, and enqueue
// analysis only for files whose fingerprint or modification time has
// drifted since the last stored Track — the library-set determination
// that feeds internal/queue's Analysis Queue.
//
// Grounded on the teacher's own internal/scanner/scanner.go (directory
// walk, progress-channel shape, content-hash caching), generalized from
// the teacher's storage.Track/Job model to internal/store's djmodel.Track
// and internal/analyzer's NeedsAnalysis/FingerprintHash.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cartomix/djcore/internal/analyzer"
	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/queue"
	"github.com/cartomix/djcore/internal/store"
)

// SupportedFormats lists the audio container formats the decode pipeline
// (internal/audio, via ffmpeg) accepts.
var SupportedFormats = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".aiff": true,
	".aif":  true,
	".m4a":  true,
	".ogg":  true,
	".opus": true,
}

// Scanner recursively scans directories for audio files and enqueues
// analysis for any that are new or stale.
type Scanner struct {
	store  *store.DB
	queue  *queue.Queue
	logger *slog.Logger
}

// New builds a Scanner.
func New(db *store.DB, q *queue.Queue, logger *slog.Logger) *Scanner {
	return &Scanner{store: db, queue: q, logger: logger}
}

// Progress reports scan progress as files are walked.
type Progress struct {
	Path      string
	Status    string // queued, skipped, error
	Error     string
	Processed int64
	Total     int64
	ElapsedMs int64
}

// Scan walks roots, enqueuing analysis for every file NeedsAnalysis
// reports true for, and skipping everything else. Progress is streamed on
// the progress channel, which this method closes when the walk finishes.
func (s *Scanner) Scan(ctx context.Context, roots []string, priority int, progress chan<- Progress) error {
	defer close(progress)
	start := time.Now()

	var total int64
	for _, root := range roots {
		count, err := s.countFiles(root)
		if err != nil {
			s.logger.Warn("failed to count files in root", "root", root, "error", err)
			continue
		}
		total += count
	}

	var processed int64
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil // Skip entries we can't stat, keep walking.
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if d.IsDir() {
				return nil
			}
			if !SupportedFormats[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			status, errMsg := s.scanOne(path, priority)
			processed++

			select {
			case progress <- Progress{
				Path:      path,
				Status:    status,
				Error:     errMsg,
				Processed: processed,
				Total:     total,
				ElapsedMs: time.Since(start).Milliseconds(),
			}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("scan error", "root", root, "error", err)
		}
	}
	return nil
}

// scanOne fingerprints path, compares it against the stored Track (if
// any), and enqueues analysis when NeedsAnalysis says the track is new or
// stale, spec §4.1's needs_analysis rule.
func (s *Scanner) scanOne(path string, priority int) (status, errMsg string) {
	info, err := os.Stat(path)
	if err != nil {
		return "error", err.Error()
	}

	hash, err := analyzer.FingerprintHash(path)
	if err != nil {
		return "error", err.Error()
	}

	stored, _ := s.store.Get(path)
	if !analyzer.NeedsAnalysis(stored, hash, info.ModTime()) {
		return "skipped", ""
	}

	s.queue.Enqueue(path, priority, "", djmodel.AnalysisFull)
	return "queued", ""
}

func (s *Scanner) countFiles(root string) (int64, error) {
	var count int64
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if SupportedFormats[strings.ToLower(filepath.Ext(path))] {
			count++
		}
		return nil
	})
	return count, err
}
