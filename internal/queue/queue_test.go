package queue

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cartomix/djcore/internal/djmodel"
)

type fakeAnalyzer struct {
	calls   int32
	delay   time.Duration
	failFor string
}

func (f *fakeAnalyzer) AnalyzeTrack(ctx context.Context, filepath string) (*djmodel.Track, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if filepath == f.failFor {
		return nil, errors.New("boom")
	}
	return &djmodel.Track{Filepath: filepath, BPM: 128}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestEnqueueCompletesAndCaches(t *testing.T) {
	a := &fakeAnalyzer{}
	q := New(a, nil, testLogger(), 1)
	q.Start(context.Background())
	defer q.Stop()

	taskID := q.Enqueue("/lib/a.wav", 5, "", djmodel.AnalysisFull)
	if taskID == CachedTaskID {
		t.Fatalf("expected a fresh task id")
	}

	waitFor(t, 2*time.Second, func() bool {
		s := q.Status(taskID)
		return s != nil && s.Status == djmodel.TaskCompleted
	})

	track, err := q.GetCachedAnalysis("/lib/a.wav")
	if err != nil {
		t.Fatalf("get cached: %v", err)
	}
	if track == nil || track.BPM != 128 {
		t.Fatalf("expected cached track with bpm 128, got %+v", track)
	}
}

func TestEnqueueDedupesAgainstCache(t *testing.T) {
	a := &fakeAnalyzer{}
	q := New(a, nil, testLogger(), 1)
	q.Start(context.Background())
	defer q.Stop()

	first := q.Enqueue("/lib/a.wav", 5, "", djmodel.AnalysisFull)
	waitFor(t, 2*time.Second, func() bool {
		s := q.Status(first)
		return s != nil && s.Status == djmodel.TaskCompleted
	})

	second := q.Enqueue("/lib/a.wav", 5, "", djmodel.AnalysisFull)
	if second != CachedTaskID {
		t.Fatalf("expected cached sentinel on second enqueue, got %s", second)
	}
	if atomic.LoadInt32(&a.calls) != 1 {
		t.Fatalf("expected analyzer called exactly once, got %d", a.calls)
	}
}

func TestEnqueueOrdersByPriority(t *testing.T) {
	a := &fakeAnalyzer{delay: 20 * time.Millisecond}
	q := New(a, nil, testLogger(), 1)

	// Enqueue before Start so both tasks are queued before any worker claims one.
	lowID := q.Enqueue("/lib/low.wav", 9, "", djmodel.AnalysisFull)
	highID := q.Enqueue("/lib/high.wav", 1, "", djmodel.AnalysisFull)

	q.Start(context.Background())
	defer q.Stop()

	waitFor(t, 2*time.Second, func() bool {
		s := q.Status(highID)
		return s != nil && s.Status == djmodel.TaskCompleted
	})

	low := q.Status(lowID)
	high := q.Status(highID)
	if !high.CompletedAt.Before(low.CompletedAt) && high.CompletedAt != low.CompletedAt {
		// With a single worker and a 20ms delay, high priority must finish
		// at or before low priority since it was claimed first.
		t.Fatalf("expected high priority task to complete first: high=%v low=%v", high.CompletedAt, low.CompletedAt)
	}
}

func TestAnalysisFailureTransitionsToFailed(t *testing.T) {
	a := &fakeAnalyzer{failFor: "/lib/bad.wav"}
	q := New(a, nil, testLogger(), 1)
	q.Start(context.Background())
	defer q.Stop()

	taskID := q.Enqueue("/lib/bad.wav", 5, "", djmodel.AnalysisFull)
	waitFor(t, 2*time.Second, func() bool {
		s := q.Status(taskID)
		return s != nil && s.Status == djmodel.TaskFailed
	})

	s := q.Status(taskID)
	if s.Error == "" {
		t.Fatalf("expected error message recorded on failed task")
	}
}

func TestStopIsIdempotentAndStart(t *testing.T) {
	a := &fakeAnalyzer{}
	q := New(a, nil, testLogger(), 1)
	q.Start(context.Background())
	q.Start(context.Background()) // second Start must be a no-op, not a second pool
	q.Stop()
	q.Stop() // second Stop must be a no-op
}
