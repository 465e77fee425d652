// Package queue implements the Analysis Queue of spec §4.2: a priority
// min-heap of AnalysisTasks drained by a fixed worker pool, with an
// in-memory result cache and idempotent start/stop. Grounded on the
// teacher's internal/storage/jobs.go claim/complete/fail lifecycle
// (internal/store/tasks.go already adapts that transactional pattern for
// persistence) and on original_source/.../utils/analysis_queue.py's
// worker-pool-plus-progress-map shape, reworked into Go with
// container/heap — no library in the retrieval pack offers a priority
// queue, so the standard library fills that one mechanical gap.
package queue

import (
	"container/heap"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/store"
)

// CachedTaskID is returned by Enqueue when a successful result is already
// cached for the filepath and no new analysis is scheduled.
const CachedTaskID = "cached"

// pollTimeout bounds how long a worker blocks waiting for work before
// re-checking the running flag, per spec §4.2's cooperative-shutdown model.
const pollTimeout = 250 * time.Millisecond

// stopGrace is how long Stop waits for in-flight workers to exit.
const stopGrace = 10 * time.Second

type heapItem struct {
	task    *djmodel.AnalysisTask
	ordinal int64
}

type taskHeap []*heapItem

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority < h[j].task.Priority
	}
	return h[i].ordinal < h[j].ordinal
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)   { *h = append(*h, x.(*heapItem)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue schedules background track analyses with bounded parallelism.
type Queue struct {
	mu       sync.Mutex
	heap     taskHeap
	tasks    map[string]*djmodel.AnalysisTask
	cache    map[string]*djmodel.Track
	notify   chan struct{}
	ordinal  int64

	analyzer Analyzer
	store    *store.DB
	logger   *slog.Logger
	workers  int

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Analyzer is the subset of analyzer.Analyzer the queue depends on.
type Analyzer interface {
	AnalyzeTrack(ctx context.Context, filepath string) (*djmodel.Track, error)
}

// New builds a Queue with workers background goroutines (default 2 per
// spec §4.2 if workers <= 0).
func New(a Analyzer, db *store.DB, logger *slog.Logger, workers int) *Queue {
	if workers <= 0 {
		workers = 2
	}
	return &Queue{
		tasks:    make(map[string]*djmodel.AnalysisTask),
		cache:    make(map[string]*djmodel.Track),
		notify:   make(chan struct{}, 1),
		analyzer: a,
		store:    db,
		logger:   logger,
		workers:  workers,
	}
}

// Enqueue schedules filepath for analysis, or returns CachedTaskID if a
// successful result is already cached.
func (q *Queue) Enqueue(filepath string, priority int, deckHint string, kind djmodel.AnalysisKind) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.cache[filepath]; ok {
		return CachedTaskID
	}

	taskID := newTaskID()
	task := &djmodel.AnalysisTask{
		TaskID:    taskID,
		Filepath:  filepath,
		Priority:  priority,
		DeckHint:  deckHint,
		Kind:      kind,
		Status:    djmodel.TaskPending,
		CreatedAt: time.Now(),
	}
	q.ordinal++
	task.SetOrdinal(q.ordinal)
	q.tasks[taskID] = task
	heap.Push(&q.heap, &heapItem{task: task, ordinal: q.ordinal})

	if q.store != nil {
		if err := q.store.CreateTask(task, q.ordinal); err != nil {
			q.logger.Error("persist analysis task", "error", err, "filepath", filepath)
		}
	}

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return taskID
}

// Status returns a snapshot of the task's current state, or nil if unknown.
func (q *Queue) Status(taskID string) *djmodel.AnalysisTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[taskID]
	if !ok {
		return nil
	}
	snapshot := *t
	return &snapshot
}

// Outstanding returns the number of tasks that have not yet reached a
// terminal state (pending or processing), so a caller can wait for the
// queue to drain after a bulk enqueue without tracking individual task
// IDs, per spec §4.6's "await completion" step.
func (q *Queue) Outstanding() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, t := range q.tasks {
		if t.Status == djmodel.TaskPending || t.Status == djmodel.TaskProcessing {
			n++
		}
	}
	return n
}

// GetCachedAnalysis returns a cached Track for filepath, falling back to
// the store, per spec §4.2's "cache and store lookup" contract.
func (q *Queue) GetCachedAnalysis(filepath string) (*djmodel.Track, error) {
	q.mu.Lock()
	if t, ok := q.cache[filepath]; ok {
		q.mu.Unlock()
		return t, nil
	}
	q.mu.Unlock()

	if q.store == nil {
		return nil, nil
	}
	t, err := q.store.Get(filepath)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	q.mu.Lock()
	q.cache[filepath] = t
	q.mu.Unlock()
	return t, nil
}

// Start launches the worker pool. Idempotent: a second call is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.stopCh = make(chan struct{})
	q.mu.Unlock()

	if q.store != nil {
		if n, err := q.store.ResetStalledTasks(); err != nil {
			q.logger.Error("reset stalled analysis tasks", "error", err)
		} else if n > 0 {
			q.logger.Warn("reset stalled analysis tasks", "count", n)
		}
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Stop signals workers to exit and waits up to stopGrace for them.
// Idempotent: a second call is a no-op.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopGrace):
		q.logger.Warn("analysis queue workers did not exit within grace period")
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.stopCh:
			return
		default:
		}

		task := q.claim()
		if task == nil {
			select {
			case <-q.stopCh:
				return
			case <-q.notify:
				continue
			case <-time.After(pollTimeout):
				continue
			}
		}

		q.run(ctx, task)
	}
}

func (q *Queue) claim() *djmodel.AnalysisTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return nil
	}
	item := heap.Pop(&q.heap).(*heapItem)
	item.task.Status = djmodel.TaskProcessing
	item.task.StartedAt = time.Now()
	return item.task
}

func (q *Queue) run(ctx context.Context, task *djmodel.AnalysisTask) {
	result, err := q.analyzer.AnalyzeTrack(ctx, task.Filepath)

	q.mu.Lock()
	defer q.mu.Unlock()

	if err != nil {
		task.Status = djmodel.TaskFailed
		task.Error = err.Error()
		task.CompletedAt = time.Now()
		q.logger.Error("analysis task failed", "task_id", task.TaskID, "filepath", task.Filepath, "error", err)
		if q.store != nil {
			if serr := q.store.FailTask(task.TaskID, err.Error()); serr != nil {
				q.logger.Error("persist failed task", "error", serr)
			}
		}
		return
	}

	task.Status = djmodel.TaskCompleted
	task.CompletedAt = time.Now()
	task.Result = result
	q.cache[task.Filepath] = result

	if q.store != nil {
		if serr := q.store.Upsert(result); serr != nil {
			q.logger.Error("persist analyzed track", "error", serr)
		}
		if serr := q.store.CompleteTask(task.TaskID); serr != nil {
			q.logger.Error("persist completed task", "error", serr)
		}
	}
}
