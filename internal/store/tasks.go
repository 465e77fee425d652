package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cartomix/djcore/internal/djmodel"
)

// CreateTask persists a new AnalysisTask in PENDING state. ordinal is the
// monotonic enqueue counter the Analysis Queue uses as the FIFO tiebreaker
// within equal priorities (spec §4.2 scheduling model).
func (d *DB) CreateTask(t *djmodel.AnalysisTask, ordinal int64) error {
	_, err := d.db.Exec(`
		INSERT INTO analysis_tasks (task_id, filepath, priority, deck_hint, kind, status, ordinal, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, t.TaskID, t.Filepath, t.Priority, t.DeckHint, string(t.Kind), string(djmodel.TaskPending), ordinal)
	return err
}

// ClaimTask atomically claims the lowest-priority-number, lowest-ordinal
// pending task and transitions it to PROCESSING — spec §4.2's "lower=higher
// priority" ordering, implemented with the teacher's jobs.go transactional
// claim pattern generalized from a single ORDER BY to (priority, ordinal).
func (d *DB) ClaimTask() (*djmodel.AnalysisTask, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT task_id, filepath, priority, deck_hint, kind, created_at
		FROM analysis_tasks
		WHERE status = ?
		ORDER BY priority ASC, ordinal ASC
		LIMIT 1
	`, string(djmodel.TaskPending))

	var task djmodel.AnalysisTask
	var deckHint sql.NullString
	var kind string
	var createdAt time.Time

	if err := row.Scan(&task.TaskID, &task.Filepath, &task.Priority, &deckHint, &kind, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if deckHint.Valid {
		task.DeckHint = deckHint.String
	}
	task.Kind = djmodel.AnalysisKind(kind)
	task.CreatedAt = createdAt

	now := time.Now()
	if _, err := tx.Exec(`
		UPDATE analysis_tasks SET status = ?, started_at = ? WHERE task_id = ?
	`, string(djmodel.TaskProcessing), now, task.TaskID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	task.Status = djmodel.TaskProcessing
	task.StartedAt = now
	return &task, nil
}

// CompleteTask marks a task COMPLETED.
func (d *DB) CompleteTask(taskID string) error {
	_, err := d.db.Exec(`
		UPDATE analysis_tasks SET status = ?, completed_at = ? WHERE task_id = ?
	`, string(djmodel.TaskCompleted), time.Now(), taskID)
	return err
}

// FailTask marks a task FAILED with errMsg.
func (d *DB) FailTask(taskID, errMsg string) error {
	_, err := d.db.Exec(`
		UPDATE analysis_tasks SET status = ?, error = ?, completed_at = ? WHERE task_id = ?
	`, string(djmodel.TaskFailed), errMsg, time.Now(), taskID)
	return err
}

// ResetStalledTasks resets any task still PROCESSING back to PENDING,
// recovering from a worker crash. Grounded on
// original_source/.../utils/analysis_queue.py's `_load_pending_jobs`, which
// resets 'processing' rows to 'pending' on startup — spec.md itself is
// silent on worker-crash recovery, so the original source resolves that
// silence.
func (d *DB) ResetStalledTasks() (int64, error) {
	result, err := d.db.Exec(`
		UPDATE analysis_tasks SET status = ? WHERE status = ?
	`, string(djmodel.TaskPending), string(djmodel.TaskProcessing))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PendingCount returns the number of PENDING tasks.
func (d *DB) PendingCount() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM analysis_tasks WHERE status = ?`, string(djmodel.TaskPending)).Scan(&n)
	return n, err
}
