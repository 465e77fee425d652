package store

import (
	"testing"

	"github.com/cartomix/djcore/internal/djmodel"
)

func TestClaimTaskOrdersByPriorityThenOrdinal(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	low := &djmodel.AnalysisTask{TaskID: "t-low", Filepath: "/lib/low.wav", Priority: 5, Kind: djmodel.AnalysisFull}
	high := &djmodel.AnalysisTask{TaskID: "t-high", Filepath: "/lib/high.wav", Priority: 1, Kind: djmodel.AnalysisFull}

	if err := db.CreateTask(low, 1); err != nil {
		t.Fatalf("create low: %v", err)
	}
	if err := db.CreateTask(high, 2); err != nil {
		t.Fatalf("create high: %v", err)
	}

	claimed, err := db.ClaimTask()
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil || claimed.TaskID != "t-high" {
		t.Fatalf("expected to claim t-high (lower priority number) first, got %+v", claimed)
	}
	if claimed.Status != djmodel.TaskProcessing {
		t.Fatalf("expected PROCESSING, got %s", claimed.Status)
	}

	second, err := db.ClaimTask()
	if err != nil {
		t.Fatalf("claim second: %v", err)
	}
	if second == nil || second.TaskID != "t-low" {
		t.Fatalf("expected to claim t-low second, got %+v", second)
	}

	third, err := db.ClaimTask()
	if err != nil {
		t.Fatalf("claim third: %v", err)
	}
	if third != nil {
		t.Fatalf("expected no pending tasks left, got %+v", third)
	}
}

func TestCompleteAndFailTask(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ok := &djmodel.AnalysisTask{TaskID: "ok", Filepath: "/lib/ok.wav", Priority: 5, Kind: djmodel.AnalysisFull}
	bad := &djmodel.AnalysisTask{TaskID: "bad", Filepath: "/lib/bad.wav", Priority: 5, Kind: djmodel.AnalysisFull}
	db.CreateTask(ok, 1)
	db.CreateTask(bad, 2)

	if err := db.CompleteTask("ok"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := db.FailTask("bad", "decode error"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	pending, err := db.PendingCount()
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	if pending != 0 {
		t.Fatalf("expected 0 pending, got %d", pending)
	}
}

func TestResetStalledTasks(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	task := &djmodel.AnalysisTask{TaskID: "stuck", Filepath: "/lib/stuck.wav", Priority: 5, Kind: djmodel.AnalysisFull}
	db.CreateTask(task, 1)
	if _, err := db.ClaimTask(); err != nil {
		t.Fatalf("claim: %v", err)
	}

	n, err := db.ResetStalledTasks()
	if err != nil {
		t.Fatalf("reset stalled: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reset, got %d", n)
	}

	pending, err := db.PendingCount()
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	if pending != 1 {
		t.Fatalf("expected task back to pending, got %d pending", pending)
	}
}
