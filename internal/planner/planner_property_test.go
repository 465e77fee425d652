package planner

import (
	"context"
	"testing"

	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/oracle"
	"github.com/cartomix/djcore/internal/store"
)

// TestPlanNoDuplicateTracks verifies the planner never places the same
// filepath twice in one DJSet, across a range of library sizes.
func TestPlanNoDuplicateTracks(t *testing.T) {
	for _, n := range []int{2, 4, 8, 16} {
		dir := t.TempDir()
		db, err := store.Open(dir, testLogger())
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		seedLibrary(t, db, n)

		p := New(oracle.NewHeuristicFallback(), db, testLogger())
		set, err := p.Plan(context.Background(), Request{Vibe: "set", DurationMinutes: float64(n) * 4, EnergyPattern: djmodel.PatternBuilding}, nil)
		db.Close()
		if err != nil {
			t.Fatalf("plan(%d tracks): %v", n, err)
		}

		seen := make(map[string]bool)
		for _, tr := range set.Tracks {
			if seen[tr.Filepath] {
				t.Errorf("plan(%d tracks): duplicate filepath %s", n, tr.Filepath)
			}
			seen[tr.Filepath] = true
		}
	}
}

// TestPlanDeterministic verifies that the same library and request produce
// the same ordering every time, since the heuristic oracle fallback and the
// store query are both deterministic.
func TestPlanDeterministic(t *testing.T) {
	dir := t.TempDir()
	db, err := store.Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()
	seedLibrary(t, db, 10)

	p := New(oracle.NewHeuristicFallback(), db, testLogger())
	req := Request{Vibe: "deterministic set", DurationMinutes: 24, EnergyPattern: djmodel.PatternWave}

	first, err := p.Plan(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("first plan: %v", err)
	}
	second, err := p.Plan(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("second plan: %v", err)
	}

	if len(first.Tracks) != len(second.Tracks) {
		t.Fatalf("determinism failed: different lengths %d vs %d", len(first.Tracks), len(second.Tracks))
	}
	for i := range first.Tracks {
		if first.Tracks[i].Filepath != second.Tracks[i].Filepath {
			t.Errorf("determinism failed at index %d: %s != %s", i, first.Tracks[i].Filepath, second.Tracks[i].Filepath)
		}
	}
}

// TestBuildingPatternIsMonotonicallyIncreasing verifies spec's energy-arc
// invariant for the building pattern.
func TestBuildingPatternIsMonotonicallyIncreasing(t *testing.T) {
	dir := t.TempDir()
	db, err := store.Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()
	seedLibrary(t, db, 10)

	p := New(oracle.NewHeuristicFallback(), db, testLogger())
	set, err := p.Plan(context.Background(), Request{Vibe: "building", DurationMinutes: 24, EnergyPattern: djmodel.PatternBuilding}, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	for i := 1; i < len(set.EnergyGraph); i++ {
		if set.EnergyGraph[i] < set.EnergyGraph[i-1] {
			t.Errorf("building pattern not monotonic at index %d: %v < %v", i, set.EnergyGraph[i], set.EnergyGraph[i-1])
		}
	}
}

// TestTransitionsStayWithinDurationBounds verifies the validate/repair step
// clamps every transition duration into [4,60]s, spec §4.4 step 5.
func TestTransitionsStayWithinDurationBounds(t *testing.T) {
	dir := t.TempDir()
	db, err := store.Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()
	seedLibrary(t, db, 12)

	p := New(oracle.NewHeuristicFallback(), db, testLogger())
	set, err := p.Plan(context.Background(), Request{Vibe: "set", DurationMinutes: 30, EnergyPattern: djmodel.PatternPeakTime}, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	for i, tr := range set.Transitions {
		if tr.Duration < minTransitionDuration || tr.Duration > maxTransitionDuration {
			t.Errorf("transition %d duration out of bounds: %v", i, tr.Duration)
		}
		if len(tr.Effects) > maxEffectsPerPlan {
			t.Errorf("transition %d has more than %d effects: %d", i, maxEffectsPerPlan, len(tr.Effects))
		}
	}
}
