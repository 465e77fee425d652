package store

import (
	"testing"

	"github.com/cartomix/djcore/internal/djmodel"
)

func seedTracks(t *testing.T, db *DB) {
	t.Helper()
	tracks := []*djmodel.Track{
		{Filepath: "/lib/a.wav", FileHash: "a", BPM: 120, EnergyLevel: 0.3, Genre: "house", CamelotKey: "8A"},
		{Filepath: "/lib/b.wav", FileHash: "b", BPM: 128, EnergyLevel: 0.7, Genre: "techno", CamelotKey: "9A"},
		{Filepath: "/lib/c.wav", FileHash: "c", BPM: 140, EnergyLevel: 0.9, Genre: "techno", CamelotKey: "8B"},
	}
	for _, tr := range tracks {
		if err := db.Upsert(tr); err != nil {
			t.Fatalf("seed upsert %s: %v", tr.Filepath, err)
		}
	}
}

func TestFindByBPMRange(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	seedTracks(t, db)

	gte, lte := 125.0, 135.0
	found, err := db.FindBy(Criteria{BPMGte: &gte, BPMLte: &lte}, 0)
	if err != nil {
		t.Fatalf("find by: %v", err)
	}
	if len(found) != 1 || found[0].Filepath != "/lib/b.wav" {
		t.Fatalf("expected only b.wav in [125,135], got %+v", found)
	}
}

func TestFindByGenre(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	seedTracks(t, db)

	genre := "techno"
	found, err := db.FindBy(Criteria{Genre: &genre}, 0)
	if err != nil {
		t.Fatalf("find by: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 techno tracks, got %d", len(found))
	}
}

func TestAllOrderedByFilepath(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, testLogger())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	seedTracks(t, db)

	all, err := db.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Filepath > all[i].Filepath {
			t.Fatalf("tracks not ordered by filepath: %s after %s", all[i].Filepath, all[i-1].Filepath)
		}
	}
}
