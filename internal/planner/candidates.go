package planner

import (
	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/store"
)

// bpmExpansion widens the vibe's bpm_range by ±10% before querying the
// store, spec §4.4 step 2.
const bpmExpansion = 0.10

// selectCandidates queries the store for tracks matching the vibe, relaxing
// constraints in spec §4.4 step 2's order (drop genre, widen bpm, drop bpm)
// until targetCount candidates are found or every constraint is dropped.
func selectCandidates(db *store.DB, vibe djmodel.VibeAnalysis, targetCount int) ([]*djmodel.Track, error) {
	bpmMin := vibe.BPMRange.Min * (1 - bpmExpansion)
	bpmMax := vibe.BPMRange.Max * (1 + bpmExpansion)

	var genre *string
	if len(vibe.GenrePreferences) > 0 {
		genre = &vibe.GenrePreferences[0]
	}

	// Attempt 1: bpm range + genre.
	found, err := queryWithBPM(db, &bpmMin, &bpmMax, genre)
	if err != nil {
		return nil, err
	}
	if len(found) >= targetCount {
		return found, nil
	}

	// Attempt 2: drop genre.
	found, err = queryWithBPM(db, &bpmMin, &bpmMax, nil)
	if err != nil {
		return nil, err
	}
	if len(found) >= targetCount {
		return found, nil
	}

	// Attempt 3: widen bpm further (another ±10%, dropped genre).
	widerMin := bpmMin * (1 - bpmExpansion)
	widerMax := bpmMax * (1 + bpmExpansion)
	found, err = queryWithBPM(db, &widerMin, &widerMax, nil)
	if err != nil {
		return nil, err
	}
	if len(found) >= targetCount {
		return found, nil
	}

	// Attempt 4: drop bpm entirely, return the whole library.
	return db.All()
}

func queryWithBPM(db *store.DB, bpmMin, bpmMax *float64, genre *string) ([]*djmodel.Track, error) {
	return db.FindBy(store.Criteria{BPMGte: bpmMin, BPMLte: bpmMax, Genre: genre}, 0)
}
