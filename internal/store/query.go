package store

import (
	"fmt"
	"strings"

	"github.com/cartomix/djcore/internal/djmodel"
)

// Criteria is a MongoDB-style predicate sublanguage over track columns, per
// spec §4.3: range on bpm/energy, equality on genre/key via $gte/$lte/$eq.
// A nil field means "not set".
type Criteria struct {
	BPMGte    *float64
	BPMLte    *float64
	EnergyGte *float64
	EnergyLte *float64
	Genre     *string
	CamelotEq *string
}

var trackColumn = map[string]string{
	"bpm":    "bpm",
	"energy": "energy_level",
	"genre":  "genre",
	"key":    "camelot_key",
}

// FindBy queries tracks matching criteria, returning at most limit rows
// ordered by filepath for determinism.
func (d *DB) FindBy(c Criteria, limit int) ([]*djmodel.Track, error) {
	var clauses []string
	var args []any

	if c.BPMGte != nil {
		clauses = append(clauses, fmt.Sprintf("%s >= ?", trackColumn["bpm"]))
		args = append(args, *c.BPMGte)
	}
	if c.BPMLte != nil {
		clauses = append(clauses, fmt.Sprintf("%s <= ?", trackColumn["bpm"]))
		args = append(args, *c.BPMLte)
	}
	if c.EnergyGte != nil {
		clauses = append(clauses, fmt.Sprintf("%s >= ?", trackColumn["energy"]))
		args = append(args, *c.EnergyGte)
	}
	if c.EnergyLte != nil {
		clauses = append(clauses, fmt.Sprintf("%s <= ?", trackColumn["energy"]))
		args = append(args, *c.EnergyLte)
	}
	if c.Genre != nil {
		clauses = append(clauses, fmt.Sprintf("%s = ?", trackColumn["genre"]))
		args = append(args, *c.Genre)
	}
	if c.CamelotEq != nil {
		clauses = append(clauses, fmt.Sprintf("%s = ?", trackColumn["key"]))
		args = append(args, *c.CamelotEq)
	}

	query := trackSelectColumns + " FROM tracks"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY filepath"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []*djmodel.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// All returns every stored track, used by Orchestration's library-set
// determination (spec §4.6 step 1).
func (d *DB) All() ([]*djmodel.Track, error) {
	return d.FindBy(Criteria{}, 0)
}
