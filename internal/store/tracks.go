package store

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/cartomix/djcore/internal/djmodel"
)

// ErrNotFound is returned by Get when no record matches filepath.
var ErrNotFound = errors.New("track not found")

// Upsert implements spec §4.3's atomic-per-record upsert, single-writer
// discipline enforced by sqlite's own row-level locking under WAL.
// Grounded on the teacher's tracks.go UpsertTrack ON CONFLICT pattern.
func (d *DB) Upsert(t *djmodel.Track) error {
	beatTimes, err := json.Marshal(t.BeatTimes)
	if err != nil {
		return err
	}
	sections, err := json.Marshal(t.Sections)
	if err != nil {
		return err
	}
	cues, err := json.Marshal(t.CuePoints)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`
		INSERT INTO tracks (
			filepath, file_hash, last_modified, title, artist, album, genre, year, duration,
			bpm, beat_times_json, key_value, key_scale, camelot_key, key_confidence,
			energy_level, energy_profile, sections_json, cue_points_json, analysis_version, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
		ON CONFLICT(filepath) DO UPDATE SET
			file_hash = excluded.file_hash,
			last_modified = excluded.last_modified,
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			genre = excluded.genre,
			year = excluded.year,
			duration = excluded.duration,
			bpm = excluded.bpm,
			beat_times_json = excluded.beat_times_json,
			key_value = excluded.key_value,
			key_scale = excluded.key_scale,
			camelot_key = excluded.camelot_key,
			key_confidence = excluded.key_confidence,
			energy_level = excluded.energy_level,
			energy_profile = excluded.energy_profile,
			sections_json = excluded.sections_json,
			cue_points_json = excluded.cue_points_json,
			analysis_version = excluded.analysis_version,
			updated_at = CURRENT_TIMESTAMP
	`,
		t.Filepath, t.FileHash, t.LastModified, t.Title, t.Artist, t.Album, t.Genre, t.Year, t.Duration,
		t.BPM, string(beatTimes), t.Key, string(t.KeyScale), t.CamelotKey, t.KeyConfidence,
		t.EnergyLevel, string(t.EnergyProfile), string(sections), string(cues), t.AnalysisVersion,
	)
	return err
}

// Get returns the track stored for filepath, or ErrNotFound.
func (d *DB) Get(filepath string) (*djmodel.Track, error) {
	row := d.db.QueryRow(trackSelectColumns+" FROM tracks WHERE filepath = ?", filepath)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

const trackSelectColumns = `
	SELECT filepath, file_hash, last_modified, title, artist, album, genre, year, duration,
		bpm, beat_times_json, key_value, key_scale, camelot_key, key_confidence,
		energy_level, energy_profile, sections_json, cue_points_json, analysis_version`

type scannable interface {
	Scan(dest ...any) error
}

func scanTrack(row scannable) (*djmodel.Track, error) {
	var (
		t                                             djmodel.Track
		title, artist, album, genre, keyValue         sql.NullString
		keyScale, energyProfile                       sql.NullString
		camelot                                       sql.NullString
		year                                          sql.NullInt64
		duration, bpm, keyConfidence, energyLevel     sql.NullFloat64
		beatTimesJSON, sectionsJSON, cuePointsJSON    sql.NullString
		lastModified                                  sql.NullTime
		analysisVersion                               sql.NullInt64
	)

	err := row.Scan(
		&t.Filepath, &t.FileHash, &lastModified, &title, &artist, &album, &genre, &year, &duration,
		&bpm, &beatTimesJSON, &keyValue, &keyScale, &camelot, &keyConfidence,
		&energyLevel, &energyProfile, &sectionsJSON, &cuePointsJSON, &analysisVersion,
	)
	if err != nil {
		return nil, err
	}

	if title.Valid {
		t.Title = title.String
	}
	if artist.Valid {
		t.Artist = artist.String
	}
	if album.Valid {
		t.Album = album.String
	}
	if genre.Valid {
		t.Genre = genre.String
	}
	if year.Valid {
		t.Year = int(year.Int64)
	}
	if duration.Valid {
		t.Duration = duration.Float64
	}
	if bpm.Valid {
		t.BPM = bpm.Float64
	}
	if keyValue.Valid {
		t.Key = keyValue.String
	}
	if keyScale.Valid {
		t.KeyScale = djmodel.KeyScale(keyScale.String)
	}
	if camelot.Valid {
		t.CamelotKey = camelot.String
	}
	if keyConfidence.Valid {
		t.KeyConfidence = keyConfidence.Float64
	}
	if energyLevel.Valid {
		t.EnergyLevel = energyLevel.Float64
	}
	if energyProfile.Valid {
		t.EnergyProfile = djmodel.EnergyProfile(energyProfile.String)
	}
	if lastModified.Valid {
		t.LastModified = lastModified.Time
	}
	if analysisVersion.Valid {
		t.AnalysisVersion = int(analysisVersion.Int64)
	}
	if beatTimesJSON.Valid && beatTimesJSON.String != "" {
		_ = json.Unmarshal([]byte(beatTimesJSON.String), &t.BeatTimes)
	}
	if sectionsJSON.Valid && sectionsJSON.String != "" {
		_ = json.Unmarshal([]byte(sectionsJSON.String), &t.Sections)
	}
	if cuePointsJSON.Valid && cuePointsJSON.String != "" {
		_ = json.Unmarshal([]byte(cuePointsJSON.String), &t.CuePoints)
	}
	return &t, nil
}
