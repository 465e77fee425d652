// Package exporter writes a rendered DJSet's track list and cue data to the
// generic bundle described by spec §4.6: an M3U8 playlist, an analysis JSON
// dump, a cues CSV, a SHA256 checksum manifest, and a tar.gz bundling all
// four, emitted by internal/orchestration alongside the rendered WAV so a
// set built by the Planner can be loaded straight into a DJ's crate tool of
// choice via the playlist rather than a vendor-specific library format.
//
// Grounded on the teacher's own internal/exporter package, adapted from its
// protobuf common.TrackAnalysis wire type to this project's djmodel.Track.
package exporter

import (
	"archive/tar"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cartomix/djcore/internal/djmodel"
)

// TrackExport bundles an analyzed track with its placement in a DJSet -
// the unit every exporter in this package consumes.
type TrackExport struct {
	Track     *djmodel.Track
	Placement djmodel.DJSetTrack
}

// path returns the filesystem path to export for this track, preferring
// the placement's own filepath (a set may reference a track that has since
// moved or been re-analyzed under a different record).
func (t TrackExport) path() string {
	if t.Placement.Filepath != "" {
		return t.Placement.Filepath
	}
	if t.Track != nil {
		return t.Track.Filepath
	}
	return ""
}

// Result contains paths to generated export artifacts.
type Result struct {
	PlaylistPath     string
	AnalysisJSONPath string
	CuesCSVPath      string
	BundlePath       string
	ChecksumsPath    string
}

// WriteGeneric writes M3U8, analysis JSON, and cues CSV exports.
func WriteGeneric(outputDir, playlistName string, tracks []TrackExport) (*Result, error) {
	if len(tracks) == 0 {
		return nil, fmt.Errorf("no tracks to export")
	}

	if playlistName == "" {
		playlistName = "set"
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	result := &Result{
		PlaylistPath:     filepath.Join(outputDir, playlistName+".m3u8"),
		AnalysisJSONPath: filepath.Join(outputDir, playlistName+"-analysis.json"),
		CuesCSVPath:      filepath.Join(outputDir, playlistName+"-cues.csv"),
		BundlePath:       filepath.Join(outputDir, playlistName+"-bundle.tar.gz"),
		ChecksumsPath:    filepath.Join(outputDir, playlistName+"-checksums.txt"),
	}

	if err := writeM3U(result.PlaylistPath, tracks); err != nil {
		return nil, err
	}
	if err := writeAnalysisJSON(result.AnalysisJSONPath, tracks); err != nil {
		return nil, err
	}
	if err := writeCuesCSV(result.CuesCSVPath, tracks); err != nil {
		return nil, err
	}

	if err := writeChecksums(result.ChecksumsPath, result.PlaylistPath, result.AnalysisJSONPath, result.CuesCSVPath); err != nil {
		return nil, err
	}

	if err := writeBundle(result.BundlePath, result.PlaylistPath, result.AnalysisJSONPath, result.CuesCSVPath, result.ChecksumsPath); err != nil {
		return nil, err
	}

	return result, nil
}

func writeM3U(path string, tracks []TrackExport) error {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, t := range tracks {
		title := filepath.Base(t.path())
		if t.Track != nil && t.Track.Title != "" {
			title = t.Track.Title
		}
		duration := 0
		if t.Track != nil {
			duration = int(t.Track.Duration)
		}
		b.WriteString(fmt.Sprintf("#EXTINF:%d,%s\n", duration, title))
		b.WriteString(fmt.Sprintln(t.path()))
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func writeAnalysisJSON(path string, tracks []TrackExport) error {
	tracksOut := make([]*djmodel.Track, 0, len(tracks))
	for _, t := range tracks {
		tracksOut = append(tracksOut, t.Track)
	}
	bytes, err := json.MarshalIndent(tracksOut, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, bytes, 0o644)
}

func writeCuesCSV(path string, tracks []TrackExport) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"track_path", "cue_type", "cue_index", "time_seconds", "label"}); err != nil {
		return err
	}

	for _, t := range tracks {
		if t.Track == nil {
			continue
		}
		for _, cue := range t.Track.CuePoints {
			if err := writer.Write([]string{
				t.path(),
				string(cue.Type),
				fmt.Sprintf("%d", cue.Index),
				fmt.Sprintf("%.3f", cue.Time),
				cue.Name,
			}); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// writeChecksums writes a SHA256 manifest for the exported artifacts.
func writeChecksums(path string, files ...string) error {
	var b strings.Builder
	for _, fp := range files {
		sum, err := fileSHA256(fp)
		if err != nil {
			return err
		}
		b.WriteString(fmt.Sprintf("%s  %s\n", sum, filepath.Base(fp)))
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// writeBundle creates a tar.gz containing the primary artifacts for quick sharing.
func writeBundle(bundlePath string, files ...string) error {
	f, err := os.Create(bundlePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()

	tw := tar.NewWriter(gw)
	defer tw.Close()

	for _, fp := range files {
		info, err := os.Stat(fp)
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.Base(fp)

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		data, err := os.ReadFile(fp)
		if err != nil {
			return err
		}
		if _, err := tw.Write(data); err != nil {
			return err
		}
	}

	return nil
}

// fileSHA256 is kept unexported for internal writer use.
func fileSHA256(path string) (string, error) { return FileSHA256(path) }
