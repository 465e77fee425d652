package analyzer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/cartomix/djcore/internal/audio"
	"github.com/cartomix/djcore/internal/djerr"
	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/dsp"
)

// Local runs the full in-process DSP pipeline of spec §4.1. It replaces the
// teacher's CPUFallback, which produced all-zero placeholder data; the real
// algorithm is grounded on vividhyeok-djbot/backend/{analyzer,dsp}.go.
type Local struct {
	logger *slog.Logger
}

// NewLocal constructs the local DSP-backed analyzer.
func NewLocal(logger *slog.Logger) *Local {
	return &Local{logger: logger}
}

// AnalyzeTrack runs decode -> beat tracking -> key detection -> energy ->
// structure -> hot cues, in the order spec §4.1 specifies.
func (l *Local) AnalyzeTrack(ctx context.Context, filepath string) (*djmodel.Track, error) {
	info, err := os.Stat(filepath)
	if err != nil {
		return nil, djerr.Decode(filepath, err)
	}

	hash, err := FingerprintHash(filepath)
	if err != nil {
		return nil, djerr.Decode(filepath, err)
	}

	samples, err := audio.DecodeMono(filepath, dsp.SampleRate)
	if err != nil {
		return nil, djerr.Decode(filepath, err)
	}
	duration := float64(len(samples)) / float64(dsp.SampleRate)
	if duration < MinDecodableSeconds {
		return nil, djerr.Decode(filepath, fmt.Errorf("track shorter than %.0fs (%.2fs)", MinDecodableSeconds, duration))
	}

	track := &djmodel.Track{
		Filepath:        filepath,
		FileHash:        hash,
		LastModified:    info.ModTime(),
		Duration:        duration,
		AnalysisVersion: CurrentAnalysisVersion,
	}

	l.trackBeats(track, samples)
	l.trackKey(track, samples)
	l.trackEnergy(track, samples)
	l.trackStructure(track, samples)

	l.logger.Info("analysis complete",
		"path", filepath, "duration", duration, "bpm", track.BPM, "key", track.CamelotKey)
	return track, nil
}

func (l *Local) trackBeats(track *djmodel.Track, samples []float64) {
	bt := dsp.NewBeatTracker()
	onset := bt.OnsetEnvelope(samples, dsp.SampleRate)
	track.BPM = dsp.EstimateBPM(onset, dsp.SampleRate, bt.HopSize)
	track.BeatTimes = dsp.EstimateBeatTimes(onset, dsp.SampleRate, track.Duration, track.BPM, bt.HopSize)
}

// trackKey fills in defaults (Unknown/zero confidence) on any failure per
// spec §4.1's partial-analysis failure semantics rather than aborting the
// whole analyze() call.
func (l *Local) trackKey(track *djmodel.Track, samples []float64) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn("key detection panic, using defaults", "path", track.Filepath, "recover", r)
			track.Key = "Unknown"
			track.CamelotKey = ""
			track.KeyConfidence = 0
		}
	}()
	chroma := dsp.Chroma(samples, dsp.SampleRate)
	pc, scale, strength := dsp.DetectKey(chroma)
	track.Key = dsp.KeyName(pc, scale)
	track.KeyScale = scale
	track.CamelotKey = dsp.Camelot(pc, scale)
	track.KeyConfidence = strength
}

func (l *Local) trackEnergy(track *djmodel.Track, samples []float64) {
	rms := dsp.RMSFrames(samples, 2048, 512)
	track.EnergyLevel = dsp.EnergyLevel(rms)
	track.EnergyProfile = dsp.ClassifyEnergyProfile(rms, track.EnergyLevel)
}

func (l *Local) trackStructure(track *djmodel.Track, samples []float64) {
	beatEnergy := dsp.BeatSynchronousEnergy(samples, dsp.SampleRate, track.BeatTimes)
	chroma := dsp.BeatChroma(samples, dsp.SampleRate, track.BeatTimes, track.Duration)
	track.Sections = dsp.ClassifySegments(track.BeatTimes, beatEnergy, chroma, track.Duration)
	track.CuePoints = dsp.SynthesizeHotCues(track.Sections, track.BeatTimes)
}

// Close is a no-op; the local analyzer holds no external resources.
func (l *Local) Close() error { return nil }

// FingerprintHash computes the cheap content fingerprint spec §4.1's
// needs_analysis uses: MD5 of the first and last 8 KiB.
func FingerprintHash(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	const chunk = 8 * 1024
	h := md5.New()

	head := make([]byte, chunk)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return "", err
	}
	h.Write(head[:n])

	if info.Size() > chunk {
		if _, err := f.Seek(-chunk, io.SeekEnd); err != nil {
			return "", err
		}
		tail := make([]byte, chunk)
		n, err = f.Read(tail)
		if err != nil && err != io.EOF {
			return "", err
		}
		h.Write(tail[:n])
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// NeedsAnalysis implements spec §4.1's needs_analysis: true if no record
// exists, the fingerprint changed, last_modified drifted >1s, or the stored
// version is stale.
func NeedsAnalysis(stored *djmodel.Track, currentHash string, currentModTime time.Time) bool {
	if stored == nil {
		return true
	}
	if stored.FileHash != currentHash {
		return true
	}
	if diff := stored.LastModified.Sub(currentModTime); diff > time.Second || diff < -time.Second {
		return true
	}
	if stored.AnalysisVersion < CurrentAnalysisVersion {
		return true
	}
	return false
}
