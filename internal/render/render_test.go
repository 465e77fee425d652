package render

import (
	"context"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/cartomix/djcore/internal/audio"
	"github.com/cartomix/djcore/internal/djmodel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// requireFFmpeg skips tests that need audio.DecodeStereo, following the
// teacher's e2e_test.go pattern of skipping when an external dependency
// isn't available in the test environment rather than failing the suite.
func requireFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available in test environment")
	}
}

func writeSineWAV(t *testing.T, path string, seconds float64, freq float64) {
	t.Helper()
	n := int(seconds * sampleRate)
	buf := make([]float64, n*channels)
	for i := 0; i < n; i++ {
		tSec := float64(i) / float64(sampleRate)
		s := 0.3 * math.Sin(2*math.Pi*freq*tSec)
		buf[i*channels] = s
		buf[i*channels+1] = s
	}
	if err := audio.WriteWAV(path, buf, sampleRate, channels); err != nil {
		t.Fatalf("write fixture wav: %v", err)
	}
}

func TestRenderProducesNonEmptyWAV(t *testing.T) {
	requireFFmpeg(t)
	dir := t.TempDir()

	trackA := filepath.Join(dir, "a.wav")
	trackB := filepath.Join(dir, "b.wav")
	writeSineWAV(t, trackA, 20, 220)
	writeSineWAV(t, trackB, 20, 330)

	set := &djmodel.DJSet{
		ID:            "test-set",
		TotalDuration: 32,
		Tracks: []djmodel.DJSetTrack{
			{Order: 0, Filepath: trackA, DeckID: djmodel.DeckA, StartTime: 0, EndTime: 18, HotCueInOffset: 0, HotCueOutOffset: 18, FadeOutTime: 14},
			{Order: 1, Filepath: trackB, DeckID: djmodel.DeckB, StartTime: 14, EndTime: 32, HotCueInOffset: 0, HotCueOutOffset: 18, FadeOutTime: 32, FadeInTime: 14},
		},
		Transitions: []djmodel.TransitionPlan{
			{FromOrder: 0, ToOrder: 1, StartTime: 14, Duration: 4, Type: djmodel.TransitionSmoothBlend, CrossfadeCurve: djmodel.CurveSCurve,
				Effects: []djmodel.TransitionEffect{{Type: djmodel.EffectFilterSweep, StartAt: 0, Duration: 4, Intensity: 0.5}}},
		},
	}

	outPath := filepath.Join(dir, "out.wav")
	var seen []float64
	err := Render(context.Background(), set, outPath, testLogger(), func(p float64) { seen = append(seen, p) })
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() <= 44 {
		t.Fatalf("expected output WAV to contain audio data, got %d bytes", info.Size())
	}
	if len(seen) == 0 || seen[len(seen)-1] != 1 {
		t.Fatalf("expected progress to end at 1, got %v", seen)
	}
}

func TestRenderSkipsUndecodableTrackButStillRenders(t *testing.T) {
	requireFFmpeg(t)
	dir := t.TempDir()

	goodTrack := filepath.Join(dir, "good.wav")
	writeSineWAV(t, goodTrack, 10, 440)

	set := &djmodel.DJSet{
		ID:            "partial-set",
		TotalDuration: 20,
		Tracks: []djmodel.DJSetTrack{
			{Order: 0, Filepath: filepath.Join(dir, "missing.wav"), DeckID: djmodel.DeckA, StartTime: 0, EndTime: 10, HotCueOutOffset: 10},
			{Order: 1, Filepath: goodTrack, DeckID: djmodel.DeckB, StartTime: 10, EndTime: 20, HotCueOutOffset: 10},
		},
	}

	outPath := filepath.Join(dir, "out.wav")
	if err := Render(context.Background(), set, outPath, testLogger(), nil); err != nil {
		t.Fatalf("render with one undecodable track should still succeed, leaving that track silent: %v", err)
	}
}

func TestRenderFailsOnZeroDuration(t *testing.T) {
	set := &djmodel.DJSet{ID: "empty", TotalDuration: 0}
	err := Render(context.Background(), set, filepath.Join(t.TempDir(), "out.wav"), testLogger(), nil)
	if err == nil {
		t.Fatalf("expected allocation failure for a zero-duration set")
	}
}
