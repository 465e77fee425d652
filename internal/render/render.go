// Package render implements the Audio Renderer of spec §4.5: given a
// fully-timed DJSet, decode every source track, apply per-transition
// effects and crossfades, mix everything additively into one canonical
// stereo canvas, peak-normalize, and serialize to 16-bit PCM WAV.
//
// Grounded on vividhyeok-djbot/backend/renderer.go's RenderFinalMix, which
// is the one example in the corpus that builds a PCM mix by additively
// overlaying decoded track chunks into a shared canvas at computed sample
// offsets rather than shelling the whole mix out to an ffmpeg
// filter_complex graph — exactly the shape spec §4.5 describes. Per-track
// decode still goes through internal/audio's ffmpeg pipe (no in-process
// container demuxer exists in the corpus); everything downstream of decode
// (gain, EQ, crossfade, effects, mix, normalize, WAV write) is in-process
// Go, matching djbot's canvas-overlay loop.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/cartomix/djcore/internal/audio"
	"github.com/cartomix/djcore/internal/djerr"
	"github.com/cartomix/djcore/internal/djmodel"
	"github.com/cartomix/djcore/internal/effects"
)

const (
	sampleRate = audio.RenderSampleRate
	channels   = audio.RenderChannels

	// defaultFadeSeconds is spec §4.5's standard fade applied to a track
	// boundary that is neither the source nor target of a transition
	// (the very first track's intro, the very last track's outro).
	defaultFadeSeconds = 0.5

	// peakTarget is spec §4.5's post-mix normalization target.
	peakTarget = 0.95
)

// ProgressFunc reports render progress in [0,1]: 0->0.5 while decoding and
// processing tracks, 0.5->1 while mixing them into the canvas, 1 on
// success. A failure reports -1 exactly once, before the error returns.
type ProgressFunc func(progress float64)

// Render decodes every track in set, applies transitions and effects, and
// writes a canonical 16-bit PCM WAV to outputPath.
func Render(ctx context.Context, set *djmodel.DJSet, outputPath string, logger *slog.Logger, onProgress ProgressFunc) error {
	report := func(p float64) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	totalFrames := int(math.Ceil(set.TotalDuration * float64(sampleRate)))
	if totalFrames <= 0 {
		report(-1)
		return djerr.ErrRenderAllocation
	}
	canvas := make([]float64, totalFrames*channels)

	segments := make([][]float64, len(set.Tracks))
	n := len(set.Tracks)

	for i, track := range set.Tracks {
		if err := ctxErr(ctx); err != nil {
			report(-1)
			return err
		}

		seg, err := buildTrackSegment(track, set, i, logger)
		if err != nil {
			logger.Warn("skipping track due to decode failure, set still renders", "filepath", track.Filepath, "error", err)
			segments[i] = nil
			report(float64(i+1) / float64(n) * 0.5)
			continue
		}
		segments[i] = seg
		report(float64(i+1) / float64(n) * 0.5)
	}

	for i, track := range set.Tracks {
		seg := segments[i]
		if seg == nil {
			report(0.5 + float64(i+1)/float64(n)*0.5)
			continue
		}

		offset := int(math.Round(track.StartTime*float64(sampleRate))) * channels
		mixInto(canvas, seg, offset)
		report(0.5 + float64(i+1)/float64(n)*0.5)
	}

	normalize(canvas)

	if err := audio.WriteWAV(outputPath, canvas, sampleRate, channels); err != nil {
		report(-1)
		return fmt.Errorf("write wav: %w", err)
	}

	report(1)
	return nil
}

// buildTrackSegment decodes one track, slices it to its hot-cue window,
// pads/trims to its timed segment length, and applies gain/EQ pre-effects
// and crossfade/transition-effect shaping for its boundaries, spec §4.5
// step 2.
func buildTrackSegment(track djmodel.DJSetTrack, set *djmodel.DJSet, idx int, logger *slog.Logger) ([]float64, error) {
	raw, err := audio.DecodeStereo(track.Filepath, sampleRate)
	if err != nil {
		return nil, djerr.Decode(track.Filepath, err)
	}

	inFrame := int(track.HotCueInOffset * float64(sampleRate))
	outFrame := int(track.HotCueOutOffset * float64(sampleRate))
	rawFrames := len(raw) / channels
	if inFrame < 0 {
		inFrame = 0
	}
	if outFrame > rawFrames {
		outFrame = rawFrames
	}
	if outFrame <= inFrame {
		outFrame = rawFrames
	}
	sliced := raw[inFrame*channels : outFrame*channels]

	segmentLen := track.EndTime - track.StartTime
	segFrames := int(math.Round(segmentLen * float64(sampleRate)))
	if segFrames < 1 {
		segFrames = 1
	}
	seg := padOrTrim(sliced, segFrames*channels)

	if err := effects.ThreeBandEQ(seg, channels, sampleRate, track.EQLow, track.EQMid, track.EQHigh); err != nil {
		logger.Warn("pre-effects EQ failed, continuing with unfiltered gain stage", "filepath", track.Filepath, "error", err)
	}
	gain := 1 + track.GainAdjust
	for i := range seg {
		seg[i] *= gain
	}

	applyBoundaryShaping(seg, track, set, idx, logger)
	return seg, nil
}

func padOrTrim(samples []float64, wantLen int) []float64 {
	out := make([]float64, wantLen)
	copy(out, samples)
	return out
}

func mixInto(canvas, seg []float64, offset int) {
	for i, v := range seg {
		idx := offset + i
		if idx < 0 || idx >= len(canvas) {
			continue
		}
		canvas[idx] += v
	}
}

func normalize(canvas []float64) {
	peak := 0.0
	for _, v := range canvas {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak <= 0 {
		return
	}
	scale := peakTarget / peak
	for i := range canvas {
		canvas[i] *= scale
	}
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return djerr.ErrCancelled
	default:
		return nil
	}
}
