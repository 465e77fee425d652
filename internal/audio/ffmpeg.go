// Package audio decodes compressed source audio (MP3/WAV/FLAC/AAC/OGG) to
// raw PCM via an external ffmpeg process, the one decode strategy the
// example corpus actually exercises (vividhyeok-djbot/backend/analyzer.go).
// No in-process container/codec library is imported by any example, so
// shelling out to ffmpeg is the grounded choice rather than a stdlib
// shortcut: container demuxing for MP3/FLAC/AAC/OGG has no stdlib path at
// all.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
)

var ffmpegPath = "ffmpeg"

func init() {
	if p := os.Getenv("DJCORE_FFMPEG_PATH"); p != "" {
		ffmpegPath = p
	}
}

// DecodeMono decodes path to mono float64 PCM at sampleRate Hz, the
// canonical analysis rate (spec §4.1 step 1).
func DecodeMono(path string, sampleRate int) ([]float64, error) {
	raw, err := decodeF32LE(path, sampleRate, 1)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, nil
}

// DecodeStereo decodes path to interleaved stereo float64 PCM [L,R,L,R,...]
// at sampleRate Hz (ffmpeg resamples the source to that rate), used by the
// renderer's canonical 2x44100 path.
func DecodeStereo(path string, sampleRate int) ([]float64, error) {
	raw, err := decodeF32LE(path, sampleRate, 2)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, nil
}

func decodeF32LE(path string, sampleRate, channels int) ([]float32, error) {
	cmd := exec.Command(ffmpegPath,
		"-v", "error",
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", fmt.Sprintf("%d", channels),
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w (%s)", err, stderr.String())
	}

	data, err := io.ReadAll(stdout)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg read: %w", err)
	}
	if waitErr := cmd.Wait(); waitErr != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w (%s)", path, waitErr, stderr.String())
	}

	numSamples := len(data) / 4
	if numSamples == 0 {
		return nil, fmt.Errorf("no audio data decoded from %s (%s)", path, stderr.String())
	}

	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}

// ProbeDuration returns the decoded duration in seconds by decoding to mono
// at the canonical analysis rate and dividing by sample count; cheaper
// paths (container header parsing) are not available without a demux
// library, so this reuses the same ffmpeg decode already required for
// analysis.
func ProbeDuration(path string, sampleRate int) (float64, error) {
	samples, err := DecodeMono(path, sampleRate)
	if err != nil {
		return 0, err
	}
	return float64(len(samples)) / float64(sampleRate), nil
}
