package audio

import (
	"encoding/binary"
	"fmt"
	"os"
)

// RenderSampleRate and RenderChannels are the Renderer's canonical output
// format, spec §4.5.
const (
	RenderSampleRate = 44100
	RenderChannels   = 2
)

// WriteWAV serializes interleaved stereo float64 PCM in [-1,1] to a
// canonical 16-bit RIFF/fmt/data WAV file, spec §6. Grounded on the
// teacher's internal/fixtures/generator.go writeWAV, generalized from mono
// to stereo.
func WriteWAV(path string, interleaved []float64, sampleRate, channels int) error {
	buf := make([]int16, len(interleaved))
	for i, s := range interleaved {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf[i] = int16(s * 32767)
	}

	blockAlign := uint16(channels * 2)
	byteRate := uint32(sampleRate * channels * 2)
	dataSize := uint32(len(buf) * 2)
	riffSize := 36 + dataSize

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("RIFF")); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, riffSize); err != nil {
		return err
	}
	if _, err := f.Write([]byte("WAVE")); err != nil {
		return err
	}

	if _, err := f.Write([]byte("fmt ")); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint16(1)); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint16(channels)); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(sampleRate)); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, byteRate); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, blockAlign); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint16(16)); err != nil {
		return err
	}

	if _, err := f.Write([]byte("data")); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, dataSize); err != nil {
		return err
	}
	for _, v := range buf {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}
