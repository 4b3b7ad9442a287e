package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/himanishpuri/AVSync/pkg/models"
)

// ReadWAV reads a PCM WAV file and returns mono samples in [-1, 1].
// Multi-channel input is averaged down to one channel.
func ReadWAV(path string) (models.AudioSignal, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.AudioSignal{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return models.AudioSignal{}, errors.New("not a valid WAV file")
	}
	if dec.WavAudioFormat != 1 {
		return models.AudioSignal{}, fmt.Errorf("unsupported WAV audio format %d: only PCM supported", dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return models.AudioSignal{}, fmt.Errorf("decoding PCM samples: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return models.AudioSignal{}, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	samples, err := toMonoFloat64(buf.Data, int(dec.NumChans), bitDepth)
	if err != nil {
		return models.AudioSignal{}, err
	}
	return models.AudioSignal{Samples: samples, SampleRate: int(dec.SampleRate)}, nil
}

// toMonoFloat64 scales integer PCM to [-1, 1] and averages interleaved channels.
func toMonoFloat64(data []int, channels, bitDepth int) ([]float64, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	// 8-bit WAV is unsigned; go-audio hands it back offset by 128.
	offset := 0.0
	if bitDepth == 8 {
		offset = 128
	}
	scale := 1.0 / math.Pow(2, float64(bitDepth-1))

	frames := len(data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += (float64(data[i*channels+c]) - offset) * scale
		}
		out[i] = sum / float64(channels)
	}
	return out, nil
}

// WriteWAV encodes sig as 16-bit mono PCM.
func WriteWAV(path string, sig models.AudioSignal) error {
	if sig.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	data := make([]int, len(sig.Samples))
	for i, s := range sig.Samples {
		v := math.Round(s * 32767)
		data[i] = int(math.Max(-32768, math.Min(32767, v)))
	}

	enc := wav.NewEncoder(f, sig.SampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sig.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encoding WAV: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalizing WAV: %w", err)
	}
	return f.Close()
}
