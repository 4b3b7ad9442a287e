package analysis

import (
	"errors"
	"image"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/eligwz/spectrogram"
	"github.com/himanishpuri/AVSync/pkg/models"
)

// RenderOptions controls the PNG produced by RenderSpectrogram.
type RenderOptions struct {
	Width  int
	Height int // also the number of frequency bins
	Log    bool
}

func DefaultRenderOptions() RenderOptions {
	return RenderOptions{Width: 2048, Height: 512}
}

// RenderSpectrogram draws sig as a spectrogram PNG at path.
func RenderSpectrogram(sig models.AudioSignal, path string, opts RenderOptions) error {
	if len(sig.Samples) == 0 || sig.SampleRate <= 0 {
		return errors.New("render: empty signal")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts = DefaultRenderOptions()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, opts.Width, opts.Height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	spectrogram.Drawfft(
		img,
		sig.Samples,
		uint32(sig.SampleRate),
		uint32(opts.Height),
		false, // Hamming window
		false, // FFT, not DFT
		true,  // magnitude
		opts.Log,
	)
	return spectrogram.SavePng(img, path)
}
