package avsync

import (
	"github.com/himanishpuri/AVSync/internal/analysis"
	"github.com/himanishpuri/AVSync/internal/audio"
	"github.com/himanishpuri/AVSync/pkg/models"
)

// Pair names two recordings of the same event.
type Pair struct {
	First  string
	Second string
}

// Peak is a dominant spectral component.
type Peak = analysis.Peak

// Metadata is container information reported by ffprobe.
type Metadata = audio.Metadata

// Inspection summarises one recording for diagnosing beep detection.
type Inspection struct {
	Metadata      Metadata
	AnalysedSec   float64 // length of the decoded window
	Beep          models.BeepResult
	BeepErr       error
	SpectrogramAt string // PNG path, empty when not rendered
}
