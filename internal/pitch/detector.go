package pitch

import (
	"errors"
)

// Errors
var (
	ErrEmptyBuffer    = errors.New("empty audio buffer")
	ErrInvalidTracker = errors.New("invalid tracker settings")
	ErrInvalidWindow  = errors.New("median window must be odd and positive")
)

// Frames holds the per-frame output of a tracker. Frequencies and Confidence
// are time aligned and always have the same length.
type Frames struct {
	Frequencies []float64 // Dominant frequency in Hz, 0 when nothing was found
	Confidence  []float64 // Strength of the dominant frequency, 0..1
	SampleRate  int
	HopLength   int
}

// Len returns the number of frames
func (f Frames) Len() int {
	return len(f.Frequencies)
}

// Duration returns the time covered by all frames in seconds
func (f Frames) Duration() float64 {
	if f.SampleRate <= 0 {
		return 0
	}
	return float64(f.Len()*f.HopLength) / float64(f.SampleRate)
}

// Tracker defines the interface for frame-level pitch tracking
type Tracker interface {
	// Track splits samples into hop-spaced frames and estimates the
	// dominant frequency of each one
	Track(samples []float64, sampleRate int) (Frames, error)
}
