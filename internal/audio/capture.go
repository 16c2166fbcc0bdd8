package audio

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAlreadyCapturing = errors.New("audio capture already started")
	ErrNotCapturing     = errors.New("audio capture not started")
)

// AudioBuffer represents a buffer of mono audio samples
type AudioBuffer struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the length of the buffer
func (b *AudioBuffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Capturer defines the interface for audio capture
type Capturer interface {
	// Start begins audio capture
	Start() error

	// Stop ends audio capture
	Stop() error

	// GetBuffer returns everything captured so far
	GetBuffer() (*AudioBuffer, error)

	// IsCapturing returns true if currently capturing audio
	IsCapturing() bool
}

// StaticCapturer replays a fixed buffer. It stands in for a microphone in
// tests and dry runs.
type StaticCapturer struct {
	isCapturing bool
	buffer      *AudioBuffer
}

// NewStaticCapturer creates a capturer that serves samples
func NewStaticCapturer(samples []float64, sampleRate int) *StaticCapturer {
	return &StaticCapturer{
		buffer: &AudioBuffer{
			Samples:    samples,
			SampleRate: sampleRate,
		},
	}
}

// Start begins audio capture
func (c *StaticCapturer) Start() error {
	if c.isCapturing {
		return ErrAlreadyCapturing
	}
	c.isCapturing = true
	return nil
}

// Stop ends audio capture
func (c *StaticCapturer) Stop() error {
	if !c.isCapturing {
		return ErrNotCapturing
	}
	c.isCapturing = false
	return nil
}

// GetBuffer returns a copy of the preloaded samples
func (c *StaticCapturer) GetBuffer() (*AudioBuffer, error) {
	if !c.isCapturing {
		return nil, ErrNotCapturing
	}

	bufferCopy := &AudioBuffer{
		Samples:    make([]float64, len(c.buffer.Samples)),
		SampleRate: c.buffer.SampleRate,
	}
	copy(bufferCopy.Samples, c.buffer.Samples)
	return bufferCopy, nil
}

// IsCapturing returns true if currently capturing audio
func (c *StaticCapturer) IsCapturing() bool {
	return c.isCapturing
}

// Record captures a single take. It runs until d has elapsed or ctx is
// done, whichever comes first, and returns what was captured. A cancelled
// context still returns the partial take together with ctx.Err().
func Record(ctx context.Context, c Capturer, d time.Duration) (*AudioBuffer, error) {
	if err := c.Start(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	var waitErr error
	select {
	case <-timer.C:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	buffer, err := c.GetBuffer()
	if stopErr := c.Stop(); err == nil {
		err = stopErr
	}
	if err != nil {
		return nil, err
	}
	return buffer, waitErr
}
