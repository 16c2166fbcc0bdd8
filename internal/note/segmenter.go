package note

import (
	"fmt"
	"math"
)

// SegmentConfig controls how frames are grouped into notes
type SegmentConfig struct {
	SampleRate       int
	HopLength        int
	MinNoteLength    float64 // Shortest note kept, in seconds
	SilenceThreshold float64 // Frames with confidence below this are silent
}

func (c SegmentConfig) frameTime(frame int) float64 {
	return float64(frame) * float64(c.HopLength) / float64(c.SampleRate)
}

type segmentState int

const (
	idle segmentState = iota
	active
)

// segmenter is the single open-note register walked over the frame stream
type segmenter struct {
	cfg        SegmentConfig
	confidence []float64

	state      segmentState
	pitch      int
	startFrame int

	notes []Note
}

// DetectNotes merges consecutive voiced frames of equal pitch into notes.
// A frame is voiced when its confidence reaches cfg.SilenceThreshold. A pitch
// change closes the open note and opens the next one on the same frame;
// silence closes it. Notes shorter than cfg.MinNoteLength are dropped.
//
// semitones and confidence must have the same length.
func DetectNotes(semitones []int, confidence []float64, cfg SegmentConfig) ([]Note, error) {
	if len(semitones) != len(confidence) {
		return nil, fmt.Errorf("%w: %d semitones but %d confidence values",
			ErrInvalidInput, len(semitones), len(confidence))
	}
	if cfg.SampleRate <= 0 || cfg.HopLength <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d, hop length %d",
			ErrInvalidInput, cfg.SampleRate, cfg.HopLength)
	}

	s := &segmenter{cfg: cfg, confidence: confidence}
	for frame, semitone := range semitones {
		s.step(frame, semitone)
	}
	s.flush(len(semitones))

	return s.notes, nil
}

func (s *segmenter) step(frame, semitone int) {
	silent := s.confidence[frame] < s.cfg.SilenceThreshold

	switch s.state {
	case idle:
		if !silent {
			s.open(frame, semitone)
		}
	case active:
		if !silent && semitone == s.pitch {
			return
		}
		s.close(frame)
		if silent {
			s.state = idle
		} else {
			s.open(frame, semitone)
		}
	}
}

func (s *segmenter) open(frame, semitone int) {
	s.state = active
	s.pitch = semitone
	s.startFrame = frame
}

// close ends the open note at endFrame (exclusive) and keeps it if it is long
// enough
func (s *segmenter) close(endFrame int) {
	if s.cfg.frameTime(endFrame-s.startFrame) < s.cfg.MinNoteLength {
		return
	}

	s.notes = append(s.notes, Note{
		Pitch:    s.pitch,
		Start:    s.cfg.frameTime(s.startFrame),
		End:      s.cfg.frameTime(endFrame),
		Velocity: velocity(s.confidence[s.startFrame:endFrame]),
	})
}

func (s *segmenter) flush(numFrames int) {
	if s.state == active {
		s.close(numFrames)
		s.state = idle
	}
}

// velocity maps mean confidence to 1..127, 1.0 giving 100
func velocity(confidence []float64) int {
	if len(confidence) == 0 {
		return MinVelocity
	}

	sum := 0.0
	for _, c := range confidence {
		sum += c
	}
	v := math.Round(100 * sum / float64(len(confidence)))

	switch {
	case math.IsNaN(v) || v < MinVelocity:
		return MinVelocity
	case v > MaxVelocity:
		return MaxVelocity
	}
	return int(v)
}
