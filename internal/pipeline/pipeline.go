// Package pipeline wires decoding, pitch tracking, segmentation,
// quantization and MIDI encoding into one conversion.
package pipeline

import (
	"context"
	"fmt"

	"github.com/0xlemi/humnote/internal/audio"
	"github.com/0xlemi/humnote/internal/config"
	"github.com/0xlemi/humnote/internal/midi"
	"github.com/0xlemi/humnote/internal/note"
	"github.com/0xlemi/humnote/internal/pitch"
	"github.com/sirupsen/logrus"
)

// Stage names a step of a conversion
type Stage string

const (
	StageDecode   Stage = "decode"
	StageTrack    Stage = "track"
	StageSegment  Stage = "segment"
	StageQuantize Stage = "quantize"
	StageEncode   Stage = "encode"
	StageDone     Stage = "done"
	StageFailed   Stage = "failed"
)

// Event reports progress of one conversion
type Event struct {
	Input string
	Stage Stage
	Notes []note.Note // Quantized notes, set on StageDone
	Err   error       // Set on StageFailed
}

// Observer receives progress events. It may be called from several
// goroutines at once.
type Observer func(Event)

// Result is everything a transcription produced
type Result struct {
	Frames    pitch.Frames
	Semitones []int
	Notes     []note.Note // As segmented, in seconds
	Quantized []note.Note // Snapped to the tempo grid
}

// Converter turns recordings into MIDI
type Converter struct {
	cfg      config.Config
	log      logrus.FieldLogger
	observer Observer
}

// NewConverter validates cfg and creates a converter
func NewConverter(cfg *config.Config, log logrus.FieldLogger) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Converter{
		cfg: *cfg,
		log: log,
	}, nil
}

// SetObserver registers a progress observer
func (c *Converter) SetObserver(o Observer) {
	c.observer = o
}

func (c *Converter) emit(ev Event) {
	if c.observer != nil {
		c.observer(ev)
	}
}

func (c *Converter) tracker() *pitch.FFTTracker {
	tracker := pitch.NewFFTTracker(c.cfg.FrameSize, c.cfg.HopLength)
	tracker.SetBand(c.cfg.MinFrequency, c.cfg.MaxFrequency)
	tracker.SetNoiseFloor(c.cfg.NoiseFloor)
	return tracker
}

// Transcribe runs pitch tracking, segmentation and quantization over mono
// samples
func (c *Converter) Transcribe(ctx context.Context, samples []float64, sampleRate int) (Result, error) {
	return c.transcribe(ctx, "", samples, sampleRate)
}

func (c *Converter) transcribe(ctx context.Context, input string, samples []float64, sampleRate int) (Result, error) {
	var res Result
	log := c.log.WithField("file", input)

	if err := c.enter(ctx, input, StageTrack); err != nil {
		return res, err
	}
	frames, err := c.tracker().Track(samples, sampleRate)
	if err != nil {
		return res, fmt.Errorf("tracking pitch: %w", err)
	}
	res.Frames = frames
	log.WithFields(logrus.Fields{
		"frames":   frames.Len(),
		"duration": frames.Duration(),
	}).Debug("pitch tracked")

	if err := c.enter(ctx, input, StageSegment); err != nil {
		return res, err
	}
	res.Semitones = pitch.ToSemitones(frames.Frequencies)
	res.Notes, err = note.DetectNotes(res.Semitones, frames.Confidence, c.cfg.Segment(sampleRate))
	if err != nil {
		return res, fmt.Errorf("segmenting notes: %w", err)
	}
	log.WithField("notes", len(res.Notes)).Debug("notes segmented")

	if err := c.enter(ctx, input, StageQuantize); err != nil {
		return res, err
	}
	res.Quantized = note.Quantize(res.Notes, c.cfg.Tempo, c.cfg.Grid)

	return res, nil
}

// enter checks for cancellation and announces the next stage
func (c *Converter) enter(ctx context.Context, input string, stage Stage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.emit(Event{Input: input, Stage: stage})
	return nil
}

// Encoder returns a MIDI encoder at the configured tempo
func (c *Converter) Encoder() *midi.Encoder {
	return midi.NewEncoder(c.cfg.Tempo)
}

// ConvertBuffer transcribes an in-memory take and writes it to output. name
// identifies the take in logs and events.
func (c *Converter) ConvertBuffer(ctx context.Context, name string, buffer *audio.AudioBuffer, output string) (Result, error) {
	return c.finish(ctx, name, output, func() (*audio.AudioBuffer, error) {
		return buffer, nil
	})
}

// ConvertFile reads input, transcribes it and writes a MIDI file to output
func (c *Converter) ConvertFile(ctx context.Context, input, output string) (Result, error) {
	return c.finish(ctx, input, output, func() (*audio.AudioBuffer, error) {
		return audio.ReadFile(input, c.cfg.SampleRate)
	})
}

func (c *Converter) finish(ctx context.Context, input, output string, load func() (*audio.AudioBuffer, error)) (Result, error) {
	res, err := c.run(ctx, input, output, load)
	if err != nil {
		c.emit(Event{Input: input, Stage: StageFailed, Err: err})
		return res, err
	}

	c.log.WithFields(logrus.Fields{
		"file":   input,
		"output": output,
		"notes":  len(res.Quantized),
	}).Info("converted")
	c.emit(Event{Input: input, Stage: StageDone, Notes: res.Quantized})
	return res, nil
}

func (c *Converter) run(ctx context.Context, input, output string, load func() (*audio.AudioBuffer, error)) (Result, error) {
	if err := c.enter(ctx, input, StageDecode); err != nil {
		return Result{}, err
	}
	buffer, err := load()
	if err != nil {
		return Result{}, fmt.Errorf("reading audio: %w", err)
	}
	c.log.WithFields(logrus.Fields{
		"file":     input,
		"rate":     buffer.SampleRate,
		"duration": buffer.Duration(),
	}).Debug("audio loaded")

	res, err := c.transcribe(ctx, input, buffer.Samples, buffer.SampleRate)
	if err != nil {
		return res, err
	}

	if err := c.enter(ctx, input, StageEncode); err != nil {
		return res, err
	}
	if err := c.Encoder().WriteFile(output, res.Quantized); err != nil {
		return res, fmt.Errorf("writing %s: %w", output, err)
	}
	return res, nil
}
