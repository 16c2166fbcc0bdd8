// Package midi writes notes as a Standard MIDI File
package midi

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/0xlemi/humnote/internal/note"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	DefaultResolution = 480
	DefaultTrackName  = "Humming"
)

var ErrInvalidTempo = errors.New("tempo must be positive")

// Encoder converts notes into a single-track SMF
type Encoder struct {
	Tempo      float64 // BPM, must match the tempo used for quantization
	Resolution uint16  // Ticks per quarter note
	TrackName  string
	Channel    uint8
}

// NewEncoder creates an encoder with the default resolution and track name
func NewEncoder(tempo float64) *Encoder {
	return &Encoder{
		Tempo:      tempo,
		Resolution: DefaultResolution,
		TrackName:  DefaultTrackName,
	}
}

type event struct {
	tick     uint32
	off      bool
	key      uint8
	velocity uint8
}

// Ticks converts seconds to ticks at the encoder tempo
func (e *Encoder) Ticks(seconds float64) uint32 {
	beats := seconds / (60 / e.Tempo)
	ticks := math.Round(beats * float64(e.Resolution))
	if ticks < 0 {
		return 0
	}
	return uint32(ticks)
}

// Encode writes notes to w
func (e *Encoder) Encode(w io.Writer, notes []note.Note) error {
	if e.Tempo <= 0 || math.IsNaN(e.Tempo) || math.IsInf(e.Tempo, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTempo, e.Tempo)
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(e.Resolution)

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(e.TrackName))
	track.Add(0, smf.MetaTempo(e.Tempo))

	var last uint32
	for _, ev := range e.events(notes) {
		msg := gomidi.NoteOn(e.Channel, ev.key, ev.velocity)
		if ev.off {
			msg = gomidi.NoteOff(e.Channel, ev.key)
		}
		track.Add(ev.tick-last, msg)
		last = ev.tick
	}
	track.Close(0)

	if err := s.Add(track); err != nil {
		return fmt.Errorf("adding track: %w", err)
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("writing midi: %w", err)
	}
	return nil
}

// WriteFile encodes notes into the file at path, replacing it
func (e *Encoder) WriteFile(path string, notes []note.Note) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return e.Encode(f, notes)
}

// events flattens notes into on/off pairs ordered by tick, offs first on a
// shared tick so back-to-back notes of the same key do not cut each other.
// Notes of one key that overlap are merged into a single sounding span.
func (e *Encoder) events(notes []note.Note) []event {
	events := make([]event, 0, 2*len(notes))
	for _, n := range notes {
		start := e.Ticks(n.Start)
		end := e.Ticks(n.End)
		if end <= start {
			end = start + 1
		}

		key := clamp(n.Pitch, 0, 127)
		velocity := clamp(n.Velocity, note.MinVelocity, note.MaxVelocity)

		events = append(events,
			event{tick: start, key: key, velocity: velocity},
			event{tick: end, off: true, key: key},
		)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})
	return mergeOverlaps(events)
}

// mergeOverlaps drops a note-on for a key that is already sounding and every
// note-off but the one that silences the last overlapping note
func mergeOverlaps(events []event) []event {
	var sounding [128]int
	merged := events[:0]
	for _, ev := range events {
		if ev.off {
			sounding[ev.key]--
			if sounding[ev.key] > 0 {
				continue
			}
		} else {
			sounding[ev.key]++
			if sounding[ev.key] > 1 {
				continue
			}
		}
		merged = append(merged, ev)
	}
	return merged
}

func clamp(v, lo, hi int) uint8 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return uint8(v)
}
