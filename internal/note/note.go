// Package note turns per-frame pitch estimates into discrete notes and
// snaps them onto a tempo grid.
package note

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for malformed frame streams
var ErrInvalidInput = errors.New("invalid input")

const (
	MinVelocity = 1
	MaxVelocity = 127
)

// Note is a single pitched event. Times are in seconds.
type Note struct {
	Pitch    int     // MIDI note number, A4 = 69
	Start    float64 // Onset in seconds
	End      float64 // Release in seconds, exclusive
	Velocity int     // 1..127
}

// Duration returns End - Start
func (n Note) Duration() float64 {
	return n.End - n.Start
}

func (n Note) String() string {
	return fmt.Sprintf("pitch=%d [%.3fs, %.3fs) vel=%d", n.Pitch, n.Start, n.End, n.Velocity)
}
