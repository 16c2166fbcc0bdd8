package pitch

import (
	"fmt"
	"math"
)

const (
	// ReferenceFrequency is A4
	ReferenceFrequency = 440.0
	// ReferenceSemitone is the MIDI note number of A4
	ReferenceSemitone = 69

	// SilenceFrequency stands in for non-positive estimates so the
	// logarithm is always defined. It lands far below the MIDI range.
	SilenceFrequency = 0.1

	// SmoothingWindow is the median filter width applied before conversion
	SmoothingWindow = 5
)

// All note names in chromatic order
var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// FrequencyToSemitone converts a frequency in Hz to the nearest semitone
// number, A4 = 69. Halfway values round to even.
func FrequencyToSemitone(frequency float64) int {
	if frequency <= 0 {
		frequency = SilenceFrequency
	}

	semitones := 12*math.Log2(frequency/ReferenceFrequency) + ReferenceSemitone
	return int(math.RoundToEven(semitones))
}

// ToSemitones smooths a frequency sequence with a median filter and maps
// every frame to a semitone number. The output has the same length as the
// input. Frames without a pitch come out as a very low number; callers must
// rely on confidence to tell them apart.
func ToSemitones(frequencies []float64) []int {
	smoothed := medianFilter(frequencies, SmoothingWindow)

	semitones := make([]int, len(smoothed))
	for i, f := range smoothed {
		semitones[i] = FrequencyToSemitone(f)
	}
	return semitones
}

// NoteName renders a semitone number as a note name with octave, e.g. "C#5".
// Middle C (60) is "C4".
func NoteName(semitone int) string {
	noteIndex := semitone % 12
	if noteIndex < 0 {
		noteIndex += 12
	}
	octave := int(math.Floor(float64(semitone)/12)) - 1

	return fmt.Sprintf("%s%d", noteNames[noteIndex], octave)
}
