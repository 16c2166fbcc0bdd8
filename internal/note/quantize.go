package note

import "math"

// GridSeconds returns the grid spacing for a tempo and a grid fraction of a
// quarter note (1.0 = quarter, 0.25 = sixteenth)
func GridSeconds(tempoBPM, gridFraction float64) float64 {
	return 60 / tempoBPM * gridFraction
}

// Quantize snaps note boundaries to the nearest grid line, rounding exact
// halves to the even cell. A note whose start and end land on the same line
// is stretched to one full cell. The input slice is left untouched.
//
// tempoBPM and gridFraction must be positive; they are not checked here.
func Quantize(notes []Note, tempoBPM, gridFraction float64) []Note {
	grid := GridSeconds(tempoBPM, gridFraction)

	quantized := make([]Note, 0, len(notes))
	for _, n := range notes {
		startCell := math.RoundToEven(n.Start / grid)
		endCell := math.RoundToEven(n.End / grid)

		if startCell == endCell {
			endCell = startCell + 1
		}

		quantized = append(quantized, Note{
			Pitch:    n.Pitch,
			Start:    startCell * grid,
			End:      endCell * grid,
			Velocity: n.Velocity,
		})
	}
	return quantized
}
