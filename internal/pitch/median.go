package pitch

import (
	"fmt"
	"sort"
)

// MedianFilter replaces every value with the median of the width values
// centred on it. Indices past either end are clamped to the first or last
// value. width must be odd.
func MedianFilter(values []float64, width int) ([]float64, error) {
	if width < 1 || width%2 == 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, width)
	}
	return medianFilter(values, width), nil
}

func medianFilter(values []float64, width int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	half := width / 2
	last := len(values) - 1
	window := make([]float64, width)

	for i := range values {
		for k := -half; k <= half; k++ {
			j := i + k
			if j < 0 {
				j = 0
			} else if j > last {
				j = last
			}
			window[k+half] = values[j]
		}
		sort.Float64s(window)
		out[i] = window[half]
	}
	return out
}
