package pitch

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	DefaultFrameSize    = 2048
	DefaultHopLength    = 512
	DefaultMinFrequency = 50.0
	DefaultMaxFrequency = 2000.0
	DefaultNoiseFloor   = 0.005
)

// FFTTracker implements frame-level pitch tracking using a short-time FFT
type FFTTracker struct {
	frameSize    int
	hopLength    int
	minFrequency float64 // Lowest frequency to search (Hz)
	maxFrequency float64 // Highest frequency to search (Hz)
	noiseFloor   float64 // Minimum sine amplitude for a frame to count as pitched
}

// NewFFTTracker creates a new FFT-based tracker with the default search band
func NewFFTTracker(frameSize, hopLength int) *FFTTracker {
	return &FFTTracker{
		frameSize:    frameSize,
		hopLength:    hopLength,
		minFrequency: DefaultMinFrequency,
		maxFrequency: DefaultMaxFrequency,
		noiseFloor:   DefaultNoiseFloor,
	}
}

// SetBand sets the [min, max] frequency search band in Hz
func (d *FFTTracker) SetBand(minFrequency, maxFrequency float64) {
	d.minFrequency = minFrequency
	d.maxFrequency = maxFrequency
}

// SetNoiseFloor sets the amplitude under which a frame reports no pitch
func (d *FFTTracker) SetNoiseFloor(level float64) {
	if level < 0 {
		level = 0
	}
	d.noiseFloor = level
}

// Track analyzes samples frame by frame. Frames are centred on multiples of
// the hop length with the signal zero-padded by half a frame on both sides,
// giving 1 + len(samples)/hop frames.
//
// Confidence is the dominant bin's amplitude, normalized so the loudest frame
// of the stream is 1.
func (d *FFTTracker) Track(samples []float64, sampleRate int) (Frames, error) {
	if len(samples) == 0 {
		return Frames{}, ErrEmptyBuffer
	}

	minBin, maxBin, err := d.bins(sampleRate)
	if err != nil {
		return Frames{}, err
	}

	hann := window.Hann(d.frameSize)
	windowSum := 0.0
	for _, w := range hann {
		windowSum += w
	}

	// The last frame starts at (len/hop)*hop <= len, so a full frameSize of
	// trailing room keeps odd frame sizes in bounds.
	pad := d.frameSize / 2
	padded := make([]float64, len(samples)+d.frameSize)
	copy(padded[pad:], samples)

	numFrames := 1 + len(samples)/d.hopLength
	frames := Frames{
		Frequencies: make([]float64, numFrames),
		Confidence:  make([]float64, numFrames),
		SampleRate:  sampleRate,
		HopLength:   d.hopLength,
	}

	binSizeHz := float64(sampleRate) / float64(d.frameSize)
	frame := make([]float64, d.frameSize)
	loudest := 0.0

	for i := 0; i < numFrames; i++ {
		start := i * d.hopLength
		for j := range frame {
			frame[j] = padded[start+j] * hann[j]
		}

		spectrum := fft.FFTReal(frame)
		bin, magnitude := dominantBin(spectrum, minBin, maxBin)

		// Scale so a full-scale sine reads as amplitude 1
		amplitude := 2 * magnitude / windowSum
		if amplitude < d.noiseFloor {
			continue
		}

		frames.Frequencies[i] = interpolatePeak(spectrum, bin) * binSizeHz
		frames.Confidence[i] = amplitude
		if amplitude > loudest {
			loudest = amplitude
		}
	}

	if loudest > 0 {
		for i := range frames.Confidence {
			frames.Confidence[i] /= loudest
		}
	}

	return frames, nil
}

// bins converts the search band into an inclusive FFT bin range
func (d *FFTTracker) bins(sampleRate int) (int, int, error) {
	if d.frameSize < 4 || d.hopLength <= 0 || sampleRate <= 0 {
		return 0, 0, fmt.Errorf("%w: frame size %d, hop length %d, sample rate %d",
			ErrInvalidTracker, d.frameSize, d.hopLength, sampleRate)
	}
	if d.minFrequency <= 0 || d.maxFrequency <= d.minFrequency {
		return 0, 0, fmt.Errorf("%w: band [%g, %g] Hz", ErrInvalidTracker, d.minFrequency, d.maxFrequency)
	}

	binSizeHz := float64(sampleRate) / float64(d.frameSize)

	minBin := int(math.Ceil(d.minFrequency / binSizeHz))
	if minBin < 1 {
		minBin = 1 // Avoid DC component
	}

	maxBin := int(math.Floor(d.maxFrequency / binSizeHz))
	if maxBin > d.frameSize/2-1 {
		maxBin = d.frameSize/2 - 1
	}

	if minBin > maxBin {
		return 0, 0, fmt.Errorf("%w: band [%g, %g] Hz holds no bins at %d Hz / %d samples",
			ErrInvalidTracker, d.minFrequency, d.maxFrequency, sampleRate, d.frameSize)
	}
	return minBin, maxBin, nil
}

// dominantBin returns the bin with maximum magnitude in [minBin, maxBin].
// On exact ties the lowest bin wins.
func dominantBin(spectrum []complex128, minBin, maxBin int) (int, float64) {
	best := minBin
	bestMagnitude := cmplx.Abs(spectrum[minBin])
	for i := minBin + 1; i <= maxBin; i++ {
		if magnitude := cmplx.Abs(spectrum[i]); magnitude > bestMagnitude {
			best = i
			bestMagnitude = magnitude
		}
	}
	return best, bestMagnitude
}

// interpolatePeak refines a bin index with quadratic interpolation:
// x = 0.5 * (R[k-1] - R[k+1]) / (R[k-1] - 2*R[k] + R[k+1]) + k
// It falls back to the bin itself when k is not a local peak.
func interpolatePeak(spectrum []complex128, bin int) float64 {
	if bin < 1 || bin+1 >= len(spectrum) {
		return float64(bin)
	}

	prev := cmplx.Abs(spectrum[bin-1])
	current := cmplx.Abs(spectrum[bin])
	next := cmplx.Abs(spectrum[bin+1])

	if current < prev || current < next {
		return float64(bin)
	}

	denominator := prev - 2*current + next
	if denominator == 0 {
		return float64(bin)
	}
	return float64(bin) + 0.5*(prev-next)/denominator
}
