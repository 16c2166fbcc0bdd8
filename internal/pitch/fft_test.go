package pitch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 44100

func sine(frequency, amplitude float64, numSamples int) []float64 {
	samples := make([]float64, numSamples)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*frequency*float64(i)/testSampleRate)
	}
	return samples
}

func TestTrackSineFindsPitch(t *testing.T) {
	tracker := NewFFTTracker(DefaultFrameSize, DefaultHopLength)
	samples := sine(440, 0.5, testSampleRate)

	frames, err := tracker.Track(samples, testSampleRate)
	require.NoError(t, err)

	assert.Equal(t, 1+len(samples)/DefaultHopLength, frames.Len())
	assert.Len(t, frames.Confidence, frames.Len())
	assert.Equal(t, testSampleRate, frames.SampleRate)
	assert.Equal(t, DefaultHopLength, frames.HopLength)

	// skip the half-padded edges
	for i := 4; i < frames.Len()-4; i++ {
		assert.InDelta(t, 440, frames.Frequencies[i], 5, "frame %d", i)
		assert.Greater(t, frames.Confidence[i], 0.9, "frame %d", i)
	}

	semitones := ToSemitones(frames.Frequencies)
	for i := 4; i < len(semitones)-4; i++ {
		assert.Equal(t, 69, semitones[i])
	}
}

func TestTrackOddFrameSize(t *testing.T) {
	// sample count is a whole number of hops, so the last frame reaches the
	// very end of the padded signal
	tracker := NewFFTTracker(2049, 512)
	samples := sine(440, 0.5, 512*20)

	var frames Frames
	var err error
	require.NotPanics(t, func() {
		frames, err = tracker.Track(samples, testSampleRate)
	})
	require.NoError(t, err)
	assert.Equal(t, 21, frames.Len())
	assert.InDelta(t, 21*512.0/testSampleRate, frames.Duration(), 1e-12)

	for i := 4; i < frames.Len()-4; i++ {
		assert.InDelta(t, 440, frames.Frequencies[i], 15, "frame %d", i)
	}
}

func TestTrackConfidenceIsNormalized(t *testing.T) {
	tracker := NewFFTTracker(DefaultFrameSize, DefaultHopLength)
	samples := append(sine(330, 0.8, testSampleRate/2), sine(330, 0.2, testSampleRate/2)...)

	frames, err := tracker.Track(samples, testSampleRate)
	require.NoError(t, err)

	max := 0.0
	for _, c := range frames.Confidence {
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
		max = math.Max(max, c)
	}
	assert.InDelta(t, 1.0, max, 1e-9)

	quiet := frames.Confidence[frames.Len()*3/4]
	assert.InDelta(t, 0.25, quiet, 0.05)
}

func TestTrackSilence(t *testing.T) {
	tracker := NewFFTTracker(DefaultFrameSize, DefaultHopLength)
	frames, err := tracker.Track(make([]float64, 8192), testSampleRate)
	require.NoError(t, err)

	for i := 0; i < frames.Len(); i++ {
		assert.Zero(t, frames.Frequencies[i])
		assert.Zero(t, frames.Confidence[i])
	}
}

func TestTrackRespectsBand(t *testing.T) {
	tracker := NewFFTTracker(DefaultFrameSize, DefaultHopLength)
	tracker.SetBand(300, 2000)

	// 100 Hz is loud but out of band; 600 Hz is quieter and in band
	samples := sine(100, 0.8, testSampleRate/2)
	overtone := sine(600, 0.2, testSampleRate/2)
	for i := range samples {
		samples[i] += overtone[i]
	}

	frames, err := tracker.Track(samples, testSampleRate)
	require.NoError(t, err)
	mid := frames.Len() / 2
	assert.InDelta(t, 600, frames.Frequencies[mid], 10)
}

func TestTrackErrors(t *testing.T) {
	tracker := NewFFTTracker(DefaultFrameSize, DefaultHopLength)
	_, err := tracker.Track(nil, testSampleRate)
	assert.ErrorIs(t, err, ErrEmptyBuffer)

	_, err = tracker.Track([]float64{0, 1}, 0)
	assert.ErrorIs(t, err, ErrInvalidTracker)

	tracker.SetBand(500, 400)
	_, err = tracker.Track([]float64{0, 1}, testSampleRate)
	assert.ErrorIs(t, err, ErrInvalidTracker)

	bad := NewFFTTracker(DefaultFrameSize, 0)
	_, err = bad.Track([]float64{0, 1}, testSampleRate)
	assert.ErrorIs(t, err, ErrInvalidTracker)
}

func TestDominantBinTieBreak(t *testing.T) {
	spectrum := []complex128{0, 1, 3, 3, 2, 3, 0, 0}
	bin, magnitude := dominantBin(spectrum, 1, 6)
	assert.Equal(t, 2, bin)
	assert.Equal(t, 3.0, magnitude)
}

func TestInterpolatePeak(t *testing.T) {
	symmetric := []complex128{0, 1, 4, 1, 0}
	assert.Equal(t, 2.0, interpolatePeak(symmetric, 2))

	leaning := []complex128{0, 2, 4, 1, 0}
	assert.Less(t, interpolatePeak(leaning, 2), 2.0)

	// not a local peak
	slope := []complex128{0, 1, 2, 3, 0}
	assert.Equal(t, 2.0, interpolatePeak(slope, 2))
}
