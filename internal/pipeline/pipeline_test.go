package pipeline

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/0xlemi/humnote/internal/audio"
	"github.com/0xlemi/humnote/internal/config"
	"github.com/0xlemi/humnote/internal/note"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"
)

const sampleRate = 44100

// melody renders consecutive sine tones of the given frequencies, each lasting
// seconds; a frequency of 0 is silence
func melody(seconds float64, frequencies ...float64) []float64 {
	per := int(seconds * sampleRate)
	samples := make([]float64, 0, per*len(frequencies))
	for _, f := range frequencies {
		for i := 0; i < per; i++ {
			samples = append(samples, 0.5*math.Sin(2*math.Pi*f*float64(i)/sampleRate))
		}
	}
	return samples
}

func writeWav(t *testing.T, path string, samples []float64) {
	t.Helper()
	buf := &audio.AudioBuffer{Samples: samples, SampleRate: sampleRate}
	require.NoError(t, buf.WriteFile(path))
}

func newConverter(t *testing.T) (*Converter, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	c, err := NewConverter(config.DefaultConfig(), logger)
	require.NoError(t, err)
	return c, hook
}

func TestNewConverterValidates(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tempo = 0

	_, err := NewConverter(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestTranscribeTwoNotes(t *testing.T) {
	c, _ := newConverter(t)

	// A4 then B4, half a second each
	res, err := c.Transcribe(context.Background(), melody(0.5, 440, 493.88), sampleRate)
	require.NoError(t, err)

	assert.Equal(t, res.Frames.Len(), len(res.Semitones))
	require.Len(t, res.Notes, 2)
	assert.Equal(t, 69, res.Notes[0].Pitch)
	assert.Equal(t, 71, res.Notes[1].Pitch)

	require.Len(t, res.Quantized, 2)
	assert.Equal(t, 0.0, res.Quantized[0].Start)
	assert.Equal(t, 0.5, res.Quantized[0].End)
	assert.Equal(t, 0.5, res.Quantized[1].Start)
	assert.Equal(t, 1.0, res.Quantized[1].End)
	for _, n := range res.Quantized {
		assert.GreaterOrEqual(t, n.Velocity, note.MinVelocity)
		assert.LessOrEqual(t, n.Velocity, note.MaxVelocity)
	}
}

func TestTranscribeLogsTrackedDuration(t *testing.T) {
	c, hook := newConverter(t)

	res, err := c.Transcribe(context.Background(), melody(0.5, 440), sampleRate)
	require.NoError(t, err)

	var tracked *logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Message == "pitch tracked" {
			tracked = entry
		}
	}
	require.NotNil(t, tracked)
	assert.Equal(t, res.Frames.Len(), tracked.Data["frames"])
	assert.Equal(t, res.Frames.Duration(), tracked.Data["duration"])
	// frames are centred, so they cover one hop past the end of the input
	assert.InDelta(t, 0.5, tracked.Data["duration"], float64(config.DefaultConfig().HopLength)/sampleRate)
}

func TestTranscribeSilence(t *testing.T) {
	c, _ := newConverter(t)

	res, err := c.Transcribe(context.Background(), make([]float64, sampleRate), sampleRate)
	require.NoError(t, err)
	assert.Empty(t, res.Notes)
	assert.Empty(t, res.Quantized)
}

func TestTranscribeEmptyInput(t *testing.T) {
	c, _ := newConverter(t)

	_, err := c.Transcribe(context.Background(), nil, sampleRate)
	assert.Error(t, err)
}

func TestTranscribeCancelled(t *testing.T) {
	c, _ := newConverter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Transcribe(ctx, melody(0.5, 440), sampleRate)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "hum.wav")
	out := filepath.Join(dir, "hum.mid")
	writeWav(t, in, melody(0.5, 440, 0, 523.25))

	c, hook := newConverter(t)

	var mu sync.Mutex
	var stages []Stage
	c.SetObserver(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		stages = append(stages, ev.Stage)
	})

	res, err := c.ConvertFile(context.Background(), in, out)
	require.NoError(t, err)
	require.Len(t, res.Quantized, 2)
	assert.Equal(t, 69, res.Quantized[0].Pitch)
	assert.Equal(t, 72, res.Quantized[1].Pitch)

	assert.Equal(t, []Stage{StageDecode, StageTrack, StageSegment, StageQuantize, StageEncode, StageDone}, stages)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	s, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, s.Tracks, 1)

	var keys []uint8
	for _, ev := range s.Tracks[0] {
		var ch, key, vel uint8
		if ev.Message.GetNoteOn(&ch, &key, &vel) {
			keys = append(keys, key)
		}
	}
	assert.Equal(t, []uint8{69, 72}, keys)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "converted", hook.LastEntry().Message)
	assert.Equal(t, 2, hook.LastEntry().Data["notes"])
}

func TestConvertFileMissingInput(t *testing.T) {
	dir := t.TempDir()
	c, _ := newConverter(t)

	var failed Event
	c.SetObserver(func(ev Event) {
		if ev.Stage == StageFailed {
			failed = ev
		}
	})

	_, err := c.ConvertFile(context.Background(), filepath.Join(dir, "missing.wav"), filepath.Join(dir, "out.mid"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorIs(t, failed.Err, os.ErrNotExist)
	assert.NoFileExists(t, filepath.Join(dir, "out.mid"))
}

func TestConvertBuffer(t *testing.T) {
	out := filepath.Join(t.TempDir(), "take.mid")
	c, _ := newConverter(t)

	buf := &audio.AudioBuffer{Samples: melody(1, 440), SampleRate: sampleRate}
	res, err := c.ConvertBuffer(context.Background(), "microphone", buf, out)
	require.NoError(t, err)
	require.Len(t, res.Quantized, 1)
	assert.FileExists(t, out)
}

func TestJobs(t *testing.T) {
	jobs := Jobs([]string{"a/one.wav", "b/two.MP3"}, "")
	assert.Equal(t, []Job{
		{Input: "a/one.wav", Output: filepath.Join("a", "one.mid")},
		{Input: "b/two.MP3", Output: filepath.Join("b", "two.mid")},
	}, jobs)

	jobs = Jobs([]string{"a/one.wav"}, "out")
	assert.Equal(t, filepath.Join("out", "one.mid"), jobs[0].Output)
}

func TestConvertAllCollectsFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.wav")
	writeWav(t, good, melody(0.5, 440))

	c, _ := newConverter(t)
	jobs := Jobs([]string{good, filepath.Join(dir, "missing.wav"), filepath.Join(dir, "notes.txt")}, dir)

	err := c.ConvertAll(context.Background(), jobs)
	require.Error(t, err)

	var batch *BatchError
	require.True(t, errors.As(err, &batch))
	assert.Equal(t, 3, batch.Total)
	require.Len(t, batch.Failures, 2)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorIs(t, err, audio.ErrUnsupportedFormat)

	assert.FileExists(t, filepath.Join(dir, "good.mid"))
}

func TestConvertAllSuccess(t *testing.T) {
	dir := t.TempDir()
	var inputs []string
	for _, name := range []string{"a.wav", "b.wav", "c.wav"} {
		path := filepath.Join(dir, name)
		writeWav(t, path, melody(0.5, 392))
		inputs = append(inputs, path)
	}

	c, _ := newConverter(t)
	require.NoError(t, c.ConvertAll(context.Background(), Jobs(inputs, "")))

	for _, name := range []string{"a.mid", "b.mid", "c.mid"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestConvertAllNamesCancelledFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.wav")
	second := filepath.Join(dir, "second.wav")
	writeWav(t, first, melody(0.5, 440))
	writeWav(t, second, melody(0.5, 440))

	c, _ := newConverter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.ConvertAll(ctx, Jobs([]string{first, second}, ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), first+": context canceled")
	assert.Contains(t, err.Error(), second+": context canceled")

	var batch *BatchError
	require.True(t, errors.As(err, &batch))
	require.Len(t, batch.Failures, 2)
	assert.Equal(t, first+": context canceled", batch.Failures[0].Error())
}
