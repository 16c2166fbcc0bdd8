package audio

import (
	"fmt"
	"os"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// Stream returns a beep streamer playing the buffer as centred mono
func (b *AudioBuffer) Stream() beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(out [][2]float64) (int, bool) {
		if pos >= len(b.Samples) {
			return 0, false
		}
		n := len(out)
		if rest := len(b.Samples) - pos; rest < n {
			n = rest
		}
		for i := 0; i < n; i++ {
			s := b.Samples[pos+i]
			out[i] = [2]float64{s, s}
		}
		pos += n
		return n, true
	})
}

// WriteFile saves the buffer as a 16-bit mono WAV file
func (b *AudioBuffer) WriteFile(path string) (err error) {
	if b.SampleRate <= 0 {
		return fmt.Errorf("cannot write %s: sample rate %d", path, b.SampleRate)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	format := beep.Format{
		SampleRate:  beep.SampleRate(b.SampleRate),
		NumChannels: 1,
		Precision:   2,
	}
	return wav.Encode(f, b.Stream(), format)
}
