package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrDecode            = errors.New("cannot decode audio")
)

// resampleQuality is passed to beep.Resample; 4 is beep's recommended
// speed/quality balance
const resampleQuality = 4

// streamChunk is the number of frames pulled from a decoder at a time
const streamChunk = 4096

type decodeFunc func(io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

func wavDecode(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	return wav.Decode(rc)
}

// decoderFor picks a decoder by file extension
func decoderFor(ext string) (decodeFunc, error) {
	switch strings.ToLower(ext) {
	case ".wav", ".wave":
		return wavDecode, nil
	case ".mp3":
		return mp3.Decode, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// ReadFile decodes a WAV or MP3 file into mono samples. When targetRate is
// non-zero and differs from the file's rate the audio is resampled.
func ReadFile(path string, targetRate int) (*AudioBuffer, error) {
	ext := filepath.Ext(path)
	if _, err := decoderFor(ext); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return Decode(f, ext, targetRate)
}

// Decode reads audio of the given kind (a file extension such as ".wav")
// from rc and closes it. Channels are averaged into mono.
func Decode(rc io.ReadCloser, ext string, targetRate int) (*AudioBuffer, error) {
	decode, err := decoderFor(ext)
	if err != nil {
		rc.Close()
		return nil, err
	}

	streamer, format, err := decode(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer streamer.Close()

	var source beep.Streamer = streamer
	sampleRate := int(format.SampleRate)
	if targetRate > 0 && targetRate != sampleRate {
		source = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(targetRate), streamer)
		sampleRate = targetRate
	}

	samples, err := drainMono(source, streamer.Len())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return &AudioBuffer{
		Samples:    samples,
		SampleRate: sampleRate,
	}, nil
}

// drainMono pulls every frame from s, averaging left and right
func drainMono(s beep.Streamer, sizeHint int) ([]float64, error) {
	if sizeHint < 0 {
		sizeHint = 0
	}
	samples := make([]float64, 0, sizeHint)
	chunk := make([][2]float64, streamChunk)

	for {
		n, ok := s.Stream(chunk)
		for _, frame := range chunk[:n] {
			samples = append(samples, (frame[0]+frame[1])/2)
		}
		if !ok {
			break
		}
	}
	return samples, s.Err()
}
