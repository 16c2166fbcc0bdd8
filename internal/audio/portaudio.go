package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioCapturer records from the default input device using PortAudio.
// It keeps the whole take in memory until Stop.
type PortAudioCapturer struct {
	isCapturing   bool
	stream        *portaudio.Stream
	buffer        *AudioBuffer
	bufferSize    int
	sampleRate    int
	channels      int
	bufferMutex   sync.Mutex
	amplification float64 // Audio signal amplification factor
}

// NewPortAudioCapturer creates a new audio capturer using PortAudio
func NewPortAudioCapturer(bufferSize, sampleRate, channels int) (*PortAudioCapturer, error) {
	// Initialize PortAudio
	err := portaudio.Initialize()
	if err != nil {
		return nil, err
	}

	capturer := &PortAudioCapturer{
		buffer: &AudioBuffer{
			SampleRate: sampleRate,
		},
		bufferSize:    bufferSize,
		sampleRate:    sampleRate,
		channels:      channels,
		amplification: 1.0,
	}

	return capturer, nil
}

// Start begins audio capture, discarding any previous take
func (c *PortAudioCapturer) Start() error {
	if c.isCapturing {
		return ErrAlreadyCapturing
	}

	c.bufferMutex.Lock()
	c.buffer.Samples = c.buffer.Samples[:0]
	c.bufferMutex.Unlock()

	// Open default input stream
	var err error
	c.stream, err = portaudio.OpenDefaultStream(
		c.channels, // input channels
		0,          // output channels (we don't need output)
		float64(c.sampleRate),
		c.bufferSize/c.channels, // frames per buffer
		c.processAudio,          // callback function
	)
	if err != nil {
		return err
	}

	err = c.stream.Start()
	if err != nil {
		c.stream.Close()
		return err
	}

	c.isCapturing = true
	return nil
}

// Stop ends audio capture. The captured take stays available through
// GetBuffer until the next Start.
func (c *PortAudioCapturer) Stop() error {
	if !c.isCapturing {
		return ErrNotCapturing
	}

	err := c.stream.Stop()
	if err != nil {
		return err
	}

	err = c.stream.Close()
	if err != nil {
		return err
	}

	c.isCapturing = false
	return nil
}

// Close releases PortAudio. The capturer cannot be used afterwards.
func (c *PortAudioCapturer) Close() error {
	if c.isCapturing {
		if err := c.Stop(); err != nil {
			return err
		}
	}
	return portaudio.Terminate()
}

// processAudio is the callback function for audio processing
func (c *PortAudioCapturer) processAudio(in, _ []float32) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	c.buffer.Samples = appendMono(c.buffer.Samples, in, c.channels, c.amplification)
}

// appendMono averages interleaved channels into mono, applies gain and
// appends the result to dst
func appendMono(dst []float64, in []float32, channels int, gain float64) []float64 {
	if channels < 1 {
		channels = 1
	}

	for i := 0; i+channels <= len(in); i += channels {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += float64(in[i+ch])
		}
		dst = append(dst, sum/float64(channels)*gain)
	}
	return dst
}

// GetBuffer returns a copy of the take captured so far
func (c *PortAudioCapturer) GetBuffer() (*AudioBuffer, error) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	bufferCopy := &AudioBuffer{
		Samples:    make([]float64, len(c.buffer.Samples)),
		SampleRate: c.buffer.SampleRate,
	}
	copy(bufferCopy.Samples, c.buffer.Samples)

	return bufferCopy, nil
}

// IsCapturing returns true if currently capturing audio
func (c *PortAudioCapturer) IsCapturing() bool {
	return c.isCapturing
}

// SetAmplification sets the audio amplification factor
func (c *PortAudioCapturer) SetAmplification(factor float64) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	// Ensure amplification is positive
	if factor < 0.1 {
		factor = 0.1
	}

	c.amplification = factor
}
