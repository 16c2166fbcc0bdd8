package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/0xlemi/humnote/internal/note"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every tunable of a conversion
type Config struct {
	// SampleRate resamples decoded audio when non-zero; 0 keeps the file rate
	SampleRate int `json:"sampleRate,omitempty"`
	HopLength  int `json:"hopLength"`
	FrameSize  int `json:"frameSize"`

	MinFrequency float64 `json:"minFrequency"`
	MaxFrequency float64 `json:"maxFrequency"`
	NoiseFloor   float64 `json:"noiseFloor"`

	MinNoteLength    float64 `json:"minNoteLength"`    // seconds
	SilenceThreshold float64 `json:"silenceThreshold"` // same units as tracker confidence

	Tempo float64 `json:"tempo"` // BPM
	Grid  float64 `json:"grid"`  // fraction of a quarter note

	Workers int `json:"workers,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HopLength:        512,
		FrameSize:        2048,
		MinFrequency:     50,
		MaxFrequency:     2000,
		NoiseFloor:       0.005,
		MinNoteLength:    0.1,
		SilenceThreshold: 0.3,
		Tempo:            120,
		Grid:             0.25,
		Workers:          runtime.NumCPU(),
	}
}

// Validate rejects settings that would make the pipeline divide by zero or
// produce non-finite times
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(positive(c.Tempo), "tempo must be positive, got %v", c.Tempo)
	check(positive(c.Grid), "grid must be positive, got %v", c.Grid)
	check(c.HopLength > 0, "hop length must be positive, got %d", c.HopLength)
	check(c.FrameSize >= 4, "frame size must be at least 4, got %d", c.FrameSize)
	check(c.SampleRate >= 0, "sample rate must not be negative, got %d", c.SampleRate)
	check(positive(c.MinFrequency) && c.MaxFrequency > c.MinFrequency,
		"frequency band [%v, %v] is empty", c.MinFrequency, c.MaxFrequency)
	check(finite(c.MinNoteLength) && c.MinNoteLength >= 0, "min note length must not be negative, got %v", c.MinNoteLength)
	check(finite(c.SilenceThreshold), "silence threshold must be finite, got %v", c.SilenceThreshold)
	check(finite(c.NoiseFloor) && c.NoiseFloor >= 0, "noise floor must not be negative, got %v", c.NoiseFloor)
	check(c.Workers >= 0, "workers must not be negative, got %d", c.Workers)

	return errors.Join(errs...)
}

// Segment returns the segmenter settings for audio at sampleRate
func (c *Config) Segment(sampleRate int) note.SegmentConfig {
	return note.SegmentConfig{
		SampleRate:       sampleRate,
		HopLength:        c.HopLength,
		MinNoteLength:    c.MinNoteLength,
		SilenceThreshold: c.SilenceThreshold,
	}
}

func positive(v float64) bool {
	return finite(v) && v > 0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "humnote"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the default config file, or returns defaults if there is none
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	cfg, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// LoadFile reads a config from path. Fields missing from the file keep their
// defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating the directory if needed
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
