package main

import (
	"github.com/0xlemi/humnote/internal/config"
	"github.com/spf13/pflag"
)

// tuningFlags holds the flag values shared by convert and record
type tuningFlags struct {
	tempo      float64
	grid       float64
	minNote    float64
	threshold  float64
	hop        int
	frame      int
	fmin       float64
	fmax       float64
	noiseFloor float64
	sampleRate int
}

var tuning tuningFlags

// addTuningFlags registers the pipeline flags with the defaults shown in help
func addTuningFlags(flags *pflag.FlagSet) {
	def := config.DefaultConfig()

	flags.Float64Var(&tuning.tempo, "tempo", def.Tempo, "tempo in BPM, used for quantization and the MIDI file")
	flags.Float64Var(&tuning.grid, "grid", def.Grid, "quantization grid as a fraction of a quarter note (0.25 = sixteenths)")
	flags.Float64Var(&tuning.minNote, "min-note", def.MinNoteLength, "shortest note kept, in seconds")
	flags.Float64Var(&tuning.threshold, "threshold", def.SilenceThreshold, "confidence below which a frame is silent (0..1)")
	flags.IntVar(&tuning.hop, "hop", def.HopLength, "samples between analysis frames")
	flags.IntVar(&tuning.frame, "frame", def.FrameSize, "analysis frame size in samples")
	flags.Float64Var(&tuning.fmin, "fmin", def.MinFrequency, "lowest pitch searched, in Hz")
	flags.Float64Var(&tuning.fmax, "fmax", def.MaxFrequency, "highest pitch searched, in Hz")
	flags.Float64Var(&tuning.noiseFloor, "noise-floor", def.NoiseFloor, "amplitude under which a frame has no pitch")
	flags.IntVar(&tuning.sampleRate, "sample-rate", def.SampleRate, "resample input to this rate (0 keeps the file rate)")
}

// applyTuning copies flags the user actually set onto cfg
func applyTuning(flags *pflag.FlagSet, cfg *config.Config) {
	set := func(name string, apply func()) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}

	set("tempo", func() { cfg.Tempo = tuning.tempo })
	set("grid", func() { cfg.Grid = tuning.grid })
	set("min-note", func() { cfg.MinNoteLength = tuning.minNote })
	set("threshold", func() { cfg.SilenceThreshold = tuning.threshold })
	set("hop", func() { cfg.HopLength = tuning.hop })
	set("frame", func() { cfg.FrameSize = tuning.frame })
	set("fmin", func() { cfg.MinFrequency = tuning.fmin })
	set("fmax", func() { cfg.MaxFrequency = tuning.fmax })
	set("noise-floor", func() { cfg.NoiseFloor = tuning.noiseFloor })
	set("sample-rate", func() { cfg.SampleRate = tuning.sampleRate })
}
