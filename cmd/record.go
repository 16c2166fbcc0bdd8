package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/0xlemi/humnote/internal/audio"
	"github.com/0xlemi/humnote/internal/note"
	"github.com/0xlemi/humnote/internal/pipeline"
	"github.com/0xlemi/humnote/internal/pitch"
	"github.com/spf13/cobra"
)

const (
	// Audio settings
	bufferSize = 4096
	channels   = 1
)

var (
	recordOut  string
	keepWav    string
	seconds    float64
	deviceRate int
	gain       float64
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a take from the microphone and convert it to MIDI",
	Long: `Record a take from the default input device and convert it to MIDI.

Recording stops after --seconds or on Ctrl+C; whatever was captured is then
converted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if seconds <= 0 {
			return fmt.Errorf("--seconds must be positive, got %v", seconds)
		}

		conv, err := pipeline.NewConverter(cfg, log)
		if err != nil {
			return err
		}

		capturer, err := audio.NewPortAudioCapturer(bufferSize, deviceRate, channels)
		if err != nil {
			return fmt.Errorf("failed to create audio capturer: %w", err)
		}
		defer capturer.Close()
		capturer.SetAmplification(gain)

		duration := time.Duration(seconds * float64(time.Second))
		log.WithField("duration", duration).Info("recording, press Ctrl+C to stop early")

		buffer, err := audio.Record(cmd.Context(), capturer, duration)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("recording: %w", err)
		}
		log.WithField("captured", buffer.Duration()).Info("recording finished")

		if keepWav != "" {
			if err := buffer.WriteFile(keepWav); err != nil {
				return fmt.Errorf("saving take: %w", err)
			}
		}

		// Ctrl+C only ends the recording; the conversion still runs
		res, err := conv.ConvertBuffer(context.WithoutCancel(cmd.Context()), "microphone", buffer, recordOut)
		if err != nil {
			return err
		}

		printNotes(res.Quantized)
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVarP(&recordOut, "output", "o", "take.mid", "output MIDI file")
	recordCmd.Flags().StringVar(&keepWav, "keep", "", "also save the raw take as a WAV file")
	recordCmd.Flags().Float64Var(&seconds, "seconds", 10, "maximum recording length")
	recordCmd.Flags().IntVar(&deviceRate, "device-rate", 44100, "input device sample rate")
	recordCmd.Flags().Float64Var(&gain, "gain", 1, "input amplification factor")
	addTuningFlags(recordCmd.Flags())

	rootCmd.AddCommand(recordCmd)
}

func printNotes(notes []note.Note) {
	if len(notes) == 0 {
		fmt.Println("No notes detected")
		return
	}
	for _, n := range notes {
		fmt.Printf("%-4s %7.3fs - %7.3fs  vel %3d\n", pitch.NoteName(n.Pitch), n.Start, n.End, n.Velocity)
	}
}
