package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/0xlemi/humnote/internal/pipeline"
	"github.com/0xlemi/humnote/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	outPath string
	outDir  string
	workers int
	useUI   bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert WAV or MP3 recordings to MIDI files",
	Long: `Convert WAV or MP3 recordings to MIDI files.

Each input becomes a .mid file next to it, or in --out-dir. With a single
input, -o names the output directly. Files are converted in parallel.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outPath != "" && len(args) > 1 {
			return errors.New("-o can only be used with a single input; use --out-dir")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("workers") {
			cfg.Workers = workers
		}

		conv, err := pipeline.NewConverter(cfg, log)
		if err != nil {
			return err
		}

		if outDir != "" {
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return err
			}
		}
		jobs := pipeline.Jobs(args, outDir)
		if outPath != "" {
			jobs[0].Output = outPath
		}

		if useUI {
			return convertWithUI(cmd.Context(), conv, jobs)
		}
		return conv.ConvertAll(cmd.Context(), jobs)
	},
}

func init() {
	convertCmd.Flags().StringVarP(&outPath, "output", "o", "", "output MIDI file (single input only)")
	convertCmd.Flags().StringVar(&outDir, "out-dir", "", "directory for output MIDI files")
	convertCmd.Flags().IntVarP(&workers, "workers", "j", 0, "files converted at once (0 = one per CPU)")
	convertCmd.Flags().BoolVar(&useUI, "ui", false, "show progress in a terminal UI")
	addTuningFlags(convertCmd.Flags())

	rootCmd.AddCommand(convertCmd)
}

// convertWithUI runs the batch while a bubbletea program shows progress.
// Logging is silenced so it does not tear the alt screen.
func convertWithUI(ctx context.Context, conv *pipeline.Converter, jobs []pipeline.Job) error {
	inputs := make([]string, len(jobs))
	for i, job := range jobs {
		inputs[i] = job.Input
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(ui.NewModel(inputs), tea.WithAltScreen())
	log.SetOutput(io.Discard)
	conv.SetObserver(func(ev pipeline.Event) {
		p.Send(ui.EventMsg(ev))
	})

	errc := make(chan error, 1)
	go func() {
		err := conv.ConvertAll(ctx, jobs)
		p.Send(ui.DoneMsg{Err: err})
		errc <- err
	}()

	final, runErr := p.Run()
	cancel()
	err := <-errc

	log.SetOutput(os.Stderr)
	if runErr != nil {
		return fmt.Errorf("running ui: %w", runErr)
	}
	if m, ok := final.(ui.Model); ok {
		done, failed := m.Finished()
		fmt.Printf("%d converted, %d failed\n", done, failed)
	}
	return err
}
