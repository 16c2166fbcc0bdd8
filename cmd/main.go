package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/0xlemi/humnote/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "humnote",
	Short: "Turn hummed or sung melodies into MIDI",
	Long: `humnote tracks the pitch of a monophonic recording, splits it into notes,
snaps them to a tempo grid and writes a Standard MIDI File.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetOutput(os.Stderr)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "JSON config file (default: user config dir, humnote/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every pipeline stage")
}

// loadConfig reads the config file and lets explicitly set flags override it
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	applyTuning(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("humnote failed")
		stop()
		os.Exit(1)
	}
}
