package cmd

import (
	"github.com/spf13/cobra"

	"github.com/NamanBalaji/resumable/internal/config"
	"github.com/NamanBalaji/resumable/internal/logger"
)

var (
	cfg   *config.Config
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "resumable",
	Short: "Chunked, resumable file uploads over HTTP",
	Long: `resumable splits files into chunks and uploads them with retries, so an
interrupted transfer picks up where it stopped. The same binary runs the
receiving server.

Configuration is read from $XDG_CONFIG_HOME/resumable (YAML).`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		logger.Close()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Write debug logs to the state directory")
}

func setup(*cobra.Command, []string) error {
	c, err := config.GetConfig()
	if err != nil {
		return err
	}

	cfg = c

	return logger.InitLogging(debug, cfg.LogFile)
}
