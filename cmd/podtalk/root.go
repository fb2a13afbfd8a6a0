package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/podtalk/podtalk/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "podtalk",
	Short: "Talk to the hosts of the podcast you are listening to",
	Long: `podtalk turns a playing podcast into a conversation: it pauses
playback, records your question, and answers aloud in the episode
host's own cloned voice before resuming where you left off.

Run 'podtalk setup' once per episode to download, diarize, and clone
the hosts' voices (results are cached), then 'podtalk run' for the
interactive loop.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	rootCmd.AddCommand(setupCmd, runCmd, speakCmd, statusCmd)
}

// loadConfig reads the config file and installs the configured logger as
// the slog default.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %q not found — copy configs/example.yaml to get started", configPath)
		}
		return nil, err
	}
	slog.SetDefault(newLogger(cfg.App.LogLevel))
	return cfg, nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
