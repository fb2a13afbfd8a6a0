package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/podtalk/podtalk/internal/app"
	"github.com/podtalk/podtalk/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Prepare the configured episode: download, diarize, clone voices",
	Long: `Setup downloads the configured episode, diarizes its analysis
window, selects per-speaker training clips, and creates voice clones.

Diarization results land in the durable cache and clones persist in the
provider account, so a later 'podtalk run' for the same episode skips
the expensive work.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg := config.NewRegistry()
		registerBuiltinProviders(reg)
		providers, err := buildProviders(cfg, reg)
		if err != nil {
			return err
		}

		application, err := app.New(ctx, cfg, providers)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = application.Shutdown(sctx)
		}()

		if err := application.Setup(ctx); err != nil {
			return err
		}

		for id, profile := range application.Session().Profiles() {
			fmt.Printf("cloned %s as voice %s\n", id, profile.CloneID)
		}
		return nil
	},
}
