package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/podtalk/podtalk/internal/config"
	"github.com/podtalk/podtalk/internal/diarize"
	"github.com/podtalk/podtalk/pkg/kv"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	labelStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show playback state and cached diarizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		printPlayback(ctx, cfg)
		printCache(ctx, cfg)
		return nil
	},
}

func printPlayback(ctx context.Context, cfg *config.Config) {
	fmt.Println(titleStyle.Render("Playback"))

	if cfg.Providers.Playback.Name == "" {
		fmt.Println(dimStyle.Render("  no playback provider configured"))
		return
	}

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	controller, err := reg.CreatePlayback(cfg.Providers.Playback)
	if err != nil {
		fmt.Println(dimStyle.Render("  " + err.Error()))
		return
	}

	status, err := controller.Status(ctx)
	if err != nil {
		fmt.Println(dimStyle.Render("  " + err.Error()))
		return
	}
	if status.TrackID == "" {
		fmt.Println(dimStyle.Render("  no active playback session"))
		return
	}

	state := "paused"
	if status.Playing {
		state = "playing"
	}
	fmt.Printf("  %s %s\n", labelStyle.Render("State:"), state)
	fmt.Printf("  %s %s\n", labelStyle.Render("Track:"), status.TrackName)
	if status.ShowName != "" {
		fmt.Printf("  %s %s\n", labelStyle.Render("Show:"), status.ShowName)
	}
	fmt.Printf("  %s %s / %s\n", labelStyle.Render("Position:"),
		formatPos(status.Position), formatPos(status.TrackLength))
	if status.DeviceID != "" {
		fmt.Printf("  %s %s\n", labelStyle.Render("Device:"), status.DeviceID)
	}
}

func printCache(ctx context.Context, cfg *config.Config) {
	fmt.Println()
	fmt.Println(titleStyle.Render("Diarization cache"))

	if cfg.Cache.Dir == "" {
		fmt.Println(dimStyle.Render("  cache.dir not configured"))
		return
	}

	store, err := kv.NewBadger(kv.BadgerOptions{Dir: cfg.Cache.Dir})
	if err != nil {
		fmt.Println(dimStyle.Render("  " + err.Error()))
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("cache close error", "error", err)
		}
	}()

	entries, err := diarize.NewCache(store, nil).Entries(ctx)
	if err != nil {
		fmt.Println(dimStyle.Render("  " + err.Error()))
		return
	}
	if len(entries) == 0 {
		fmt.Println(dimStyle.Render("  empty"))
		return
	}

	for _, e := range entries {
		age := time.Since(e.CreatedAt).Round(time.Hour)
		fmt.Printf("  %s %s\n", labelStyle.Render(e.EpisodeKey),
			dimStyle.Render(fmt.Sprintf("window %s, %d segments, %d speakers, %s old",
				e.Window, len(e.Segments), len(e.Speakers()), age)))
	}
}

func formatPos(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}
