package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/podtalk/podtalk/internal/app"
	"github.com/podtalk/podtalk/internal/config"
	"github.com/podtalk/podtalk/internal/observe"
	"github.com/podtalk/podtalk/internal/talk"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Prepare the episode and start the interactive talk loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runLoop(cfg)
	},
}

func runLoop(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "error", err)
		}
	}()

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
		if err := application.Shutdown(sctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("preparing episode", "show", cfg.Episode.Show, "title", cfg.Episode.Title)
	if err := application.Setup(ctx); err != nil {
		return err
	}

	return talkLoop(ctx, application)
}

// talkLoop reads stdin: an empty line triggers a turn, "q" quits.
func talkLoop(ctx context.Context, application *app.App) error {
	hosts := application.Session().ClonedSpeakers()
	fmt.Printf("\nReady. %d host voice(s) available.\n", len(hosts))
	fmt.Println("Start the episode in Spotify, then press Enter to ask a question (q to quit).")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nbye")
			return nil
		case line, ok := <-lines:
			if !ok || line == "q" || line == "quit" {
				fmt.Println("bye")
				return nil
			}
			turn, err := application.Talk().Trigger(ctx)
			switch {
			case errors.Is(err, talk.ErrBusy):
				fmt.Println("still answering, hold on")
			case err != nil:
				fmt.Printf("turn failed: %v\n", err)
			case turn.Question == "":
				fmt.Println("didn't catch that, back to the episode")
			default:
				fmt.Printf("\nYou: %s\n%s: %s\n\n", turn.Question, turn.Speaker, turn.Reply)
			}
		}
	}
}
