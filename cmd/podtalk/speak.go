package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/podtalk/podtalk/internal/config"
	"github.com/podtalk/podtalk/pkg/audio"
	"github.com/podtalk/podtalk/pkg/audio/portaudio"
	"github.com/podtalk/podtalk/pkg/provider/voice"
)

// streamSampleRate matches the provider's default pcm_22050 streaming
// output format.
const streamSampleRate = 22050

var speakVoice string

var speakCmd = &cobra.Command{
	Use:   "speak [text...]",
	Short: "Synthesize text in a cloned voice and play it locally",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return speak(cfg, speakVoice, strings.Join(args, " "))
	},
}

func init() {
	speakCmd.Flags().StringVar(&speakVoice, "voice", "", "voice name or ID (required)")
	_ = speakCmd.MarkFlagRequired("voice")
}

func speak(cfg *config.Config, voiceRef, text string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	provider, err := reg.CreateVoice(cfg.Providers.Voice)
	if err != nil {
		return providerErr("voice", cfg.Providers.Voice.Name, err)
	}

	voiceID, err := resolveVoice(ctx, provider, voiceRef)
	if err != nil {
		return err
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer portaudio.Terminate()

	// Feed the whole text as one fragment; the flush happens on close.
	textCh := make(chan string, 1)
	textCh <- text
	close(textCh)

	start := time.Now()
	chunks, err := provider.SynthesizeStream(ctx, voiceID, textCh)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	var pcm []byte
	first := true
	for chunk := range chunks {
		if first {
			slog.Debug("first audio chunk", "latency", time.Since(start).Round(time.Millisecond))
			first = false
		}
		pcm = append(pcm, chunk...)
	}
	if len(pcm) == 0 {
		return fmt.Errorf("synthesize: stream produced no audio")
	}

	buf := audio.Buffer{Data: pcm, SampleRate: streamSampleRate, Channels: 1}
	slog.Info("playing", "voice", voiceID, "duration", buf.Duration().Round(time.Millisecond))
	return portaudio.NewPlayer().Play(ctx, buf)
}

// resolveVoice accepts either a voice ID or a catalogue name.
func resolveVoice(ctx context.Context, provider voice.Provider, ref string) (string, error) {
	voices, err := provider.ListVoices(ctx)
	if err != nil {
		return "", fmt.Errorf("list voices: %w", err)
	}
	if v, ok := voice.FindByName(voices, ref); ok {
		return v.ID, nil
	}
	for _, v := range voices {
		if v.ID == ref {
			return v.ID, nil
		}
	}
	return "", fmt.Errorf("no voice named or identified by %q", ref)
}
