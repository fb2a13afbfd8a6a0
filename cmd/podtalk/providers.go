package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/podtalk/podtalk/internal/app"
	"github.com/podtalk/podtalk/internal/config"
	"github.com/podtalk/podtalk/pkg/provider/diarize"
	diarizeel "github.com/podtalk/podtalk/pkg/provider/diarize/elevenlabs"
	"github.com/podtalk/podtalk/pkg/provider/llm"
	"github.com/podtalk/podtalk/pkg/provider/llm/anthropic"
	"github.com/podtalk/podtalk/pkg/provider/playback"
	"github.com/podtalk/podtalk/pkg/provider/playback/spotify"
	"github.com/podtalk/podtalk/pkg/provider/transcribe"
	transcribeoai "github.com/podtalk/podtalk/pkg/provider/transcribe/openai"
	"github.com/podtalk/podtalk/pkg/provider/voice"
	voiceel "github.com/podtalk/podtalk/pkg/provider/voice/elevenlabs"
)

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterDiarize("elevenlabs", func(entry config.ProviderEntry) (diarize.Provider, error) {
		var opts []diarizeel.Option
		if entry.Model != "" {
			opts = append(opts, diarizeel.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, diarizeel.WithEndpoint(entry.BaseURL))
		}
		return diarizeel.New(entry.APIKey, opts...)
	})

	reg.RegisterVoice("elevenlabs", func(entry config.ProviderEntry) (voice.Provider, error) {
		var opts []voiceel.Option
		if entry.Model != "" {
			opts = append(opts, voiceel.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, voiceel.WithBaseURL(entry.BaseURL))
		}
		if format := entry.StringOption("output_format"); format != "" {
			opts = append(opts, voiceel.WithOutputFormat(format))
		}
		return voiceel.New(entry.APIKey, opts...)
	})

	reg.RegisterTranscribe("openai", func(entry config.ProviderEntry) (transcribe.Provider, error) {
		var opts []transcribeoai.Option
		if entry.BaseURL != "" {
			opts = append(opts, transcribeoai.WithBaseURL(entry.BaseURL))
		}
		if lang := entry.StringOption("language"); lang != "" {
			opts = append(opts, transcribeoai.WithLanguage(lang))
		}
		return transcribeoai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterLLM("anthropic", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anthropic.Option
		if entry.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(entry.BaseURL))
		}
		return anthropic.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterPlayback("spotify", func(entry config.ProviderEntry) (playback.Controller, error) {
		return spotify.New(
			entry.StringOption("client_id"),
			entry.StringOption("client_secret"),
			entry.StringOption("refresh_token"),
		)
	})
}

// buildProviders instantiates all providers named in cfg using the
// registry and returns them in an [app.Providers] struct.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.Diarize.Name; name != "" {
		p, err := reg.CreateDiarize(cfg.Providers.Diarize)
		if err != nil {
			return nil, providerErr("diarize", name, err)
		}
		ps.Diarize = p
		slog.Info("provider created", "kind", "diarize", "name", name)
	}

	if name := cfg.Providers.Voice.Name; name != "" {
		p, err := reg.CreateVoice(cfg.Providers.Voice)
		if err != nil {
			return nil, providerErr("voice", name, err)
		}
		ps.Voice = p
		slog.Info("provider created", "kind", "voice", "name", name)
	}

	if name := cfg.Providers.Transcribe.Name; name != "" {
		p, err := reg.CreateTranscribe(cfg.Providers.Transcribe)
		if err != nil {
			return nil, providerErr("transcribe", name, err)
		}
		ps.Transcribe = p
		slog.Info("provider created", "kind", "transcribe", "name", name)
	}

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return nil, providerErr("llm", name, err)
		}
		ps.LLM = p
		slog.Info("provider created", "kind", "llm", "name", name)
	}

	if name := cfg.Providers.Playback.Name; name != "" {
		p, err := reg.CreatePlayback(cfg.Providers.Playback)
		if err != nil {
			return nil, providerErr("playback", name, err)
		}
		ps.Playback = p
		slog.Info("provider created", "kind", "playback", "name", name)
	}

	return ps, nil
}

func providerErr(kind, name string, err error) error {
	if errors.Is(err, config.ErrProviderNotRegistered) {
		return fmt.Errorf("unknown %s provider %q", kind, name)
	}
	return fmt.Errorf("create %s provider %q: %w", kind, name, err)
}
