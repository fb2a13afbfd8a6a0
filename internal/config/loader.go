package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"diarize":    {"elevenlabs"},
	"voice":      {"elevenlabs"},
	"transcribe": {"openai"},
	"llm":        {"anthropic"},
	"playback":   {"spotify"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed
// from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.App.LogLevel != "" && !cfg.App.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("app.log_level %q is invalid; valid values: debug, info, warn, error", cfg.App.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("diarize", cfg.Providers.Diarize.Name)
	validateProviderName("voice", cfg.Providers.Voice.Name)
	validateProviderName("transcribe", cfg.Providers.Transcribe.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("playback", cfg.Providers.Playback.Name)

	if cfg.Episode.Show == "" {
		errs = append(errs, errors.New("episode.show is required"))
	}
	if w := cfg.Episode.AnalysisWindow.Std(); w <= 0 {
		errs = append(errs, fmt.Errorf("episode.analysis_window %s must be positive", w))
	}
	if cfg.Episode.NumSpeakers < 0 {
		errs = append(errs, fmt.Errorf("episode.num_speakers %d must not be negative", cfg.Episode.NumSpeakers))
	}

	if d := cfg.Clips.MaxTotalDuration.Std(); d <= 0 {
		errs = append(errs, fmt.Errorf("clips.max_total_duration %s must be positive", d))
	}
	if cfg.Clips.MaxTotalBytes <= 0 {
		errs = append(errs, fmt.Errorf("clips.max_total_bytes %d must be positive", cfg.Clips.MaxTotalBytes))
	}
	if cfg.Clips.BitrateKbps <= 0 {
		errs = append(errs, fmt.Errorf("clips.bitrate_kbps %d must be positive", cfg.Clips.BitrateKbps))
	}
	if g := cfg.Clips.MergeGap.Std(); g < 0 {
		errs = append(errs, fmt.Errorf("clips.merge_gap %s must not be negative", g))
	}
	if m := cfg.Clips.MinBlock.Std(); m <= 0 {
		errs = append(errs, fmt.Errorf("clips.min_block %s must be positive", m))
	}
	if cfg.Clips.MinBlock.Std() > cfg.Clips.MaxTotalDuration.Std() {
		errs = append(errs, fmt.Errorf("clips.min_block %s exceeds clips.max_total_duration %s",
			cfg.Clips.MinBlock.Std(), cfg.Clips.MaxTotalDuration.Std()))
	}

	for name, d := range map[string]Duration{
		"talk.capture_duration":   cfg.Talk.CaptureDuration,
		"talk.transcribe_timeout": cfg.Talk.TranscribeTimeout,
		"talk.generate_timeout":   cfg.Talk.GenerateTimeout,
		"talk.synthesize_timeout": cfg.Talk.SynthesizeTimeout,
		"talk.play_timeout":       cfg.Talk.PlayTimeout,
		"talk.context_window":     cfg.Talk.ContextWindow,
	} {
		if d.Std() <= 0 {
			errs = append(errs, fmt.Errorf("%s %s must be positive", name, d.Std()))
		}
	}
	if cfg.Talk.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("talk.sample_rate %d must be positive", cfg.Talk.SampleRate))
	}

	if cfg.Cache.Dir == "" {
		slog.Warn("cache.dir is empty; diarization results will not persist between runs")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found
// in the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
