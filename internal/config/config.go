// Package config provides the configuration schema, loader, and provider
// registry for podtalk.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Duration wraps time.Duration with YAML decoding from strings like
// "90s" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration structure for podtalk.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	App       AppConfig       `yaml:"app"`
	Providers ProvidersConfig `yaml:"providers"`
	Episode   EpisodeConfig   `yaml:"episode"`
	Clips     ClipsConfig     `yaml:"clips"`
	Talk      TalkConfig      `yaml:"talk"`
	Cache     CacheConfig     `yaml:"cache"`
}

// AppConfig holds logging and observability settings.
type AppConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address serving the Prometheus scrape
	// endpoint. Empty disables the metrics listener.
	MetricsAddr string `yaml:"metrics_addr"`
}

// ProvidersConfig declares which provider implementation to use for each
// external service. Each field selects a named provider registered in
// the [Registry].
type ProvidersConfig struct {
	Diarize    ProviderEntry `yaml:"diarize"`
	Voice      ProviderEntry `yaml:"voice"`
	Transcribe ProviderEntry `yaml:"transcribe"`
	LLM        ProviderEntry `yaml:"llm"`
	Playback   ProviderEntry `yaml:"playback"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the
// [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "elevenlabs", "anthropic", "spotify").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "scribe_v1", "claude-sonnet-4-5", "whisper-1").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered
	// by the standard fields above (e.g., Spotify OAuth credentials).
	Options map[string]any `yaml:"options"`
}

// StringOption returns Options[key] as a string, empty when absent or
// not a string.
func (e ProviderEntry) StringOption(key string) string {
	if v, ok := e.Options[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// EpisodeConfig describes the episode to set up and the analysis bounds.
type EpisodeConfig struct {
	// Show is the podcast show name, resolved via the feed source.
	Show string `yaml:"show"`

	// Title is the episode title. Empty selects the newest episode.
	Title string `yaml:"title"`

	// AnalysisWindow is how much audio from the start of the episode is
	// diarized. Defaults to 20 minutes.
	AnalysisWindow Duration `yaml:"analysis_window"`

	// NumSpeakers hints the expected speaker count for diarization.
	// Defaults to 2.
	NumSpeakers int `yaml:"num_speakers"`

	// DownloadDir is where episode audio files are stored.
	DownloadDir string `yaml:"download_dir"`
}

// ClipsConfig bounds the clone training material per speaker.
type ClipsConfig struct {
	// MaxTotalDuration caps the summed clip length. Defaults to 5 minutes.
	MaxTotalDuration Duration `yaml:"max_total_duration"`

	// MaxTotalBytes caps the estimated encoded size of the selected
	// clips. Defaults to 11 MiB.
	MaxTotalBytes int64 `yaml:"max_total_bytes"`

	// BitrateKbps is the bitrate used to estimate clip sizes.
	// Defaults to 192.
	BitrateKbps int `yaml:"bitrate_kbps"`

	// MergeGap is the largest silence between same-speaker segments that
	// still joins them into one block. Defaults to 2 seconds.
	MergeGap Duration `yaml:"merge_gap"`

	// MinBlock is the shortest block worth keeping as training material.
	// Defaults to 5 seconds.
	MinBlock Duration `yaml:"min_block"`
}

// TalkConfig bounds the stages of one talk turn.
type TalkConfig struct {
	// CaptureDuration is how long the microphone records per turn.
	// Defaults to 10 seconds.
	CaptureDuration Duration `yaml:"capture_duration"`

	// TranscribeTimeout bounds the transcription call. Defaults to 30s.
	TranscribeTimeout Duration `yaml:"transcribe_timeout"`

	// GenerateTimeout bounds the reply generation call. Defaults to 60s.
	GenerateTimeout Duration `yaml:"generate_timeout"`

	// SynthesizeTimeout bounds the synthesis call. Defaults to 60s.
	SynthesizeTimeout Duration `yaml:"synthesize_timeout"`

	// PlayTimeout is a hard upper bound on local reply playback.
	// Defaults to 2 minutes.
	PlayTimeout Duration `yaml:"play_timeout"`

	// ContextWindow is how much transcript around the playback position
	// feeds the reply prompt. Defaults to 60 seconds.
	ContextWindow Duration `yaml:"context_window"`

	// SampleRate is the microphone capture rate in Hz. Defaults to 16000.
	SampleRate int `yaml:"sample_rate"`
}

// CacheConfig locates the durable diarization cache.
type CacheConfig struct {
	// Dir is the BadgerDB directory. Empty falls back to an in-memory
	// store, losing results between runs.
	Dir string `yaml:"dir"`
}

// Defaults used when the corresponding config values are zero.
const (
	DefaultAnalysisWindow   = 20 * time.Minute
	DefaultNumSpeakers      = 2
	DefaultMaxTotalDuration = 5 * time.Minute
	DefaultMaxTotalBytes    = 11 << 20
	DefaultBitrateKbps      = 192
	DefaultMergeGap         = 2 * time.Second
	DefaultMinBlock         = 5 * time.Second
	DefaultCaptureDuration  = 10 * time.Second
	DefaultStageTimeout     = 30 * time.Second
	DefaultGenerateTimeout  = 60 * time.Second
	DefaultSynthTimeout     = 60 * time.Second
	DefaultPlayTimeout      = 2 * time.Minute
	DefaultContextWindow    = 60 * time.Second
	DefaultSampleRate       = 16000
)

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Episode.AnalysisWindow == 0 {
		c.Episode.AnalysisWindow = Duration(DefaultAnalysisWindow)
	}
	if c.Episode.NumSpeakers == 0 {
		c.Episode.NumSpeakers = DefaultNumSpeakers
	}
	if c.Clips.MaxTotalDuration == 0 {
		c.Clips.MaxTotalDuration = Duration(DefaultMaxTotalDuration)
	}
	if c.Clips.MaxTotalBytes == 0 {
		c.Clips.MaxTotalBytes = DefaultMaxTotalBytes
	}
	if c.Clips.BitrateKbps == 0 {
		c.Clips.BitrateKbps = DefaultBitrateKbps
	}
	if c.Clips.MergeGap == 0 {
		c.Clips.MergeGap = Duration(DefaultMergeGap)
	}
	if c.Clips.MinBlock == 0 {
		c.Clips.MinBlock = Duration(DefaultMinBlock)
	}
	if c.Talk.CaptureDuration == 0 {
		c.Talk.CaptureDuration = Duration(DefaultCaptureDuration)
	}
	if c.Talk.TranscribeTimeout == 0 {
		c.Talk.TranscribeTimeout = Duration(DefaultStageTimeout)
	}
	if c.Talk.GenerateTimeout == 0 {
		c.Talk.GenerateTimeout = Duration(DefaultGenerateTimeout)
	}
	if c.Talk.SynthesizeTimeout == 0 {
		c.Talk.SynthesizeTimeout = Duration(DefaultSynthTimeout)
	}
	if c.Talk.PlayTimeout == 0 {
		c.Talk.PlayTimeout = Duration(DefaultPlayTimeout)
	}
	if c.Talk.ContextWindow == 0 {
		c.Talk.ContextWindow = Duration(DefaultContextWindow)
	}
	if c.Talk.SampleRate == 0 {
		c.Talk.SampleRate = DefaultSampleRate
	}
}
