// Package openai provides a transcription provider backed by the OpenAI
// audio transcription API (whisper-1). It implements transcribe.Provider.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/podtalk/podtalk/pkg/audio"
	"github.com/podtalk/podtalk/pkg/provider/transcribe"
	"github.com/podtalk/podtalk/pkg/types"
)

const defaultModel = "whisper-1"

// config holds optional configuration for the provider.
type config struct {
	baseURL  string
	language string
	timeout  time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithLanguage sets an ISO-639-1 language hint (e.g., "en").
func WithLanguage(lang string) Option {
	return func(c *config) {
		c.language = lang
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements transcribe.Provider using the OpenAI API.
type Provider struct {
	client   oai.Client
	model    string
	language string
}

// New constructs a new OpenAI transcription Provider. An empty model
// defaults to whisper-1.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		model = defaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model, language: cfg.language}, nil
}

// Transcribe implements transcribe.Provider. The buffer is wrapped in a
// WAV container before upload.
func (p *Provider) Transcribe(ctx context.Context, buf audio.Buffer) (string, error) {
	if buf.Empty() {
		return "", errors.New("openai: buffer must not be empty")
	}

	wav := audio.EncodeWAV(buf)
	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
		Model: oai.AudioModel(p.model),
	}
	if p.language != "" {
		params.Language = oai.String(p.language)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", &types.ServiceError{Service: "openai", Op: "transcribe", Err: err}
	}
	return strings.TrimSpace(resp.Text), nil
}

var _ transcribe.Provider = (*Provider)(nil)
