// Package elevenlabs provides an ElevenLabs-backed voice provider with
// instant voice cloning and both buffered and streaming synthesis. It
// implements the voice.Provider interface.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/coder/websocket"

	"github.com/podtalk/podtalk/pkg/audio"
	"github.com/podtalk/podtalk/pkg/provider/voice"
	"github.com/podtalk/podtalk/pkg/types"
)

const (
	defaultBaseURL   = "https://api.elevenlabs.io"
	wsEndpointFmt    = "wss://api.elevenlabs.io/v1/text-to-speech/%s/stream-input?model_id=%s"
	defaultModel     = "eleven_multilingual_v2"
	defaultOutputFmt = "pcm_22050"
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the synthesis model ID (e.g., "eleven_multilingual_v2").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithOutputFormat sets the synthesis output format (e.g., "pcm_22050").
// Only PCM formats are supported by Synthesize.
func WithOutputFormat(format string) Option {
	return func(p *Provider) {
		p.outputFormat = format
	}
}

// WithBaseURL overrides the REST API base URL, used by tests.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements voice.Provider backed by the ElevenLabs API.
type Provider struct {
	apiKey       string
	model        string
	outputFormat string
	baseURL      string
	httpClient   *http.Client
}

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		model:        defaultModel,
		outputFormat: defaultOutputFmt,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- Clone ----

// cloneResponse is the response from POST /v1/voices/add.
type cloneResponse struct {
	VoiceID              string `json:"voice_id"`
	RequiresVerification bool   `json:"requires_verification"`
}

// Clone implements voice.Provider. It uploads the training samples via
// the instant-voice-cloning endpoint.
func (p *Provider) Clone(ctx context.Context, req voice.CloneRequest) (voice.Voice, error) {
	if req.Name == "" {
		return voice.Voice{}, errors.New("elevenlabs: clone name must not be empty")
	}
	if len(req.Samples) == 0 {
		return voice.Voice{}, errors.New("elevenlabs: clone requires at least one sample")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("name", req.Name); err != nil {
		return voice.Voice{}, fmt.Errorf("elevenlabs: write name field: %w", err)
	}
	if req.Description != "" {
		if err := mw.WriteField("description", req.Description); err != nil {
			return voice.Voice{}, fmt.Errorf("elevenlabs: write description field: %w", err)
		}
	}
	if err := mw.WriteField("remove_background_noise", strconv.FormatBool(req.RemoveBackgroundNoise)); err != nil {
		return voice.Voice{}, fmt.Errorf("elevenlabs: write noise field: %w", err)
	}
	for i, sample := range req.Samples {
		fw, err := mw.CreateFormFile("files", fmt.Sprintf("sample_%d.wav", i))
		if err != nil {
			return voice.Voice{}, fmt.Errorf("elevenlabs: create sample file: %w", err)
		}
		if _, err := fw.Write(sample); err != nil {
			return voice.Voice{}, fmt.Errorf("elevenlabs: write sample: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return voice.Voice{}, fmt.Errorf("elevenlabs: close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/voices/add", &body)
	if err != nil {
		return voice.Voice{}, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return voice.Voice{}, &types.ServiceError{Service: "elevenlabs", Op: "clone", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return voice.Voice{}, statusError("clone", resp)
	}

	var cr cloneResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return voice.Voice{}, &types.ServiceError{Service: "elevenlabs", Op: "clone", Err: fmt.Errorf("decode response: %w", err)}
	}
	return voice.Voice{ID: cr.VoiceID, Name: req.Name, Category: "cloned"}, nil
}

// ---- ListVoices / DeleteVoice ----

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []voiceEntry `json:"voices"`
}

// voiceEntry is a single voice in the catalogue response.
type voiceEntry struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ListVoices implements voice.Provider.
func (p *Provider) ListVoices(ctx context.Context) ([]voice.Voice, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", p.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &types.ServiceError{Service: "elevenlabs", Op: "list voices", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list voices", resp)
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, &types.ServiceError{Service: "elevenlabs", Op: "list voices", Err: fmt.Errorf("decode response: %w", err)}
	}
	out := make([]voice.Voice, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		out = append(out, voice.Voice{ID: v.VoiceID, Name: v.Name, Category: v.Category})
	}
	return out, nil
}

// DeleteVoice implements voice.Provider.
func (p *Provider) DeleteVoice(ctx context.Context, voiceID string) error {
	if voiceID == "" {
		return errors.New("elevenlabs: voiceID must not be empty")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.baseURL+"/v1/voices/"+voiceID, nil)
	if err != nil {
		return fmt.Errorf("elevenlabs: create request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return &types.ServiceError{Service: "elevenlabs", Op: "delete voice", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("delete voice", resp)
	}
	return nil
}

// ---- Synthesize ----

// synthesizeRequest is the JSON body for POST /v1/text-to-speech/{id}.
type synthesizeRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize implements voice.Provider. The response body is raw mono
// PCM in the configured output format.
func (p *Provider) Synthesize(ctx context.Context, voiceID, text string) (audio.Buffer, error) {
	if voiceID == "" {
		return audio.Buffer{}, errors.New("elevenlabs: voiceID must not be empty")
	}
	sampleRate, err := pcmSampleRate(p.outputFormat)
	if err != nil {
		return audio.Buffer{}, err
	}

	payload, _ := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: p.model,
		VoiceSettings: &voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", p.baseURL, voiceID, p.outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return audio.Buffer{}, &types.ServiceError{Service: "elevenlabs", Op: "synthesize", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return audio.Buffer{}, statusError("synthesize", resp)
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.Buffer{}, &types.ServiceError{Service: "elevenlabs", Op: "synthesize", Err: fmt.Errorf("read body: %w", err)}
	}
	return audio.Buffer{Data: pcm, SampleRate: sampleRate, Channels: 1}, nil
}

// ---- SynthesizeStream ----

// textMessage is the JSON payload sent for each text fragment.
type textMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// boiMessage is the initial "begin of input" handshake.
type boiMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
	OutputFormat  string         `json:"output_format,omitempty"`
}

// audioMessage is a message received over the WebSocket.
type audioMessage struct {
	Audio   string `json:"audio"` // base64-encoded PCM
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
}

// SynthesizeStream implements voice.Provider. It opens a WebSocket to
// the streaming endpoint, pipes text fragments from the text channel,
// and returns a channel emitting raw PCM chunks.
//
// The audio channel is closed when synthesis is complete or ctx is
// cancelled.
func (p *Provider) SynthesizeStream(ctx context.Context, voiceID string, text <-chan string) (<-chan []byte, error) {
	if voiceID == "" {
		return nil, errors.New("elevenlabs: voiceID must not be empty")
	}

	wsURL := fmt.Sprintf(wsEndpointFmt, voiceID, p.model)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: dial: %w", err)
	}

	// ElevenLabs requires a non-empty first text value.
	boi := boiMessage{
		Text: " ",
		VoiceSettings: &voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
		XiAPIKey:     p.apiKey,
		OutputFormat: p.outputFormat,
	}
	boiBytes, _ := json.Marshal(boi)
	if err := conn.Write(ctx, websocket.MessageText, boiBytes); err != nil {
		conn.Close(websocket.StatusInternalError, "failed to send BOI")
		return nil, fmt.Errorf("elevenlabs: send BOI: %w", err)
	}

	audioCh := make(chan []byte, 256)

	go func() {
		defer close(audioCh)
		defer conn.Close(websocket.StatusNormalClosure, "done")

		readDone := make(chan struct{})
		go func() {
			defer close(readDone)
			for {
				_, msg, err := conn.Read(ctx)
				if err != nil {
					return
				}
				var am audioMessage
				if err := json.Unmarshal(msg, &am); err != nil {
					continue
				}
				if am.Audio == "" {
					continue
				}
				pcm, err := base64.StdEncoding.DecodeString(am.Audio)
				if err != nil {
					continue
				}
				select {
				case audioCh <- pcm:
				case <-ctx.Done():
					return
				}
			}
		}()

		vs := &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75}
		for {
			select {
			case fragment, ok := <-text:
				if !ok {
					// Text channel closed. Send the flush command and
					// wait for the reader to drain remaining audio.
					flush, _ := json.Marshal(textMessage{Text: ""})
					_ = conn.Write(ctx, websocket.MessageText, flush)
					<-readDone
					return
				}
				if fragment == "" {
					continue
				}
				payload, _ := json.Marshal(textMessage{Text: fragment, VoiceSettings: vs})
				// Voice settings only need to accompany the first chunk.
				vs = nil
				if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return audioCh, nil
}

// ---- helpers ----

// pcmSampleRate extracts the sample rate from a "pcm_NNNNN" output
// format string.
func pcmSampleRate(format string) (int, error) {
	rest, ok := strings.CutPrefix(format, "pcm_")
	if !ok {
		return 0, fmt.Errorf("elevenlabs: unsupported output format %q", format)
	}
	rate, err := strconv.Atoi(rest)
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("elevenlabs: unsupported output format %q", format)
	}
	return rate, nil
}

// statusError converts a non-200 HTTP response into a ServiceError with
// a bounded slice of the body for context.
func statusError(op string, resp *http.Response) *types.ServiceError {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &types.ServiceError{
		Service:    "elevenlabs",
		Op:         op,
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("%s", bytes.TrimSpace(detail)),
	}
}

var _ voice.Provider = (*Provider)(nil)
