// Package elevenlabs provides a diarization provider backed by the
// ElevenLabs Scribe speech-to-text API. It implements diarize.Provider.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/podtalk/podtalk/pkg/provider/diarize"
	"github.com/podtalk/podtalk/pkg/types"
)

const (
	defaultEndpoint = "https://api.elevenlabs.io/v1/speech-to-text"
	defaultModel    = "scribe_v1"
)

// Option is a functional option for configuring the Scribe Provider.
type Option func(*Provider)

// WithModel sets the Scribe model ID.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithEndpoint overrides the API endpoint, used by tests.
func WithEndpoint(url string) Option {
	return func(p *Provider) {
		p.endpoint = url
	}
}

// WithHTTPClient overrides the HTTP client. Diarization of a 20-minute
// window routinely takes minutes, so the default client has no timeout
// and relies on the request context.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements diarize.Provider backed by ElevenLabs Scribe.
type Provider struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// New creates a new Scribe Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// scribeWord is a single word entry in the Scribe response.
type scribeWord struct {
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Type      string  `json:"type"`
	SpeakerID string  `json:"speaker_id"`
}

// scribeResponse is the top-level Scribe transcription response.
type scribeResponse struct {
	LanguageCode string       `json:"language_code"`
	Text         string       `json:"text"`
	Words        []scribeWord `json:"words"`
}

// Diarize implements diarize.Provider. It uploads the audio window as a
// multipart form and converts the word-level response into spans, merging
// consecutive words of the same speaker into one segment.
func (p *Provider) Diarize(ctx context.Context, req diarize.Request) ([]types.Segment, error) {
	if len(req.Audio) == 0 {
		return nil, errors.New("elevenlabs: audio must not be empty")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create form file: %w", err)
	}
	if _, err := fw.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("elevenlabs: write audio: %w", err)
	}

	fields := map[string]string{
		"model_id":               p.model,
		"diarize":                "true",
		"timestamps_granularity": "word",
	}
	if req.NumSpeakers > 0 {
		fields["num_speakers"] = strconv.Itoa(req.NumSpeakers)
	}
	if req.Language != "" {
		fields["language_code"] = req.Language
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("elevenlabs: write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("elevenlabs: close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &types.ServiceError{Service: "elevenlabs", Op: "diarize", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &types.ServiceError{
			Service:    "elevenlabs",
			Op:         "diarize",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", bytes.TrimSpace(detail)),
		}
	}

	var sr scribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, &types.ServiceError{Service: "elevenlabs", Op: "diarize", Err: fmt.Errorf("decode response: %w", err)}
	}

	return segmentsFromWords(sr.Words), nil
}

// segmentsFromWords converts Scribe's word stream into speaker spans.
// Consecutive words with the same speaker label collapse into one
// segment; spacing entries extend the current span without contributing
// text.
func segmentsFromWords(words []scribeWord) []types.Segment {
	var out []types.Segment
	for _, w := range words {
		if w.Type == "audio_event" {
			continue
		}
		start := secondsToDuration(w.Start)
		end := secondsToDuration(w.End)
		if end <= start && w.Type != "spacing" {
			continue
		}

		if n := len(out); n > 0 && out[n-1].SpeakerID == w.SpeakerID {
			last := &out[n-1]
			if end > last.End {
				last.End = end
			}
			if w.Type != "spacing" {
				last.Text += w.Text
			}
			continue
		}
		if w.Type == "spacing" {
			continue
		}
		out = append(out, types.Segment{
			SpeakerID: w.SpeakerID,
			Start:     start,
			End:       end,
			Text:      w.Text,
		})
	}
	return out
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

var _ diarize.Provider = (*Provider)(nil)
