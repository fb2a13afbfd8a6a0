// Package mock provides an in-memory mock implementation of the
// voice.Provider interface for use in unit tests.
//
// The mock records every call so tests can assert on call counts and
// arguments, and exposes exported fields to control return values.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/podtalk/podtalk/pkg/audio"
	"github.com/podtalk/podtalk/pkg/provider/voice"
)

// Provider is a mock implementation of [voice.Provider].
// Set the exported Result fields before use; inspect the Call* fields
// after.
type Provider struct {
	mu sync.Mutex

	// CloneResult is returned by [Provider.Clone]. If its ID is empty, a
	// generated ID of the form "mock-voice-N" is assigned per call.
	CloneResult voice.Voice

	// CloneError is returned by [Provider.Clone].
	CloneError error

	// Voices is returned by [Provider.ListVoices].
	Voices []voice.Voice

	// ListError is returned by [Provider.ListVoices].
	ListError error

	// DeleteError is returned by [Provider.DeleteVoice].
	DeleteError error

	// SynthesizeResult is returned by [Provider.Synthesize].
	SynthesizeResult audio.Buffer

	// SynthesizeError is returned by [Provider.Synthesize].
	SynthesizeError error

	// StreamChunks are emitted by the channel returned from
	// [Provider.SynthesizeStream].
	StreamChunks [][]byte

	// StreamError is returned by [Provider.SynthesizeStream].
	StreamError error

	// CloneCalls holds the request of each Clone call, in order.
	CloneCalls []voice.CloneRequest

	// SynthesizeCalls holds the (voiceID, text) of each Synthesize call.
	SynthesizeCalls []SynthesizeCall

	// DeletedVoiceIDs holds the argument of each DeleteVoice call.
	DeletedVoiceIDs []string
}

// SynthesizeCall records one Synthesize invocation.
type SynthesizeCall struct {
	VoiceID string
	Text    string
}

// Clone implements [voice.Provider].
func (p *Provider) Clone(_ context.Context, req voice.CloneRequest) (voice.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloneCalls = append(p.CloneCalls, req)
	if p.CloneError != nil {
		return voice.Voice{}, p.CloneError
	}
	v := p.CloneResult
	if v.ID == "" {
		v.ID = fmt.Sprintf("mock-voice-%d", len(p.CloneCalls))
	}
	if v.Name == "" {
		v.Name = req.Name
	}
	if v.Category == "" {
		v.Category = "cloned"
	}
	// Created voices show up in the catalogue, like a real provider.
	p.Voices = append(p.Voices, v)
	return v, nil
}

// ListVoices implements [voice.Provider].
func (p *Provider) ListVoices(_ context.Context) ([]voice.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ListError != nil {
		return nil, p.ListError
	}
	return append([]voice.Voice(nil), p.Voices...), nil
}

// DeleteVoice implements [voice.Provider].
func (p *Provider) DeleteVoice(_ context.Context, voiceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DeletedVoiceIDs = append(p.DeletedVoiceIDs, voiceID)
	return p.DeleteError
}

// Synthesize implements [voice.Provider].
func (p *Provider) Synthesize(_ context.Context, voiceID, text string) (audio.Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{VoiceID: voiceID, Text: text})
	if p.SynthesizeError != nil {
		return audio.Buffer{}, p.SynthesizeError
	}
	return p.SynthesizeResult, nil
}

// SynthesizeStream implements [voice.Provider]. It emits StreamChunks
// and closes the channel.
func (p *Provider) SynthesizeStream(ctx context.Context, voiceID string, text <-chan string) (<-chan []byte, error) {
	p.mu.Lock()
	chunks := append([][]byte(nil), p.StreamChunks...)
	err := p.StreamError
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make(chan []byte, len(chunks))
	go func() {
		defer close(out)
		// Drain the text channel so callers never block on send.
		for range text {
		}
		for _, c := range chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// CloneCallCount returns how many times Clone was called.
func (p *Provider) CloneCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.CloneCalls)
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloneCalls = nil
	p.SynthesizeCalls = nil
	p.DeletedVoiceIDs = nil
}

var _ voice.Provider = (*Provider)(nil)
