package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/podtalk/podtalk/pkg/provider/diarize"
	"github.com/podtalk/podtalk/pkg/provider/llm"
	"github.com/podtalk/podtalk/pkg/provider/playback"
	"github.com/podtalk/podtalk/pkg/provider/transcribe"
	"github.com/podtalk/podtalk/pkg/provider/voice"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory
// has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	diarize    map[string]func(ProviderEntry) (diarize.Provider, error)
	voice      map[string]func(ProviderEntry) (voice.Provider, error)
	transcribe map[string]func(ProviderEntry) (transcribe.Provider, error)
	llm        map[string]func(ProviderEntry) (llm.Provider, error)
	playback   map[string]func(ProviderEntry) (playback.Controller, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		diarize:    make(map[string]func(ProviderEntry) (diarize.Provider, error)),
		voice:      make(map[string]func(ProviderEntry) (voice.Provider, error)),
		transcribe: make(map[string]func(ProviderEntry) (transcribe.Provider, error)),
		llm:        make(map[string]func(ProviderEntry) (llm.Provider, error)),
		playback:   make(map[string]func(ProviderEntry) (playback.Controller, error)),
	}
}

// RegisterDiarize registers a diarization provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterDiarize(name string, factory func(ProviderEntry) (diarize.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diarize[name] = factory
}

// RegisterVoice registers a voice provider factory under name.
func (r *Registry) RegisterVoice(name string, factory func(ProviderEntry) (voice.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voice[name] = factory
}

// RegisterTranscribe registers a transcription provider factory under name.
func (r *Registry) RegisterTranscribe(name string, factory func(ProviderEntry) (transcribe.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcribe[name] = factory
}

// RegisterLLM registers an LLM provider factory under name.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterPlayback registers a playback controller factory under name.
func (r *Registry) RegisterPlayback(name string, factory func(ProviderEntry) (playback.Controller, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playback[name] = factory
}

// CreateDiarize instantiates a diarization provider using the factory
// registered under entry.Name. Returns [ErrProviderNotRegistered] if no
// factory has been registered for that name.
func (r *Registry) CreateDiarize(entry ProviderEntry) (diarize.Provider, error) {
	r.mu.RLock()
	factory, ok := r.diarize[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: diarize/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateVoice instantiates a voice provider using the factory registered
// under entry.Name.
func (r *Registry) CreateVoice(entry ProviderEntry) (voice.Provider, error) {
	r.mu.RLock()
	factory, ok := r.voice[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: voice/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTranscribe instantiates a transcription provider using the
// factory registered under entry.Name.
func (r *Registry) CreateTranscribe(entry ProviderEntry) (transcribe.Provider, error) {
	r.mu.RLock()
	factory, ok := r.transcribe[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: transcribe/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateLLM instantiates an LLM provider using the factory registered
// under entry.Name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreatePlayback instantiates a playback controller using the factory
// registered under entry.Name.
func (r *Registry) CreatePlayback(entry ProviderEntry) (playback.Controller, error) {
	r.mu.RLock()
	factory, ok := r.playback[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: playback/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
