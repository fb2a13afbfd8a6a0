// Package mock provides an in-memory mock implementation of the
// transcribe.Provider interface for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/podtalk/podtalk/pkg/audio"
	"github.com/podtalk/podtalk/pkg/provider/transcribe"
)

// Provider is a mock implementation of [transcribe.Provider].
// Set the exported Result fields before use; inspect Calls after.
type Provider struct {
	mu sync.Mutex

	// Text is returned by [Provider.Transcribe].
	Text string

	// Err is returned by [Provider.Transcribe].
	Err error

	// Calls holds the buffer of each Transcribe call, in order.
	Calls []audio.Buffer
}

// Transcribe implements [transcribe.Provider].
func (p *Provider) Transcribe(_ context.Context, buf audio.Buffer) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, buf)
	if p.Err != nil {
		return "", p.Err
	}
	return p.Text, nil
}

// CallCount returns how many times Transcribe was called.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

var _ transcribe.Provider = (*Provider)(nil)
