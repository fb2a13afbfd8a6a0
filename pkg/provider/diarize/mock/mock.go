// Package mock provides an in-memory mock implementation of the
// diarize.Provider interface for use in unit tests.
//
// The mock records every call so tests can assert on call counts and
// arguments, and exposes exported fields to control return values.
package mock

import (
	"context"
	"sync"

	"github.com/podtalk/podtalk/pkg/provider/diarize"
	"github.com/podtalk/podtalk/pkg/types"
)

// Provider is a mock implementation of [diarize.Provider].
// Set the exported Result fields before use; inspect Calls after.
type Provider struct {
	mu sync.Mutex

	// Segments is returned by [Provider.Diarize].
	Segments []types.Segment

	// Err is returned by [Provider.Diarize].
	Err error

	// Calls holds the request of each Diarize call, in order.
	Calls []diarize.Request
}

// Diarize implements [diarize.Provider].
func (p *Provider) Diarize(_ context.Context, req diarize.Request) ([]types.Segment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Segments, nil
}

// CallCount returns how many times Diarize was called.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

var _ diarize.Provider = (*Provider)(nil)
