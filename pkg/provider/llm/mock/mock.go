// Package mock provides an in-memory mock implementation of the
// llm.Provider interface for use in unit tests.
//
// The mock records every call so tests can assert on call counts and
// prompt contents, and exposes exported fields to control return values.
package mock

import (
	"context"
	"sync"

	"github.com/podtalk/podtalk/pkg/provider/llm"
)

// Provider is a mock implementation of [llm.Provider].
// Set the exported Result fields before use; inspect Calls after.
type Provider struct {
	mu sync.Mutex

	// Response is returned by [Provider.Complete]. If nil, a response
	// with Content "mock reply" is returned.
	Response *llm.CompletionResponse

	// Err is returned by [Provider.Complete].
	Err error

	// Calls holds the request of each Complete call, in order.
	Calls []llm.CompletionRequest
}

// Complete implements [llm.Provider].
func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Response != nil {
		resp := *p.Response
		return &resp, nil
	}
	return &llm.CompletionResponse{Content: "mock reply"}, nil
}

// CallCount returns how many times Complete was called.
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

var _ llm.Provider = (*Provider)(nil)
