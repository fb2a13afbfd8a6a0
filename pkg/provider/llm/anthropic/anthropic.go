// Package anthropic provides an LLM provider backed by the Anthropic
// Messages API. It implements llm.Provider.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/podtalk/podtalk/pkg/provider/llm"
	"github.com/podtalk/podtalk/pkg/types"
)

const defaultMaxTokens = 1024

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default Anthropic API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements llm.Provider using the Anthropic API.
type Provider struct {
	client sdk.Client
	model  string
}

// New constructs a new Anthropic LLM Provider.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anthropic: model must not be empty")
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

	client := sdk.NewClient(reqOpts...)
	return &Provider{client: client, model: model}, nil
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: build params: %w", err)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &types.ServiceError{Service: "anthropic", Op: "complete", Err: err}
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return &llm.CompletionResponse{
		Content: sb.String(),
		Usage: llm.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

// buildParams converts a CompletionRequest into Anthropic SDK params.
func (p *Provider) buildParams(req llm.CompletionRequest) (sdk.MessageNewParams, error) {
	var messages []sdk.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleUser:
			messages = append(messages, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case llm.RoleAssistant:
			messages = append(messages, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			return sdk.MessageNewParams{}, fmt.Errorf("unknown message role %q", m.Role)
		}
	}
	if len(messages) == 0 {
		return sdk.MessageNewParams{}, fmt.Errorf("at least one message is required")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if req.SystemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature != 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	return params, nil
}

var _ llm.Provider = (*Provider)(nil)
