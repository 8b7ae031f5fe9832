// Package insights generates narrative analysis for aggregated evaluation
// results by calling an external language-model provider.
//
// The package abstracts multiple providers (OpenAI, Anthropic, Google) behind
// a common interface and composes cross-cutting behavior such as request
// pacing through a middleware chain. Generation always happens outside the
// aggregation path, so a provider outage never blocks score computation.
//
// Basic usage:
//
//	client, err := insights.NewClient("openai", insights.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o-mini",
//	})
//	gen := insights.NewGenerator(client, insights.DefaultGeneratorConfig())
//	analysis, err := gen.GenerateInsights(ctx, result)
package insights

import (
	"context"
	"fmt"
	"time"
)

// CoreLLM defines the minimal interface a language-model provider must
// implement. Middleware wraps any conforming implementation, so pacing and
// instrumentation stay independent of the provider in use.
type CoreLLM interface {
	// DoRequest sends a prompt to the provider and returns the response text
	// along with input and output token counts. The opts map carries
	// provider-specific parameters such as temperature or max_tokens.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model used for subsequent requests.
	SetModel(model string)
}

// Middleware wraps a CoreLLM implementation to add cross-cutting behavior
// without modifying provider logic.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig holds the settings needed to construct a provider client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model selects which model handles requests.
	// Each provider falls back to its own default when empty.
	Model string

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the default.
	BaseURL string

	// Timeout bounds individual requests. Zero means no client-side timeout.
	Timeout time.Duration

	// Middleware is applied in order, with the first entry outermost.
	Middleware []Middleware
}

// Client wraps a provider-specific CoreLLM with the configured middleware
// chain and exposes a simple completion call to the insight generator.
type Client struct {
	core CoreLLM
}

// ProviderFactory creates a CoreLLM implementation from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a named provider factory.
// Providers in this package register themselves during init.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}

// NewClient creates a client for the named provider and assembles its
// middleware chain.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	// Apply middleware in reverse order so the first entry is outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core}, nil
}

// NewClientFromCore wraps an existing CoreLLM implementation.
// This is the seam tests use to substitute a mock provider.
func NewClientFromCore(core CoreLLM) *Client {
	return &Client{core: core}
}

// Complete sends a prompt to the provider and returns the response text,
// discarding token usage.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.core.DoRequest(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage sends a prompt and returns the response together with
// input and output token counts.
func (c *Client) CompleteWithUsage(
	ctx context.Context,
	prompt string,
	options map[string]any,
) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// GetModel returns the model name of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }
