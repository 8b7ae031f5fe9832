package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicDefaultModel is used when no model is configured for the provider.
const AnthropicDefaultModel = "claude-3-5-sonnet-20241022"

func init() {
	RegisterProviderFactory("anthropic", newAnthropicProvider)
}

// anthropicProvider implements CoreLLM against Anthropic's Messages API.
type anthropicProvider struct {
	BaseProvider
	client anthropic.Client
}

func newAnthropicProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		validatedURL, err := validateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		opts = append(opts, option.WithBaseURL(validatedURL))
	}

	return &anthropicProvider{
		BaseProvider: BaseProvider{model: model},
		client:       anthropic.NewClient(opts...),
	}, nil
}

// DoRequest sends a messages request and returns the generated text with
// token usage.
func (p *anthropicProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.GetModel())

	message, err := p.client.Messages.New(ctx, p.buildParams(prompt, options))
	if err != nil {
		return "", 0, 0, p.wrapError(err)
	}

	var responseText strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			responseText.WriteString(content.Text)
		}
	}

	responseStr := responseText.String()
	if responseStr == "" {
		return "", 0, 0, ErrEmptyResponse
	}

	tokensIn := int64CountOr(message.Usage.InputTokens, prompt)
	tokensOut := int64CountOr(message.Usage.OutputTokens, responseStr)

	return responseStr, tokensIn, tokensOut, nil
}

func (p *anthropicProvider) buildParams(prompt string, options RequestOptions) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(options.Model),
		MaxTokens: int64(options.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	if options.Temperature != nil {
		// The Messages API accepts temperatures from 0.0 to 1.0.
		params.Temperature = anthropic.Float(clampFloat64(*options.Temperature, 0.0, 1.0))
	}
	if options.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: options.System}}
	}

	return params
}

func (p *anthropicProvider) wrapError(err error) error {
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		classifier := &ErrorClassifier{Provider: "anthropic"}
		return classifier.ClassifyHTTPError(anthropicErr.StatusCode, "", err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		classifier := &ErrorClassifier{Provider: "anthropic"}
		return classifier.ClassifyContextError(err)
	}

	return NewProviderError("anthropic", ErrorTypeUnknown, 0, "request failed", err)
}

func int64CountOr(actual int64, text string) int {
	if actual > 0 {
		return int(actual)
	}
	return estimateTokens(text)
}
