package insights

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

// DefaultMaxTokens bounds generation length when the caller does not set
// max_tokens explicitly. Insight payloads are short structured summaries,
// so the bound is modest.
const DefaultMaxTokens = 1024

// BaseProvider supplies the thread-safe model accessors shared by all
// provider implementations.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the currently configured model name.
// It is safe for concurrent use.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel updates the model name. It is safe for concurrent use.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// RequestOptions is the standardized parameter set extracted from a generic
// options map before building a provider-specific request.
type RequestOptions struct {
	// MaxTokens caps the number of generated tokens.
	MaxTokens int
	// Model overrides the provider's configured model for this request.
	Model string
	// Temperature controls output randomness. Nil uses the provider default.
	Temperature *float64
	// TopP enables nucleus sampling. Nil uses the provider default.
	TopP *float64
	// System carries instructions that frame the model's behavior.
	System string
	// Extra holds provider-specific options outside the standard set.
	Extra map[string]any
}

// ParseRequestOptions extracts standardized parameters from an options map,
// falling back to defaults for missing or invalid entries. Unrecognized keys
// are collected into Extra for provider-specific handling.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: extractInt(opts, "max_tokens", DefaultMaxTokens, isPositiveInt),
		Model:     extractString(opts, "model", defaultModel, isNonEmptyString),
		System:    extractString(opts, "system", "", nil),
		Extra:     make(map[string]any),
	}

	if temp := extractFloat64(opts, "temperature", -1, isValidTemperature); temp != -1 {
		options.Temperature = &temp
	}

	if topP := extractFloat64(opts, "top_p", -1, isValidTopP); topP != -1 {
		options.TopP = &topP
	}

	for k, v := range opts {
		switch k {
		case "max_tokens", "model", "system", "temperature", "top_p":
		default:
			options.Extra[k] = v
		}
	}

	return options
}

func extractInt(opts map[string]any, key string, defaultVal int, valid func(int) bool) int {
	if opts == nil {
		return defaultVal
	}
	val, ok := opts[key].(int)
	if !ok {
		return defaultVal
	}
	if valid != nil && !valid(val) {
		return defaultVal
	}
	return val
}

func extractString(opts map[string]any, key string, defaultVal string, valid func(string) bool) string {
	if opts == nil {
		return defaultVal
	}
	val, ok := opts[key].(string)
	if !ok {
		return defaultVal
	}
	if valid != nil && !valid(val) {
		return defaultVal
	}
	return val
}

func extractFloat64(opts map[string]any, key string, defaultVal float64, valid func(float64) bool) float64 {
	if opts == nil {
		return defaultVal
	}
	val, ok := opts[key].(float64)
	if !ok {
		return defaultVal
	}
	if valid != nil && !valid(val) {
		return defaultVal
	}
	return val
}

func isPositiveInt(val int) bool { return val > 0 }

func isNonEmptyString(val string) bool { return val != "" }

// Temperature range is 0.0 to 2.0 to accommodate Gemini.
func isValidTemperature(val float64) bool { return val >= 0.0 && val <= 2.0 }

func isValidTopP(val float64) bool { return val >= 0.0 && val <= 1.0 }

// validateBaseURL normalizes and validates an endpoint override.
// An empty string is valid and means the provider default.
func validateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, got: %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}

	return parsed.String(), nil
}

// validateTimeout clamps a request timeout to a sane range.
// Zero or negative means the system default.
func validateTimeout(timeout time.Duration) time.Duration {
	const (
		minTimeout = 1 * time.Second
		maxTimeout = 10 * time.Minute
	)
	if timeout <= 0 {
		return 0
	}
	if timeout < minTimeout {
		return minTimeout
	}
	if timeout > maxTimeout {
		return maxTimeout
	}
	return timeout
}

func clampFloat64(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// estimateTokens approximates a token count at roughly four characters per
// token, which is close enough for usage accounting when the provider omits
// counts from its response.
func estimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text)) / 4.0)
}
