package insights

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("empty API key fails", func(t *testing.T) {
		_, err := NewClient("openai", ClientConfig{})
		require.ErrorIs(t, err, ErrEmptyAPIKey)
	})

	t.Run("unknown provider fails", func(t *testing.T) {
		_, err := NewClient("nonexistent", ClientConfig{APIKey: "key"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider")
	})

	t.Run("registered providers construct", func(t *testing.T) {
		for _, provider := range []string{"openai", "anthropic"} {
			client, err := NewClient(provider, ClientConfig{APIKey: "test-key"})
			require.NoError(t, err, "provider %s should construct", provider)
			assert.NotEmpty(t, client.GetModel())
		}
	})
}

func TestClient_MiddlewareOrder(t *testing.T) {
	mock := NewMockCoreLLM()
	var order []string

	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return &taggingLLM{next: next, name: name, order: &order}
		}
	}

	core := CoreLLM(mock)
	middleware := []Middleware{tag("outer"), tag("inner")}
	for i := len(middleware) - 1; i >= 0; i-- {
		core = middleware[i](core)
	}

	client := NewClientFromCore(core)
	_, err := client.Complete(context.Background(), "prompt", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"outer", "inner"}, order,
		"first middleware should be outermost")
}

type taggingLLM struct {
	next  CoreLLM
	name  string
	order *[]string
}

func (l *taggingLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	*l.order = append(*l.order, l.name)
	return l.next.DoRequest(ctx, prompt, opts)
}

func (l *taggingLLM) GetModel() string  { return l.next.GetModel() }
func (l *taggingLLM) SetModel(m string) { l.next.SetModel(m) }

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allows burst then paces", func(t *testing.T) {
		mock := NewMockCoreLLM()
		limited := RateLimitMiddleware(100, 2)(mock)

		start := time.Now()
		for i := 0; i < 4; i++ {
			_, _, _, err := limited.DoRequest(context.Background(), "prompt", nil)
			require.NoError(t, err)
		}

		// Two requests ride the burst; the remaining two wait roughly 10ms
		// each at 100 req/s.
		assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
		assert.Equal(t, 4, mock.Calls())
	})

	t.Run("context cancellation aborts the wait", func(t *testing.T) {
		mock := NewMockCoreLLM()
		limited := RateLimitMiddleware(0.1, 1)(mock)

		// Drain the single burst token.
		_, _, _, err := limited.DoRequest(context.Background(), "prompt", nil)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, _, _, err = limited.DoRequest(ctx, "prompt", nil)
		require.Error(t, err)
		assert.Equal(t, 1, mock.Calls(), "second request should never reach the provider")
	})

	t.Run("raises a zero burst to one", func(t *testing.T) {
		mock := NewMockCoreLLM()
		limited := RateLimitMiddleware(100, 0)(mock)

		_, _, _, err := limited.DoRequest(context.Background(), "prompt", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, mock.Calls())
	})

	t.Run("forwards model accessors", func(t *testing.T) {
		mock := NewMockCoreLLM()
		limited := RateLimitMiddleware(1, 1)(mock)

		limited.SetModel("updated-model")
		assert.Equal(t, "updated-model", limited.GetModel())
	})
}
