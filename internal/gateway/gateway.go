// Package gateway provides a uniform interface over hosted chat-completion
// providers. The provider behind a call is chosen by the model id's prefix
// and resolved once per distinct model.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/querypilot/querypilot/internal/config"
	"github.com/querypilot/querypilot/internal/observability"
)

// Backend identifies a chat-completion provider.
type Backend string

const (
	BackendOpenAI    Backend = "openai"
	BackendAnthropic Backend = "anthropic"
	BackendGemini    Backend = "gemini"
	BackendVertex    Backend = "vertex"
)

// Role is a chat message role.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one entry in an ordered chat transcript.
type Message struct {
	Role    Role
	Content string
}

// Request is a single completion request. Temperature nil means provider
// default. MaxTokens zero means the provider's configured default.
type Request struct {
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   int
}

// Provider executes a completion request against one backend.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	ErrProviderNotConfigured = errors.New("provider not configured")
	ErrEmptyCompletion       = errors.New("empty completion")
)

// Error wraps a provider failure with enough context to identify the call.
type Error struct {
	Model   string
	Backend Backend
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("model gateway: %s call for model %q failed: %v", e.Backend, e.Model, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// BackendForModel maps a model id to its backend by prefix. The second
// return is false when no prefix matched and the caller should fall back.
func BackendForModel(model string) (Backend, bool) {
	switch {
	case strings.HasPrefix(model, "gpt-"),
		strings.HasPrefix(model, "o1-"),
		strings.HasPrefix(model, "o3-"),
		strings.HasPrefix(model, "o4-"):
		return BackendOpenAI, true
	case strings.HasPrefix(model, "claude-"):
		return BackendAnthropic, true
	case strings.HasPrefix(model, "gemini-"):
		return BackendGemini, true
	case strings.HasPrefix(model, "vertex-"):
		return BackendVertex, true
	}
	return BackendOpenAI, false
}

// Gateway routes completion requests to the provider for their model.
type Gateway struct {
	providers map[Backend]Provider
	fallback  Backend

	mu       sync.Mutex
	resolved map[string]Backend
}

// New builds a gateway with every provider the config carries credentials
// for. Models with unrecognized prefixes are served by the OpenAI provider.
func New(cfg *config.Config) *Gateway {
	providers := make(map[Backend]Provider)
	if cfg.OpenAIAPIKey != "" {
		providers[BackendOpenAI] = newOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.MaxCompletionTokens)
	}
	if cfg.AnthropicAPIKey != "" {
		providers[BackendAnthropic] = newAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, cfg.MaxCompletionTokens)
	}
	if cfg.GeminiAPIKey != "" {
		providers[BackendGemini] = newGeminiProvider(cfg.GeminiAPIKey, cfg.MaxCompletionTokens)
	}
	if cfg.VertexProjectID != "" {
		providers[BackendVertex] = newVertexProvider(cfg.VertexProjectID, cfg.VertexLocation, cfg.MaxCompletionTokens)
	}
	return NewWithProviders(providers, BackendOpenAI)
}

// NewWithProviders builds a gateway from an explicit provider set. Tests
// inject fakes through this.
func NewWithProviders(providers map[Backend]Provider, fallback Backend) *Gateway {
	return &Gateway{
		providers: providers,
		fallback:  fallback,
		resolved:  make(map[string]Backend),
	}
}

// Complete dispatches the request to the provider for req.Model. Failures
// come back as *Error; there is no retry at this layer.
func (g *Gateway) Complete(ctx context.Context, req Request) (string, error) {
	backend := g.resolve(req.Model)
	provider, ok := g.providers[backend]
	if !ok {
		observability.ObserveModelCall(string(backend), ErrProviderNotConfigured)
		return "", &Error{Model: req.Model, Backend: backend, Err: ErrProviderNotConfigured}
	}
	text, err := provider.Complete(ctx, req)
	observability.ObserveModelCall(string(backend), err)
	if err != nil {
		return "", &Error{Model: req.Model, Backend: backend, Err: err}
	}
	return text, nil
}

// resolve computes the backend tag for a model once and memoizes it. The
// unrecognized-prefix warning fires on first resolution only.
func (g *Gateway) resolve(model string) Backend {
	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok := g.resolved[model]; ok {
		return b
	}
	b, known := BackendForModel(model)
	if !known {
		b = g.fallback
		log.Warn().
			Str("model", model).
			Str("backend", string(b)).
			Msg("unrecognized model prefix, falling back to default provider")
	}
	g.resolved[model] = b
	return b
}

// splitMessages separates system content from user turns. Providers that
// take a dedicated system field use the joined system text.
func splitMessages(msgs []Message) (system string, users []string) {
	var sys []string
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			sys = append(sys, m.Content)
		default:
			users = append(users, m.Content)
		}
	}
	return strings.Join(sys, "\n\n"), users
}
