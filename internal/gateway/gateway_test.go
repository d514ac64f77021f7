package gateway_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/querypilot/querypilot/internal/gateway"
)

type fakeProvider struct {
	name   string
	reply  string
	err    error
	calls  int
	lastIn gateway.Request
}

func (f *fakeProvider) Complete(ctx context.Context, req gateway.Request) (string, error) {
	f.calls++
	f.lastIn = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// ─── Prefix resolution ────────────────────────────────────────────────────────

func TestBackendForModel(t *testing.T) {
	tests := []struct {
		model string
		want  gateway.Backend
		known bool
	}{
		{"gpt-4o", gateway.BackendOpenAI, true},
		{"gpt-4o-mini", gateway.BackendOpenAI, true},
		{"o1-preview", gateway.BackendOpenAI, true},
		{"o3-mini", gateway.BackendOpenAI, true},
		{"claude-sonnet-4-5", gateway.BackendAnthropic, true},
		{"gemini-2.0-flash", gateway.BackendGemini, true},
		{"vertex-gemini-1.5-pro", gateway.BackendVertex, true},
		{"llama-3-70b", gateway.BackendOpenAI, false},
		{"", gateway.BackendOpenAI, false},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, known := gateway.BackendForModel(tt.model)
			if got != tt.want || known != tt.known {
				t.Errorf("BackendForModel(%q) = (%s, %v), want (%s, %v)",
					tt.model, got, known, tt.want, tt.known)
			}
		})
	}
}

// ─── Dispatch ─────────────────────────────────────────────────────────────────

func TestGatewayRoutesByPrefix(t *testing.T) {
	oa := &fakeProvider{name: "openai", reply: "from openai"}
	an := &fakeProvider{name: "anthropic", reply: "from anthropic"}
	ge := &fakeProvider{name: "gemini", reply: "from gemini"}

	g := gateway.NewWithProviders(map[gateway.Backend]gateway.Provider{
		gateway.BackendOpenAI:    oa,
		gateway.BackendAnthropic: an,
		gateway.BackendGemini:    ge,
	}, gateway.BackendOpenAI)

	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4o-mini", "from openai"},
		{"claude-sonnet-4-5", "from anthropic"},
		{"gemini-2.0-flash", "from gemini"},
	}
	for _, tt := range tests {
		got, err := g.Complete(context.Background(), gateway.Request{
			Model:    tt.model,
			Messages: []gateway.Message{{Role: gateway.RoleUser, Content: "hi"}},
		})
		if err != nil {
			t.Fatalf("Complete(%q): %v", tt.model, err)
		}
		if got != tt.want {
			t.Errorf("Complete(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
	if oa.calls != 1 || an.calls != 1 || ge.calls != 1 {
		t.Errorf("call distribution = openai:%d anthropic:%d gemini:%d, want 1 each",
			oa.calls, an.calls, ge.calls)
	}
}

func TestGatewayFallbackForUnknownPrefix(t *testing.T) {
	oa := &fakeProvider{name: "openai", reply: "fallback served"}
	g := gateway.NewWithProviders(map[gateway.Backend]gateway.Provider{
		gateway.BackendOpenAI: oa,
	}, gateway.BackendOpenAI)

	for i := 0; i < 3; i++ {
		got, err := g.Complete(context.Background(), gateway.Request{
			Model:    "llama-3-70b",
			Messages: []gateway.Message{{Role: gateway.RoleUser, Content: "hi"}},
		})
		if err != nil {
			t.Fatalf("Complete: %v", err)
		}
		if got != "fallback served" {
			t.Errorf("Complete = %q, want fallback reply", got)
		}
	}
	if oa.calls != 3 {
		t.Errorf("fallback provider called %d times, want 3", oa.calls)
	}
}

func TestGatewayPassesRequestThrough(t *testing.T) {
	oa := &fakeProvider{reply: "ok"}
	g := gateway.NewWithProviders(map[gateway.Backend]gateway.Provider{
		gateway.BackendOpenAI: oa,
	}, gateway.BackendOpenAI)

	temp := 0.1
	req := gateway.Request{
		Model: "gpt-4o",
		Messages: []gateway.Message{
			{Role: gateway.RoleSystem, Content: "you write sql"},
			{Role: gateway.RoleUser, Content: "show customers"},
		},
		Temperature: &temp,
		MaxTokens:   512,
	}
	if _, err := g.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(oa.lastIn.Messages) != 2 {
		t.Fatalf("provider saw %d messages, want 2", len(oa.lastIn.Messages))
	}
	if oa.lastIn.Messages[0].Role != gateway.RoleSystem {
		t.Errorf("message order not preserved: first role = %s", oa.lastIn.Messages[0].Role)
	}
	if oa.lastIn.Temperature == nil || *oa.lastIn.Temperature != 0.1 {
		t.Errorf("temperature not passed through")
	}
	if oa.lastIn.MaxTokens != 512 {
		t.Errorf("max tokens not passed through, got %d", oa.lastIn.MaxTokens)
	}
}

// ─── Errors ───────────────────────────────────────────────────────────────────

func TestGatewayWrapsProviderErrors(t *testing.T) {
	cause := errors.New("rate limited")
	an := &fakeProvider{err: cause}
	g := gateway.NewWithProviders(map[gateway.Backend]gateway.Provider{
		gateway.BackendAnthropic: an,
	}, gateway.BackendAnthropic)

	_, err := g.Complete(context.Background(), gateway.Request{
		Model:    "claude-sonnet-4-5",
		Messages: []gateway.Message{{Role: gateway.RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("error is %T, want *gateway.Error", err)
	}
	if gwErr.Model != "claude-sonnet-4-5" || gwErr.Backend != gateway.BackendAnthropic {
		t.Errorf("error context = (%s, %s), want (claude-sonnet-4-5, anthropic)", gwErr.Model, gwErr.Backend)
	}
	if !errors.Is(err, cause) {
		t.Errorf("wrapped cause not reachable via errors.Is")
	}
	if !strings.Contains(err.Error(), "claude-sonnet-4-5") {
		t.Errorf("error text should name the model: %q", err.Error())
	}
}

func TestGatewayUnconfiguredProvider(t *testing.T) {
	g := gateway.NewWithProviders(map[gateway.Backend]gateway.Provider{}, gateway.BackendOpenAI)

	_, err := g.Complete(context.Background(), gateway.Request{Model: "gpt-4o"})
	if !errors.Is(err, gateway.ErrProviderNotConfigured) {
		t.Fatalf("expected ErrProviderNotConfigured, got %v", err)
	}
	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("error is %T, want *gateway.Error", err)
	}
}
