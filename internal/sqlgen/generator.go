// Package sqlgen turns a natural-language question into a candidate SQL
// statement via the model gateway. The candidate is not validated here;
// reflection and execution judge it downstream.
package sqlgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/querypilot/querypilot/internal/cache"
	"github.com/querypilot/querypilot/internal/gateway"
)

// Completer is the slice of the model gateway the generator needs.
type Completer interface {
	Complete(ctx context.Context, req gateway.Request) (string, error)
}

// SourceColumns names one available source and its column list, in prompt
// order.
type SourceColumns struct {
	Source  string
	Columns []string
}

// Config carries generation settings.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Generator produces SQL candidates. A nil cache disables memoization.
type Generator struct {
	completer   Completer
	cache       cache.Cache
	model       string
	temperature float64
	maxTokens   int
}

func New(completer Completer, respCache cache.Cache, cfg Config) *Generator {
	return &Generator{
		completer:   completer,
		cache:       respCache,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Generate asks the model for a single SQL statement answering question over
// the given sources. The response cache is consulted before the gateway and
// updated after; conversationContext participates in the cache key so the
// same question under different context is a distinct entry.
func (g *Generator) Generate(ctx context.Context, question string, sources []SourceColumns, conversationContext string) (string, error) {
	systemPrompt := buildSystemPrompt(sources)

	if g.cache != nil {
		if sql, ok := g.cache.Get(ctx, question, systemPrompt, g.model, conversationContext); ok {
			log.Debug().Str("model", g.model).Msg("sql generation cache hit")
			return sql, nil
		}
	}

	userPrompt := question
	if conversationContext != "" {
		userPrompt = "Conversation context:\n" + conversationContext + "\n\nQuestion:\n" + question
	}

	raw, err := g.completer.Complete(ctx, gateway.Request{
		Model: g.model,
		Messages: []gateway.Message{
			{Role: gateway.RoleSystem, Content: systemPrompt},
			{Role: gateway.RoleUser, Content: userPrompt},
		},
		Temperature: &g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate sql: %w", err)
	}

	sql := ExtractSQL(raw)
	if sql == "" {
		// Nothing SQL-shaped found. Hand the stripped text downstream;
		// reflection and execution decide whether it is usable.
		sql = strings.TrimSpace(raw)
	}

	if g.cache != nil {
		g.cache.Set(ctx, question, sql, systemPrompt, g.model, conversationContext)
	}
	return sql, nil
}

// Model returns the generation model id.
func (g *Generator) Model() string { return g.model }

func buildSystemPrompt(sources []SourceColumns) string {
	var sb strings.Builder
	sb.WriteString(`You are an expert SQL analyst. Convert the user's question into a single SQL query.

Available data sources:
`)
	for _, s := range sources {
		sb.WriteString("\nSource: " + s.Source + "\n")
		if len(s.Columns) > 0 {
			sb.WriteString("  Columns: " + strings.Join(s.Columns, ", ") + "\n")
		}
	}
	sb.WriteString(`
RULES:
1. Generate only SELECT queries - never INSERT, UPDATE, DELETE, DROP, or DDL
2. Use only the sources and columns listed above
3. Wrap your final SQL in a code block exactly like this:
` + "```sql" + `
SELECT ...
` + "```" + `
4. Return the SQL only, no explanation`)
	return sb.String()
}
