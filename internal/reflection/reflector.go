// Package reflection critiques a candidate SQL query against the original
// question, the source schema, and the declared intent. Reflection is fail
// open: a malformed critique or a provider failure produces a usable default
// verdict, never an error. Retry, if wanted, belongs to the caller.
package reflection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/querypilot/querypilot/internal/gateway"
	"github.com/querypilot/querypilot/internal/models"
	"github.com/querypilot/querypilot/internal/schema"
)

// Completer is the slice of the model gateway the reflector needs.
type Completer interface {
	Complete(ctx context.Context, req gateway.Request) (string, error)
}

// Reflector runs one critique pass per call.
type Reflector struct {
	completer Completer
	model     string
	maxTokens int
}

func New(completer Completer, model string, maxTokens int) *Reflector {
	return &Reflector{completer: completer, model: model, maxTokens: maxTokens}
}

// Reflect critiques sqlQuery as an answer to question over d. The returned
// verdict always carries a usable shape: call failures are folded into
// Verdict.Error and unparseable critiques fall back to a neutral verdict.
func (r *Reflector) Reflect(ctx context.Context, question, sqlQuery string, d schema.Descriptor, intent models.IntentAnalysis) models.Verdict {
	req := gateway.Request{
		Model: r.model,
		Messages: []gateway.Message{
			{Role: gateway.RoleSystem, Content: critiqueSystemPrompt},
			{Role: gateway.RoleUser, Content: buildCritiquePrompt(question, sqlQuery, d, intent)},
		},
		MaxTokens: r.maxTokens,
	}

	raw, err := r.completer.Complete(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("model", r.model).Msg("reflection call failed")
		return models.Verdict{
			NeedsImprovement: false,
			Feedback:         "An error occurred during reflection.",
			Error:            err.Error(),
		}
	}

	verdict, ok := parseVerdict(raw)
	if !ok {
		log.Warn().Str("model", r.model).Msg("reflection response not parseable, using default verdict")
		return defaultVerdict()
	}
	return verdict
}

// Model returns the critique model id.
func (r *Reflector) Model() string { return r.model }

const critiqueSystemPrompt = `You are an expert SQL reviewer. Evaluate whether a SQL query correctly answers the user's question given the schema and the analyzed intent.

Respond with a single JSON object and nothing else:
{
  "needs_improvement": true|false,
  "correctness_score": 1-10,
  "strengths": ["..."],
  "issues": [{"issue_type": "correctness|tables|joins|columns|filters|aggregations|ordering", "description": "...", "suggestion": "..."}],
  "feedback": "overall assessment",
  "improved_query": "corrected SQL, only when needs_improvement is true"
}`

func buildCritiquePrompt(question, sqlQuery string, d schema.Descriptor, intent models.IntentAnalysis) string {
	var sb strings.Builder
	sb.WriteString("Question:\n" + question + "\n\n")
	sb.WriteString("Candidate SQL:\n" + sqlQuery + "\n\n")
	if summary := schema.Summarize(d); summary != "" {
		sb.WriteString("Schema:\n" + summary + "\n\n")
	}
	sb.WriteString("Analyzed intent:\n")
	sb.WriteString(fmt.Sprintf("  tables: %s\n", strings.Join(intent.Tables, ", ")))
	sb.WriteString(fmt.Sprintf("  columns: %s\n", strings.Join(intent.Columns, ", ")))
	sb.WriteString(fmt.Sprintf("  filters: %s\n", strings.Join(intent.Filters, ", ")))
	sb.WriteString(fmt.Sprintf("  operations: %s\n", strings.Join(intent.Operations, ", ")))
	return sb.String()
}

// parseVerdict decodes the substring between the first '{' and the last '}'
// as strict JSON. Anything else reports failure so the caller can fall back.
func parseVerdict(raw string) (models.Verdict, bool) {
	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first == -1 || last == -1 || last < first {
		return models.Verdict{}, false
	}
	var v models.Verdict
	if err := json.Unmarshal([]byte(raw[first:last+1]), &v); err != nil {
		return models.Verdict{}, false
	}
	return v, true
}

func defaultVerdict() models.Verdict {
	return models.Verdict{
		NeedsImprovement: false,
		CorrectnessScore: 7,
		Strengths:        []string{"Query structure appears reasonable"},
	}
}
