package gateway

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// geminiProvider serves "gemini-" models via the Gemini API and "vertex-"
// models via the Vertex AI backend of the same SDK. The client is built per
// call because construction needs the request context for auth.
type geminiProvider struct {
	apiKey           string
	project          string
	location         string
	vertex           bool
	defaultMaxTokens int
}

func newGeminiProvider(apiKey string, defaultMaxTokens int) *geminiProvider {
	return &geminiProvider{apiKey: apiKey, defaultMaxTokens: defaultMaxTokens}
}

func newVertexProvider(project, location string, defaultMaxTokens int) *geminiProvider {
	if location == "" {
		location = "us-central1"
	}
	return &geminiProvider{
		project:          project,
		location:         location,
		vertex:           true,
		defaultMaxTokens: defaultMaxTokens,
	}
}

func (p *geminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	cfg := &genai.ClientConfig{}
	if p.vertex {
		cfg.Project = p.project
		cfg.Location = p.location
		cfg.Backend = genai.BackendVertexAI
	} else {
		cfg.APIKey = p.apiKey
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}

	model := req.Model
	if p.vertex {
		// "vertex-gemini-2.0-flash" names the same model family on Vertex.
		model = strings.TrimPrefix(model, "vertex-")
	}

	// The Gemini API has no system role; system text leads as a user turn.
	system, users := splitMessages(req.Messages)
	var contents []*genai.Content
	if system != "" {
		contents = append(contents, &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{{Text: system}},
		})
	}
	for _, content := range users {
		contents = append(contents, &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{{Text: content}},
		})
	}

	var genConfig genai.GenerateContentConfig
	if req.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(req.MaxTokens)
	} else if p.defaultMaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(p.defaultMaxTokens)
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		genConfig.Temperature = &t
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, &genConfig)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: %w", ErrEmptyCompletion)
	}

	var text string
	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				text += part.Text
			}
		}
	}
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyCompletion)
	}
	return text, nil
}
