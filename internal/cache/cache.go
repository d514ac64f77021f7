// Package cache memoizes model completions keyed on the question and its
// prompt context, bounded by a TTL. Entries are evicted lazily on read; there
// is no size-based eviction.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Cache is the response-cache contract. A hit with an empty stored payload
// still returns ok=true; ok=false always means "no usable entry".
type Cache interface {
	Get(ctx context.Context, query, systemPrompt, model, contextStr string) (string, bool)
	Set(ctx context.Context, query, response, systemPrompt, model, contextStr string)
	Clear(ctx context.Context)
	ClearExpired(ctx context.Context) int
}

// Key derives the content address for one completion: the query is
// normalized (trim + lowercase), the four fields are serialized with stable
// ordering, and the result is hashed to a fixed-length digest.
func Key(query, systemPrompt, model, contextStr string) string {
	payload, _ := json.Marshal(struct {
		Query   string `json:"query"`
		System  string `json:"system_prompt"`
		Model   string `json:"model"`
		Context string `json:"context"`
	}{
		Query:   NormalizeQuery(query),
		System:  systemPrompt,
		Model:   model,
		Context: contextStr,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// NormalizeQuery folds casing and surrounding whitespace so equivalent
// questions share a key.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
