package models

import "github.com/querypilot/querypilot/internal/schema"

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// SourceInfo describes one configured data source.
type SourceInfo struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SourcesResponse is returned by GET /api/v1/sources
type SourcesResponse struct {
	Status  string       `json:"status"`
	Sources []SourceInfo `json:"sources"`
}

// SchemaResponse is returned by GET /api/v1/sources/{source}/schema
type SchemaResponse struct {
	Status  string         `json:"status"`
	Source  string         `json:"source"`
	Tables  []schema.Table `json:"tables"`
	Summary string         `json:"summary"`
}

// QueryResponse is returned by POST /api/v1/query
type QueryResponse struct {
	Status string           `json:"status"`
	Source string           `json:"source"`
	Result *ExecutionResult `json:"result"`
}

// AskResponse is returned by POST /api/v1/ask. It wraps the orchestrator's
// run report with request echo fields and per-request metadata.
type AskResponse struct {
	Status       string                 `json:"status"`
	Question     string                 `json:"question"`
	Source       string                 `json:"source"`
	GeneratedSQL *string                `json:"generated_sql,omitempty"`
	Result       *ExecutionResult       `json:"result,omitempty"`
	Candidates   []SQLCandidate         `json:"candidates"`
	Verdicts     []Verdict              `json:"verdicts"`
	Metadata     map[string]interface{} `json:"metadata"`
}
