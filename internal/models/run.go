package models

import "time"

// CandidateState tracks where a SQL candidate is in its lifecycle.
type CandidateState string

const (
	CandidateProposed  CandidateState = "proposed"
	CandidateReflected CandidateState = "reflected"
	CandidateImproved  CandidateState = "improved"
	CandidateExecuted  CandidateState = "executed"
	CandidateFailed    CandidateState = "failed"
)

// CandidateOrigin records which step produced a candidate.
type CandidateOrigin string

const (
	OriginGenerated CandidateOrigin = "generated"
	OriginImproved  CandidateOrigin = "improved"
)

// SQLCandidate is one SQL text produced during a run, with provenance.
type SQLCandidate struct {
	ID        string          `json:"id"`
	SQL       string          `json:"sql"`
	Attempt   int             `json:"attempt"`
	Origin    CandidateOrigin `json:"origin"`
	State     CandidateState  `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// IssueType classifies a reflection finding.
type IssueType string

const (
	IssueCorrectness  IssueType = "correctness"
	IssueTables       IssueType = "tables"
	IssueJoins        IssueType = "joins"
	IssueColumns      IssueType = "columns"
	IssueFilters      IssueType = "filters"
	IssueAggregations IssueType = "aggregations"
	IssueOrdering     IssueType = "ordering"
)

// Issue is a single problem the reflection pass found in a candidate.
type Issue struct {
	IssueType   IssueType `json:"issue_type"`
	Description string    `json:"description"`
	Suggestion  string    `json:"suggestion,omitempty"`
}

// Verdict is the structured outcome of one reflection pass. It is immutable
// once produced. Error is set when the reflection call itself failed; the
// verdict is still usable (fail open).
type Verdict struct {
	NeedsImprovement bool     `json:"needs_improvement"`
	CorrectnessScore int      `json:"correctness_score"`
	Strengths        []string `json:"strengths,omitempty"`
	Issues           []Issue  `json:"issues,omitempty"`
	Feedback         string   `json:"feedback,omitempty"`
	ImprovedQuery    string   `json:"improved_query,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// ExecutionResult is the outcome of one execution attempt. ExecutionTimeMs is
// always present, success or failure.
type ExecutionResult struct {
	Success         bool                     `json:"success"`
	Rows            []map[string]interface{} `json:"rows,omitempty"`
	Columns         []string                 `json:"columns,omitempty"`
	RowCount        int                      `json:"row_count"`
	Error           string                   `json:"error,omitempty"`
	ExecutionTimeMs int64                    `json:"execution_time_ms"`
	SafeMode        bool                     `json:"safe_mode"`
	RowLimit        int                      `json:"row_limit"`
	Timestamp       time.Time                `json:"timestamp"`
	Metadata        map[string]interface{}   `json:"metadata,omitempty"`
}

// RunStatus is the terminal state of an orchestrator run.
type RunStatus string

const (
	RunDone   RunStatus = "done"
	RunFailed RunStatus = "failed"
	RunDryRun RunStatus = "dry_run"
)

// RunReport is the terminal output of one orchestrator run. Candidates and
// Verdicts are the full audit trail, in production order, and are populated
// on every terminal state including failures.
type RunReport struct {
	Status       RunStatus        `json:"status"`
	Error        string           `json:"error,omitempty"`
	SQL          *string          `json:"sql,omitempty"`
	Result       *ExecutionResult `json:"result,omitempty"`
	Candidates   []SQLCandidate   `json:"candidates"`
	Verdicts     []Verdict        `json:"verdicts"`
	Improvements int              `json:"improvements"`
	ElapsedMs    int64            `json:"elapsed_ms"`
}

// FinalCandidate returns the last candidate in the trail, or nil.
func (r *RunReport) FinalCandidate() *SQLCandidate {
	if len(r.Candidates) == 0 {
		return nil
	}
	return &r.Candidates[len(r.Candidates)-1]
}
