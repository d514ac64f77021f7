package models

// AskRequest for POST /api/v1/ask (natural language to SQL)
type AskRequest struct {
	Question string  `json:"question"`
	Source   *string `json:"source,omitempty"`
	Context  string  `json:"context,omitempty"`
	RowLimit int     `json:"row_limit"`
	SafeMode *bool   `json:"safe_mode,omitempty"`
	DryRun   bool    `json:"dry_run"`
	Timeout  int     `json:"timeout"`
}

func (r *AskRequest) SetDefaults() {
	if r.Timeout == 0 {
		r.Timeout = 300
	}
	if r.Timeout < 10 {
		r.Timeout = 10
	}
	if r.Timeout > 600 {
		r.Timeout = 600
	}
	if r.RowLimit == 0 {
		r.RowLimit = 100
	}
	if r.RowLimit < 1 {
		r.RowLimit = 1
	}
	if r.RowLimit > 1000 {
		r.RowLimit = 1000
	}
}

// Safe reports the effective safe-mode flag; unset means safe.
func (r *AskRequest) Safe() bool {
	if r.SafeMode == nil {
		return true
	}
	return *r.SafeMode
}

// QueryRequest for POST /api/v1/query (direct SQL)
type QueryRequest struct {
	Source    string `json:"source"`
	SQL       string `json:"sql"`
	SafeMode  *bool  `json:"safe_mode,omitempty"`
	RowLimit  int    `json:"row_limit"`
	TimeoutMs int    `json:"timeout_ms"`
}

func (r *QueryRequest) SetDefaults() {
	if r.TimeoutMs == 0 {
		r.TimeoutMs = 60000
	}
	if r.TimeoutMs < 1000 {
		r.TimeoutMs = 1000
	}
	if r.TimeoutMs > 300000 {
		r.TimeoutMs = 300000
	}
	if r.RowLimit == 0 {
		r.RowLimit = 100
	}
	if r.RowLimit < 1 {
		r.RowLimit = 1
	}
	if r.RowLimit > 1000 {
		r.RowLimit = 1000
	}
}

// Safe reports the effective safe-mode flag; unset means safe.
func (r *QueryRequest) Safe() bool {
	if r.SafeMode == nil {
		return true
	}
	return *r.SafeMode
}

// IntentAnalysis is the structured reading of a question: which tables and
// columns it needs and what operations it asks for. Produced by the intent
// analyzer, consumed by the generator and reflection prompts.
type IntentAnalysis struct {
	Tables     []string `json:"tables,omitempty"`
	Columns    []string `json:"columns,omitempty"`
	Filters    []string `json:"filters,omitempty"`
	Operations []string `json:"operations,omitempty"`
}
