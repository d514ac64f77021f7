package handler

import "github.com/querypilot/querypilot/internal/security"

// Guards bundles the request screens and output scrubbers shared by the ask
// and query endpoints.
type Guards struct {
	Prompt *security.PromptValidator
	PII    *security.PIIDetector
	Masker *security.DataMasker
	Cost   *security.CostTracker
	Audit  *security.AuditLogger

	MaskRows    bool
	DetectPII   bool
	AllowUnsafe bool
}
