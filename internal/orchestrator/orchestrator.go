// Package orchestrator drives one question end to end: generate SQL, reflect
// on it, optionally improve it, then execute. Runs are independent; the only
// shared state is the response cache inside the generator.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/querypilot/querypilot/internal/executor"
	"github.com/querypilot/querypilot/internal/models"
	"github.com/querypilot/querypilot/internal/observability"
	"github.com/querypilot/querypilot/internal/retry"
	"github.com/querypilot/querypilot/internal/schema"
	"github.com/querypilot/querypilot/internal/sqlgen"
)

// Generator produces a SQL candidate for a question.
type Generator interface {
	Generate(ctx context.Context, question string, sources []sqlgen.SourceColumns, conversationContext string) (string, error)
}

// Reflector critiques a candidate. It fails open and never returns an error.
type Reflector interface {
	Reflect(ctx context.Context, question, sqlQuery string, d schema.Descriptor, intent models.IntentAnalysis) models.Verdict
}

// Executor runs the final candidate against a data source.
type Executor interface {
	Execute(ctx context.Context, sql string, opts executor.Options) *models.ExecutionResult
	Source() string
}

// Config bounds a pipeline's runs.
type Config struct {
	MaxImprovementCycles int
	Retry                retry.Policy
}

// DefaultConfig mirrors the configuration defaults.
func DefaultConfig() Config {
	return Config{
		MaxImprovementCycles: 1,
		Retry:                retry.DefaultPolicy(),
	}
}

// Request carries one resolved run: the question plus the schema, intent, and
// executor the routing layer picked for it.
type Request struct {
	Question   string
	Context    string
	Descriptor schema.Descriptor
	Intent     models.IntentAnalysis
	Executor   Executor
	Options    executor.Options
	DryRun     bool
}

// Pipeline is the run driver. Safe for concurrent use; each Run is
// self-contained.
type Pipeline struct {
	generator Generator
	reflector Reflector
	cfg       Config
}

func New(generator Generator, reflector Reflector, cfg Config) *Pipeline {
	if cfg.MaxImprovementCycles < 0 {
		cfg.MaxImprovementCycles = 0
	}
	return &Pipeline{generator: generator, reflector: reflector, cfg: cfg}
}

// Run walks the state machine GENERATING, REFLECTING, IMPROVING, EXECUTING to
// a terminal DONE or FAILED report. The report always carries the complete
// candidate and verdict trail, whatever the outcome. Run never returns an
// error; failures are terminal states of the report.
func (p *Pipeline) Run(ctx context.Context, req Request) *models.RunReport {
	start := time.Now()
	runID := uuid.NewString()
	report := &models.RunReport{
		Candidates: []models.SQLCandidate{},
		Verdicts:   []models.Verdict{},
	}
	defer func() {
		report.ElapsedMs = time.Since(start).Milliseconds()
		observability.ObserveRun(string(report.Status), time.Since(start))
		log.Info().
			Str("run_id", runID).
			Str("status", string(report.Status)).
			Int("candidates", len(report.Candidates)).
			Int("improvements", report.Improvements).
			Int64("elapsed_ms", report.ElapsedMs).
			Msg("run finished")
	}()

	if strings.TrimSpace(req.Question) == "" {
		return fail(report, models.ErrEmptyQuestion.Error())
	}

	// GENERATING
	if err := ctx.Err(); err != nil {
		return fail(report, err.Error())
	}
	log.Debug().Str("run_id", runID).Str("state", "generating").Msg("run state")
	sources := sourcesFromDescriptor(req.Descriptor)
	var sqlText string
	genErr := retry.Do(ctx, p.cfg.Retry, func(ctx context.Context) error {
		text, err := p.generator.Generate(ctx, req.Question, sources, req.Context)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return models.ErrEmptySQL
		}
		sqlText = text
		return nil
	})
	if genErr != nil {
		return fail(report, fmt.Sprintf("generation_failed: %v", genErr))
	}
	report.Candidates = append(report.Candidates, models.SQLCandidate{
		ID:        uuid.NewString(),
		SQL:       sqlText,
		Attempt:   1,
		Origin:    models.OriginGenerated,
		State:     models.CandidateProposed,
		CreatedAt: time.Now(),
	})

	// REFLECTING, looping back through IMPROVING while the verdict asks for a
	// rewrite and improvement cycles remain.
	for {
		if err := ctx.Err(); err != nil {
			return fail(report, err.Error())
		}
		active := &report.Candidates[len(report.Candidates)-1]
		log.Debug().
			Str("run_id", runID).
			Str("state", "reflecting").
			Int("attempt", active.Attempt).
			Msg("run state")
		verdict := p.reflector.Reflect(ctx, req.Question, active.SQL, req.Descriptor, req.Intent)
		report.Verdicts = append(report.Verdicts, verdict)
		active.State = models.CandidateReflected

		improved := strings.TrimSpace(verdict.ImprovedQuery)
		if !verdict.NeedsImprovement || improved == "" || report.Improvements >= p.cfg.MaxImprovementCycles {
			break
		}

		// IMPROVING
		report.Improvements++
		observability.IncrementImprovementCycles()
		log.Debug().
			Str("run_id", runID).
			Str("state", "improving").
			Int("cycle", report.Improvements).
			Int("correctness_score", verdict.CorrectnessScore).
			Msg("run state")
		next := models.SQLCandidate{
			ID:        uuid.NewString(),
			SQL:       improved,
			Attempt:   active.Attempt + 1,
			Origin:    models.OriginImproved,
			State:     models.CandidateProposed,
			CreatedAt: time.Now(),
		}
		active.State = models.CandidateImproved
		report.Candidates = append(report.Candidates, next)
	}

	final := &report.Candidates[len(report.Candidates)-1]
	finalSQL := final.SQL
	report.SQL = &finalSQL

	if req.DryRun {
		report.Status = models.RunDryRun
		return report
	}

	// EXECUTING
	if err := ctx.Err(); err != nil {
		return fail(report, err.Error())
	}
	log.Debug().
		Str("run_id", runID).
		Str("state", "executing").
		Str("source", req.Executor.Source()).
		Msg("run state")
	result := req.Executor.Execute(ctx, final.SQL, req.Options)
	report.Result = result
	if !result.Success {
		final.State = models.CandidateFailed
		report.Status = models.RunFailed
		report.Error = result.Error
		return report
	}
	final.State = models.CandidateExecuted
	report.Status = models.RunDone
	return report
}

func fail(report *models.RunReport, msg string) *models.RunReport {
	report.Status = models.RunFailed
	report.Error = msg
	return report
}

// sourcesFromDescriptor flattens the descriptor into the source and column
// listing the generation prompt enumerates.
func sourcesFromDescriptor(d schema.Descriptor) []sqlgen.SourceColumns {
	sources := make([]sqlgen.SourceColumns, 0, len(d.Tables))
	for _, t := range d.Tables {
		cols := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			cols = append(cols, c.Name)
		}
		sources = append(sources, sqlgen.SourceColumns{Source: t.Name, Columns: cols})
	}
	return sources
}
