package orchestrator_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/querypilot/querypilot/internal/executor"
	"github.com/querypilot/querypilot/internal/models"
	"github.com/querypilot/querypilot/internal/orchestrator"
	"github.com/querypilot/querypilot/internal/retry"
	"github.com/querypilot/querypilot/internal/schema"
	"github.com/querypilot/querypilot/internal/sqlgen"
)

type fakeGenerator struct {
	reply   string
	failN   int
	calls   int
	sources []sqlgen.SourceColumns
}

func (g *fakeGenerator) Generate(ctx context.Context, question string, sources []sqlgen.SourceColumns, conversationContext string) (string, error) {
	g.calls++
	g.sources = sources
	if g.calls <= g.failN {
		return "", errors.New("provider unavailable")
	}
	return g.reply, nil
}

type fakeReflector struct {
	verdicts []models.Verdict
	calls    int
}

func (r *fakeReflector) Reflect(ctx context.Context, question, sqlQuery string, d schema.Descriptor, intent models.IntentAnalysis) models.Verdict {
	v := r.verdicts[len(r.verdicts)-1]
	if r.calls < len(r.verdicts) {
		v = r.verdicts[r.calls]
	}
	r.calls++
	return v
}

type fakeExecutor struct {
	result  *models.ExecutionResult
	calls   int
	gotSQL  string
	gotOpts executor.Options
}

func (e *fakeExecutor) Execute(ctx context.Context, sql string, opts executor.Options) *models.ExecutionResult {
	e.calls++
	e.gotSQL = sql
	e.gotOpts = opts
	if e.result != nil {
		return e.result
	}
	return &models.ExecutionResult{Success: true, RowCount: 1, ExecutionTimeMs: 1}
}

func (e *fakeExecutor) Source() string { return "testdb" }

func fastConfig() orchestrator.Config {
	return orchestrator.Config{
		MaxImprovementCycles: 1,
		Retry: retry.Policy{
			MaxRetries: 3,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		},
	}
}

func askRequest(exec orchestrator.Executor) orchestrator.Request {
	return orchestrator.Request{
		Question: "how many orders were placed",
		Descriptor: schema.Descriptor{Tables: []schema.Table{
			{Name: "orders", Columns: []schema.Column{
				{Name: "id", Type: "integer"},
				{Name: "total", Type: "numeric"},
			}},
		}},
		Executor: exec,
		Options:  executor.DefaultOptions(),
	}
}

func goodVerdict() models.Verdict {
	return models.Verdict{NeedsImprovement: false, CorrectnessScore: 9}
}

func rewriteVerdict(improved string) models.Verdict {
	return models.Verdict{
		NeedsImprovement: true,
		CorrectnessScore: 5,
		Feedback:         "missing filter",
		ImprovedQuery:    improved,
	}
}

// ─── Clean pass ───────────────────────────────────────────────────────────────

func TestRunCleanPass(t *testing.T) {
	gen := &fakeGenerator{reply: "SELECT COUNT(*) FROM orders"}
	refl := &fakeReflector{verdicts: []models.Verdict{goodVerdict()}}
	exec := &fakeExecutor{}
	p := orchestrator.New(gen, refl, fastConfig())

	report := p.Run(context.Background(), askRequest(exec))

	if report.Status != models.RunDone {
		t.Fatalf("status = %s, error = %s", report.Status, report.Error)
	}
	if report.SQL == nil || *report.SQL != "SELECT COUNT(*) FROM orders" {
		t.Errorf("report.SQL = %v", report.SQL)
	}
	if len(report.Candidates) != 1 || len(report.Verdicts) != 1 {
		t.Fatalf("trail = %d candidates, %d verdicts", len(report.Candidates), len(report.Verdicts))
	}
	c := report.Candidates[0]
	if c.Origin != models.OriginGenerated || c.Attempt != 1 || c.State != models.CandidateExecuted {
		t.Errorf("candidate = %+v", c)
	}
	if report.Improvements != 0 {
		t.Errorf("improvements = %d", report.Improvements)
	}
	if report.Result == nil || !report.Result.Success {
		t.Errorf("result = %+v", report.Result)
	}
	if exec.gotSQL != "SELECT COUNT(*) FROM orders" {
		t.Errorf("executed %q", exec.gotSQL)
	}
}

func TestRunEnumeratesSchemaForGenerator(t *testing.T) {
	gen := &fakeGenerator{reply: "SELECT 1"}
	refl := &fakeReflector{verdicts: []models.Verdict{goodVerdict()}}
	p := orchestrator.New(gen, refl, fastConfig())

	p.Run(context.Background(), askRequest(&fakeExecutor{}))

	if len(gen.sources) != 1 || gen.sources[0].Source != "orders" {
		t.Fatalf("sources = %+v", gen.sources)
	}
	if len(gen.sources[0].Columns) != 2 || gen.sources[0].Columns[0] != "id" {
		t.Errorf("columns = %v", gen.sources[0].Columns)
	}
}

// ─── Improvement cycle ────────────────────────────────────────────────────────

func TestRunImprovementCycle(t *testing.T) {
	gen := &fakeGenerator{reply: "SELECT COUNT(*) FROM orders"}
	refl := &fakeReflector{verdicts: []models.Verdict{
		rewriteVerdict("SELECT COUNT(*) FROM orders WHERE total > 0"),
		goodVerdict(),
	}}
	exec := &fakeExecutor{}
	p := orchestrator.New(gen, refl, fastConfig())

	report := p.Run(context.Background(), askRequest(exec))

	if report.Status != models.RunDone {
		t.Fatalf("status = %s, error = %s", report.Status, report.Error)
	}
	if len(report.Candidates) != 2 || len(report.Verdicts) != 2 {
		t.Fatalf("trail = %d candidates, %d verdicts", len(report.Candidates), len(report.Verdicts))
	}
	if report.Improvements != 1 {
		t.Errorf("improvements = %d", report.Improvements)
	}

	first, second := report.Candidates[0], report.Candidates[1]
	if first.State != models.CandidateImproved {
		t.Errorf("superseded candidate state = %s", first.State)
	}
	if second.Origin != models.OriginImproved || second.Attempt != 2 || second.State != models.CandidateExecuted {
		t.Errorf("improved candidate = %+v", second)
	}
	if exec.gotSQL != "SELECT COUNT(*) FROM orders WHERE total > 0" {
		t.Errorf("executed %q, want the improved query", exec.gotSQL)
	}
}

func TestRunImprovementCyclesAreBounded(t *testing.T) {
	gen := &fakeGenerator{reply: "SELECT 1"}
	refl := &fakeReflector{verdicts: []models.Verdict{rewriteVerdict("SELECT 2")}}
	p := orchestrator.New(gen, refl, fastConfig())

	report := p.Run(context.Background(), askRequest(&fakeExecutor{}))

	if report.Status != models.RunDone {
		t.Fatalf("status = %s", report.Status)
	}
	if len(report.Candidates) != 2 || len(report.Verdicts) != 2 {
		t.Errorf("trail = %d candidates, %d verdicts, want 2 and 2 with a single cycle",
			len(report.Candidates), len(report.Verdicts))
	}
	if refl.calls != 2 {
		t.Errorf("reflector called %d times", refl.calls)
	}
}

func TestRunSkipsImprovementWhenRewriteEmpty(t *testing.T) {
	gen := &fakeGenerator{reply: "SELECT 1"}
	refl := &fakeReflector{verdicts: []models.Verdict{{
		NeedsImprovement: true,
		CorrectnessScore: 4,
		Feedback:         "questionable but no rewrite offered",
	}}}
	exec := &fakeExecutor{}
	p := orchestrator.New(gen, refl, fastConfig())

	report := p.Run(context.Background(), askRequest(exec))

	if report.Status != models.RunDone {
		t.Fatalf("status = %s", report.Status)
	}
	if len(report.Candidates) != 1 || report.Improvements != 0 {
		t.Errorf("trail = %d candidates, improvements = %d", len(report.Candidates), report.Improvements)
	}
	if exec.gotSQL != "SELECT 1" {
		t.Errorf("executed %q", exec.gotSQL)
	}
}

// ─── Generation failures ──────────────────────────────────────────────────────

func TestRunGenerationRetriesThenSucceeds(t *testing.T) {
	gen := &fakeGenerator{reply: "SELECT 1", failN: 1}
	refl := &fakeReflector{verdicts: []models.Verdict{goodVerdict()}}
	p := orchestrator.New(gen, refl, fastConfig())

	report := p.Run(context.Background(), askRequest(&fakeExecutor{}))

	if report.Status != models.RunDone {
		t.Fatalf("status = %s, error = %s", report.Status, report.Error)
	}
	if gen.calls != 2 {
		t.Errorf("generator called %d times, want a retry", gen.calls)
	}
}

func TestRunGenerationExhaustionFailsRun(t *testing.T) {
	gen := &fakeGenerator{failN: 100}
	refl := &fakeReflector{verdicts: []models.Verdict{goodVerdict()}}
	exec := &fakeExecutor{}
	p := orchestrator.New(gen, refl, fastConfig())

	report := p.Run(context.Background(), askRequest(exec))

	if report.Status != models.RunFailed {
		t.Fatalf("status = %s", report.Status)
	}
	if !strings.Contains(report.Error, "generation_failed") {
		t.Errorf("error = %q", report.Error)
	}
	if gen.calls != 3 {
		t.Errorf("generator called %d times, want all configured attempts", gen.calls)
	}
	if exec.calls != 0 {
		t.Error("nothing should execute after generation fails")
	}
	if report.Candidates == nil || report.Verdicts == nil {
		t.Error("trail slices should be present even when empty")
	}
}

// ─── Execution failures ───────────────────────────────────────────────────────

func TestRunExecutionFailureIsTerminal(t *testing.T) {
	gen := &fakeGenerator{reply: "SELECT nope FROM orders"}
	refl := &fakeReflector{verdicts: []models.Verdict{goodVerdict()}}
	exec := &fakeExecutor{result: &models.ExecutionResult{
		Success:         false,
		Error:           "column \"nope\" does not exist",
		ExecutionTimeMs: 3,
	}}
	p := orchestrator.New(gen, refl, fastConfig())

	report := p.Run(context.Background(), askRequest(exec))

	if report.Status != models.RunFailed {
		t.Fatalf("status = %s", report.Status)
	}
	if !strings.Contains(report.Error, "does not exist") {
		t.Errorf("error = %q", report.Error)
	}
	if exec.calls != 1 {
		t.Errorf("executor called %d times, execution failures must not be retried", exec.calls)
	}
	if report.Result == nil || report.Result.Success {
		t.Errorf("report should carry the failed result, got %+v", report.Result)
	}
	if got := report.Candidates[len(report.Candidates)-1].State; got != models.CandidateFailed {
		t.Errorf("final candidate state = %s", got)
	}
	if len(report.Verdicts) != 1 {
		t.Errorf("verdict trail lost: %d", len(report.Verdicts))
	}
}

// ─── Dry runs, cancellation, validation ───────────────────────────────────────

func TestRunDryRunStopsBeforeExecution(t *testing.T) {
	gen := &fakeGenerator{reply: "SELECT 1"}
	refl := &fakeReflector{verdicts: []models.Verdict{goodVerdict()}}
	exec := &fakeExecutor{}
	p := orchestrator.New(gen, refl, fastConfig())

	req := askRequest(exec)
	req.DryRun = true
	report := p.Run(context.Background(), req)

	if report.Status != models.RunDryRun {
		t.Fatalf("status = %s", report.Status)
	}
	if exec.calls != 0 {
		t.Error("dry run must not execute")
	}
	if report.SQL == nil || *report.SQL != "SELECT 1" {
		t.Errorf("report.SQL = %v", report.SQL)
	}
	if report.Result != nil {
		t.Errorf("dry run should carry no result, got %+v", report.Result)
	}
	if len(report.Verdicts) != 1 {
		t.Errorf("dry run should still reflect, got %d verdicts", len(report.Verdicts))
	}
}

func TestRunCancelledContext(t *testing.T) {
	gen := &fakeGenerator{reply: "SELECT 1"}
	refl := &fakeReflector{verdicts: []models.Verdict{goodVerdict()}}
	exec := &fakeExecutor{}
	p := orchestrator.New(gen, refl, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := p.Run(ctx, askRequest(exec))

	if report.Status != models.RunFailed {
		t.Fatalf("status = %s", report.Status)
	}
	if !strings.Contains(report.Error, context.Canceled.Error()) {
		t.Errorf("error = %q", report.Error)
	}
	if exec.calls != 0 {
		t.Error("a cancelled run must not execute")
	}
}

func TestRunEmptyQuestion(t *testing.T) {
	gen := &fakeGenerator{reply: "SELECT 1"}
	refl := &fakeReflector{verdicts: []models.Verdict{goodVerdict()}}
	p := orchestrator.New(gen, refl, fastConfig())

	req := askRequest(&fakeExecutor{})
	req.Question = "   "
	report := p.Run(context.Background(), req)

	if report.Status != models.RunFailed {
		t.Fatalf("status = %s", report.Status)
	}
	if !strings.Contains(report.Error, "question") {
		t.Errorf("error = %q", report.Error)
	}
	if gen.calls != 0 {
		t.Error("generation must not run for an empty question")
	}
}

func TestRunForwardsExecutionOptions(t *testing.T) {
	gen := &fakeGenerator{reply: "SELECT 1"}
	refl := &fakeReflector{verdicts: []models.Verdict{goodVerdict()}}
	exec := &fakeExecutor{}
	p := orchestrator.New(gen, refl, fastConfig())

	req := askRequest(exec)
	req.Options = executor.Options{SafeMode: false, RowLimit: 10}
	p.Run(context.Background(), req)

	if exec.gotOpts.SafeMode || exec.gotOpts.RowLimit != 10 {
		t.Errorf("options = %+v", exec.gotOpts)
	}
}
