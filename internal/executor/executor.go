// Package executor runs a finished SQL candidate against a data source and
// folds every outcome, including runner panics, into an ExecutionResult. The
// adapter never returns an error; callers branch on the result's Success flag.
package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/querypilot/querypilot/internal/models"
	"github.com/querypilot/querypilot/internal/observability"
	"github.com/querypilot/querypilot/internal/service"
)

// Options bound a single execution.
type Options struct {
	SafeMode bool
	RowLimit int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{SafeMode: true, RowLimit: 100}
}

// Adapter dispatches SQL to one QueryRunner and normalizes the outcome.
type Adapter struct {
	runner service.QueryRunner
}

func New(runner service.QueryRunner) *Adapter {
	return &Adapter{runner: runner}
}

// Source returns the name of the backing data source.
func (a *Adapter) Source() string {
	return a.runner.Name()
}

// Execute runs sql on the adapter's source. ExecutionTimeMs is set on every
// result, success or failure.
func (a *Adapter) Execute(ctx context.Context, sql string, opts Options) *models.ExecutionResult {
	start := time.Now()
	res := &models.ExecutionResult{
		SafeMode:  opts.SafeMode,
		RowLimit:  opts.RowLimit,
		Timestamp: start,
	}

	out, err := a.dispatch(ctx, sql, opts)
	res.ExecutionTimeMs = time.Since(start).Milliseconds()
	observability.ObserveExecution(a.runner.Name(), time.Since(start))
	if err != nil {
		log.Error().
			Err(err).
			Str("source", a.runner.Name()).
			Int64("execution_time_ms", res.ExecutionTimeMs).
			Msg("query execution failed")
		res.Error = err.Error()
		return res
	}

	res.Success = true
	res.Rows = out.Rows
	res.Columns = out.Columns
	res.RowCount = len(out.Rows)
	res.Metadata = out.Metadata
	log.Info().
		Str("source", a.runner.Name()).
		Int("rows", res.RowCount).
		Int64("execution_time_ms", res.ExecutionTimeMs).
		Msg("query executed")
	return res
}

// dispatch calls the runner, converting a panic into an ordinary error.
func (a *Adapter) dispatch(ctx context.Context, sql string, opts Options) (out *service.QueryOutput, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Str("source", a.runner.Name()).
				Msg("panic recovered in query runner")
			out = nil
			err = fmt.Errorf("runner panic: %v", rec)
		}
	}()
	return a.runner.ExecuteQuery(ctx, sql, service.QueryOptions{
		SafeMode: opts.SafeMode,
		RowLimit: opts.RowLimit,
	})
}
