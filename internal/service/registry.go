// Package service holds the data-source runners and the registry the rest of
// the pipeline queries them through. Each runner enforces safe mode and the
// row limit itself; callers hand it a statement and get rows back.
package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/querypilot/querypilot/internal/models"
	"github.com/querypilot/querypilot/internal/schema"
)

// Kind labels a runner's backing technology.
const (
	KindPostgres      = "postgres"
	KindBigQuery      = "bigquery"
	KindElasticsearch = "elasticsearch"
)

// QueryOptions carries per-call execution settings.
type QueryOptions struct {
	SafeMode bool
	RowLimit int
}

// QueryOutput is what a runner returns on success.
type QueryOutput struct {
	Rows     []map[string]interface{}
	Columns  []string
	Metadata map[string]interface{}
}

// QueryRunner executes SQL against one configured data source. ExecuteQuery
// must reject destructive statements when SafeMode is set and cap returned
// rows at RowLimit.
type QueryRunner interface {
	Name() string
	Kind() string
	ExecuteQuery(ctx context.Context, sql string, opts QueryOptions) (*QueryOutput, error)
	Schema(ctx context.Context) (schema.Descriptor, error)
	TestConnection(ctx context.Context) error
	Close()
}

// Registry maps source names to runners. It is built once at startup and
// read-only afterwards.
type Registry struct {
	runners map[string]QueryRunner
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]QueryRunner)}
}

// Register adds a runner under its name. Later registrations with the same
// name replace earlier ones.
func (r *Registry) Register(runner QueryRunner) {
	name := runner.Name()
	if _, exists := r.runners[name]; !exists {
		r.order = append(r.order, name)
	}
	r.runners[name] = runner
}

// Get returns the named runner.
func (r *Registry) Get(name string) (QueryRunner, error) {
	runner, ok := r.runners[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrSourceNotFound, name)
	}
	return runner, nil
}

// Names lists registered sources in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len reports how many sources are registered.
func (r *Registry) Len() int { return len(r.runners) }

// Sources describes every registered source, probing connectivity.
func (r *Registry) Sources(ctx context.Context) []models.SourceInfo {
	infos := make([]models.SourceInfo, 0, len(r.order))
	for _, name := range r.order {
		runner := r.runners[name]
		info := models.SourceInfo{Name: name, Kind: runner.Kind(), Status: "ok"}
		if err := runner.TestConnection(ctx); err != nil {
			info.Status = "unreachable"
			info.Error = err.Error()
		}
		infos = append(infos, info)
	}
	return infos
}

// CloseAll shuts every runner down.
func (r *Registry) CloseAll() {
	for _, name := range r.order {
		r.runners[name].Close()
	}
}

// ByKind returns the names of sources with the given kind, sorted.
func (r *Registry) ByKind(kind string) []string {
	var names []string
	for name, runner := range r.runners {
		if runner.Kind() == kind {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
