package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/querypilot/querypilot/internal/schema"
	"github.com/querypilot/querypilot/internal/service"
)

type fakeRunner struct {
	name    string
	kind    string
	desc    schema.Descriptor
	output  *service.QueryOutput
	execErr error
	connErr error
	closed  bool
}

func (f *fakeRunner) Name() string { return f.name }
func (f *fakeRunner) Kind() string { return f.kind }
func (f *fakeRunner) ExecuteQuery(ctx context.Context, sql string, opts service.QueryOptions) (*service.QueryOutput, error) {
	if f.execErr != nil {
		return nil, f.execErr
	}
	if f.output != nil {
		return f.output, nil
	}
	return &service.QueryOutput{}, nil
}
func (f *fakeRunner) Schema(ctx context.Context) (schema.Descriptor, error) { return f.desc, nil }
func (f *fakeRunner) TestConnection(ctx context.Context) error              { return f.connErr }
func (f *fakeRunner) Close()                                                { f.closed = true }

func twoSourceRegistry() *service.Registry {
	reg := service.NewRegistry()
	reg.Register(&fakeRunner{name: "warehouse", kind: service.KindBigQuery})
	reg.Register(&fakeRunner{name: "applogs", kind: service.KindElasticsearch})
	return reg
}

// ─── Registry ─────────────────────────────────────────────────────────────────

func TestRegistryLookup(t *testing.T) {
	reg := twoSourceRegistry()

	runner, err := reg.Get("warehouse")
	if err != nil || runner.Kind() != service.KindBigQuery {
		t.Fatalf("Get(warehouse) = %v, %v", runner, err)
	}

	if _, err := reg.Get("nope"); err == nil {
		t.Error("unknown source should error")
	} else if !strings.Contains(err.Error(), "nope") {
		t.Errorf("error should name the source: %v", err)
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "warehouse" || names[1] != "applogs" {
		t.Errorf("Names = %v, want registration order", names)
	}
}

func TestRegistrySourcesProbesConnectivity(t *testing.T) {
	reg := service.NewRegistry()
	reg.Register(&fakeRunner{name: "up", kind: service.KindPostgres})
	reg.Register(&fakeRunner{name: "down", kind: service.KindPostgres, connErr: context.DeadlineExceeded})

	infos := reg.Sources(context.Background())
	if len(infos) != 2 {
		t.Fatalf("Sources returned %d entries", len(infos))
	}
	if infos[0].Status != "ok" || infos[1].Status != "unreachable" {
		t.Errorf("statuses = %s, %s", infos[0].Status, infos[1].Status)
	}
	if infos[1].Error == "" {
		t.Error("unreachable source should carry the probe error")
	}
}

func TestRegistryCloseAll(t *testing.T) {
	a := &fakeRunner{name: "a", kind: service.KindPostgres}
	b := &fakeRunner{name: "b", kind: service.KindPostgres}
	reg := service.NewRegistry()
	reg.Register(a)
	reg.Register(b)

	reg.CloseAll()
	if !a.closed || !b.closed {
		t.Error("CloseAll should close every runner")
	}
}

// ─── Source routing ───────────────────────────────────────────────────────────

func TestRouteSourceAnalytics(t *testing.T) {
	a := service.NewIntentAnalyzer(twoSourceRegistry())

	prompts := []string{
		"Show top 10 users by order count",
		"sum of revenue by region",
		"what are the metrics for the KPI report",
		"monthly total sales per customer",
	}
	for _, p := range prompts {
		res, err := a.RouteSource(p, nil)
		if err != nil {
			t.Fatalf("RouteSource(%q): %v", p, err)
		}
		if res.Source != "warehouse" {
			t.Errorf("expected warehouse for %q, got %q (confidence %.2f: %s)",
				p, res.Source, res.Confidence, res.Reasoning)
		}
	}
}

func TestRouteSourceLogSearch(t *testing.T) {
	a := service.NewIntentAnalyzer(twoSourceRegistry())

	prompts := []string{
		"find errors in the logs",
		"investigate the exception from the last hour",
		"troubleshoot what happened with this trace id",
	}
	for _, p := range prompts {
		res, err := a.RouteSource(p, nil)
		if err != nil {
			t.Fatalf("RouteSource(%q): %v", p, err)
		}
		if res.Source != "applogs" {
			t.Errorf("expected applogs for %q, got %q (confidence %.2f: %s)",
				p, res.Source, res.Confidence, res.Reasoning)
		}
	}
}

func TestRouteSourceExplicitWins(t *testing.T) {
	a := service.NewIntentAnalyzer(twoSourceRegistry())

	explicit := "applogs"
	res, err := a.RouteSource("sum of revenue by region", &explicit)
	if err != nil {
		t.Fatalf("RouteSource: %v", err)
	}
	if res.Source != "applogs" || res.Confidence != 1.0 {
		t.Errorf("explicit source should win outright, got %+v", res)
	}
}

func TestRouteSourceExplicitUnknown(t *testing.T) {
	a := service.NewIntentAnalyzer(twoSourceRegistry())

	explicit := "missing"
	if _, err := a.RouteSource("anything", &explicit); err == nil {
		t.Error("unknown explicit source should error")
	}
}

func TestRouteSourceSingleRegistry(t *testing.T) {
	reg := service.NewRegistry()
	reg.Register(&fakeRunner{name: "only", kind: service.KindPostgres})
	a := service.NewIntentAnalyzer(reg)

	res, err := a.RouteSource("find errors in the logs", nil)
	if err != nil {
		t.Fatalf("RouteSource: %v", err)
	}
	if res.Source != "only" {
		t.Errorf("single-source registry should short-circuit, got %q", res.Source)
	}
}

func TestRouteSourceNoKeywordsDefaultsToAnalytics(t *testing.T) {
	a := service.NewIntentAnalyzer(twoSourceRegistry())

	res, err := a.RouteSource("hmm", nil)
	if err != nil {
		t.Fatalf("RouteSource: %v", err)
	}
	if res.Source != "warehouse" || res.Confidence != 0.5 {
		t.Errorf("keyword-free question should default to the analytics source, got %+v", res)
	}
}

// ─── Intent analysis ──────────────────────────────────────────────────────────

func analyzeDescriptor() schema.Descriptor {
	return schema.Descriptor{Tables: []schema.Table{
		{
			Name: "orders",
			Columns: []schema.Column{
				{Name: "id", Type: "integer"},
				{Name: "total", Type: "numeric"},
				{Name: "customer_id", Type: "integer"},
			},
		},
		{
			Name: "customers",
			Columns: []schema.Column{
				{Name: "id", Type: "integer"},
				{Name: "name", Type: "text"},
			},
		},
	}}
}

func TestAnalyzeMatchesSchema(t *testing.T) {
	a := service.NewIntentAnalyzer(service.NewRegistry())

	intent := a.Analyze("sum the total of orders per customer where total is more than 100", analyzeDescriptor())

	if len(intent.Tables) != 2 {
		t.Errorf("tables = %v, want orders and customers", intent.Tables)
	}
	if !contains(intent.Columns, "total") {
		t.Errorf("columns = %v, want total", intent.Columns)
	}
	if !contains(intent.Operations, "aggregation") || !contains(intent.Operations, "grouping") {
		t.Errorf("operations = %v", intent.Operations)
	}
	if len(intent.Filters) == 0 {
		t.Error("filter wording should produce at least one filter description")
	}
}

func TestAnalyzeSingularTableMention(t *testing.T) {
	a := service.NewIntentAnalyzer(service.NewRegistry())

	intent := a.Analyze("how many rows does the customer table have", analyzeDescriptor())
	if !contains(intent.Tables, "customers") {
		t.Errorf("tables = %v, want customers via singular mention", intent.Tables)
	}
}

func TestAnalyzeSpokenColumnName(t *testing.T) {
	a := service.NewIntentAnalyzer(service.NewRegistry())

	intent := a.Analyze("list orders with their customer id", analyzeDescriptor())
	if !contains(intent.Columns, "customer_id") {
		t.Errorf("columns = %v, want customer_id via spoken form", intent.Columns)
	}
}

func TestAnalyzeEmptyQuestion(t *testing.T) {
	a := service.NewIntentAnalyzer(service.NewRegistry())

	intent := a.Analyze("", analyzeDescriptor())
	if len(intent.Tables) != 0 || len(intent.Operations) != 0 {
		t.Errorf("empty question should produce an empty intent, got %+v", intent)
	}
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
