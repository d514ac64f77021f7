package service

import (
	"fmt"
	"strings"

	"github.com/querypilot/querypilot/internal/models"
	"github.com/querypilot/querypilot/internal/schema"
)

// searchKeywords mark log-investigation wording that belongs on a search
// backend.
var searchKeywords = []string{
	"logs", "log", "exception", "stack trace", "stacktrace",
	"message", "timestamp", "warn", "debug",
	"elasticsearch", "index", "document", "kibana",
	"last hour", "last 24", "last minute",
	"investigation", "investigate", "what happened", "troubleshoot",
	"trace id", "request id", "correlation id",
}

// analyticsKeywords mark reporting and aggregation wording that belongs on a
// warehouse or relational backend.
var analyticsKeywords = []string{
	"table", "dataset", "row", "column", "sql", "query",
	"analytics", "report", "aggregate", "sum", "count", "average",
	"bigquery", "warehouse", "data", "metrics", "kpi",
	"top", "bottom", "group by", "order by",
	"revenue", "sales", "transaction", "order", "payment",
	"user", "customer", "monthly", "daily", "weekly", "total",
}

var operationKeywords = map[string][]string{
	"aggregation": {"sum", "count", "average", "avg", "total", "how many", "how much", "maximum", "minimum", "number of"},
	"ordering":    {"top ", "bottom ", "highest", "lowest", "most ", "least ", "sorted", "order by", "rank"},
	"grouping":    {"per ", "group", "each ", "breakdown", "by month", "by day", "by week", "by year"},
}

var filterIndicators = []string{
	"where", "more than", "less than", "at least", "at most",
	"greater than", "above", "below", "between", "over ", "under ",
	"since", "before", "after", "last month", "last year", "last week",
	"this month", "this year", "this week", "equal to",
}

// RoutingResult explains which source a question was routed to.
type RoutingResult struct {
	Source     string
	Confidence float64
	Reasoning  string
}

// IntentAnalyzer extracts a question's structured intent and routes it to a
// registered source by keyword scoring.
type IntentAnalyzer struct {
	registry *Registry
}

func NewIntentAnalyzer(registry *Registry) *IntentAnalyzer {
	return &IntentAnalyzer{registry: registry}
}

// RouteSource picks the source for a question. An explicit source wins
// outright; a single-source registry short-circuits; otherwise log-search
// wording is scored against analytics wording and the best matching kind is
// chosen.
func (a *IntentAnalyzer) RouteSource(question string, explicit *string) (RoutingResult, error) {
	if explicit != nil && *explicit != "" {
		if _, err := a.registry.Get(*explicit); err != nil {
			return RoutingResult{}, err
		}
		return RoutingResult{Source: *explicit, Confidence: 1.0, Reasoning: "source explicitly requested"}, nil
	}

	names := a.registry.Names()
	if len(names) == 0 {
		return RoutingResult{}, fmt.Errorf("no data sources configured")
	}
	if len(names) == 1 {
		return RoutingResult{Source: names[0], Confidence: 1.0, Reasoning: "single configured source"}, nil
	}

	lower := strings.ToLower(question)
	searchScore := 0
	analyticsScore := 0
	for _, kw := range searchKeywords {
		if strings.Contains(lower, kw) {
			searchScore++
		}
	}
	for _, kw := range analyticsKeywords {
		if strings.Contains(lower, kw) {
			analyticsScore++
		}
	}

	total := searchScore + analyticsScore
	if searchScore > analyticsScore {
		if candidates := a.registry.ByKind(KindElasticsearch); len(candidates) > 0 {
			return RoutingResult{
				Source:     candidates[0],
				Confidence: float64(searchScore) / float64(total),
				Reasoning:  "question contains log-search keywords",
			}, nil
		}
	}

	source := a.analyticsSource(names)
	if total == 0 {
		return RoutingResult{Source: source, Confidence: 0.5, Reasoning: "no strong keywords, defaulting to analytics source"}, nil
	}
	return RoutingResult{
		Source:     source,
		Confidence: float64(analyticsScore) / float64(total),
		Reasoning:  "question contains analytics keywords",
	}, nil
}

// analyticsSource prefers a warehouse, then a relational source, then
// whatever is first.
func (a *IntentAnalyzer) analyticsSource(names []string) string {
	if candidates := a.registry.ByKind(KindBigQuery); len(candidates) > 0 {
		return candidates[0]
	}
	if candidates := a.registry.ByKind(KindPostgres); len(candidates) > 0 {
		return candidates[0]
	}
	return names[0]
}

// Analyze extracts the tables, columns, filters, and operations a question
// implies, matched against the source's descriptor.
func (a *IntentAnalyzer) Analyze(question string, d schema.Descriptor) models.IntentAnalysis {
	lower := strings.ToLower(question)
	intent := models.IntentAnalysis{}

	seenColumns := map[string]bool{}
	for _, t := range d.Tables {
		if tableMentioned(lower, t.Name) {
			intent.Tables = append(intent.Tables, t.Name)
			for _, c := range t.Columns {
				if !seenColumns[c.Name] && columnMentioned(lower, c.Name) {
					seenColumns[c.Name] = true
					intent.Columns = append(intent.Columns, c.Name)
				}
			}
		}
	}

	for _, op := range []string{"aggregation", "ordering", "grouping"} {
		for _, kw := range operationKeywords[op] {
			if strings.Contains(lower, kw) {
				intent.Operations = append(intent.Operations, op)
				break
			}
		}
	}

	for _, indicator := range filterIndicators {
		if idx := strings.Index(lower, indicator); idx != -1 {
			intent.Filters = append(intent.Filters, filterClause(lower, idx))
		}
	}

	return intent
}

// tableMentioned matches the table name and its trivial singular form, so
// "customer" in a question finds the "customers" table.
func tableMentioned(lower, table string) bool {
	name := strings.ToLower(table)
	if strings.Contains(lower, name) {
		return true
	}
	if singular := strings.TrimSuffix(name, "s"); singular != name && len(singular) > 2 {
		return strings.Contains(lower, singular)
	}
	return false
}

// columnMentioned matches the column name directly or with underscores
// spoken as spaces.
func columnMentioned(lower, column string) bool {
	name := strings.ToLower(column)
	if strings.Contains(lower, name) {
		return true
	}
	return strings.Contains(lower, strings.ReplaceAll(name, "_", " "))
}

// filterClause grabs the phrase from the indicator to the next clause break,
// capped to keep the description short.
func filterClause(lower string, start int) string {
	rest := lower[start:]
	if cut := strings.IndexAny(rest, ",;.?"); cut != -1 {
		rest = rest[:cut]
	}
	if len(rest) > 60 {
		rest = rest[:60]
	}
	return strings.TrimSpace(rest)
}
