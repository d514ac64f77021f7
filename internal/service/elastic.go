package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog/log"

	"github.com/querypilot/querypilot/internal/schema"
	"github.com/querypilot/querypilot/internal/security"
)

// ElasticRunner executes SQL against Elasticsearch through the _sql endpoint
// and treats indices as tables.
type ElasticRunner struct {
	client          *elasticsearch.Client
	name            string
	allowedPatterns []string
	validator       *security.SQLValidator
}

// NewElasticRunner creates an ES client. allowedPatterns restricts which
// indices may be queried or introspected; empty means all.
func NewElasticRunner(name, scheme, host string, port int, user, password string, verifyCerts bool, maxRetries int, allowedPatterns []string) (*ElasticRunner, error) {
	addr := fmt.Sprintf("%s://%s:%d", scheme, host, port)

	cfg := elasticsearch.Config{
		Addresses:  []string{addr},
		MaxRetries: maxRetries,
	}
	if user != "" {
		cfg.Username = user
		cfg.Password = password
	}
	if !verifyCerts {
		cfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402 - user explicitly disabled cert verification
			},
		}
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch.NewClient: %w", err)
	}
	return &ElasticRunner{
		client:          client,
		name:            name,
		allowedPatterns: allowedPatterns,
		validator:       security.NewSQLValidator(),
	}, nil
}

func (r *ElasticRunner) Name() string { return r.name }
func (r *ElasticRunner) Kind() string { return KindElasticsearch }

// TestConnection pings the cluster.
func (r *ElasticRunner) TestConnection(ctx context.Context) error {
	res, err := r.client.Ping(r.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping error: %s", res.Status())
	}
	return nil
}

func (r *ElasticRunner) Close() {}

// IsIndexAllowed returns true if the index matches any of the allowed
// patterns. If no patterns are configured, all indices are allowed.
func (r *ElasticRunner) IsIndexAllowed(index string) bool {
	if len(r.allowedPatterns) == 0 {
		return true
	}
	for _, pattern := range r.allowedPatterns {
		matched, err := filepath.Match(pattern, index)
		if err == nil && matched {
			return true
		}
		prefix := strings.TrimSuffix(pattern, "*")
		if prefix != pattern && strings.HasPrefix(index, prefix) {
			return true
		}
	}
	return false
}

// AllowedPatterns returns the configured index patterns.
func (r *ElasticRunner) AllowedPatterns() []string {
	return r.allowedPatterns
}

// reFromTargets pulls the index names a SQL statement reads from, so access
// control runs before the statement does.
var reFromTargets = regexp.MustCompile(`(?i)\bFROM\s+"?([a-zA-Z0-9_\-\.\*]+)"?`)

// ExecuteQuery runs sql through the _sql endpoint with fetch_size bound to
// the row limit. Only the first page is consumed; a returned cursor is
// closed, not followed.
func (r *ElasticRunner) ExecuteQuery(ctx context.Context, sql string, opts QueryOptions) (*QueryOutput, error) {
	if opts.SafeMode {
		if msg := r.validator.Validate(sql); msg != "" {
			return nil, fmt.Errorf("safe mode rejected query: %s", msg)
		}
	}
	for _, m := range reFromTargets.FindAllStringSubmatch(sql, -1) {
		if !r.IsIndexAllowed(m[1]) {
			return nil, fmt.Errorf("access to index %q is not permitted", m[1])
		}
	}

	resp, err := r.sqlQuery(ctx, sql, opts.RowLimit)
	if err != nil {
		return nil, err
	}
	if resp.Cursor != "" {
		r.closeCursor(ctx, resp.Cursor)
	}

	columns := make([]string, 0, len(resp.Columns))
	for _, c := range resp.Columns {
		columns = append(columns, c.Name)
	}

	var rows []map[string]interface{}
	for _, raw := range resp.Rows {
		if opts.RowLimit > 0 && len(rows) >= opts.RowLimit {
			break
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if i < len(raw) {
				row[col] = raw[i]
			}
		}
		rows = append(rows, row)
	}

	return &QueryOutput{
		Rows:    rows,
		Columns: columns,
		Metadata: map[string]interface{}{
			"endpoint": "_sql",
		},
	}, nil
}

// Schema lists allowed indices and introspects each through SHOW COLUMNS.
// Elasticsearch fields carry no nullability or key constraints, so every
// column is reported nullable.
func (r *ElasticRunner) Schema(ctx context.Context) (schema.Descriptor, error) {
	indices, err := r.listIndices(ctx)
	if err != nil {
		return schema.Descriptor{}, err
	}

	var d schema.Descriptor
	for _, index := range indices {
		resp, err := r.sqlQuery(ctx, fmt.Sprintf("SHOW COLUMNS IN %q", index), 0)
		if err != nil {
			log.Warn().Err(err).Str("index", index).Msg("column introspection failed")
			continue
		}
		table := schema.Table{Name: index}
		for _, row := range resp.Rows {
			if len(row) < 2 {
				continue
			}
			name, _ := row[0].(string)
			sqlType, _ := row[1].(string)
			table.Columns = append(table.Columns, schema.Column{
				Name:     name,
				Type:     sqlType,
				Nullable: true,
			})
		}
		d.Tables = append(d.Tables, table)
	}
	return d, nil
}

type esSQLResponse struct {
	Columns []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"columns"`
	Rows   [][]interface{} `json:"rows"`
	Cursor string          `json:"cursor,omitempty"`
}

func (r *ElasticRunner) sqlQuery(ctx context.Context, query string, fetchSize int) (*esSQLResponse, error) {
	body := map[string]interface{}{"query": query}
	if fetchSize > 0 {
		body["fetch_size"] = fetchSize
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal sql request: %w", err)
	}

	res, err := r.client.SQL.Query(
		bytes.NewReader(bodyBytes),
		r.client.SQL.Query.WithContext(ctx),
		r.client.SQL.Query.WithFormat("json"),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		if _, derr := decodeBody(res.Body, res.Status()); derr != nil {
			return nil, derr
		}
		return nil, fmt.Errorf("elasticsearch sql error: %s", res.Status())
	}

	var parsed esSQLResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode sql response: %w", err)
	}
	return &parsed, nil
}

func (r *ElasticRunner) closeCursor(ctx context.Context, cursor string) {
	bodyBytes, err := json.Marshal(map[string]string{"cursor": cursor})
	if err != nil {
		return
	}
	res, err := r.client.SQL.ClearCursor(
		bytes.NewReader(bodyBytes),
		r.client.SQL.ClearCursor.WithContext(ctx),
	)
	if err != nil {
		log.Warn().Err(err).Str("source", r.name).Msg("sql cursor close failed")
		return
	}
	res.Body.Close()
}

// listIndices names every index visible to the runner, filtered by the
// allowed patterns.
func (r *ElasticRunner) listIndices(ctx context.Context) ([]string, error) {
	res, err := r.client.Cat.Indices(
		r.client.Cat.Indices.WithContext(ctx),
		r.client.Cat.Indices.WithFormat("json"),
		r.client.Cat.Indices.WithH("index"),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("list indices error: %s", res.Status())
	}

	var all []map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("decode indices: %w", err)
	}

	var names []string
	for _, idx := range all {
		name, _ := idx["index"].(string)
		if name == "" || strings.HasPrefix(name, ".") {
			continue
		}
		if r.IsIndexAllowed(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

func decodeBody(r io.Reader, status string) (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if strings.HasPrefix(status, "4") || strings.HasPrefix(status, "5") {
		if errObj, ok := result["error"]; ok {
			return nil, fmt.Errorf("elasticsearch error [%s]: %v", status, errObj)
		}
		return nil, fmt.Errorf("elasticsearch error: %s", status)
	}
	return result, nil
}
