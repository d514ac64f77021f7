package service

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/querypilot/querypilot/internal/schema"
	"github.com/querypilot/querypilot/internal/security"
)

// BigQueryRunner executes SQL against one BigQuery dataset.
type BigQueryRunner struct {
	client    *bigquery.Client
	name      string
	projectID string
	dataset   string
	location  string
	maxBytes  int64
	validator *security.SQLValidator
}

// NewBigQueryRunner creates a client scoped to one dataset. maxBytes > 0 is
// passed through as the per-query bytes-billed ceiling.
func NewBigQueryRunner(ctx context.Context, name, projectID, credentialsFile, dataset, location string, maxBytes int64) (*BigQueryRunner, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}

	return &BigQueryRunner{
		client:    client,
		name:      name,
		projectID: projectID,
		dataset:   dataset,
		location:  location,
		maxBytes:  maxBytes,
		validator: security.NewSQLValidator(),
	}, nil
}

func (r *BigQueryRunner) Name() string { return r.name }
func (r *BigQueryRunner) Kind() string { return KindBigQuery }

// TestConnection verifies connectivity with a trivial query.
func (r *BigQueryRunner) TestConnection(ctx context.Context) error {
	q := r.client.Query("SELECT 1")
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("job wait: %w", err)
	}
	return status.Err()
}

func (r *BigQueryRunner) Close() {
	if err := r.client.Close(); err != nil {
		log.Warn().Err(err).Str("source", r.name).Msg("bigquery client close failed")
	}
}

// ExecuteQuery runs sql as a BigQuery job and returns at most opts.RowLimit
// rows. Job statistics land in Metadata for cost tracking.
func (r *BigQueryRunner) ExecuteQuery(ctx context.Context, sql string, opts QueryOptions) (*QueryOutput, error) {
	if opts.SafeMode {
		if msg := r.validator.Validate(sql); msg != "" {
			return nil, fmt.Errorf("safe mode rejected query: %s", msg)
		}
	}

	q := r.client.Query(sql)
	if r.location != "" {
		q.Location = r.location
	}
	if r.maxBytes > 0 {
		q.MaxBytesBilled = r.maxBytes
	}

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("job wait: %w", err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var bytesProcessed, bytesBilled int64
	var cacheHit bool
	if stats := job.LastStatus().Statistics; stats != nil {
		bytesProcessed = stats.TotalBytesProcessed
		if qStats, ok := stats.Details.(*bigquery.QueryStatistics); ok {
			bytesBilled = qStats.TotalBytesBilled
			cacheHit = qStats.CacheHit
		}
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("job read: %w", err)
	}

	var rows []map[string]interface{}
	var columns []string
	first := true

	for {
		if opts.RowLimit > 0 && len(rows) >= opts.RowLimit {
			break
		}
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		if first && it.Schema != nil {
			for _, f := range it.Schema {
				columns = append(columns, f.Name)
			}
			first = false
		}

		m := make(map[string]interface{}, len(row))
		for k, v := range row {
			m[k] = v
		}
		rows = append(rows, m)
	}

	return &QueryOutput{
		Rows:    rows,
		Columns: columns,
		Metadata: map[string]interface{}{
			"job_id":                job.ID(),
			"total_bytes_processed": bytesProcessed,
			"bytes_billed":          bytesBilled,
			"cache_hit":             cacheHit,
		},
	}, nil
}

// Schema lists the dataset's tables and their fields. BigQuery exposes no
// key constraints, so the descriptor carries columns only.
func (r *BigQueryRunner) Schema(ctx context.Context) (schema.Descriptor, error) {
	var d schema.Descriptor

	it := r.client.Dataset(r.dataset).Tables(ctx)
	for {
		tbl, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return schema.Descriptor{}, fmt.Errorf("list tables: %w", err)
		}
		meta, err := tbl.Metadata(ctx)
		if err != nil {
			log.Warn().Err(err).Str("table", tbl.TableID).Msg("table metadata fetch failed")
			continue
		}

		table := schema.Table{Name: tbl.TableID}
		for _, f := range meta.Schema {
			table.Columns = append(table.Columns, schema.Column{
				Name:     f.Name,
				Type:     string(f.Type),
				Nullable: !f.Required,
			})
		}
		d.Tables = append(d.Tables, table)
	}
	return d, nil
}
