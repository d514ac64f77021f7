package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/querypilot/querypilot/internal/schema"
	"github.com/querypilot/querypilot/internal/security"
)

// PostgresRunner executes SQL against one Postgres database through a pgx
// pool and introspects its schema from information_schema.
type PostgresRunner struct {
	pool       *pgxpool.Pool
	name       string
	schemaName string
	validator  *security.SQLValidator
}

// NewPostgresRunner connects a pool and verifies it with a ping.
func NewPostgresRunner(ctx context.Context, name, dsn, schemaName string) (*PostgresRunner, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgresRunner{
		pool:       pool,
		name:       name,
		schemaName: schemaName,
		validator:  security.NewSQLValidator(),
	}, nil
}

func (r *PostgresRunner) Name() string { return r.name }
func (r *PostgresRunner) Kind() string { return KindPostgres }

func (r *PostgresRunner) TestConnection(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRunner) Close() { r.pool.Close() }

// ExecuteQuery runs sql and returns at most opts.RowLimit rows. With safe
// mode set, statements that fail the read-only screen are rejected before
// they reach the database.
func (r *PostgresRunner) ExecuteQuery(ctx context.Context, sql string, opts QueryOptions) (*QueryOutput, error) {
	if opts.SafeMode {
		if msg := r.validator.Validate(sql); msg != "" {
			return nil, fmt.Errorf("safe mode rejected query: %s", msg)
		}
	}

	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var columns []string
	for _, fd := range rows.FieldDescriptions() {
		columns = append(columns, fd.Name)
	}

	var out []map[string]interface{}
	for rows.Next() {
		if opts.RowLimit > 0 && len(out) >= opts.RowLimit {
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return &QueryOutput{
		Rows:    out,
		Columns: columns,
		Metadata: map[string]interface{}{
			"schema": r.schemaName,
		},
	}, nil
}

// Schema builds the descriptor from information_schema: columns in ordinal
// order, then primary keys, then single-column foreign keys.
func (r *PostgresRunner) Schema(ctx context.Context) (schema.Descriptor, error) {
	var d schema.Descriptor
	index := make(map[string]int)

	rows, err := r.pool.Query(ctx, `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`, r.schemaName)
	if err != nil {
		return schema.Descriptor{}, fmt.Errorf("introspect columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, column, dataType, nullable string
		if err := rows.Scan(&table, &column, &dataType, &nullable); err != nil {
			return schema.Descriptor{}, fmt.Errorf("scan column row: %w", err)
		}
		i, ok := index[table]
		if !ok {
			i = len(d.Tables)
			index[table] = i
			d.Tables = append(d.Tables, schema.Table{Name: table})
		}
		d.Tables[i].Columns = append(d.Tables[i].Columns, schema.Column{
			Name:     column,
			Type:     dataType,
			Nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return schema.Descriptor{}, fmt.Errorf("iterate columns: %w", err)
	}

	if err := r.loadPrimaryKeys(ctx, &d, index); err != nil {
		log.Warn().Err(err).Str("source", r.name).Msg("primary key introspection failed")
	}
	if err := r.loadForeignKeys(ctx, &d, index); err != nil {
		log.Warn().Err(err).Str("source", r.name).Msg("foreign key introspection failed")
	}
	return d, nil
}

func (r *PostgresRunner) loadPrimaryKeys(ctx context.Context, d *schema.Descriptor, index map[string]int) error {
	rows, err := r.pool.Query(ctx, `
		SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = $1
		ORDER BY tc.table_name, kcu.ordinal_position`, r.schemaName)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return err
		}
		if i, ok := index[table]; ok {
			d.Tables[i].PrimaryKeys = append(d.Tables[i].PrimaryKeys, column)
		}
	}
	return rows.Err()
}

func (r *PostgresRunner) loadForeignKeys(ctx context.Context, d *schema.Descriptor, index map[string]int) error {
	rows, err := r.pool.Query(ctx, `
		SELECT tc.table_name, kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = $1
		ORDER BY tc.table_name, kcu.ordinal_position`, r.schemaName)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var table, column, refTable, refColumn string
		if err := rows.Scan(&table, &column, &refTable, &refColumn); err != nil {
			return err
		}
		if i, ok := index[table]; ok {
			d.Tables[i].ForeignKeys = append(d.Tables[i].ForeignKeys, schema.ForeignKey{
				Column:           column,
				ReferencedTable:  refTable,
				ReferencedColumn: refColumn,
			})
		}
	}
	return rows.Err()
}
