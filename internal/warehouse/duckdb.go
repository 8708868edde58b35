package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/datascribe-labs/datascribe/pkg/core"
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Client { return NewDuckDB(logger) })
}

// DuckDB implements the Client interface for DuckDB.
type DuckDB struct {
	baseClient
}

// NewDuckDB creates a new DuckDB client. A nil logger discards all output.
func NewDuckDB(logger *slog.Logger) *DuckDB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDB{baseClient{logger: logger}}
}

// Type returns the warehouse type name.
func (c *DuckDB) Type() string { return "duckdb" }

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (c *DuckDB) Connect(ctx context.Context, cfg Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	c.logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	c.db = db
	c.cfg = cfg
	return nil
}

// GetTableSchema returns the columns of a table in declared order.
func (c *DuckDB) GetTableSchema(ctx context.Context, schema, table string) ([]core.Column, error) {
	if schema == "" {
		schema = "main"
	}
	query := `
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`
	return c.getColumns(ctx, query, schema, table)
}

// ListTables enumerates tables, optionally restricted to one schema.
func (c *DuckDB) ListTables(ctx context.Context, schema string) ([]core.TableRef, error) {
	if c.db == nil {
		return nil, fmt.Errorf("warehouse connection not established")
	}

	query := `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('information_schema', 'pg_catalog')
	`
	args := []any{}
	if schema != "" {
		query += " AND table_schema = ?"
		args = append(args, schema)
	}
	query += " ORDER BY table_schema, table_name"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []core.TableRef
	for rows.Next() {
		var ref core.TableRef
		if err := rows.Scan(&ref.Schema, &ref.Table); err != nil {
			return nil, fmt.Errorf("failed to scan table list: %w", err)
		}
		tables = append(tables, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table list: %w", err)
	}
	return tables, nil
}

// GetTableStats returns the row count and DuckDB's estimated table size.
func (c *DuckDB) GetTableStats(ctx context.Context, schema, table string) (int64, int64, error) {
	if c.db == nil {
		return 0, 0, fmt.Errorf("warehouse connection not established")
	}
	if schema == "" {
		schema = "main"
	}

	var rowCount, sizeBytes int64
	query := `
		SELECT estimated_size
		FROM duckdb_tables()
		WHERE schema_name = ? AND table_name = ?
	`
	if err := c.db.QueryRowContext(ctx, query, schema, table).Scan(&rowCount); err != nil {
		return 0, 0, fmt.Errorf("failed to read table stats: %w", err)
	}

	// DuckDB reports estimated cardinality, not bytes; approximate size from
	// the storage info when available and fall back to zero.
	sizeQuery := "SELECT total_blocks * block_size FROM pragma_database_size()"
	if err := c.db.QueryRowContext(ctx, sizeQuery).Scan(&sizeBytes); err != nil {
		sizeBytes = 0
	}

	return rowCount, sizeBytes, nil
}

// Ensure DuckDB implements Client
var _ Client = (*DuckDB)(nil)
