package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/datascribe-labs/datascribe/pkg/core"
)

func init() {
	Register("postgres", func(logger *slog.Logger) Client { return NewPostgres(logger) })
}

// Postgres implements the Client interface for PostgreSQL.
type Postgres struct {
	baseClient
}

// NewPostgres creates a new PostgreSQL client. A nil logger discards all output.
func NewPostgres(logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Postgres{baseClient{logger: logger}}
}

// Type returns the warehouse type name.
func (c *Postgres) Type() string { return "postgres" }

// Connect establishes a connection to PostgreSQL.
func (c *Postgres) Connect(ctx context.Context, cfg Config) error {
	dsn := buildPostgresDSN(cfg)

	c.logger.Debug("connecting to postgres",
		slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	c.db = db
	c.cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

// GetTableSchema returns the columns of a table in declared order.
func (c *Postgres) GetTableSchema(ctx context.Context, schema, table string) ([]core.Column, error) {
	if schema == "" {
		schema = "public"
	}
	query := `
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`
	return c.getColumns(ctx, query, schema, table)
}

// ListTables enumerates tables, optionally restricted to one schema.
func (c *Postgres) ListTables(ctx context.Context, schema string) ([]core.TableRef, error) {
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
		query += " AND table_schema = $1"
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

// GetTableStats returns the live row estimate and total relation size.
func (c *Postgres) GetTableStats(ctx context.Context, schema, table string) (int64, int64, error) {
	if c.db == nil {
		return 0, 0, fmt.Errorf("warehouse connection not established")
	}
	if schema == "" {
		schema = "public"
	}

	var rowCount, sizeBytes int64
	query := `
		SELECT
			COALESCE(s.n_live_tup, 0),
			pg_total_relation_size(format('%I.%I', $1::text, $2::text))
		FROM pg_stat_user_tables s
		WHERE s.schemaname = $1 AND s.relname = $2
	`
	if err := c.db.QueryRowContext(ctx, query, schema, table).Scan(&rowCount, &sizeBytes); err != nil {
		return 0, 0, fmt.Errorf("failed to read table stats: %w", err)
	}
	return rowCount, sizeBytes, nil
}

// Ensure Postgres implements Client
var _ Client = (*Postgres)(nil)
