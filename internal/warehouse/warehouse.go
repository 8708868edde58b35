// Package warehouse provides read-only warehouse clients for table
// profiling. Adapters register themselves by type name; the registry is the
// single source of truth for which warehouse types are available.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/datascribe-labs/datascribe/pkg/core"
)

// Config holds the configuration for connecting to a warehouse.
type Config struct {
	// Type specifies the warehouse type (e.g., "duckdb", "postgres")
	Type string

	// Path is the file path for file-based databases.
	// Use ":memory:" for an in-memory database.
	Path string

	// Host and Port for network databases
	Host string
	Port int

	// Database is the database name
	Database string

	// Username and Password for authentication
	Username string
	Password string

	// Schema is the default schema
	Schema string

	// Options contains additional driver-specific options
	Options map[string]string
}

// Rows wraps sql.Rows to provide a consistent interface across clients.
type Rows struct {
	*sql.Rows
}

// Client is the read-only contract the profiling pipeline consumes.
type Client interface {
	// Connect establishes a connection to the warehouse.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Query executes a read-only SQL statement and returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// GetTableSchema returns the columns of a table in warehouse-reported order.
	GetTableSchema(ctx context.Context, schema, table string) ([]core.Column, error)

	// ListTables enumerates tables, optionally restricted to one schema.
	ListTables(ctx context.Context, schema string) ([]core.TableRef, error)

	// GetTableStats returns the row count and approximate size in bytes.
	GetTableStats(ctx context.Context, schema, table string) (rowCount, sizeBytes int64, err error)

	// Type returns the warehouse type name (e.g., "duckdb").
	Type() string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Client)
)

// Register adds a client factory to the registry.
// Called by client implementations in their init() functions.
func Register(name string, factory func(*slog.Logger) Client) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates a client instance based on config type.
// The logger is passed to the client constructor (nil uses a discard logger).
func New(cfg Config, logger *slog.Logger) (Client, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("warehouse type not specified")
	}

	registryMu.RLock()
	factory, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownTypeError{Type: cfg.Type, Available: List()}
	}
	return factory(logger), nil
}

// List returns all registered warehouse type names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a warehouse type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownTypeError is returned when an unknown warehouse type is requested.
type UnknownTypeError struct {
	Type      string
	Available []string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown warehouse type %q\nAvailable types: %v\nHint: Check warehouse.type in datascribe.yaml", e.Type, e.Available)
}

// baseClient provides common database/sql functionality. Concrete clients
// embed it to get standard Close and Query implementations.
type baseClient struct {
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
}

func (b *baseClient) Close() error {
	if b.db != nil {
		b.logger.Debug("closing warehouse connection")
		return b.db.Close()
	}
	return nil
}

func (b *baseClient) Query(ctx context.Context, sqlStr string) (*Rows, error) {
	if b.db == nil {
		return nil, fmt.Errorf("warehouse connection not established")
	}

	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &Rows{Rows: rows}, nil
}

// getColumns runs an information_schema column lookup shared by the SQL
// adapters; placeholderStyle is "?" for duckdb and "$" for postgres.
func (b *baseClient) getColumns(ctx context.Context, query, schema, table string) ([]core.Column, error) {
	if b.db == nil {
		return nil, fmt.Errorf("warehouse connection not established")
	}

	rows, err := b.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found", schema, table)
	}
	return columns, nil
}
