package warehouse

import (
	"context"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRegistry_KnownTypes(t *testing.T) {
	assert.True(t, IsRegistered("duckdb"))
	assert.True(t, IsRegistered("postgres"))
	assert.False(t, IsRegistered("snowflake"))

	types := List()
	assert.Contains(t, types, "duckdb")
	assert.Contains(t, types, "postgres")
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(Config{Type: "bigtable"}, nil)
	require.Error(t, err)
	var unknownErr *UnknownTypeError
	assert.ErrorAs(t, err, &unknownErr)
}

func TestNew_EmptyType(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{
			name: "basic connection",
			config: Config{
				Host:     "localhost",
				Port:     5432,
				Database: "analytics",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=analytics sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: Config{
				Host:     "prod.example.com",
				Database: "warehouse",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=warehouse sslmode=require user=admin",
		},
		{
			name:     "defaults",
			config:   Config{Database: "mydb"},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestBaseClient_QueryWithoutConnection(t *testing.T) {
	c := NewDuckDB(nil)
	_, err := c.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
}

func TestGetTableSchema_ColumnOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("analytics", "dim_customers").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
			AddRow("id", "BIGINT", "NO", 1).
			AddRow("email", "VARCHAR", "YES", 2))

	c := &DuckDB{baseClient{db: db, logger: discardLogger()}}
	cols, err := c.GetTableSchema(context.Background(), "analytics", "dim_customers")
	require.NoError(t, err)

	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)
	assert.False(t, cols[0].Nullable)
	assert.Equal(t, "email", cols[1].Name)
	assert.True(t, cols[1].Nullable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTableSchema_MissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM information_schema.columns").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}))

	c := &DuckDB{baseClient{db: db, logger: discardLogger()}}
	_, err = c.GetTableSchema(context.Background(), "main", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListTables_FiltersSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("analytics").
		WillReturnRows(sqlmock.NewRows([]string{"table_schema", "table_name"}).
			AddRow("analytics", "dim_customers").
			AddRow("analytics", "fct_orders"))

	c := &DuckDB{baseClient{db: db, logger: discardLogger()}}
	tables, err := c.ListTables(context.Background(), "analytics")
	require.NoError(t, err)

	require.Len(t, tables, 2)
	assert.Equal(t, "analytics.dim_customers", tables[0].String())
}
