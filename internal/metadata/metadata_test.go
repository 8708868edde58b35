package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const testManifest = `{
  "nodes": {
    "model.analytics.dim_customers": {
      "resource_type": "model",
      "name": "dim_customers",
      "schema": "analytics",
      "database": "warehouse",
      "alias": "",
      "original_file_path": "models/marts/dim_customers.sql",
      "tags": ["nightly", "core"],
      "description": "One row per customer.",
      "columns": {
        "customer_id": {"name": "customer_id", "description": "Primary key."},
        "email": {"name": "email", "description": ""}
      },
      "compiled_code": "select * from stg_customers"
    },
    "model.analytics.fct_orders": {
      "resource_type": "model",
      "name": "fct_orders",
      "schema": "analytics",
      "alias": "orders_fact",
      "original_file_path": "models/marts/fct_orders.sql",
      "tags": [],
      "compiled_path": "target/compiled/fct_orders.sql"
    },
    "seed.analytics.country_codes": {
      "resource_type": "seed",
      "name": "country_codes",
      "schema": "analytics"
    }
  }
}`

func TestLoad_Manifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "target", "manifest.json"), testManifest)

	c := New(dir, nil)
	require.NoError(t, c.Load(filepath.Join(dir, "models")))
	require.True(t, c.HasManifest())

	assert.Equal(t, "analytics.dim_customers", c.ModelTableName("dim_customers"))
	assert.Equal(t, "analytics.orders_fact", c.ModelTableName("fct_orders"))
	assert.Equal(t, "", c.ModelTableName("country_codes"), "non-model nodes are skipped")
	assert.Equal(t, "", c.ModelTableName("unknown"))

	doc := c.ModelDocumentation("dim_customers")
	require.NotNil(t, doc)
	assert.Equal(t, "One row per customer.", doc.Description)
	assert.Equal(t, "Primary key.", doc.Columns["customer_id"])
	_, hasEmail := doc.Columns["email"]
	assert.False(t, hasEmail, "empty column descriptions are dropped")

	assert.Equal(t, []string{"nightly", "core"}, c.ModelTags("dim_customers"))
	assert.Equal(t, "models/marts/dim_customers.sql", c.ModelPath("dim_customers"))
}

func TestCompiledSQL(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "target", "manifest.json"), testManifest)
	writeFile(t, filepath.Join(dir, "target", "compiled", "fct_orders.sql"),
		"select * from stg_orders")

	c := New(dir, nil)
	require.NoError(t, c.Load(""))

	assert.Equal(t, "select * from stg_customers", c.CompiledSQL("dim_customers"))
	assert.Equal(t, "select * from stg_orders", c.CompiledSQL("fct_orders"),
		"compiled_path is read when compiled_code is absent")
	assert.Equal(t, "", c.CompiledSQL("unknown"))
}

func TestLoad_SchemaFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "models", "staging", "schema.yml"), `
models:
  - name: stg_customers
    description: Cleaned customer records.
    tags: [staging]
    columns:
      - name: customer_id
        description: Natural key from the source system.
      - name: loaded_at
`)

	c := New(dir, nil)
	require.NoError(t, c.Load(filepath.Join(dir, "models")))
	require.True(t, c.HasManifest())

	doc := c.ModelDocumentation("stg_customers")
	require.NotNil(t, doc)
	assert.Equal(t, "Cleaned customer records.", doc.Description)
	assert.Equal(t, "Natural key from the source system.", doc.Columns["customer_id"])

	assert.Equal(t, []string{"staging"}, c.ModelTags("stg_customers"))
	assert.Equal(t, "models/staging", c.ModelPath("stg_customers"))

	// schema.yml declares no relation, so table lookup stays empty.
	assert.Equal(t, "", c.ModelTableName("stg_customers"))
}

func TestLoad_MalformedSchemaIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "models", "schema.yml"), "models: [\n")
	writeFile(t, filepath.Join(dir, "models", "good.yml"), `
models:
  - name: stg_orders
    description: Order lines.
`)

	c := New(dir, nil)
	require.NoError(t, c.Load(filepath.Join(dir, "models")))
	assert.NotNil(t, c.ModelDocumentation("stg_orders"))
}

func TestLoad_NothingPresent(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, nil)
	require.NoError(t, c.Load(filepath.Join(dir, "models")))
	assert.False(t, c.HasManifest())
	assert.Nil(t, c.ModelTags("anything"))
}
