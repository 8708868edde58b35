package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datascribe-labs/datascribe/pkg/core"
)

func TestParseContent_RefsAndSources(t *testing.T) {
	sql := `
select *
from {{ ref('stg_customers') }} c
join {{ ref("stg_orders") }} o on o.customer_id = c.id
join {{ source('raw', 'payments') }} p on p.order_id = o.id
`
	node, err := ParseContent("dim_customers.sql", "marts/dim_customers.sql", sql)
	require.NoError(t, err)

	assert.Equal(t, "dim_customers", node.Name)
	assert.Equal(t, []string{"stg_customers", "stg_orders"}, node.Refs)
	require.Len(t, node.Sources, 1)
	assert.Equal(t, core.SourceRef{Source: "raw", Table: "payments"}, node.Sources[0])
}

func TestParseContent_DuplicateRefsDeduplicated(t *testing.T) {
	sql := `select * from {{ ref('stg_a') }} union all select * from {{ ref('stg_a') }}`
	node, err := ParseContent("m.sql", "m.sql", sql)
	require.NoError(t, err)
	assert.Equal(t, []string{"stg_a"}, node.Refs)
}

func TestParseContent_MarkersInCommentsIgnored(t *testing.T) {
	sql := `
-- ref('not_a_dep')
/* source('raw', 'not_a_source')
   ref("also_not") */
select 'ref(''nope'')' as literal, *
from {{ ref('real_dep') }}
`
	node, err := ParseContent("m.sql", "m.sql", sql)
	require.NoError(t, err)
	assert.Equal(t, []string{"real_dep"}, node.Refs)
	assert.Empty(t, node.Sources)
}

func TestParseContent_MarkerInsideLongerIdentifier(t *testing.T) {
	sql := `select my_source('raw', 'x'), preference('y') from {{ ref('dep') }}`
	node, err := ParseContent("m.sql", "m.sql", sql)
	require.NoError(t, err)
	assert.Equal(t, []string{"dep"}, node.Refs)
	assert.Empty(t, node.Sources)
}

func TestParseContent_ConfigCoercion(t *testing.T) {
	sql := `
{{ config(materialized = 'table', enabled = true, retention_days = 90, sample_rate = 0.25, tag = "nightly") }}
select 1
`
	node, err := ParseContent("m.sql", "m.sql", sql)
	require.NoError(t, err)

	assert.Equal(t, "table", node.Config["materialized"])
	assert.Equal(t, true, node.Config["enabled"])
	assert.Equal(t, int64(90), node.Config["retention_days"])
	assert.Equal(t, 0.25, node.Config["sample_rate"])
	assert.Equal(t, "nightly", node.Config["tag"])
}

func TestParseContent_UnterminatedConfigFails(t *testing.T) {
	_, err := ParseContent("m.sql", "m.sql", `{{ config(materialized = 'table'`)
	require.Error(t, err)
}

func TestScan_SkipsBadFileAndContinues(t *testing.T) {
	dir := t.TempDir()

	writeModel(t, dir, "stg_customers.sql", `select * from {{ source('raw', 'customers') }}`)
	writeModel(t, dir, "dim_customers.sql", `select * from {{ ref('stg_customers') }}`)
	writeModel(t, dir, "broken.sql", `{{ config(materialized = `)

	graph, err := New(nil).Scan(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, graph.Len())
	_, ok := graph.Get("broken")
	assert.False(t, ok)
	assert.Equal(t, 1, graph.RefCount)
	assert.Equal(t, 1, graph.SourceCount)
}

func TestScan_RecursiveAndFiltered(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "staging"), 0750))

	writeModel(t, dir, "staging/stg_orders.sql", `select 1`)
	writeModel(t, dir, "README.md", `not a model`)
	writeModel(t, dir, ".hidden.sql", `select 1`)

	graph, err := New(nil).Scan(dir)
	require.NoError(t, err)

	require.Equal(t, 1, graph.Len())
	node, ok := graph.Get("stg_orders")
	require.True(t, ok)
	assert.Equal(t, filepath.Join("staging", "stg_orders.sql"), node.RelPath)
}

func TestScan_MissingDirIsValidationError(t *testing.T) {
	_, err := New(nil).Scan(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func writeModel(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}
