package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datascribe-labs/datascribe/pkg/core"
)

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3", "2026-08-01", "abc1234")
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "datascribe v1.2.3")
	assert.Contains(t, out.String(), "abc1234")
}

func TestBuildCommandFlags(t *testing.T) {
	cmd := NewBuildCommand()
	for _, name := range []string{"force", "concurrency", "no-llm"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestUpdateCommandFlags(t *testing.T) {
	cmd := NewUpdateCommand()
	for _, name := range []string{"select", "exclude", "profiles-only", "full-refresh", "concurrency", "no-llm"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestRenderSummary(t *testing.T) {
	var out bytes.Buffer
	renderSummary(&out, &core.ProfileSummary{
		RunID:     "run-1",
		Total:     5,
		Succeeded: 3,
		Fallbacks: 1,
		Failed:    1,
		CostUSD:   0.0123,
		Duration:  1500 * time.Millisecond,
		Errors: []core.ProfileError{
			{Model: "dim_customers", Stage: "enrich", Message: "quota exceeded", FallbackUsed: true},
			{Model: "fct_orders", Stage: "profile", Message: "table not found"},
		},
	})

	text := out.String()
	assert.Contains(t, text, "0.0123")
	assert.Contains(t, text, "[fallback] dim_customers (enrich): quota exceeded")
	assert.Contains(t, text, "[error] fct_orders (profile): table not found")
	assert.Contains(t, text, "run run-1")
}

func TestGetConfig_FallbackDefaults(t *testing.T) {
	// No config loaded in this test binary; the fallback reads env defaults.
	cfg := getConfig()
	require.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ModelsDir)
	assert.Equal(t, "duckdb", cfg.Warehouse.Type)
}
