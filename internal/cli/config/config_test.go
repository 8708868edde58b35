package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datascribe-labs/datascribe/pkg/core"
)

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.String("project-dir", "", "")
	flags.String("models-dir", "", "")
	flags.String("context-dir", "", "")
	flags.BoolP("verbose", "v", false, "")
	return flags
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "datascribe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	flags := newFlags()
	require.NoError(t, flags.Set("project-dir", dir))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "models"), cfg.ModelsDir)
	assert.Equal(t, filepath.Join(dir, "context"), cfg.ContextDir)
	assert.Equal(t, "duckdb", cfg.Warehouse.Type)
	assert.Equal(t, "main", cfg.Warehouse.Schema)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
models_dir: transforms
context_dir: agent_context
warehouse:
  type: postgres
  host: db.internal
  port: 5433
  database: analytics
generator:
  model: gemini-2.5-flash
`)

	cfg, err := LoadConfig(path, newFlags())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "transforms"), cfg.ModelsDir)
	assert.Equal(t, filepath.Join(dir, "agent_context"), cfg.ContextDir)
	assert.Equal(t, "postgres", cfg.Warehouse.Type)
	assert.Equal(t, "db.internal", cfg.Warehouse.Host)
	assert.Equal(t, 5433, cfg.Warehouse.Port)
	assert.Equal(t, "public", cfg.Warehouse.Schema, "schema defaults by warehouse type")
	assert.Equal(t, "gemini-2.5-flash", cfg.Generator.Model)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "warehouse:\n  type: duckdb\n")

	t.Setenv("DATASCRIBE_WAREHOUSE__TYPE", "postgres")
	cfg, err := LoadConfig(path, newFlags())
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Warehouse.Type)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "models_dir: from_file\n")

	t.Setenv("DATASCRIBE_MODELS_DIR", "from_env")

	flags := newFlags()
	flagDir := filepath.Join(dir, "from_flag")
	require.NoError(t, flags.Set("models-dir", flagDir))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, flagDir, cfg.ModelsDir)
}

func TestLoadConfig_SecretExpansion(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
warehouse:
  type: postgres
  password: ${TEST_WH_PASSWORD}
generator:
  api_key: ${TEST_GENAI_KEY}
`)

	t.Setenv("TEST_WH_PASSWORD", "hunter2")
	t.Setenv("TEST_GENAI_KEY", "abc123")

	cfg, err := LoadConfig(path, newFlags())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Warehouse.Password)
	assert.Equal(t, "abc123", cfg.Generator.APIKey)
}

func TestLoadConfig_GeneratorKeyFallsBackToGeminiEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "warehouse:\n  type: duckdb\n")

	t.Setenv("GEMINI_API_KEY", "from-ambient-env")
	cfg, err := LoadConfig(path, newFlags())
	require.NoError(t, err)
	assert.Equal(t, "from-ambient-env", cfg.Generator.APIKey)
}

func TestLoadConfig_InvalidWarehouseType(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "warehouse:\n  type: \"\"\n")

	_, err := LoadConfig(path, newFlags())
	require.Error(t, err)
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		ModelsDir:  "models",
		ContextDir: "context",
		Warehouse:  WarehouseConfig{Type: "duckdb"},
	}
	assert.NoError(t, Validate(cfg))

	cfg.ContextDir = ""
	assert.Error(t, Validate(cfg))
}
