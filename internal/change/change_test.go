package change

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datascribe-labs/datascribe/pkg/core"
)

func TestSchemaHash_Stability(t *testing.T) {
	columns := []core.Column{
		{Name: "id", Type: "BIGINT", Nullable: false, Position: 1},
		{Name: "email", Type: "VARCHAR", Nullable: true, Position: 2},
	}

	h1 := SchemaHash(columns)
	h2 := SchemaHash(columns)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	// Column order is part of the shape.
	reversed := []core.Column{columns[1], columns[0]}
	assert.NotEqual(t, h1, SchemaHash(reversed))

	// Position is not hashed; only name, type, nullability.
	repositioned := []core.Column{
		{Name: "id", Type: "BIGINT", Nullable: false, Position: 9},
		{Name: "email", Type: "VARCHAR", Nullable: true, Position: 10},
	}
	assert.Equal(t, h1, SchemaHash(repositioned))

	// Nullability flips change the hash.
	flipped := []core.Column{
		{Name: "id", Type: "BIGINT", Nullable: true},
		{Name: "email", Type: "VARCHAR", Nullable: true},
	}
	assert.NotEqual(t, h1, SchemaHash(flipped))
}

func TestDocumentationHash_MapOrderIndependent(t *testing.T) {
	a := DocumentationHash("desc", map[string]string{"x": "1", "y": "2", "z": "3"})
	b := DocumentationHash("desc", map[string]string{"z": "3", "y": "2", "x": "1"})
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, DocumentationHash("other", map[string]string{"x": "1", "y": "2", "z": "3"}))
	assert.NotEqual(t, a, DocumentationHash("desc", map[string]string{"x": "1", "y": "2"}))
}

func TestLogicHash_Normalization(t *testing.T) {
	base := LogicHash("select id, email from stg_customers")

	equivalent := []string{
		"SELECT id, email FROM stg_customers",
		"select  id,  email\n\tfrom stg_customers",
		"-- customer projection\nselect id, email from stg_customers",
		"select id, email /* keep both */ from stg_customers",
	}
	for _, sqlText := range equivalent {
		assert.Equal(t, base, LogicHash(sqlText), "input: %q", sqlText)
	}

	assert.NotEqual(t, base, LogicHash("select id from stg_customers"))
}

func TestLogicHash_LowerCasesLiterals(t *testing.T) {
	// Case folding covers quoted literals too; a literal differing only in
	// case hashes identically.
	assert.Equal(t,
		LogicHash("select * from t where status = 'ACTIVE'"),
		LogicHash("select * from t where status = 'active'"))
}

func TestDetect_NewModel(t *testing.T) {
	d := NewDetector(nil)
	cache := core.NewHashCache()

	r := d.Detect(cache, "dim_customers", Hashes{Schema: "abc"})
	assert.True(t, r.IsNew)
	assert.True(t, r.ShouldReprofile)
}

func TestDetect_UnchangedModel(t *testing.T) {
	d := NewDetector(nil)
	cache := core.NewHashCache()
	cache.Put("dim_customers", core.HashRecord{
		SchemaHash:        "s1",
		DocumentationHash: "d1",
		LogicHash:         "l1",
	})

	r := d.Detect(cache, "dim_customers", Hashes{Schema: "s1", Documentation: "d1", Logic: "l1"})
	assert.False(t, r.IsNew)
	assert.False(t, r.SchemaChanged)
	assert.False(t, r.DocsChanged)
	assert.False(t, r.LogicChanged)
	assert.False(t, r.ShouldReprofile)
}

func TestDetect_SingleAxisChanges(t *testing.T) {
	d := NewDetector(nil)
	cache := core.NewHashCache()
	cache.Put("m", core.HashRecord{SchemaHash: "s1", DocumentationHash: "d1", LogicHash: "l1"})

	r := d.Detect(cache, "m", Hashes{Schema: "s2", Documentation: "d1", Logic: "l1"})
	assert.True(t, r.SchemaChanged)
	assert.False(t, r.DocsChanged)
	assert.True(t, r.ShouldReprofile)

	r = d.Detect(cache, "m", Hashes{Schema: "s1", Documentation: "d2", Logic: "l1"})
	assert.False(t, r.SchemaChanged)
	assert.True(t, r.DocsChanged)
	assert.True(t, r.ShouldReprofile)

	r = d.Detect(cache, "m", Hashes{Schema: "s1", Documentation: "d1", Logic: "l2"})
	assert.True(t, r.LogicChanged)
	assert.True(t, r.ShouldReprofile)
}

func TestDetect_FailureDefaultsAreAsymmetric(t *testing.T) {
	d := NewDetector(nil)
	cache := core.NewHashCache()
	cache.Put("m", core.HashRecord{SchemaHash: "s1", DocumentationHash: "d1", LogicHash: "l1"})

	// Schema lookup failed: assume changed.
	r := d.Detect(cache, "m", Hashes{Schema: "", Documentation: "d1", Logic: "l1"})
	assert.True(t, r.SchemaChanged)
	assert.True(t, r.ShouldReprofile)

	// Documentation and logic lookups failed: assume unchanged.
	r = d.Detect(cache, "m", Hashes{Schema: "s1", Documentation: "", Logic: ""})
	assert.False(t, r.DocsChanged)
	assert.False(t, r.LogicChanged)
	assert.False(t, r.ShouldReprofile)
}

func TestLoadCache_MissingFile(t *testing.T) {
	cache := LoadCache(t.TempDir(), nil)
	require.NotNil(t, cache)
	assert.Equal(t, core.CacheVersion, cache.Version)
	assert.Empty(t, cache.Models)
}

func TestLoadCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	cache := core.NewHashCache()
	cache.LastSync = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.Put("dim_customers", core.HashRecord{
		SchemaHash:     "s1",
		LogicHash:      "l1",
		WarehouseTable: "analytics.dim_customers",
		LastProfiled:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, StoreCache(dir, cache))

	loaded := LoadCache(dir, nil)
	rec, ok := loaded.Get("dim_customers")
	require.True(t, ok)
	assert.Equal(t, "s1", rec.SchemaHash)
	assert.Equal(t, "analytics.dim_customers", rec.WarehouseTable)
	assert.True(t, loaded.LastSync.Equal(cache.LastSync))
}

func TestLoadCache_VersionMismatchStartsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, CacheFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"version":"99","models":{"m":{"schemaHash":"x"}}}`), 0o644))

	cache := LoadCache(dir, nil)
	assert.Empty(t, cache.Models, "unknown version discards cached records")
	assert.Equal(t, core.CacheVersion, cache.Version)
}

func TestLoadCache_CorruptStartsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, CacheFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	cache := LoadCache(dir, nil)
	assert.Empty(t, cache.Models)
}

func TestStoreCache_Overwrites(t *testing.T) {
	dir := t.TempDir()

	first := core.NewHashCache()
	first.Put("a", core.HashRecord{SchemaHash: "1"})
	require.NoError(t, StoreCache(dir, first))

	second := core.NewHashCache()
	second.Put("b", core.HashRecord{SchemaHash: "2"})
	require.NoError(t, StoreCache(dir, second))

	loaded := LoadCache(dir, nil)
	_, hasA := loaded.Get("a")
	assert.False(t, hasA, "the cache document is fully replaced")
	_, hasB := loaded.Get("b")
	assert.True(t, hasB)
}
