package core

import "time"

// CacheVersion tags the on-disk hash cache format. A cache with a different
// version is treated as empty rather than migrated.
const CacheVersion = "1"

// HashRecord holds the cached fingerprints for one model. The three hashes
// are derived from disjoint inputs (warehouse schema shape, declared
// documentation text, normalized compiled SQL), so a change in one axis does
// not imply a change in another.
type HashRecord struct {
	SchemaHash        string    `json:"schemaHash"`
	DocumentationHash string    `json:"documentationHash"`
	LogicHash         string    `json:"logicHash"`
	LastProfiled      time.Time `json:"lastProfiled"`
	ProfilePath       string    `json:"profilePath"`
	WarehouseTable    string    `json:"warehouseTable"`
}

// HashCache is the persisted change-detection state, keyed by model name.
// It is an explicit value passed into and returned from the change detector,
// never a singleton.
type HashCache struct {
	Version  string                `json:"version"`
	LastSync time.Time             `json:"lastSync"`
	Models   map[string]HashRecord `json:"models"`
}

// NewHashCache returns an empty cache at the current version.
func NewHashCache() *HashCache {
	return &HashCache{
		Version: CacheVersion,
		Models:  make(map[string]HashRecord),
	}
}

// Get returns the record for a model, if present.
func (c *HashCache) Get(model string) (HashRecord, bool) {
	rec, ok := c.Models[model]
	return rec, ok
}

// Put stores the record for a model.
func (c *HashCache) Put(model string, rec HashRecord) {
	if c.Models == nil {
		c.Models = make(map[string]HashRecord)
	}
	c.Models[model] = rec
}
