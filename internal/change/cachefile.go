package change

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/datascribe-labs/datascribe/pkg/core"
)

// CacheFileName is the hash cache location relative to the context directory.
const CacheFileName = ".cache/model-hashes.json"

// LoadCache reads the hash cache from disk. A missing file, unreadable
// content, or a version mismatch all start a fresh cache; the caller
// re-profiles everything instead of failing.
func LoadCache(contextDir string, logger *slog.Logger) *core.HashCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	path := filepath.Join(contextDir, CacheFileName)

	content, err := os.ReadFile(path) //nolint:gosec // G304: path is anchored at the context directory
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("cannot read hash cache, starting fresh", slog.String("error", err.Error()))
		}
		return core.NewHashCache()
	}

	var cache core.HashCache
	if err := json.Unmarshal(content, &cache); err != nil {
		logger.Warn("hash cache is corrupt, starting fresh", slog.String("error", err.Error()))
		return core.NewHashCache()
	}
	if cache.Version != core.CacheVersion {
		logger.Warn("hash cache version mismatch, starting fresh",
			slog.String("found", cache.Version), slog.String("want", core.CacheVersion))
		return core.NewHashCache()
	}
	if cache.Models == nil {
		cache.Models = make(map[string]core.HashRecord)
	}
	return &cache
}

// StoreCache writes the whole cache document atomically: to a temp file in
// the same directory, then renamed over the target.
func StoreCache(contextDir string, cache *core.HashCache) error {
	path := filepath.Join(contextDir, CacheFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	encoded, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode hash cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "model-hashes-*.json")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write hash cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close hash cache: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace hash cache: %w", err)
	}
	return nil
}
