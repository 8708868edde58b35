package config

import (
	"github.com/datascribe-labs/datascribe/pkg/core"
)

// Validate checks the loaded configuration for structural problems before
// any command runs.
func Validate(cfg *Config) error {
	if cfg.ModelsDir == "" {
		return &core.ValidationError{Field: "models_dir", Message: "models directory is required"}
	}
	if cfg.ContextDir == "" {
		return &core.ValidationError{Field: "context_dir", Message: "context directory is required"}
	}
	if cfg.Warehouse.Type == "" {
		return &core.ValidationError{Field: "warehouse.type", Message: "warehouse type is required"}
	}
	return nil
}
