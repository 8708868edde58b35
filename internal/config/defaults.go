// Package config holds shared configuration defaults.
package config

// Default configuration values.
const (
	DefaultModelsDir     = "models"
	DefaultContextDir    = "context"
	DefaultConcurrency   = 1
	DefaultWarehouseType = "duckdb"
)

// DefaultSchemaForType returns the default schema for a warehouse type.
func DefaultSchemaForType(warehouseType string) string {
	switch warehouseType {
	case "postgres":
		return "public"
	case "duckdb":
		return "main"
	default:
		return ""
	}
}
