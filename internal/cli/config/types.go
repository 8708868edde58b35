// Package config provides configuration management for the datascribe CLI.
//
// Configuration layers, lowest to highest precedence: built-in defaults,
// datascribe.yaml, DATASCRIBE_* environment variables, CLI flags.
package config

import (
	sharedcfg "github.com/datascribe-labs/datascribe/internal/config"
)

// Config holds all CLI configuration options.
type Config struct {
	// ProjectRoot is the resolved project directory; never read from file.
	ProjectRoot string `koanf:"-"`

	ModelsDir  string `koanf:"models_dir"`
	ContextDir string `koanf:"context_dir"`
	Verbose    bool   `koanf:"verbose"`

	Warehouse WarehouseConfig `koanf:"warehouse"`
	Generator GeneratorConfig `koanf:"generator"`
}

// WarehouseConfig holds the warehouse connection settings.
type WarehouseConfig struct {
	Type     string            `koanf:"type"`
	Path     string            `koanf:"path"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	Schema   string            `koanf:"schema"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Options  map[string]string `koanf:"options"`
}

// GeneratorConfig holds the text-generation settings. APIKey supports
// ${VAR} expansion; when empty, GEMINI_API_KEY is consulted.
type GeneratorConfig struct {
	Model    string `koanf:"model"`
	APIKey   string `koanf:"api_key"`
	Disabled bool   `koanf:"disabled"`
}

// Default configuration values, re-exported from the shared package.
const (
	DefaultModelsDir     = sharedcfg.DefaultModelsDir
	DefaultContextDir    = sharedcfg.DefaultContextDir
	DefaultWarehouseType = sharedcfg.DefaultWarehouseType
)
