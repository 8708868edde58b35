// Package metadata reads compiled project metadata: the manifest produced by
// the transformation tool and, when that is absent, declared schema.yml
// documents next to the model files. Missing metadata always degrades to
// absent answers, never to errors.
package metadata

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Documentation is the declared description text for a model and its columns.
type Documentation struct {
	Description string
	// Columns maps column name to its declared description.
	Columns map[string]string
}

// Client answers metadata questions for scanned models.
type Client struct {
	projectDir string
	logger     *slog.Logger

	models map[string]*modelMeta
}

// modelMeta is the merged metadata for one model.
type modelMeta struct {
	Schema      string
	Alias       string
	Path        string
	Tags        []string
	Description string
	Columns     map[string]string
	CompiledSQL string
	// compiledPath is read lazily when CompiledSQL is empty.
	compiledPath string
}

// New creates a metadata client rooted at the project directory.
// A nil logger discards all output.
func New(projectDir string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		projectDir: projectDir,
		logger:     logger,
		models:     make(map[string]*modelMeta),
	}
}

// Load reads target/manifest.json when present, falling back to schema.yml
// documents under the models directory. Neither source being present leaves
// the client empty, which is not an error.
func (c *Client) Load(modelsDir string) error {
	manifestPath := filepath.Join(c.projectDir, "target", "manifest.json")
	if loaded := c.loadManifest(manifestPath); loaded {
		return nil
	}
	c.loadSchemaFiles(modelsDir)
	return nil
}

// HasManifest reports whether any metadata was loaded.
func (c *Client) HasManifest() bool {
	return len(c.models) > 0
}

// ModelTableName returns the fully-qualified warehouse relation for a model,
// or "" when the model is unknown.
func (c *Client) ModelTableName(name string) string {
	m, ok := c.models[name]
	if !ok || m.Schema == "" {
		return ""
	}
	rel := m.Alias
	if rel == "" {
		rel = name
	}
	return m.Schema + "." + rel
}

// ModelDocumentation returns the declared documentation for a model, or nil.
func (c *Client) ModelDocumentation(name string) *Documentation {
	m, ok := c.models[name]
	if !ok {
		return nil
	}
	if m.Description == "" && len(m.Columns) == 0 {
		return nil
	}
	return &Documentation{Description: m.Description, Columns: m.Columns}
}

// CompiledSQL returns the compiled query text for a model, or "" when it is
// not available.
func (c *Client) CompiledSQL(name string) string {
	m, ok := c.models[name]
	if !ok {
		return ""
	}
	if m.CompiledSQL != "" {
		return m.CompiledSQL
	}
	if m.compiledPath == "" {
		return ""
	}
	content, err := os.ReadFile(filepath.Join(c.projectDir, m.compiledPath)) //nolint:gosec // G304: path comes from the project manifest
	if err != nil {
		c.logger.Warn("cannot read compiled sql", slog.String("model", name), slog.String("error", err.Error()))
		return ""
	}
	m.CompiledSQL = string(content)
	return m.CompiledSQL
}

// ModelTags returns the declared tags for a model. Implements selector.Metadata.
func (c *Client) ModelTags(name string) []string {
	if m, ok := c.models[name]; ok {
		return m.Tags
	}
	return nil
}

// ModelPath returns the project-relative file path for a model.
// Implements selector.Metadata.
func (c *Client) ModelPath(name string) string {
	if m, ok := c.models[name]; ok {
		return filepath.ToSlash(m.Path)
	}
	return ""
}

// manifest mirrors the subset of the compiled manifest we consume.
type manifest struct {
	Nodes map[string]manifestNode `json:"nodes"`
}

type manifestNode struct {
	ResourceType     string                    `json:"resource_type"`
	Name             string                    `json:"name"`
	Schema           string                    `json:"schema"`
	Alias            string                    `json:"alias"`
	OriginalFilePath string                    `json:"original_file_path"`
	Tags             []string                  `json:"tags"`
	Description      string                    `json:"description"`
	Columns          map[string]manifestColumn `json:"columns"`
	CompiledCode     string                    `json:"compiled_code"`
	CompiledPath     string                    `json:"compiled_path"`
}

type manifestColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c *Client) loadManifest(path string) bool {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path is project-relative
	if err != nil {
		return false
	}

	var m manifest
	if err := json.Unmarshal(content, &m); err != nil {
		c.logger.Warn("manifest is unreadable, ignoring", slog.String("path", path), slog.String("error", err.Error()))
		return false
	}

	for _, node := range m.Nodes {
		if node.ResourceType != "model" || node.Name == "" {
			continue
		}
		meta := &modelMeta{
			Schema:       node.Schema,
			Alias:        node.Alias,
			Path:         node.OriginalFilePath,
			Tags:         node.Tags,
			Description:  node.Description,
			CompiledSQL:  node.CompiledCode,
			compiledPath: node.CompiledPath,
		}
		if len(node.Columns) > 0 {
			meta.Columns = make(map[string]string, len(node.Columns))
			for _, col := range node.Columns {
				if col.Description != "" {
					meta.Columns[col.Name] = col.Description
				}
			}
		}
		c.models[node.Name] = meta
	}

	c.logger.Debug("loaded manifest", slog.Int("models", len(c.models)))
	return len(c.models) > 0
}

// schemaFile mirrors a declared schema.yml document.
type schemaFile struct {
	Models []schemaModel `yaml:"models"`
}

type schemaModel struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Tags        []string       `yaml:"tags"`
	Columns     []schemaColumn `yaml:"columns"`
}

type schemaColumn struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

func (c *Client) loadSchemaFiles(modelsDir string) {
	if modelsDir == "" {
		return
	}

	_ = filepath.Walk(modelsDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable directories are skipped, not fatal
		}
		if fi.IsDir() || (!strings.HasSuffix(fi.Name(), ".yml") && !strings.HasSuffix(fi.Name(), ".yaml")) {
			return nil
		}

		content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the scanned project directory
		if err != nil {
			c.logger.Warn("cannot read schema file", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}

		var sf schemaFile
		if err := yaml.Unmarshal(content, &sf); err != nil {
			c.logger.Warn("skipping malformed schema file", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}

		for _, m := range sf.Models {
			if m.Name == "" {
				continue
			}
			meta := &modelMeta{
				Description: m.Description,
				Tags:        m.Tags,
			}
			if rel, relErr := filepath.Rel(c.projectDir, path); relErr == nil {
				meta.Path = filepath.Dir(rel)
			}
			if len(m.Columns) > 0 {
				meta.Columns = make(map[string]string, len(m.Columns))
				for _, col := range m.Columns {
					if col.Description != "" {
						meta.Columns[col.Name] = col.Description
					}
				}
			}
			c.models[m.Name] = meta
		}
		return nil
	})
}
