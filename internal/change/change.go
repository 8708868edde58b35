// Package change decides which models need re-profiling by comparing three
// fingerprints against the persisted hash cache: warehouse schema shape,
// declared documentation text, and normalized compiled SQL. The three hashes
// are computed from disjoint inputs.
package change

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/datascribe-labs/datascribe/pkg/core"
)

// Hashes carries the freshly computed fingerprints for one model. An empty
// string means the underlying lookup failed or the input is absent.
type Hashes struct {
	Schema        string
	Documentation string
	Logic         string
}

// Result reports what changed for one model since the last sync.
type Result struct {
	SchemaChanged bool
	DocsChanged   bool
	LogicChanged  bool
	// IsNew is set when the model has no cache record at all.
	IsNew bool
	// ShouldReprofile is true when any axis changed or the model is new.
	ShouldReprofile bool
}

// Detector compares computed hashes against the cache.
type Detector struct {
	logger *slog.Logger
}

// NewDetector creates a detector. A nil logger discards all output.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Detector{logger: logger}
}

// Detect compares current hashes against the cached record for a model.
//
// The failure defaults are asymmetric on purpose: a failed schema lookup
// reports changed (re-profile when the warehouse cannot be read), while a
// failed documentation or logic lookup reports unchanged (absent metadata
// must not churn every model on every run).
func (d *Detector) Detect(cache *core.HashCache, model string, current Hashes) Result {
	cached, ok := cache.Get(model)
	if !ok {
		return Result{
			SchemaChanged: true, DocsChanged: true, LogicChanged: true,
			IsNew: true, ShouldReprofile: true,
		}
	}

	var r Result
	if current.Schema == "" {
		r.SchemaChanged = true
	} else {
		r.SchemaChanged = current.Schema != cached.SchemaHash
	}
	if current.Documentation != "" {
		r.DocsChanged = current.Documentation != cached.DocumentationHash
	}
	if current.Logic != "" {
		r.LogicChanged = current.Logic != cached.LogicHash
	}

	r.ShouldReprofile = r.SchemaChanged || r.DocsChanged || r.LogicChanged
	if r.ShouldReprofile {
		d.logger.Debug("model is stale",
			slog.String("model", model),
			slog.Bool("schema", r.SchemaChanged),
			slog.Bool("docs", r.DocsChanged),
			slog.Bool("logic", r.LogicChanged))
	}
	return r
}

// schemaColumn is the canonical shape hashed for one column. Field order is
// fixed by the struct, so the JSON encoding is deterministic.
type schemaColumn struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// SchemaHash fingerprints the warehouse column list in warehouse-reported
// order. Column order is part of the shape.
func SchemaHash(columns []core.Column) string {
	canonical := make([]schemaColumn, len(columns))
	for i, col := range columns {
		canonical[i] = schemaColumn{Name: col.Name, Type: col.Type, Nullable: col.Nullable}
	}
	return hashJSON(canonical)
}

// docPayload is the canonical shape hashed for declared documentation.
type docPayload struct {
	Description string      `json:"description"`
	Columns     []docColumn `json:"columns"`
}

type docColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DocumentationHash fingerprints the declared description text. Column
// descriptions are sorted by column name so map iteration order never leaks
// into the hash.
func DocumentationHash(description string, columns map[string]string) string {
	payload := docPayload{Description: description}
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		payload.Columns = append(payload.Columns, docColumn{Name: name, Description: columns[name]})
	}
	return hashJSON(payload)
}

// LogicHash fingerprints the compiled SQL after normalization: comments
// stripped, whitespace collapsed, and the whole text lower-cased. The
// lower-casing also folds quoted literals; kept for compatibility with
// existing caches.
func LogicHash(compiledSQL string) string {
	normalized := normalizeSQL(compiledSQL)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// normalizeSQL strips -- and /* */ comments, collapses all whitespace runs to
// single spaces, and lower-cases the result.
func normalizeSQL(sqlText string) string {
	var sb strings.Builder
	sb.Grow(len(sqlText))

	for i := 0; i < len(sqlText); {
		if strings.HasPrefix(sqlText[i:], "--") {
			for i < len(sqlText) && sqlText[i] != '\n' {
				i++
			}
			continue
		}
		if strings.HasPrefix(sqlText[i:], "/*") {
			end := strings.Index(sqlText[i+2:], "*/")
			if end < 0 {
				break
			}
			i += 2 + end + 2
			sb.WriteByte(' ')
			continue
		}
		sb.WriteByte(sqlText[i])
		i++
	}

	return strings.ToLower(strings.Join(strings.Fields(sb.String()), " "))
}

func hashJSON(v any) string {
	encoded, err := json.Marshal(v)
	if err != nil {
		// Only non-representable values can fail here; the canonical shapes
		// above never contain them.
		return ""
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}
