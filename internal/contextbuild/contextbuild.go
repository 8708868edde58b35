// Package contextbuild orchestrates the context directory lifecycle: Build
// scaffolds it from scratch and profiles every discovered table, Update
// re-profiles only what changed. Both operations absorb per-table failures
// into the run summary; a run is never all-or-nothing.
package contextbuild

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/datascribe-labs/datascribe/internal/change"
	"github.com/datascribe-labs/datascribe/internal/enrich"
	"github.com/datascribe-labs/datascribe/internal/metadata"
	"github.com/datascribe-labs/datascribe/internal/scanner"
	"github.com/datascribe-labs/datascribe/internal/selector"
	"github.com/datascribe-labs/datascribe/internal/stats"
	"github.com/datascribe-labs/datascribe/pkg/core"
)

// Warehouse is the slice of the warehouse client the orchestrator consumes.
type Warehouse interface {
	stats.Querier
	ListTables(ctx context.Context, schema string) ([]core.TableRef, error)
}

// Options configures one Build or Update run.
type Options struct {
	ProjectDir string
	ModelsDir  string
	ContextDir string
	// Schema restricts table discovery; empty means all schemas.
	Schema string

	// Concurrency is the profiling fan-out width. Zero or less means 1.
	Concurrency int

	// Force lets Build overwrite an existing context directory.
	Force bool

	// Select and Exclude are selection patterns for Update.
	Select  []string
	Exclude []string

	// ProfilesOnly skips regenerating the project-level documents on Update.
	ProfilesOnly bool
	// FullRefresh re-profiles every table regardless of detected changes.
	FullRefresh bool
}

// Orchestrator wires the scanner, gatherer, detector, and enrichment
// pipeline together.
type Orchestrator struct {
	warehouse Warehouse
	pipeline  *enrich.Pipeline
	meta      *metadata.Client
	logger    *slog.Logger
}

// New creates an orchestrator. A nil logger discards all output.
func New(wh Warehouse, pipeline *enrich.Pipeline, meta *metadata.Client, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{warehouse: wh, pipeline: pipeline, meta: meta, logger: logger}
}

// workItem is one table to profile, with the model it maps to when known.
type workItem struct {
	Model string
	Table core.TableRef
}

// itemOutcome is what one worker hands back; the cache merge stays on the
// caller side so the cache has a single writer.
type itemOutcome struct {
	result  core.ProfileResult
	record  *core.HashRecord
	costUSD float64
}

// Build scaffolds the context directory and profiles every discovered table.
// An existing directory is refused unless force is set.
func (o *Orchestrator) Build(ctx context.Context, opts Options) (*core.ProfileSummary, error) {
	if _, err := os.Stat(opts.ContextDir); err == nil && !opts.Force {
		return nil, &core.ContextDirError{
			Dir:     opts.ContextDir,
			Message: "context directory already exists (use --force to overwrite)",
		}
	}

	for _, dir := range []string{opts.ContextDir, filepath.Join(opts.ContextDir, "models")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create context directory: %w", err)
		}
	}
	if err := o.writeArtifact(opts.ContextDir, "system_prompt.md", systemPrompt); err != nil {
		return nil, err
	}

	graph, err := o.scan(opts)
	if err != nil {
		return nil, err
	}

	tables, err := o.warehouse.ListTables(ctx, opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate warehouse tables: %w", err)
	}

	items := make([]workItem, 0, len(tables))
	modelByTable := o.modelsByRelation(graph)
	for _, table := range tables {
		items = append(items, workItem{Model: modelByTable[table.String()], Table: table})
	}

	summary := newSummary()
	if err := o.writeProjectDocuments(ctx, opts, graph, summary); err != nil {
		return nil, err
	}

	cache := core.NewHashCache()
	if err := o.profileAll(ctx, opts, items, cache, summary); err != nil {
		return nil, err
	}

	cache.LastSync = time.Now().UTC()
	if err := change.StoreCache(opts.ContextDir, cache); err != nil {
		return nil, err
	}
	return summary, nil
}

// Update re-scans the project and re-profiles stale tables. The context
// directory must already exist.
func (o *Orchestrator) Update(ctx context.Context, opts Options) (*core.ProfileSummary, error) {
	if _, err := os.Stat(opts.ContextDir); err != nil {
		return nil, &core.ContextDirError{
			Dir:     opts.ContextDir,
			Message: "context directory does not exist (run build first)",
		}
	}

	graph, err := o.scan(opts)
	if err != nil {
		return nil, err
	}

	summary := newSummary()
	if !opts.ProfilesOnly {
		if err := o.writeProjectDocuments(ctx, opts, graph, summary); err != nil {
			return nil, err
		}
	}

	items, err := o.resolveSelection(ctx, opts, graph)
	if err != nil {
		return nil, err
	}

	cache := change.LoadCache(opts.ContextDir, o.logger)
	detector := change.NewDetector(o.logger)

	var stale []workItem
	for _, item := range items {
		if opts.FullRefresh || item.Model == "" {
			stale = append(stale, item)
			continue
		}
		result := detector.Detect(cache, item.Model, o.currentHashes(ctx, item))
		if result.ShouldReprofile {
			stale = append(stale, item)
		} else {
			summary.Skipped++
		}
	}

	if err := o.profileAll(ctx, opts, stale, cache, summary); err != nil {
		return nil, err
	}

	cache.LastSync = time.Now().UTC()
	if err := change.StoreCache(opts.ContextDir, cache); err != nil {
		return nil, err
	}
	return summary, nil
}

// Scan exposes the project scan for the list command.
func (o *Orchestrator) Scan(opts Options) (*core.ModelGraph, error) {
	return o.scan(opts)
}

// SelectModels resolves selection patterns against a scanned graph.
func (o *Orchestrator) SelectModels(graph *core.ModelGraph, include, exclude []string) ([]string, error) {
	return selector.Select(graph, include, exclude, o.meta)
}

func (o *Orchestrator) scan(opts Options) (*core.ModelGraph, error) {
	graph, err := scanner.New(o.logger).Scan(opts.ModelsDir)
	if err != nil {
		return nil, err
	}
	if err := o.meta.Load(opts.ModelsDir); err != nil {
		return nil, err
	}
	o.logger.Info("scanned project",
		slog.Int("models", graph.Len()),
		slog.Int("refs", graph.RefCount),
		slog.Int("sources", graph.SourceCount))
	return graph, nil
}

// modelsByRelation inverts the metadata mapping so discovered tables can be
// attributed to models.
func (o *Orchestrator) modelsByRelation(graph *core.ModelGraph) map[string]string {
	out := make(map[string]string, graph.Len())
	for _, name := range graph.Names() {
		if rel := o.meta.ModelTableName(name); rel != "" {
			out[rel] = name
		}
	}
	return out
}

// resolveSelection maps selection patterns to work items. When a selection
// was given but nothing resolves to a warehouse table, the full table list
// is profiled instead: updating nothing silently is worse than updating
// everything.
func (o *Orchestrator) resolveSelection(ctx context.Context, opts Options, graph *core.ModelGraph) ([]workItem, error) {
	if len(opts.Select) == 0 && len(opts.Exclude) == 0 {
		return o.allTables(ctx, opts, graph)
	}

	names, err := selector.Select(graph, opts.Select, opts.Exclude, o.meta)
	if err != nil {
		return nil, err
	}

	var items []workItem
	for _, name := range names {
		rel := o.meta.ModelTableName(name)
		if rel == "" {
			o.logger.Warn("selected model has no warehouse relation", slog.String("model", name))
			continue
		}
		items = append(items, workItem{Model: name, Table: parseRelation(rel)})
	}

	if len(items) == 0 {
		o.logger.Warn("selection resolved no warehouse tables, profiling all",
			slog.Any("select", opts.Select))
		return o.allTables(ctx, opts, graph)
	}
	return items, nil
}

func (o *Orchestrator) allTables(ctx context.Context, opts Options, graph *core.ModelGraph) ([]workItem, error) {
	tables, err := o.warehouse.ListTables(ctx, opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate warehouse tables: %w", err)
	}
	modelByTable := o.modelsByRelation(graph)
	items := make([]workItem, 0, len(tables))
	for _, table := range tables {
		items = append(items, workItem{Model: modelByTable[table.String()], Table: table})
	}
	return items, nil
}

// currentHashes computes the three fingerprints for one model. A failed
// schema lookup leaves Hashes.Schema empty, which the detector reads as
// changed; absent documentation or compiled SQL leaves those hashes empty,
// which reads as unchanged.
func (o *Orchestrator) currentHashes(ctx context.Context, item workItem) change.Hashes {
	var h change.Hashes

	columns, err := o.warehouse.GetTableSchema(ctx, item.Table.Schema, item.Table.Table)
	if err != nil {
		o.logger.Debug("schema lookup failed for change detection",
			slog.String("table", item.Table.String()), slog.String("error", err.Error()))
	} else {
		h.Schema = change.SchemaHash(columns)
	}

	if doc := o.meta.ModelDocumentation(item.Model); doc != nil {
		h.Documentation = change.DocumentationHash(doc.Description, doc.Columns)
	}
	if sqlText := o.meta.CompiledSQL(item.Model); sqlText != "" {
		h.Logic = change.LogicHash(sqlText)
	}
	return h
}

// profileAll fans the work items out through a bounded worker pool and folds
// outcomes into the summary and cache. Workers never touch the cache; merge
// happens here, single-threaded per run.
func (o *Orchestrator) profileAll(ctx context.Context, opts Options, items []workItem, cache *core.HashCache, summary *core.ProfileSummary) error {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	gatherer := stats.New(o.warehouse, o.logger)
	outcomes := make([]itemOutcome, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	var writeMu sync.Mutex

	for i, item := range items {
		g.Go(func() error {
			outcome, err := o.profileOne(gctx, opts, gatherer, item, &writeMu)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, outcome := range outcomes {
		summary.Record(outcome.result)
		summary.CostUSD += outcome.costUSD
		if outcome.record != nil && outcome.result.Model != "" {
			cache.Put(outcome.result.Model, *outcome.record)
		}
	}
	return nil
}

// profileOne gathers statistics, produces the document, and writes the
// artifact for one table. Artifact write failures abort the run; everything
// else degrades into the outcome.
func (o *Orchestrator) profileOne(ctx context.Context, opts Options, gatherer *stats.Gatherer, item workItem, writeMu *sync.Mutex) (itemOutcome, error) {
	start := time.Now()
	label := item.Model
	if label == "" {
		label = item.Table.String()
	}

	artifact := fmt.Sprintf("%s_%s.md", item.Table.Schema, item.Table.Table)
	relPath := filepath.Join("models", artifact)

	profile, err := gatherer.Profile(ctx, item.Table.Schema, item.Table.Table)
	if err != nil {
		// Profiling failed outright; the artifact still gets written so
		// every table keeps exactly one document.
		content := fmt.Sprintf("# %s\n\nProfiling failed: %s\n", item.Table.String(), err.Error())
		writeMu.Lock()
		writeErr := o.writeArtifact(opts.ContextDir, relPath, content)
		writeMu.Unlock()
		if writeErr != nil {
			return itemOutcome{}, writeErr
		}
		return itemOutcome{result: core.ProfileResult{
			Model:    label,
			Duration: time.Since(start),
			Content:  content,
			Err: &core.ProfileError{
				Model: label, Stage: "profile", Message: err.Error(),
			},
		}}, nil
	}

	doc := o.meta.ModelDocumentation(item.Model)
	result := o.pipeline.TableDocument(ctx, profile, doc)

	writeMu.Lock()
	writeErr := o.writeArtifact(opts.ContextDir, relPath, result.Content)
	writeMu.Unlock()
	if writeErr != nil {
		return itemOutcome{}, writeErr
	}

	outcome := itemOutcome{
		result: core.ProfileResult{
			Model:    label,
			Success:  result.Enriched,
			Duration: time.Since(start),
			Content:  result.Content,
		},
		costUSD: result.CostUSD,
	}
	if !result.Enriched {
		outcome.result.Err = &core.ProfileError{
			Model:        label,
			Stage:        "enrich",
			Message:      result.FallbackReason,
			FallbackUsed: true,
		}
	}

	// Only tables backed by a model get a cache record; there is nothing to
	// detect changes against otherwise.
	if item.Model != "" {
		record := &core.HashRecord{
			SchemaHash:     change.SchemaHash(profileColumns(profile)),
			LastProfiled:   time.Now().UTC(),
			ProfilePath:    relPath,
			WarehouseTable: item.Table.String(),
		}
		if doc != nil {
			record.DocumentationHash = change.DocumentationHash(doc.Description, doc.Columns)
		}
		if sqlText := o.meta.CompiledSQL(item.Model); sqlText != "" {
			record.LogicHash = change.LogicHash(sqlText)
		}
		outcome.record = record
	}

	return outcome, nil
}

// writeProjectDocuments generates summary.md and modelling.md, each falling
// back independently.
func (o *Orchestrator) writeProjectDocuments(ctx context.Context, opts Options, graph *core.ModelGraph, summary *core.ProfileSummary) error {
	docs := []struct {
		name   string
		result enrich.Result
	}{
		{"summary.md", o.pipeline.ProjectSummary(ctx, graph)},
		{"modelling.md", o.pipeline.ModellingGuide(ctx, graph)},
	}
	for _, doc := range docs {
		if err := o.writeArtifact(opts.ContextDir, doc.name, doc.result.Content); err != nil {
			return err
		}
		summary.CostUSD += doc.result.CostUSD
	}
	return nil
}

func (o *Orchestrator) writeArtifact(contextDir, relPath, content string) error {
	path := filepath.Join(contextDir, relPath)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { //nolint:gosec // G306: context artifacts are project docs
		return fmt.Errorf("failed to write %s: %w", relPath, err)
	}
	return nil
}

func newSummary() *core.ProfileSummary {
	return &core.ProfileSummary{RunID: uuid.NewString()}
}

// parseRelation splits "schema.table" into a TableRef. A bare name lands in
// Table with an empty schema.
func parseRelation(rel string) core.TableRef {
	for i := 0; i < len(rel); i++ {
		if rel[i] == '.' {
			return core.TableRef{Schema: rel[:i], Table: rel[i+1:]}
		}
	}
	return core.TableRef{Table: rel}
}

// profileColumns converts gathered column statistics back to the schema
// shape the hash covers.
func profileColumns(profile *core.TableStatisticsProfile) []core.Column {
	columns := make([]core.Column, len(profile.Columns))
	for i, col := range profile.Columns {
		columns[i] = core.Column{Name: col.Name, Type: col.Type, Nullable: col.Nullable, Position: i + 1}
	}
	return columns
}

// systemPrompt is the static instruction document placed at the root of
// every context directory.
const systemPrompt = `# Analytics context

This directory is generated context for an analytics agent working against
this project's warehouse.

- system_prompt.md: this file.
- summary.md: what the project models and how it fits together.
- modelling.md: naming and layering conventions observed in the project.
- models/: one document per warehouse table with observed statistics and
  declared descriptions.

Treat the statistics as a snapshot from the last sync, not live values.
Prefer declared column descriptions over inferred meaning when both exist.
`
