// Package stats gathers read-only table statistics from the warehouse:
// row counts, per-column distinct and null counts, min/max for numeric and
// temporal columns, frequency samples, and the observed time range. Every
// query gets one attempt; per-column failures are absorbed so a partial
// profile is still a profile.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/datascribe-labs/datascribe/internal/warehouse"
	"github.com/datascribe-labs/datascribe/pkg/core"
)

// aggregateBatchSize caps how many columns one combined aggregate query
// covers; very wide tables are profiled in several passes.
const aggregateBatchSize = 20

// sampleLimit is how many values the frequency sample keeps per column.
const sampleLimit = 5

// Querier is the slice of the warehouse client the gatherer consumes.
type Querier interface {
	Query(ctx context.Context, sql string) (*warehouse.Rows, error)
	GetTableSchema(ctx context.Context, schema, table string) ([]core.Column, error)
	GetTableStats(ctx context.Context, schema, table string) (rowCount, sizeBytes int64, err error)
}

// Gatherer profiles warehouse tables. It never writes to the warehouse.
type Gatherer struct {
	client Querier
	logger *slog.Logger
}

// New creates a gatherer. A nil logger discards all output.
func New(client Querier, logger *slog.Logger) *Gatherer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gatherer{client: client, logger: logger}
}

// Profile gathers statistics for one table. The schema lookup must succeed;
// everything after it degrades per column.
func (g *Gatherer) Profile(ctx context.Context, schema, table string) (*core.TableStatisticsProfile, error) {
	columns, err := g.client.GetTableSchema(ctx, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema for %s.%s: %w", schema, table, err)
	}

	profile := &core.TableStatisticsProfile{
		Schema:  schema,
		Table:   table,
		Columns: make([]core.ColumnStatistics, len(columns)),
	}
	for i, col := range columns {
		profile.Columns[i] = core.ColumnStatistics{
			Name:          col.Name,
			Type:          col.Type,
			Nullable:      col.Nullable,
			DistinctCount: -1,
		}
	}

	if rowCount, sizeBytes, err := g.client.GetTableStats(ctx, schema, table); err != nil {
		g.logger.Debug("table size lookup failed",
			slog.String("table", table), slog.String("error", err.Error()))
	} else {
		profile.RowCount = rowCount
		profile.SizeBytes = sizeBytes
	}

	rel := quoteRelation(schema, table)
	g.gatherAggregates(ctx, rel, profile)
	g.gatherMinMax(ctx, rel, profile)
	g.gatherSamples(ctx, rel, profile)
	g.gatherTimeRange(ctx, rel, profile, columns)

	return profile, nil
}

// gatherAggregates runs the combined COUNT(*) / COUNT(DISTINCT) / null-count
// query in batches. A failed batch leaves its columns at DistinctCount -1.
func (g *Gatherer) gatherAggregates(ctx context.Context, rel string, profile *core.TableStatisticsProfile) {
	for start := 0; start < len(profile.Columns); start += aggregateBatchSize {
		end := min(start+aggregateBatchSize, len(profile.Columns))
		batch := profile.Columns[start:end]

		var sb strings.Builder
		sb.WriteString("SELECT COUNT(*)")
		for _, col := range batch {
			ident := quoteIdent(col.Name)
			fmt.Fprintf(&sb, ", COUNT(DISTINCT %s)", ident)
			fmt.Fprintf(&sb, ", SUM(CASE WHEN %s IS NULL THEN 1 ELSE 0 END)", ident)
		}
		sb.WriteString(" FROM ")
		sb.WriteString(rel)

		rows, err := g.client.Query(ctx, sb.String())
		if err != nil {
			g.logger.Warn("aggregate statistics query failed",
				slog.String("relation", rel), slog.String("error", err.Error()))
			continue
		}

		dests := make([]any, 1+2*len(batch))
		var rowCount int64
		dests[0] = &rowCount
		distinct := make([]sql.NullInt64, len(batch))
		nulls := make([]sql.NullInt64, len(batch))
		for i := range batch {
			dests[1+2*i] = &distinct[i]
			dests[2+2*i] = &nulls[i]
		}

		if scanErr := scanSingleRow(rows, dests); scanErr != nil {
			g.logger.Warn("aggregate statistics scan failed",
				slog.String("relation", rel), slog.String("error", scanErr.Error()))
			continue
		}

		profile.RowCount = rowCount
		for i := range batch {
			if distinct[i].Valid {
				batch[i].DistinctCount = distinct[i].Int64
			}
			if nulls[i].Valid && rowCount > 0 {
				batch[i].NullPercent = float64(nulls[i].Int64) / float64(rowCount) * 100
			}
		}
	}
}

// gatherMinMax runs one MIN/MAX query across the numeric and temporal columns.
func (g *Gatherer) gatherMinMax(ctx context.Context, rel string, profile *core.TableStatisticsProfile) {
	var targets []int
	for i, col := range profile.Columns {
		if isNumericType(col.Type) || isTemporalType(col.Type) {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	for n, i := range targets {
		if n > 0 {
			sb.WriteString(", ")
		}
		ident := quoteIdent(profile.Columns[i].Name)
		fmt.Fprintf(&sb, "MIN(%s), MAX(%s)", ident, ident)
	}
	sb.WriteString(" FROM ")
	sb.WriteString(rel)

	rows, err := g.client.Query(ctx, sb.String())
	if err != nil {
		g.logger.Warn("min/max query failed",
			slog.String("relation", rel), slog.String("error", err.Error()))
		return
	}

	dests := make([]any, 2*len(targets))
	vals := make([]any, 2*len(targets))
	for i := range vals {
		dests[i] = &vals[i]
	}
	if scanErr := scanSingleRow(rows, dests); scanErr != nil {
		g.logger.Warn("min/max scan failed",
			slog.String("relation", rel), slog.String("error", scanErr.Error()))
		return
	}

	for n, i := range targets {
		profile.Columns[i].Min = formatValue(vals[2*n])
		profile.Columns[i].Max = formatValue(vals[2*n+1])
	}
}

// gatherSamples collects up to five most frequent non-null values per column.
func (g *Gatherer) gatherSamples(ctx context.Context, rel string, profile *core.TableStatisticsProfile) {
	for i := range profile.Columns {
		ident := quoteIdent(profile.Columns[i].Name)
		query := fmt.Sprintf(
			"SELECT %s FROM %s WHERE %s IS NOT NULL GROUP BY %s ORDER BY COUNT(*) DESC LIMIT %d",
			ident, rel, ident, ident, sampleLimit)

		rows, err := g.client.Query(ctx, query)
		if err != nil {
			g.logger.Debug("sample query failed",
				slog.String("column", profile.Columns[i].Name), slog.String("error", err.Error()))
			continue
		}

		samples, scanErr := scanSampleValues(rows)
		if scanErr != nil {
			g.logger.Debug("sample scan failed",
				slog.String("column", profile.Columns[i].Name), slog.String("error", scanErr.Error()))
			continue
		}
		profile.Columns[i].SampleValues = samples
	}
}

// gatherTimeRange reads the observed span of the first temporal column.
func (g *Gatherer) gatherTimeRange(ctx context.Context, rel string, profile *core.TableStatisticsProfile, columns []core.Column) {
	var temporal string
	for _, col := range columns {
		if isTemporalType(col.Type) {
			temporal = col.Name
			break
		}
	}
	if temporal == "" {
		return
	}

	ident := quoteIdent(temporal)
	query := fmt.Sprintf("SELECT MIN(%s), MAX(%s) FROM %s", ident, ident, rel)

	rows, err := g.client.Query(ctx, query)
	if err != nil {
		g.logger.Debug("time range query failed",
			slog.String("column", temporal), slog.String("error", err.Error()))
		return
	}

	var from, to sql.NullTime
	if scanErr := scanSingleRow(rows, []any{&from, &to}); scanErr != nil {
		g.logger.Debug("time range scan failed",
			slog.String("column", temporal), slog.String("error", scanErr.Error()))
		return
	}
	if !from.Valid || !to.Valid {
		return
	}

	profile.TimeRange = &core.TimeRange{Column: temporal, From: from.Time, To: to.Time}
}

// scanSingleRow scans exactly one row from the result set and closes it.
func scanSingleRow(rows *warehouse.Rows, dests []any) error {
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return fmt.Errorf("query returned no rows")
	}
	if err := rows.Scan(dests...); err != nil {
		return err
	}
	return rows.Err()
}

func scanSampleValues(rows *warehouse.Rows) ([]string, error) {
	defer func() { _ = rows.Close() }()
	var samples []string
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		samples = append(samples, formatValue(v))
	}
	return samples, rows.Err()
}

// formatValue renders a scanned driver value as display text.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

var numericTypes = map[string]struct{}{
	"TINYINT": {}, "SMALLINT": {}, "INTEGER": {}, "INT": {}, "INT2": {},
	"INT4": {}, "INT8": {}, "BIGINT": {}, "HUGEINT": {}, "UTINYINT": {},
	"USMALLINT": {}, "UINTEGER": {}, "UBIGINT": {}, "REAL": {}, "FLOAT": {},
	"FLOAT4": {}, "FLOAT8": {}, "DOUBLE": {}, "DOUBLE PRECISION": {},
	"DECIMAL": {}, "NUMERIC": {},
}

var temporalTypes = map[string]struct{}{
	"DATE": {}, "TIME": {}, "DATETIME": {}, "TIMESTAMP": {}, "TIMESTAMPTZ": {},
	"TIMESTAMP WITH TIME ZONE": {}, "TIMESTAMP WITHOUT TIME ZONE": {},
}

// normalizeType upper-cases a warehouse type name and strips any precision
// suffix, so DECIMAL(18,2) classifies the same as DECIMAL.
func normalizeType(typeName string) string {
	t := strings.ToUpper(strings.TrimSpace(typeName))
	if i := strings.Index(t, "("); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

func isNumericType(typeName string) bool {
	_, ok := numericTypes[normalizeType(typeName)]
	return ok
}

func isTemporalType(typeName string) bool {
	_, ok := temporalTypes[normalizeType(typeName)]
	return ok
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteRelation(schema, table string) string {
	if schema == "" {
		return quoteIdent(table)
	}
	return quoteIdent(schema) + "." + quoteIdent(table)
}
