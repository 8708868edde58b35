package enrich

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/datascribe-labs/datascribe/internal/metadata"
	"github.com/datascribe-labs/datascribe/pkg/core"
)

// FallbackTableDocument renders a table document from statistics and declared
// metadata alone. Output is fully deterministic for identical inputs.
func FallbackTableDocument(profile *core.TableStatisticsProfile, doc *metadata.Documentation) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", profile.Ref().String())
	if doc != nil && doc.Description != "" {
		sb.WriteString(doc.Description)
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "- Rows: %d\n", profile.RowCount)
	if profile.SizeBytes > 0 {
		fmt.Fprintf(&sb, "- Size: %s\n", formatBytes(profile.SizeBytes))
	}
	if tr := profile.TimeRange; tr != nil {
		fmt.Fprintf(&sb, "- Time range: %s spans %s to %s\n",
			tr.Column, tr.From.Format(time.RFC3339), tr.To.Format(time.RFC3339))
	}
	sb.WriteString("\n## Columns\n\n")
	sb.WriteString("| Column | Type | Nullable | Distinct | Null % | Range | Frequent values |\n")
	sb.WriteString("|--------|------|----------|----------|--------|-------|------------------|\n")

	for _, col := range profile.Columns {
		distinct := "?"
		if col.DistinctCount >= 0 {
			distinct = fmt.Sprintf("%d", col.DistinctCount)
		}
		rng := ""
		if col.Min != "" || col.Max != "" {
			rng = col.Min + " .. " + col.Max
		}
		fmt.Fprintf(&sb, "| %s | %s | %v | %s | %.1f | %s | %s |\n",
			col.Name, col.Type, col.Nullable, distinct, col.NullPercent,
			rng, strings.Join(col.SampleValues, ", "))
	}

	if doc != nil && len(doc.Columns) > 0 {
		sb.WriteString("\n## Column descriptions\n\n")
		for _, col := range profile.Columns {
			if desc, ok := doc.Columns[col.Name]; ok {
				fmt.Fprintf(&sb, "- `%s`: %s\n", col.Name, desc)
			}
		}
	}

	return sb.String()
}

// FallbackProjectSummary renders the project summary from the scanned graph.
func FallbackProjectSummary(graph *core.ModelGraph) string {
	var sb strings.Builder
	sb.WriteString("# Project summary\n\n")
	fmt.Fprintf(&sb, "This project defines %d transformation models with %d internal references and %d source-table references.\n\n",
		graph.Len(), graph.RefCount, graph.SourceCount)

	sb.WriteString("## Models\n\n")
	for _, m := range graph.Models {
		fmt.Fprintf(&sb, "- `%s`", m.Name)
		if len(m.Refs) > 0 {
			fmt.Fprintf(&sb, " (builds on %s)", strings.Join(m.Refs, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FallbackModellingGuide renders the modelling conventions document from
// structure alone: layers inferred from name prefixes, source groups listed.
func FallbackModellingGuide(graph *core.ModelGraph) string {
	layers := map[string][]string{}
	sources := map[string]struct{}{}
	for _, m := range graph.Models {
		prefix := "other"
		if i := strings.Index(m.Name, "_"); i > 0 {
			prefix = m.Name[:i]
		}
		layers[prefix] = append(layers[prefix], m.Name)
		for _, src := range m.Sources {
			sources[src.Source] = struct{}{}
		}
	}

	var sb strings.Builder
	sb.WriteString("# Modelling conventions\n\n")
	sb.WriteString("Model layers observed in this project, by name prefix:\n\n")
	for _, prefix := range sortedKeys(layers) {
		fmt.Fprintf(&sb, "- `%s_*`: %d models\n", prefix, len(layers[prefix]))
	}
	if len(sources) > 0 {
		sb.WriteString("\nSource groups referenced:\n\n")
		for _, src := range sortedKeys(sources) {
			fmt.Fprintf(&sb, "- `%s`\n", src)
		}
	}
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
