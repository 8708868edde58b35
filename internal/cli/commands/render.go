package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/datascribe-labs/datascribe/pkg/core"
)

// displayRounding keeps durations readable in the summary table.
const displayRounding = 10 * time.Millisecond

// renderSummary prints the run outcome as a table plus any recorded errors.
func renderSummary(w io.Writer, s *core.ProfileSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Tables", "Enriched", "Fallback", "Failed", "Skipped", "Cost (USD)", "Duration"})
	t.AppendRow(table.Row{
		s.Total,
		s.Succeeded,
		s.Fallbacks,
		s.Failed,
		s.Skipped,
		fmt.Sprintf("%.4f", s.CostUSD),
		s.Duration.Round(displayRounding).String(),
	})
	t.Render()

	if len(s.Errors) > 0 {
		fmt.Fprintln(w)
		for _, e := range s.Errors {
			marker := "error"
			if e.FallbackUsed {
				marker = "fallback"
			}
			fmt.Fprintf(w, "  [%s] %s (%s): %s\n", marker, e.Model, e.Stage, e.Message)
		}
	}
	fmt.Fprintf(w, "run %s\n", s.RunID)
}
