package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var selectPatterns []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scanned models and their dependencies",
		Example: `  # List every model
  datascribe list

  # List a model and its upstream dependencies
  datascribe list --select "+dim_customers"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutWarehouse(cmd)
			return runList(cmd, cmdCtx, selectPatterns)
		},
	}

	cmd.Flags().StringSliceVarP(&selectPatterns, "select", "s", nil, "Model selection patterns")
	return cmd
}

func runList(cmd *cobra.Command, cmdCtx *CommandContext, selectPatterns []string) error {
	graph, err := cmdCtx.Orchestrator.Scan(cmdCtx.Options())
	if err != nil {
		return err
	}

	names := graph.Names()
	if len(selectPatterns) > 0 {
		names, err = cmdCtx.Orchestrator.SelectModels(graph, selectPatterns, nil)
		if err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Model", "Depends on", "Sources", "File"})

	for _, name := range names {
		m, ok := graph.Get(name)
		if !ok {
			continue
		}
		sources := make([]string, 0, len(m.Sources))
		for _, src := range m.Sources {
			sources = append(sources, src.Source+"."+src.Table)
		}
		t.AppendRow(table.Row{
			m.Name,
			strings.Join(m.Refs, ", "),
			strings.Join(sources, ", "),
			m.RelPath,
		})
	}
	t.Render()

	fmt.Fprintf(w, "(%d models, %d refs, %d sources)\n", len(names), graph.RefCount, graph.SourceCount)
	return nil
}
