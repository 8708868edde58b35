package commands

import (
	"github.com/spf13/cobra"
)

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *cobra.Command {
	var (
		selectPatterns  []string
		excludePatterns []string
		profilesOnly    bool
		fullRefresh     bool
		concurrency     int
		noLLM           bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Re-profile changed tables in an existing context directory",
		Long: `Re-scan the project and refresh the context directory. Only tables whose
schema, documentation, or compiled SQL changed since the last sync are
re-profiled, unless --full-refresh is given.

Selection patterns support exact names, * wildcards, tag: and path:
filters, and graph operators: +name (upstream), name+ (downstream),
+name+ (both).`,
		Example: `  # Refresh everything that changed
  datascribe update

  # Refresh one model and everything downstream of it
  datascribe update --select "stg_customers+"

  # Refresh marts except one model, skipping the project documents
  datascribe update --select "path:marts/*" --exclude fct_returns --profiles-only`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd, noLLM)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := cmdCtx.Options()
			opts.Select = selectPatterns
			opts.Exclude = excludePatterns
			opts.ProfilesOnly = profilesOnly
			opts.FullRefresh = fullRefresh
			opts.Concurrency = concurrency

			summary, err := cmdCtx.Orchestrator.Update(cmd.Context(), opts)
			if err != nil {
				return err
			}
			renderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&selectPatterns, "select", "s", nil, "Model selection patterns")
	cmd.Flags().StringSliceVar(&excludePatterns, "exclude", nil, "Model exclusion patterns")
	cmd.Flags().BoolVar(&profilesOnly, "profiles-only", false, "Skip regenerating the project documents")
	cmd.Flags().BoolVar(&fullRefresh, "full-refresh", false, "Re-profile every table regardless of detected changes")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of tables to profile in parallel")
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "Skip generation calls and use fallback templates")

	return cmd
}
