package commands

import (
	"github.com/spf13/cobra"
)

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	var (
		force       bool
		concurrency int
		noLLM       bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Scaffold the context directory and profile every table",
		Long: `Create the context directory, scan the model files, profile every
warehouse table, and write one document per table plus the project summary
and modelling notes. Refuses to overwrite an existing context directory
unless --force is given.`,
		Example: `  # Build the context directory from scratch
  datascribe build

  # Rebuild over an existing directory, four tables at a time
  datascribe build --force --concurrency 4

  # Build without calling the generation API
  datascribe build --no-llm`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd, noLLM)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := cmdCtx.Options()
			opts.Force = force
			opts.Concurrency = concurrency

			summary, err := cmdCtx.Orchestrator.Build(cmd.Context(), opts)
			if err != nil {
				return err
			}
			renderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing context directory")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of tables to profile in parallel")
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "Skip generation calls and use fallback templates")

	return cmd
}
