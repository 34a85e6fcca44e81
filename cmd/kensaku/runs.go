package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kensaku/internal/output"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage archived runs",
		Long: `Runs lists, prints and deletes result lists saved with --archive or by the
server's run_id request field. The archive lives at archive.database_path.`,
	}
	cmd.AddCommand(newRunsListCmd(), newRunsShowCmd(), newRunsDeleteCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			a, err := e.openArchive()
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-36s  %-20s  %7s  %7s  %s\n", "run", "created", "queries", "hits", "model")
			for _, r := range runs {
				fmt.Fprintf(out, "%-36s  %-20s  %7d  %7d  %s\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Queries, r.Hits, r.Model)
			}
			return nil
		},
	}
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run> <query>...",
		Short: "Print archived result lists in trec_eval run format",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			a, err := e.openArchive()
			if err != nil {
				return err
			}
			defer a.Close()

			runID := args[0]
			w := output.NewTrecWriter(cmd.OutOrStdout(), runID)
			for _, queryID := range args[1:] {
				hits, err := a.LoadRun(cmd.Context(), runID, queryID)
				if err != nil {
					return fmt.Errorf("run %s query %s: %w", runID, queryID, err)
				}
				if err := w.Write(hits, queryID); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run>...",
		Short: "Delete archived runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			a, err := e.openArchive()
			if err != nil {
				return err
			}
			defer a.Close()

			for _, runID := range args {
				if err := a.DeleteRun(cmd.Context(), runID); err != nil {
					return fmt.Errorf("run %s: %w", runID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", runID)
			}
			return nil
		},
	}
}
