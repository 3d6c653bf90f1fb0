package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/goldfish-inc/ebisu/internal/model"
	"github.com/goldfish-inc/ebisu/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the promotion run ledger",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List promotion runs, most recent first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		runs, err := st.ListPromotionRuns(ctx, store.RunFilter{Limit: limit, Offset: offset})
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No promotion runs found.")
			return nil
		}

		formatRuns(os.Stdout, runs)
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <ingestion-id>",
	Short: "Show the ledger entry for one ingestion id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetPromotionRun(ctx, args[0])
		if err != nil {
			return err
		}
		if run == nil {
			fmt.Fprintf(os.Stderr, "No promotion run for ingestion %s.\n", args[0])
			return nil
		}

		formatRuns(os.Stdout, []model.PromotionRun{*run})
		return nil
	},
}

func formatRuns(w io.Writer, runs []model.PromotionRun) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INGESTION\tPROMOTED AT\tROWS\tDOCS\tSKIPPED\tDURATION\tRUNS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%d\n",
			r.IngestionID,
			r.PromotedAt.Format(time.RFC3339),
			r.RowsPromoted,
			r.DocsPromoted,
			r.DocsSkipped,
			time.Duration(r.LastDurationMS)*time.Millisecond,
			r.RunCount,
		)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
