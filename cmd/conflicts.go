package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/goldfish-inc/ebisu/internal/model"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Inspect and resolve recorded conflicts",
}

var conflictsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unresolved conflicts",
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

		entity, _ := cmd.Flags().GetString("entity")

		conflicts, err := st.ListOpenConflicts(ctx, entity)
		if err != nil {
			return err
		}
		if len(conflicts) == 0 {
			fmt.Fprintln(os.Stderr, "No unresolved conflicts.")
			return nil
		}

		formatConflicts(os.Stdout, conflicts)
		return nil
	},
}

var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve <conflict-id>",
	Short: "Mark a conflict resolved after human review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Wrapf(err, "parse conflict id %q", args[0])
		}
		method, _ := cmd.Flags().GetString("method")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.ResolveConflict(ctx, id, method); err != nil {
			return err
		}
		fmt.Printf("conflict %d resolved (%s)\n", id, method)
		return nil
	},
}

func formatConflicts(w io.Writer, conflicts []model.ConflictRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tENTITY\tFIELD\tA\tB\tDETECTED")
	for _, c := range conflicts {
		fmt.Fprintf(tw, "%d\t%s\t%s/%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Kind, c.EntityType, c.EntityID, c.FieldName,
			c.ValueA, c.ValueB, c.DetectedAt.Format(time.RFC3339))
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	conflictsListCmd.Flags().String("entity", "", "filter by entity id (vessel id or identifier value)")
	conflictsResolveCmd.Flags().String("method", "analyst_review", "resolution method to record")

	conflictsCmd.AddCommand(conflictsListCmd)
	conflictsCmd.AddCommand(conflictsResolveCmd)
	rootCmd.AddCommand(conflictsCmd)
}
