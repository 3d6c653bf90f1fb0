package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/goldfish-inc/ebisu/internal/dossier"
)

var dossierCmd = &cobra.Command{
	Use:   "dossier <vessel-id>",
	Short: "Print everything known (and contested) about one vessel",
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

		d, err := dossier.Build(ctx, st, args[0])
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal dossier")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dossierCmd)
}
