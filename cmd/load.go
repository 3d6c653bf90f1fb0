package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/goldfish-inc/ebisu/internal/fetcher"
	"github.com/goldfish-inc/ebisu/internal/staging"
	"github.com/goldfish-inc/ebisu/internal/store"
)

var loadCmd = &cobra.Command{
	Use:   "load <extraction-rows.csv|.xlsx|URL>",
	Short: "Load extraction rows into the staging table",
	Long: "Bulk-loads normalized extraction rows (document_id, dataset_version_id, ingestion_id, " +
		"column_name, cleaned_value, confidence[, recorded_at]) into staging, ready for promote. " +
		"The source is a local CSV or XLSX file, or an http/https/ftp URL to download first.",
	Args: cobra.ExactArgs(1),
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

		source := args[0]
		if isRemote(source) {
			f, err := fetcher.ForURL(source)
			if err != nil {
				return err
			}
			local := filepath.Join(os.TempDir(), filepath.Base(source))
			if _, err := f.DownloadToFile(ctx, source, local); err != nil {
				return err
			}
			defer os.Remove(local) //nolint:errcheck
			source = local
		}

		n, err := loadFile(cmd, st, source)
		if err != nil {
			return err
		}
		fmt.Printf("loaded %d rows\n", n)
		return nil
	},
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "ftp://")
}

func loadFile(cmd *cobra.Command, st store.Store, path string) (int64, error) {
	ctx := cmd.Context()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		sheet, _ := cmd.Flags().GetString("sheet")
		return staging.LoadXLSX(ctx, st, path, staging.XLSXOptions{SheetName: sheet})
	case ".csv", ".txt", "":
		f, err := os.Open(path)
		if err != nil {
			return 0, eris.Wrapf(err, "open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return staging.Load(ctx, st, f)
	default:
		return 0, eris.Errorf("unsupported source format %q", filepath.Ext(path))
	}
}

func init() {
	loadCmd.Flags().String("sheet", "", "XLSX sheet name holding the extraction rows (default: first sheet)")
	rootCmd.AddCommand(loadCmd)
}
