package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/goldfish-inc/ebisu/internal/promotion"
	"github.com/goldfish-inc/ebisu/internal/resilience"
)

var promoteCmd = &cobra.Command{
	Use:   "promote <ingestion-id> [ingestion-id...]",
	Short: "Promote staged extraction rows into canonical vessel state",
	Long:  "Runs the promotion engine for each ingestion id. Each run is atomic and idempotent: re-promoting an ingestion only advances its run count.",
	Args:  cobra.MinimumNArgs(1),
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

		nameFallback, _ := cmd.Flags().GetBool("name-fallback")
		eng := promotion.New(st, promotion.Options{
			NameFallback: nameFallback || cfg.Promotion.NameFallback,
		})

		maxConcurrent := cfg.Promotion.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 1
		}

		var mu sync.Mutex
		results := make(map[string]int, len(args))

		// Runs are idempotent, so a run that died on a dropped connection
		// or a serialization abort can simply be retried.
		retryCfg := resilience.DefaultRetryConfig()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrent)
		for _, id := range args {
			g.Go(func() error {
				rcfg := retryCfg
				rcfg.OnRetry = resilience.RetryLogger("promote " + id)
				n, err := resilience.DoVal(gctx, rcfg, func(ctx context.Context) (int, error) {
					return eng.Promote(ctx, id)
				})
				if err != nil {
					return err
				}
				mu.Lock()
				results[id] = n
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, id := range args {
			fmt.Printf("%s: %d rows promoted\n", id, results[id])
		}
		return nil
	},
}

func init() {
	promoteCmd.Flags().Bool("name-fallback", false, "resolve documents without strong identifiers via shared self-reported name")
	rootCmd.AddCommand(promoteCmd)
}
