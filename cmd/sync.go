package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"markket/internal/loader"
)

var flagForce bool

var syncCmd = &cobra.Command{
	Use:   "sync [collection...]",
	Short: "Pull collections from the CMS into the local content store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		set, err := newLoaderSet(st)
		if err != nil {
			return err
		}

		fmt.Printf("Syncing from %s...\n", cfg.CMSURL)
		start := time.Now()

		stats, err := set.SyncAll(ctx, args, flagForce, func(s loader.Stats, err error) {
			if err != nil {
				logger.Warn("collection failed", "collection", s.Collection, "err", err)
				return
			}
			logger.Debug("collection done", "collection", s.Collection, "items", s.Items, "skipped", s.Skipped)
		})

		fmt.Printf("\nDone in %s\n", time.Since(start).Round(time.Millisecond))
		for _, s := range stats {
			switch {
			case s.Skipped:
				fmt.Printf("  %-10s fresh, skipped\n", s.Collection)
			case s.Invalid > 0:
				fmt.Printf("  %-10s %d items (%d failed validation)\n", s.Collection, s.Items, s.Invalid)
			default:
				fmt.Printf("  %-10s %d items\n", s.Collection, s.Items)
			}
		}

		return err
	},
}

func init() {
	syncCmd.Flags().BoolVar(&flagForce, "force", false, "ignore the sync interval")
	rootCmd.AddCommand(syncCmd)
}
