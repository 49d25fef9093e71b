package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"markket/internal/content"
	"markket/internal/related"
)

var flagLimit int

var relatedCmd = &cobra.Command{
	Use:   "related <collection> <id>",
	Short: "Rank the entries most related to one item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		target, err := st.Item(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		pool, err := st.Items(ctx, args[0])
		if err != nil {
			return err
		}

		ranked := related.Rank(target, pool, flagLimit, time.Now())
		if len(ranked) == 0 {
			fmt.Println("No other entries in this collection.")
			return nil
		}
		for _, r := range ranked {
			fmt.Printf("%6.2f  %-28s %s  (tags %d, title %d)\n",
				r.Score, r.Item.ID, content.Title(r.Item.Doc()), r.TagOverlap, r.TitleOverlap)
		}
		return nil
	},
}

func init() {
	relatedCmd.Flags().IntVar(&flagLimit, "limit", related.DefaultLimit, "number of entries to return")
	rootCmd.AddCommand(relatedCmd)
}
