package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"markket/internal/content"
)

var listCmd = &cobra.Command{
	Use:   "list [collection]",
	Short: "List synced collections, or the items of one collection",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if len(args) == 0 {
			cols, err := st.Collections(ctx)
			if err != nil {
				return err
			}
			if len(cols) == 0 {
				fmt.Println("Nothing synced yet. Run 'markket sync' first.")
				return nil
			}
			for _, c := range cols {
				synced := "never"
				if !c.LastSynced.IsZero() {
					synced = c.LastSynced.Local().Format("2006-01-02 15:04:05")
				}
				fmt.Printf("%-10s %5d items  synced %s\n", c.Name, c.Items, synced)
			}
			return nil
		}

		items, err := st.Items(ctx, args[0])
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Printf("No items in %q.\n", args[0])
			return nil
		}
		for _, it := range items {
			fmt.Printf("%-28s %s\n", it.ID, content.Title(it.Doc()))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
