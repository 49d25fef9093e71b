package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"markket/internal/checkout"
	"markket/internal/content"
	"markket/internal/gateway"
	"markket/internal/normalize"
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <email>",
	Short: "Add an email to the store's newsletter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		storefront, err := content.Storefront(ctx, st)
		if err != nil {
			return err
		}
		storeID := normalize.String(storefront, "documentId")
		if storeID == "" {
			return errors.New("store not synced; run 'markket sync store' first")
		}

		if err := newGateway().Subscribe(ctx, args[0], storeID); err != nil {
			var fe *checkout.FieldError
			if errors.As(err, &fe) {
				return errors.New(fe.Message)
			}
			return errors.New(gateway.UserMessage(err))
		}
		fmt.Println("Subscribed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(subscribeCmd)
}
