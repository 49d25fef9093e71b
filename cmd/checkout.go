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

var (
	flagPrice              string
	flagQuantity           int64
	flagTip                int64
	flagProductsCollection string
	flagDryRun             bool
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <product-id>",
	Short: "Create a payment link for a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		product, err := st.Item(ctx, flagProductsCollection, args[0])
		if err != nil {
			return err
		}
		storefront, err := content.Storefront(ctx, st)
		if err != nil {
			return err
		}

		b := checkout.NewBuilder(product.Doc(), storefront).WithLogger(logger)
		price := flagPrice
		if prices := b.Prices(); price == "" && len(prices) == 1 {
			price = prices[0].ID
		}
		if price == "" {
			printOptions(b)
			return errors.New("choose an option with --price")
		}
		if err := b.Select(price); err != nil {
			printOptions(b)
			return err
		}
		b.SetQuantity(flagQuantity)
		b.SetTip(flagTip)

		q := b.Quote()
		lang := cfg.Language()
		fmt.Printf("%s\n  total %s\n  %s\n", b.Title, normalize.FormatMoney(q.Total, q.Currency, lang), b.Hint())

		if flagDryRun {
			if _, err := b.Request(); err != nil {
				return err
			}
			fmt.Println("  valid, not submitted (--dry-run)")
			return nil
		}

		link, err := b.Submit(ctx, newGateway())
		if err != nil {
			var fe *checkout.FieldError
			if errors.As(err, &fe) {
				return err
			}
			return errors.New(gateway.UserMessage(err))
		}
		fmt.Printf("\nPayment link: %s\n", link)
		return nil
	},
}

func printOptions(b *checkout.Builder) {
	lang := cfg.Language()
	fmt.Println("Options:")
	for _, p := range b.Prices() {
		fmt.Printf("  %-32s %s\n", p.ID, p.Label(lang))
	}
}

func init() {
	checkoutCmd.Flags().StringVar(&flagPrice, "price", "", "price option id (default: the only option)")
	checkoutCmd.Flags().Int64Var(&flagQuantity, "quantity", 1, "quantity")
	checkoutCmd.Flags().Int64Var(&flagTip, "tip", 0, "tip in minor units, e.g. 250 for 2.50")
	checkoutCmd.Flags().StringVar(&flagProductsCollection, "collection", "products", "collection holding the product")
	checkoutCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "validate without creating a link")
	rootCmd.AddCommand(checkoutCmd)
}
