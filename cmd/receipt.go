package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"markket/internal/receipt"
)

var receiptCmd = &cobra.Command{
	Use:   "receipt <url-or-query>",
	Short: "Resolve and print a receipt from a success-page link",
	Long: "Resolve a receipt from a success-page URL or query string. A session id\n" +
		"(session_id, session, sid) is looked up on the storefront API; otherwise an\n" +
		"inline payload (receipt, data, r, payload) is decoded locally.\n" +
		"Exits non-zero when a session was given but could not be fetched.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := &receipt.Resolver{Lookup: newGateway(), Logger: logger}
		return printReceipt(cmd.Context(), os.Stdout, os.Stderr, r, args[0])
	},
}

// printReceipt writes the rendered receipt to out. An empty query only
// prints a notice to errOut; a failed session lookup is returned as an error.
func printReceipt(ctx context.Context, out, errOut io.Writer, r *receipt.Resolver, raw string) error {
	q, err := receipt.ParseQuery(raw)
	if err != nil {
		return err
	}

	res := r.Resolve(ctx, q)
	switch res.State {
	case receipt.StateEmpty:
		fmt.Fprintln(errOut, res.Message)
		return nil
	case receipt.StateError:
		return errors.New(res.Message)
	}

	view := receipt.Render(res.Record, receipt.RenderOptions{Lang: cfg.Language(), Location: time.Local})
	fmt.Fprint(out, renderMarkdown(view.Markdown()))
	return nil
}

func init() {
	rootCmd.AddCommand(receiptCmd)
}
