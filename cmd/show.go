package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"markket/internal/content"
)

var flagRaw bool

var showCmd = &cobra.Command{
	Use:   "show <collection> <id>",
	Short: "Print one synced item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		it, err := st.Item(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if flagRaw {
			fmt.Print(string(pretty.Pretty(it.Data)))
			return nil
		}
		fmt.Print(renderMarkdown(itemMarkdown(it.Doc())))
		return nil
	},
}

// itemMarkdown lays out an entry as a markdown document.
func itemMarkdown(doc gjson.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", content.Title(doc))
	if t, ok := content.Date(doc); ok {
		fmt.Fprintf(&sb, "*%s*\n\n", t.Format("January 2, 2006"))
	}
	if tags := content.Tags(doc); len(tags) > 0 {
		fmt.Fprintf(&sb, "Tags: %s\n\n", strings.Join(tags, ", "))
	}
	if img := content.Image(doc); img != "" {
		fmt.Fprintf(&sb, "![cover](%s)\n\n", img)
	}
	body := content.Markdown(doc.Get("Content"))
	if body == "" {
		body = content.Excerpt(doc)
	}
	sb.WriteString(body)
	return sb.String()
}

func init() {
	showCmd.Flags().BoolVar(&flagRaw, "raw", false, "print the stored JSON")
	rootCmd.AddCommand(showCmd)
}
