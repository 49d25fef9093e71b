package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"markket/internal/content"
	"markket/internal/receipt"
	"markket/internal/related"
	"markket/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing storefront content tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	resolver := &receipt.Resolver{Lookup: newGateway(), Logger: logger}

	s := mcpserver.NewMCPServer("markket", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(listCollectionTool(), makeListCollectionHandler(st))
	s.AddTool(getItemTool(), makeGetItemHandler(st))
	s.AddTool(relatedItemsTool(), makeRelatedHandler(st, time.Now))
	s.AddTool(resolveReceiptTool(), makeReceiptHandler(resolver))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func listCollectionTool() mcp.Tool {
	return mcp.NewTool("list_collection",
		mcp.WithDescription("List the entries of a synced storefront collection (pages, products, posts, events, stores, store) with their ids and titles. Omit the collection to list the synced collections."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("collection",
			mcp.Description("Collection name, e.g. 'products'"),
		),
	)
}

func getItemTool() mcp.Tool {
	return mcp.NewTool("get_item",
		mcp.WithDescription("Get one synced entry rendered as markdown, including its rich-text body."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("collection",
			mcp.Required(),
			mcp.Description("Collection name"),
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Entry id as shown by list_collection"),
		),
	)
}

func relatedItemsTool() mcp.Tool {
	return mcp.NewTool("related_items",
		mcp.WithDescription("Rank the entries of the same collection most related to an entry by shared tags, shared title words and recency."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("collection",
			mcp.Required(),
			mcp.Description("Collection name"),
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Entry id"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries to return (default 3)"),
		),
	)
}

func resolveReceiptTool() mcp.Tool {
	return mcp.NewTool("resolve_receipt",
		mcp.WithDescription("Resolve an order receipt from a checkout success URL or query string and return it as markdown."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Success-page URL, '?session_id=...' or '?receipt=...'"),
		),
	)
}

// --- Handler factories ---

func makeListCollectionHandler(st store.Store) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection := req.GetString("collection", "")
		if collection == "" {
			cols, err := st.Collections(ctx)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("list collections failed: %v", err)), nil
			}
			var sb strings.Builder
			fmt.Fprintf(&sb, "## Synced collections (%d)\n\n", len(cols))
			for _, c := range cols {
				fmt.Fprintf(&sb, "- **%s** (%d items)\n", c.Name, c.Items)
			}
			return mcp.NewToolResultText(sb.String()), nil
		}

		items, err := st.Items(ctx, collection)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list %s failed: %v", collection, err)), nil
		}
		if len(items) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("Collection %q is empty or has not been synced. Run 'markket sync' first.", collection)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "## %s (%d)\n\n", collection, len(items))
		for _, it := range items {
			doc := it.Doc()
			line := fmt.Sprintf("- `%s` **%s**", it.ID, content.Title(doc))
			if ex := content.Excerpt(doc); ex != "" {
				line += ": " + truncate(ex, 120)
			}
			sb.WriteString(line + "\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeGetItemHandler(st store.Store) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection := req.GetString("collection", "")
		id := req.GetString("id", "")
		if collection == "" || id == "" {
			return mcp.NewToolResultError("collection and id are required"), nil
		}

		it, err := st.Item(ctx, collection, id)
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("%s/%s not found; call list_collection to see available ids", collection, id)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get item failed: %v", err)), nil
		}
		return mcp.NewToolResultText(itemMarkdown(it.Doc())), nil
	}
}

func makeRelatedHandler(st store.Store, now func() time.Time) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection := req.GetString("collection", "")
		id := req.GetString("id", "")
		if collection == "" || id == "" {
			return mcp.NewToolResultError("collection and id are required"), nil
		}
		limit := req.GetInt("limit", related.DefaultLimit)

		target, err := st.Item(ctx, collection, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get item failed: %v", err)), nil
		}
		pool, err := st.Items(ctx, collection)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list %s failed: %v", collection, err)), nil
		}

		ranked := related.Rank(target, pool, limit, now())
		if len(ranked) == 0 {
			return mcp.NewToolResultText("No other entries in this collection."), nil
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "## Related to %s\n\n", content.Title(target.Doc()))
		for i, r := range ranked {
			fmt.Fprintf(&sb, "%d. `%s` **%s** (score %.2f)\n", i+1, r.Item.ID, content.Title(r.Item.Doc()), r.Score)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeReceiptHandler(r *receipt.Resolver) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := receipt.ParseQuery(req.GetString("query", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res := r.Resolve(ctx, q)
		switch res.State {
		case receipt.StateLoaded:
			view := receipt.Render(res.Record, receipt.RenderOptions{Lang: cfg.Language(), Location: time.Local})
			return mcp.NewToolResultText(view.Markdown()), nil
		case receipt.StateError:
			return mcp.NewToolResultError(res.Message), nil
		default:
			return mcp.NewToolResultText(res.Message), nil
		}
	}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
