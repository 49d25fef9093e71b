package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"markket/internal/cms"
	"markket/internal/config"
	"markket/internal/gateway"
	"markket/internal/loader"
	"markket/internal/store"
)

var (
	flagDB          string
	flagCMS         string
	flagAPI         string
	flagStore       string
	flagCollections string
	flagLocale      string
	flagVerbose     bool
)

var (
	cfg    config.Config
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:           "markket",
	Short:         "Storefront content sync, receipts and checkout",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "content store: sqlite path, redis:// url or \"memory\" (default $MARKKET_DB)")
	rootCmd.PersistentFlags().StringVar(&flagCMS, "cms", "", "CMS base URL (default $PUBLIC_STRAPI_URL)")
	rootCmd.PersistentFlags().StringVar(&flagAPI, "api", "", "storefront API base URL (default: CMS URL)")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "store slug (default $PUBLIC_STORE_SLUG)")
	rootCmd.PersistentFlags().StringVar(&flagCollections, "collections", "", "YAML file overriding collection definitions")
	rootCmd.PersistentFlags().StringVar(&flagLocale, "locale", "", "display locale (default $MARKKET_LOCALE)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

// setup loads the environment, applies flag overrides and installs the
// logger. Flags win over the environment.
func setup() error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	if flagCMS != "" {
		if c.APIURL == c.CMSURL {
			c.APIURL = flagCMS
		}
		c.CMSURL = strings.TrimRight(flagCMS, "/")
	}
	if flagAPI != "" {
		c.APIURL = strings.TrimRight(flagAPI, "/")
	}
	if flagDB != "" {
		c.DB = flagDB
	}
	if flagStore != "" {
		c.StoreSlug = flagStore
	}
	if flagCollections != "" {
		c.Collections = flagCollections
	}
	if flagLocale != "" {
		c.Locale = flagLocale
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	level := cfg.Level()
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.OpenDSN(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open content store: %w", err)
	}
	return st, nil
}

func newCMSClient() *cms.Client {
	return cms.NewClient(cfg.CMSURL, cfg.CMSToken, rate.Limit(cfg.CMSRate)).WithLogger(logger)
}

func newGateway() *gateway.Client {
	return gateway.New(cfg.APIURL).WithLogger(logger)
}

// newLoaderSet builds one loader per collection definition, scoped to the
// configured store.
func newLoaderSet(st store.Store) (*loader.Set, error) {
	if err := cfg.RequireStore(); err != nil {
		return nil, err
	}
	defs := loader.DefaultDefinitions()
	if cfg.Collections != "" {
		var err error
		if defs, err = loader.ReadDefinitions(cfg.Collections); err != nil {
			return nil, err
		}
	}
	client := newCMSClient()
	return loader.NewSet(loader.ForStore(defs, cfg.StoreSlug), client, st, loader.Options{
		Interval: cfg.SyncInterval,
		Schemas:  client,
		Logger:   logger,
	}), nil
}

// renderMarkdown formats markdown for the terminal, falling back to the
// source text.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
