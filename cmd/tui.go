package cmd

import (
	"context"
	"io"
	"log/slog"
	"time"

	"markket/internal/receipt"
	"markket/internal/tui"
)

func runTUI(ctx context.Context) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	// The alt screen owns the terminal.
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	tcfg := tui.Config{
		Store:    st,
		Lang:     cfg.Language(),
		Location: time.Local,
		Logger:   logger,
	}
	if set, err := newLoaderSet(st); err == nil {
		tcfg.Sync = set
	} else {
		logger.Debug("sync disabled", "err", err)
	}
	gw := newGateway()
	tcfg.Payments = gw
	tcfg.Receipts = &receipt.Resolver{Lookup: gw, Logger: logger}

	return tui.Run(tcfg)
}
