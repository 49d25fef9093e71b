package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tidwall/gjson"

	"markket/internal/content"
	"markket/internal/store"
)

type storeStatus int

const (
	storeEmpty storeStatus = iota
	storeReady
)

type welcomeModel struct {
	status     storeStatus
	storeName  string
	items      int
	lastSynced time.Time
	err        error
	ready      bool // true once the check has completed
}

// checkStoreMsg is sent after inspecting the local content store.
type checkStoreMsg struct {
	status     storeStatus
	storeName  string
	items      int
	lastSynced time.Time
	err        error
}

func checkStore(cfg Config) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		cols, err := cfg.Store.Collections(ctx)
		if err != nil {
			return checkStoreMsg{err: err}
		}

		msg := checkStoreMsg{status: storeEmpty}
		for _, c := range cols {
			if c.Name == cfg.Collection && c.Items > 0 {
				msg.status = storeReady
				msg.items = c.Items
				msg.lastSynced = c.LastSynced
			}
		}
		if sf, err := storefrontDoc(cfg.Store); err == nil {
			msg.storeName = content.Title(sf)
		}
		return msg
	}
}

func storefrontDoc(s store.Store) (gjson.Result, error) {
	return content.Storefront(context.Background(), s)
}

func (m welcomeModel) Update(msg tea.Msg) (welcomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case checkStoreMsg:
		m.status = msg.status
		m.storeName = msg.storeName
		m.items = msg.items
		m.lastSynced = msg.lastSynced
		m.err = msg.err
		m.ready = true
	}
	return m, nil
}

func (m welcomeModel) View(width, height int) string {
	s := "\n"
	title := "markket"
	if m.storeName != "" {
		title = m.storeName
	}
	s += titleStyle.Render("  ◆ "+title) + "\n"
	s += subtitleStyle.Render("  Storefront content and checkout") + "\n\n"

	if !m.ready {
		s += dimStyle.Render("  Checking content store...") + "\n"
		return s
	}

	switch {
	case m.err != nil:
		s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n"
	case m.status == storeReady:
		s += successStyle.Render(fmt.Sprintf("  ✓ %d products synced", m.items)) + "\n"
		if !m.lastSynced.IsZero() {
			s += dimStyle.Render("    last sync "+m.lastSynced.Local().Format(time.DateTime)) + "\n"
		}
	default:
		s += warnStyle.Render("  ✗ No products synced") + "\n"
	}

	s += "\n"
	if m.status == storeReady {
		s += dimStyle.Render("  Press Enter to browse products") + "\n"
	} else {
		s += dimStyle.Render("  Press Enter to sync from the CMS") + "\n"
	}
	return s
}
