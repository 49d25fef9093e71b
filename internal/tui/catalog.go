package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/language"

	"markket/internal/checkout"
	"markket/internal/content"
	"markket/internal/store"
)

type catalogModel struct {
	collection string
	lang       language.Tag
	items      []store.Item
	cursor     int
	loaded     bool
	err        error
}

// catalogMsg carries the products read from the store.
type catalogMsg struct {
	items []store.Item
	err   error
}

func loadCatalog(cfg Config) tea.Cmd {
	return func() tea.Msg {
		items, err := cfg.Store.Items(context.Background(), cfg.Collection)
		return catalogMsg{items: items, err: err}
	}
}

func (m catalogModel) Update(msg tea.Msg) (catalogModel, tea.Cmd) {
	switch msg := msg.(type) {
	case catalogMsg:
		m.items = msg.items
		m.err = msg.err
		m.loaded = true
		m.cursor = 0

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		}
	}
	return m, nil
}

func (m catalogModel) selected() (store.Item, bool) {
	if !m.loaded || m.cursor >= len(m.items) {
		return store.Item{}, false
	}
	return m.items[m.cursor], true
}

// fromPrice is the cheapest option's label, or "" when nothing is for sale.
func fromPrice(it store.Item, lang language.Tag) string {
	prices := checkout.Prices(it.Doc())
	if len(prices) == 0 {
		return ""
	}
	low := prices[0]
	for _, p := range prices[1:] {
		if p.Amount < low.Amount {
			low = p
		}
	}
	return "from " + low.Label(lang)
}

func (m catalogModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  Products") + "\n\n"

	if !m.loaded {
		s += dimStyle.Render("  Loading "+m.collection+"...") + "\n"
		return s
	}
	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n"
		return s
	}
	if len(m.items) == 0 {
		s += warnStyle.Render("  No products synced yet.") + "\n"
		s += dimStyle.Render("  Press s to sync from the CMS.") + "\n"
		return s
	}

	for i, it := range m.items {
		cursor := "  "
		style := listItemStyle
		if i == m.cursor {
			cursor = "▸ "
			style = selectedStyle
		}
		line := style.Render(content.Title(it.Doc()))
		if price := fromPrice(it, m.lang); price != "" {
			line += " " + dimStyle.Render(price)
		}
		s += fmt.Sprintf("  %s%s\n", cursor, line)
	}
	s += "\n"
	s += helpStyle.Render("  ↑/↓ navigate • Enter checkout • r receipt • s sync • q quit") + "\n"
	return s
}
