package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"markket/internal/loader"
)

type syncingModel struct {
	spinner spinner.Model
	phase   string
	done    bool
	stats   []loader.Stats
	err     error
}

func newSyncingModel() syncingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return syncingModel{
		spinner: sp,
		phase:   "Syncing collections...",
	}
}

// syncDoneMsg is sent when every collection has been attempted.
type syncDoneMsg struct {
	stats []loader.Stats
	err   error
}

// syncProgressMsg is sent as each collection finishes.
type syncProgressMsg struct {
	stats loader.Stats
	err   error
}

func runSync(cfg Config) tea.Cmd {
	return func() tea.Msg {
		stats, err := cfg.Sync.SyncAll(context.Background(), nil, false, func(st loader.Stats, err error) {
			if cfg.program != nil && cfg.program.p != nil {
				cfg.program.p.Send(syncProgressMsg{stats: st, err: err})
			}
		})
		return syncDoneMsg{stats: stats, err: err}
	}
}

func (m syncingModel) Update(msg tea.Msg) (syncingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case syncDoneMsg:
		m.done = true
		m.stats = msg.stats
		m.err = msg.err
		return m, nil
	case syncProgressMsg:
		if msg.err != nil {
			m.phase = fmt.Sprintf("%s failed", msg.stats.Collection)
		} else {
			m.phase = fmt.Sprintf("%s: %d items", msg.stats.Collection, msg.stats.Items)
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m syncingModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  Syncing") + "\n\n"

	if m.done {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
		} else {
			s += successStyle.Render("  ✓ Sync complete") + "\n\n"
		}
		for _, st := range m.stats {
			line := fmt.Sprintf("  %-10s %d items", st.Collection, st.Items)
			if st.Skipped {
				line = fmt.Sprintf("  %-10s fresh, skipped", st.Collection)
			}
			if st.Invalid > 0 {
				line += warnStyle.Render(fmt.Sprintf(" (%d failed validation)", st.Invalid))
			}
			s += line + "\n"
		}
		s += "\n"
		s += dimStyle.Render("  Press Enter to browse products") + "\n"
		return s
	}

	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), m.phase)
	return s
}
