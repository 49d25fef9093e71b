package tui

import (
	"context"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"markket/internal/receipt"
)

type receiptModel struct {
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	loading  bool
	result   *receipt.Result
	markdown string
	width    int
	height   int
}

// receiptDoneMsg carries a resolution for the receipt screen opened at gen.
type receiptDoneMsg struct {
	gen    int
	result receipt.Result
}

func newReceiptModel(width, height int) receiptModel {
	ti := textinput.New()
	ti.Placeholder = "Paste a receipt URL, ?session_id=... or ?receipt=..."
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle

	m := receiptModel{input: ti, spinner: sp}
	m.resize(width, height)
	return m
}

func (m *receiptModel) resize(width, height int) {
	m.width = width
	m.height = height

	vpHeight := height - 4
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport = viewport.New(width, vpHeight)
	m.input.Width = max(width-4, 0)

	wrap := width - 2
	if wrap < 20 {
		wrap = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		m.renderer = r
	}
	m.viewport.SetContent(m.renderResult())
}

func resolveReceipt(r *receipt.Resolver, q url.Values, gen int) tea.Cmd {
	return func() tea.Msg {
		return receiptDoneMsg{gen: gen, result: r.Resolve(context.Background(), q)}
	}
}

func (m receiptModel) Update(msg tea.Msg, cfg Config, gen int) (receiptModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case receiptDoneMsg:
		m.loading = false
		res := msg.result
		m.result = &res
		m.markdown = ""
		if res.State == receipt.StateLoaded {
			m.markdown = receipt.Render(res.Record, receipt.RenderOptions{Lang: cfg.Lang, Location: cfg.Location}).Markdown()
		}
		m.viewport.SetContent(m.renderResult())
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			raw := strings.TrimSpace(m.input.Value())
			q, err := receipt.ParseQuery(raw)
			if err != nil {
				m.result = &receipt.Result{State: receipt.StateEmpty, Message: receipt.MsgEmpty}
				m.viewport.SetContent(m.renderResult())
				return m, nil
			}
			resolver := cfg.Receipts
			if resolver == nil {
				resolver = &receipt.Resolver{Logger: cfg.Logger}
			}
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, resolveReceipt(resolver, q, gen))
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m receiptModel) renderResult() string {
	if m.result == nil {
		return dimStyle.Render("Enter a receipt link to view it.")
	}
	if m.result.State != receipt.StateLoaded {
		if m.result.State == receipt.StateError {
			return errorStyle.Render(m.result.Message)
		}
		return warnStyle.Render(m.result.Message)
	}
	if m.renderer == nil {
		return m.markdown
	}
	out, err := m.renderer.Render(m.markdown)
	if err != nil {
		return m.markdown
	}
	return strings.TrimRight(out, "\n")
}

func (m receiptModel) View(width, height int) string {
	status := "ready"
	if m.loading {
		status = m.spinner.View() + " looking up receipt"
	}
	bar := statusBarStyle.Width(m.width).Render(" receipt • " + status + " • Esc back")
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.input.View(),
		m.viewport.View(),
		bar,
	)
}
