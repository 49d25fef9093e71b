package tui

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"

	"markket/internal/checkout"
	"markket/internal/gateway"
	"markket/internal/normalize"
	"markket/internal/store"
)

type formFocus int

const (
	focusPrices formFocus = iota
	focusQuantity
	focusTip
)

type checkoutModel struct {
	builder  *checkout.Builder
	prices   []checkout.Price
	cursor   int
	quantity textinput.Model
	tip      textinput.Model
	focus    formFocus
	spinner  spinner.Model
	lang     language.Tag

	submitting bool
	link       string
	message    string
	inputErr   string
}

// submitDoneMsg reports a payment-link result for the form opened at gen.
type submitDoneMsg struct {
	gen  int
	link string
	err  error
}

func newCheckoutModel(it store.Item, storefront gjson.Result, cfg Config) checkoutModel {
	b := checkout.NewBuilder(it.Doc(), storefront).WithLogger(cfg.Logger)
	prices := b.Prices()
	if len(prices) > 0 {
		_ = b.Select(prices[0].ID)
	}

	qty := textinput.New()
	qty.Prompt = ""
	qty.CharLimit = 4
	qty.Width = 6
	qty.SetValue("1")

	tip := textinput.New()
	tip.Prompt = ""
	tip.Placeholder = "0.00"
	tip.CharLimit = 10
	tip.Width = 10

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle

	return checkoutModel{
		builder:  b,
		prices:   prices,
		quantity: qty,
		tip:      tip,
		spinner:  sp,
		lang:     cfg.Lang,
	}
}

func (m checkoutModel) focusCmd() tea.Cmd {
	return textinput.Blink
}

func submit(b *checkout.Builder, linker checkout.PaymentLinker, gen int) tea.Cmd {
	return func() tea.Msg {
		link, err := b.Submit(context.Background(), linker)
		return submitDoneMsg{gen: gen, link: link, err: err}
	}
}

func (m checkoutModel) Update(msg tea.Msg, cfg Config, gen int) (checkoutModel, tea.Cmd) {
	switch msg := msg.(type) {
	case submitDoneMsg:
		m.submitting = false
		if msg.err != nil {
			m.message = gateway.UserMessage(msg.err)
			return m, nil
		}
		m.link = msg.link
		return m, nil

	case spinner.TickMsg:
		if !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch msg.String() {
		case "tab":
			m.setFocus((m.focus + 1) % 3)
			return m, nil
		case "shift+tab":
			m.setFocus((m.focus + 2) % 3)
			return m, nil
		case "up", "down":
			if m.focus == focusPrices && len(m.prices) > 0 {
				if msg.String() == "up" && m.cursor > 0 {
					m.cursor--
				}
				if msg.String() == "down" && m.cursor < len(m.prices)-1 {
					m.cursor++
				}
				_ = m.builder.Select(m.prices[m.cursor].ID)
				return m, nil
			}
		case "enter":
			return m.trySubmit(cfg, gen)
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusQuantity:
		m.quantity, cmd = m.quantity.Update(msg)
	case focusTip:
		m.tip, cmd = m.tip.Update(msg)
	}
	m.apply()
	return m, cmd
}

func (m checkoutModel) trySubmit(cfg Config, gen int) (checkoutModel, tea.Cmd) {
	m.apply()
	m.link = ""
	if m.inputErr != "" {
		return m, nil
	}
	if cfg.Payments == nil {
		m.message = "Checkout is not configured."
		return m, nil
	}
	if err := m.builder.Validate(); err != nil {
		m.message = gateway.UserMessage(err)
		return m, nil
	}
	m.message = ""
	m.submitting = true
	return m, tea.Batch(m.spinner.Tick, submit(m.builder, cfg.Payments, gen))
}

func (m *checkoutModel) setFocus(f formFocus) {
	m.focus = f
	m.quantity.Blur()
	m.tip.Blur()
	switch f {
	case focusQuantity:
		m.quantity.Focus()
	case focusTip:
		m.tip.Focus()
	}
}

// apply parses the inputs into the builder.
func (m *checkoutModel) apply() {
	m.inputErr = ""

	qty, err := parseQuantity(m.quantity.Value())
	if err != nil {
		m.inputErr = "Quantity must be a whole number"
	}
	m.builder.SetQuantity(qty)

	tip, ok := parseMinor(m.tip.Value())
	if !ok {
		m.inputErr = "Tip must be an amount like 5 or 2.50"
	}
	m.builder.SetTip(tip)
}

func parseQuantity(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// parseMinor reads a major-unit amount typed by the visitor into minor
// units. Empty input is zero.
func parseMinor(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(math.Round(f * 100)), true
}

func (m checkoutModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  "+m.builder.Title) + "\n"
	if m.builder.TestMode {
		s += warnStyle.Render("  test mode") + "\n"
	}
	s += "\n"

	if len(m.prices) == 0 {
		s += warnStyle.Render("  This product has no purchasable options.") + "\n"
	}
	for i, p := range m.prices {
		cursor := "  "
		style := listItemStyle
		if i == m.cursor {
			cursor = "▸ "
			style = selectedStyle
		}
		s += fmt.Sprintf("  %s%s\n", cursor, style.Render(p.Label(m.lang)))
	}
	s += "\n"

	s += fmt.Sprintf("  %s %s\n", fieldLabel("Quantity", m.focus == focusQuantity), m.quantity.View())
	s += fmt.Sprintf("  %s %s\n\n", fieldLabel("Tip     ", m.focus == focusTip), m.tip.View())

	q := m.builder.Quote()
	s += "  " + totalStyle.Render("Total "+normalize.FormatMoney(q.Total, q.Currency, m.lang)) + "\n"
	s += dimStyle.Render("  "+m.builder.Hint()) + "\n\n"

	switch {
	case m.submitting:
		s += fmt.Sprintf("  %s %s\n", m.spinner.View(), dimStyle.Render("Processing..."))
	case m.link != "":
		s += successStyle.Render("  ✓ Payment link ready") + "\n"
		s += "  " + linkStyle.Render(m.link) + "\n"
	case m.inputErr != "":
		s += errorStyle.Render("  "+m.inputErr) + "\n"
	case m.message != "":
		s += errorStyle.Render("  "+m.message) + "\n"
	}

	s += "\n"
	s += helpStyle.Render("  Tab switch field • ↑/↓ option • Enter pay • Esc back") + "\n"
	return s
}

func fieldLabel(label string, focused bool) string {
	if focused {
		return selectedStyle.Render(label)
	}
	return listItemStyle.Render(label)
}
