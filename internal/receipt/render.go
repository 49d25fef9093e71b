package receipt

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"markket/internal/normalize"
)

// RenderOptions controls locale-dependent formatting.
type RenderOptions struct {
	Lang     language.Tag
	Location *time.Location
}

// ItemRow is one rendered line item.
type ItemRow struct {
	Title     string `json:"title"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// View is the display model of a receipt. Every field is ready to print.
type View struct {
	OrderID  string    `json:"order_id"`
	Date     string    `json:"date"`
	BilledTo string    `json:"billed_to"`
	Shipping []string  `json:"shipping"`
	Items    []ItemRow `json:"items"`
	Subtotal string    `json:"subtotal"`
	Total    string    `json:"total"`
}

// Render formats a normalized receipt.
func Render(rec normalize.Receipt, opts RenderOptions) View {
	if opts.Lang == language.Und {
		opts.Lang = language.AmericanEnglish
	}
	money := func(minor int64) string {
		return normalize.FormatMoney(minor, rec.Currency, opts.Lang)
	}

	v := View{
		OrderID:  orPlaceholder(rec.OrderID),
		Date:     normalize.FormatDate(rec.Created, opts.Location),
		BilledTo: billedTo(rec.CustomerName, rec.CustomerEmail),
		Shipping: []string{normalize.Placeholder},
		Items:    make([]ItemRow, 0, len(rec.Items)),
		Subtotal: money(rec.Subtotal),
		Total:    money(rec.Total),
	}
	if rec.Shipping != nil {
		if lines := rec.Shipping.Lines(); len(lines) > 0 {
			v.Shipping = lines
		}
	}
	for _, it := range rec.Items {
		v.Items = append(v.Items, ItemRow{Title: it.Title, Quantity: it.Quantity, UnitPrice: money(it.UnitAmount)})
	}
	return v
}

func billedTo(name, email string) string {
	switch {
	case name != "" && email != "":
		return name + " <" + email + ">"
	case name != "":
		return name
	case email != "":
		return email
	}
	return normalize.Placeholder
}

func orPlaceholder(s string) string {
	if s == "" {
		return normalize.Placeholder
	}
	return s
}

var mdEscaper = strings.NewReplacer(`\`, `\\`, "<", `\<`, ">", `\>`, "|", `\|`)

// Markdown renders the printable receipt.
func (v View) Markdown() string {
	var sb strings.Builder
	esc := mdEscaper.Replace

	sb.WriteString("# Order receipt\n\n")
	fmt.Fprintf(&sb, "- **Order:** #%s\n", esc(v.OrderID))
	fmt.Fprintf(&sb, "- **Date:** %s\n", esc(v.Date))
	fmt.Fprintf(&sb, "- **Billed to:** %s\n", esc(v.BilledTo))

	sb.WriteString("\n## Shipping\n\n")
	for _, line := range v.Shipping {
		fmt.Fprintf(&sb, "- %s\n", esc(line))
	}

	sb.WriteString("\n## Items\n\n")
	if len(v.Items) == 0 {
		sb.WriteString("No line items.\n")
	} else {
		sb.WriteString("| Item | Qty | Unit price |\n| --- | ---: | ---: |\n")
		for _, it := range v.Items {
			fmt.Fprintf(&sb, "| %s | %d | %s |\n", esc(it.Title), it.Quantity, esc(it.UnitPrice))
		}
	}

	sb.WriteString("\n## Totals\n\n")
	fmt.Fprintf(&sb, "- **Subtotal:** %s\n", esc(v.Subtotal))
	fmt.Fprintf(&sb, "- **Total:** %s\n", esc(v.Total))
	return sb.String()
}
