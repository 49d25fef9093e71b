package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"

	"markket/internal/checkout"
	"markket/internal/normalize"
)

// CreatePaymentLink asks the backend for a hosted payment link.
func (c *Client) CreatePaymentLink(ctx context.Context, req checkout.Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal payment request: %w", err)
	}
	body, err = sjson.SetBytes(body, "action", "stripe.link")
	if err != nil {
		return "", fmt.Errorf("set action: %w", err)
	}

	doc, err := c.post(ctx, "/api/markket", body, "")
	if err != nil {
		return "", err
	}
	link := normalize.String(doc, "data.link.url", "data.url", "url")
	if link == "" {
		return "", fmt.Errorf("%w: no payment link in response", ErrBadResponse)
	}
	return link, nil
}
