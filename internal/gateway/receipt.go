package gateway

import (
	"context"
	"encoding/json"
	"fmt"
)

type receiptRequest struct {
	Action    string `json:"action"`
	SessionID string `json:"session_id"`
}

// LookupReceipt fetches the order payload for a checkout session. The
// payload is read from data.link.response, else data. A reply without
// either returns nil and no error.
func (c *Client) LookupReceipt(ctx context.Context, sessionID string) ([]byte, error) {
	body, err := json.Marshal(receiptRequest{Action: "stripe.receipt", SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("marshal receipt request: %w", err)
	}

	doc, err := c.post(ctx, "/api/markket", body, "")
	if err != nil {
		c.logger.Error("receipt lookup failed", "session", sessionID, "err", err)
		return nil, err
	}

	for _, path := range []string{"data.link.response", "data"} {
		if r := doc.Get(path); r.IsObject() {
			return []byte(r.Raw), nil
		}
	}
	return nil, nil
}
