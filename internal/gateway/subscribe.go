package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"markket/internal/checkout"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ValidEmail applies the newsletter form's email check.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

type subscriberRequest struct {
	Data subscriberData `json:"data"`
}

type subscriberData struct {
	Email  string   `json:"Email"`
	Stores []string `json:"stores"`
}

// Subscribe adds email to the store's newsletter. Invalid addresses fail
// locally with a *checkout.FieldError.
func (c *Client) Subscribe(ctx context.Context, email, storeID string) error {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return &checkout.FieldError{Field: "email", Message: "Please enter a valid email address"}
	}

	stores := []string{}
	if storeID != "" {
		stores = append(stores, storeID)
	}
	body, err := json.Marshal(subscriberRequest{Data: subscriberData{Email: email, Stores: stores}})
	if err != nil {
		return fmt.Errorf("marshal subscriber: %w", err)
	}

	if _, err := c.post(ctx, "/api/subscribers", body, "Subscription failed"); err != nil {
		c.logger.Warn("subscription failed", "err", err)
		return err
	}
	c.logger.Info("subscribed", "store", storeID)
	return nil
}
