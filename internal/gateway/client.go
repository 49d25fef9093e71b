// Package gateway calls the storefront's backend: receipt lookup, payment
// links and newsletter subscribers.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"markket/internal/checkout"
	"markket/internal/normalize"
)

var (
	// ErrNetwork wraps transport failures.
	ErrNetwork = errors.New("network error")
	// ErrBadResponse wraps non-2xx statuses and unparseable bodies.
	ErrBadResponse = errors.New("bad response")
)

// GenericMessage is shown for failures without a server-provided message.
const GenericMessage = "Something went wrong. Please try again."

// ResponseError is a non-2xx reply. Message is the server's own text.
type ResponseError struct {
	Status  int
	Message string
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

func (e *ResponseError) Unwrap() error { return ErrBadResponse }

// UserMessage converts an error into text fit for the visitor. Validation
// and server messages pass through; anything else becomes GenericMessage.
func UserMessage(err error) string {
	var fe *checkout.FieldError
	if errors.As(err, &fe) {
		return fe.Message
	}
	var re *ResponseError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	if errors.Is(err, checkout.ErrInFlight) {
		return "Processing..."
	}
	return GenericMessage
}

// Client talks to the storefront API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New creates a client for the API at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
}

// WithLogger replaces the client's logger.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	c.logger = l
	return c
}

// post sends a JSON body and returns the parsed reply. Non-2xx replies
// become *ResponseError carrying the first message found by fallback.
func (c *Client) post(ctx context.Context, path string, body []byte, fallback string) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}

	doc := gjson.ParseBytes(raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := normalize.String(doc, "message", "error.message")
		if msg == "" {
			msg = fallback
		}
		return gjson.Result{}, &ResponseError{Status: resp.StatusCode, Message: msg}
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%w: invalid json from %s", ErrBadResponse, path)
	}
	return doc, nil
}
