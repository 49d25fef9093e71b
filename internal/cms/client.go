// Package cms talks to a Strapi-shaped headless CMS.
package cms

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"markket/internal/store"
)

const pageSize = 100

// Query describes one collection request.
type Query struct {
	ContentType string `yaml:"content_type"`
	// Filter is a raw query fragment such as "filters[slug][$eq]=shop".
	Filter   string   `yaml:"filter"`
	Populate []string `yaml:"populate"`
	Sort     string   `yaml:"sort"`
	// Limit caps the result size. Zero pages through the whole collection.
	Limit int `yaml:"limit"`
}

// Client fetches collections and content-type schemas from the CMS.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a client targeting the given CMS. A zero limit disables
// request throttling.
func NewClient(baseURL, token string, limit rate.Limit) *Client {
	if limit == 0 {
		limit = rate.Inf
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(limit, 4),
		logger:  slog.Default(),
	}
}

// WithLogger replaces the client's logger.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	c.logger = l
	return c
}

// Plural returns the REST collection name for a content type.
func Plural(contentType string) string {
	switch {
	case strings.HasSuffix(contentType, "s"):
		return contentType
	case strings.HasSuffix(contentType, "y") && !strings.HasSuffix(contentType, "ey"):
		return strings.TrimSuffix(contentType, "y") + "ies"
	default:
		return contentType + "s"
	}
}

// URL builds the request URL for a query. page is ignored when the query
// carries a limit.
func (c *Client) URL(q Query, page int) string {
	params := url.Values{}
	if len(q.Populate) > 0 {
		params.Set("populate", strings.Join(q.Populate, ","))
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.Limit > 0 {
		params.Set("pagination[limit]", strconv.Itoa(q.Limit))
	} else {
		params.Set("pagination[page]", strconv.Itoa(page))
		params.Set("pagination[pageSize]", strconv.Itoa(pageSize))
	}

	raw := params.Encode()
	if q.Filter != "" {
		raw = q.Filter + "&" + raw
	}
	return c.baseURL + "/api/" + Plural(q.ContentType) + "?" + raw
}

// Fetch returns every record of the query, flattened and keyed by
// documentId (falling back to id). Records without either are dropped.
func (c *Client) Fetch(ctx context.Context, q Query) ([]store.Item, error) {
	var items []store.Item
	seen := make(map[string]bool)

	for page := 1; ; page++ {
		body, err := c.get(ctx, c.URL(q, page))
		if err != nil {
			return nil, err
		}
		doc := gjson.ParseBytes(body)
		data := doc.Get("data")

		var records []gjson.Result
		switch {
		case data.IsArray():
			records = data.Array()
		case data.IsObject():
			records = []gjson.Result{data}
		}

		for _, rec := range records {
			flat := Flatten(rec)
			id := recordID(gjson.ParseBytes(flat))
			if id == "" {
				c.logger.Warn("cms record without id", "content_type", q.ContentType)
				continue
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			items = append(items, store.Item{ID: id, Data: flat})
		}

		if q.Limit > 0 || !data.IsArray() {
			break
		}
		if page >= int(doc.Get("meta.pagination.pageCount").Int()) {
			break
		}
	}
	return items, nil
}

func recordID(doc gjson.Result) string {
	for _, path := range []string{"documentId", "id"} {
		if v := doc.Get(path); v.Exists() && v.Type != gjson.Null && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build cms request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read cms response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cms returned %d: %s", resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("cms returned invalid json")
	}
	return body, nil
}
