package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"markket/internal/checkout"
	"markket/internal/content"
	"markket/internal/gateway"
	"markket/internal/normalize"
	"markket/internal/receipt"
	"markket/internal/related"
	"markket/internal/store"
)

type itemSummary struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (s *Server) handleCollections(c *gin.Context) {
	cols, err := s.deps.Store.Collections(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	out := make([]gin.H, 0, len(cols))
	for _, col := range cols {
		entry := gin.H{"name": col.Name, "items": col.Items}
		if !col.LastSynced.IsZero() {
			entry["last_synced"] = col.LastSynced.UTC()
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"collections": out})
}

func (s *Server) handleItems(c *gin.Context) {
	items, err := s.deps.Store.Items(c.Request.Context(), c.Param("collection"))
	if err != nil {
		s.internalError(c, err)
		return
	}
	full := c.Query("full") == "true"
	out := make([]itemSummary, 0, len(items))
	for _, it := range items {
		sum := itemSummary{ID: it.ID, Title: content.Title(it.Doc())}
		if full {
			sum.Data = it.Data
		}
		out = append(out, sum)
	}
	c.JSON(http.StatusOK, gin.H{"collection": c.Param("collection"), "count": len(out), "items": out})
}

func (s *Server) handleItem(c *gin.Context) {
	it, ok := s.lookupItem(c)
	if !ok {
		return
	}
	doc := it.Doc()
	c.JSON(http.StatusOK, gin.H{
		"id":       it.ID,
		"title":    content.Title(doc),
		"excerpt":  content.Excerpt(doc),
		"image":    content.Image(doc),
		"tags":     content.Tags(doc),
		"markdown": content.Markdown(doc.Get("Content")),
		"data":     it.Data,
	})
}

func (s *Server) handleRelated(c *gin.Context) {
	target, ok := s.lookupItem(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(related.DefaultLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	pool, err := s.deps.Store.Items(c.Request.Context(), target.Collection)
	if err != nil {
		s.internalError(c, err)
		return
	}

	ranked := related.Rank(target, pool, limit, s.deps.Now())
	out := make([]gin.H, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, gin.H{"id": r.Item.ID, "title": content.Title(r.Item.Doc()), "score": r.Score})
	}
	c.JSON(http.StatusOK, gin.H{"related": out})
}

func (s *Server) lookupItem(c *gin.Context) (store.Item, bool) {
	it, err := s.deps.Store.Item(c.Request.Context(), c.Param("collection"), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return store.Item{}, false
	}
	if err != nil {
		s.internalError(c, err)
		return store.Item{}, false
	}
	return it, true
}

func (s *Server) handleReceipt(c *gin.Context) {
	if s.deps.Receipts == nil {
		s.unavailable(c, "receipts")
		return
	}
	res := s.deps.Receipts.Resolve(c.Request.Context(), c.Request.URL.Query())
	body := gin.H{"state": res.State.String()}
	switch res.State {
	case receipt.StateLoaded:
		body["source"] = res.Source
		body["receipt"] = receipt.Render(res.Record, receipt.RenderOptions{Lang: s.deps.Lang, Location: s.deps.Location})
	default:
		body["message"] = res.Message
	}
	c.JSON(http.StatusOK, body)
}

type checkoutBody struct {
	Collection string `json:"collection"`
	ProductID  string `json:"product_id" binding:"required"`
	PriceID    string `json:"price_id"`
	Quantity   *int64 `json:"quantity"`
	Tip        int64  `json:"tip"`
}

func (s *Server) handleCheckout(c *gin.Context) {
	if s.deps.Payments == nil {
		s.unavailable(c, "checkout")
		return
	}
	var body checkoutBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if body.Collection == "" {
		body.Collection = "products"
	}

	ctx := c.Request.Context()
	product, err := s.deps.Store.Item(ctx, body.Collection, body.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	storefront, err := content.Storefront(ctx, s.deps.Store)
	if err != nil {
		s.internalError(c, err)
		return
	}

	b := checkout.NewBuilder(product.Doc(), storefront).WithLogger(s.deps.Logger)
	if err := b.Select(body.PriceID); err != nil {
		s.validationError(c, err)
		return
	}
	if body.Quantity != nil {
		b.SetQuantity(*body.Quantity)
	}
	b.SetTip(body.Tip)

	link, err := b.Submit(ctx, s.deps.Payments)
	if err != nil {
		var fe *checkout.FieldError
		if errors.As(err, &fe) {
			s.validationError(c, err)
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": gateway.UserMessage(err)})
		return
	}
	q := b.Quote()
	c.JSON(http.StatusOK, gin.H{
		"url":   link,
		"total": q.Total,
		"label": normalize.FormatMoney(q.Total, q.Currency, s.deps.Lang),
	})
}

type subscribeBody struct {
	Email string `json:"email"`
}

func (s *Server) handleSubscribe(c *gin.Context) {
	if s.deps.Subscribers == nil {
		s.unavailable(c, "subscriptions")
		return
	}
	var body subscribeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	storefront, err := content.Storefront(ctx, s.deps.Store)
	if err != nil {
		s.internalError(c, err)
		return
	}
	err = s.deps.Subscribers.Subscribe(ctx, body.Email, normalize.String(storefront, "documentId"))
	if err != nil {
		var fe *checkout.FieldError
		if errors.As(err, &fe) {
			s.validationError(c, err)
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": gateway.UserMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribed": true})
}

type syncBody struct {
	Collections []string `json:"collections"`
	Force       bool     `json:"force"`
}

func (s *Server) handleSync(c *gin.Context) {
	if s.deps.Sync == nil {
		s.unavailable(c, "sync")
		return
	}
	var body syncBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	stats, err := s.deps.Sync.SyncAll(c.Request.Context(), body.Collections, body.Force, nil)
	out := make([]gin.H, 0, len(stats))
	for _, st := range stats {
		out = append(out, gin.H{"collection": st.Collection, "skipped": st.Skipped, "items": st.Items, "invalid": st.Invalid})
	}
	if err != nil {
		s.deps.Logger.Error("sync failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": gateway.GenericMessage, "stats": out})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": out})
}

func (s *Server) validationError(c *gin.Context, err error) {
	var fe *checkout.FieldError
	if errors.As(err, &fe) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"field": fe.Field, "error": fe.Message})
		return
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.deps.Logger.Error("request failed", "path", c.FullPath(), "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": gateway.GenericMessage})
}

func (s *Server) unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " not configured"})
}
