// Package web serves the storefront content and checkout flows as JSON.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"markket/internal/checkout"
	"markket/internal/loader"
	"markket/internal/receipt"
	"markket/internal/store"
)

// Syncer refreshes collections on demand.
type Syncer interface {
	SyncAll(ctx context.Context, names []string, force bool, onProgress loader.ProgressFunc) ([]loader.Stats, error)
}

// Subscriber adds newsletter subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, email, storeID string) error
}

// Deps are the collaborators the server calls. Nil optional collaborators
// disable their routes with 503.
type Deps struct {
	Store       store.Store
	Sync        Syncer
	Receipts    *receipt.Resolver
	Payments    checkout.PaymentLinker
	Subscribers Subscriber

	Lang     language.Tag
	Location *time.Location
	Logger   *slog.Logger

	// RateLimit is the per-client request rate. Zero disables limiting.
	RateLimit rate.Limit
	Burst     int
	Now       func() time.Time
}

// Server is the storefront JSON API.
type Server struct {
	deps   Deps
	router *gin.Engine
}

// NewServer creates a server and registers its routes.
func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Lang == language.Und {
		d.Lang = language.AmericanEnglish
	}

	router := gin.New()
	s := &Server{deps: d, router: router}

	router.Use(gin.Recovery(), s.logRequests)
	if d.RateLimit > 0 {
		router.Use(newClientLimiter(d.RateLimit, d.Burst, d.Now).Middleware())
	}

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := router.Group("/api")
	{
		api.GET("/collections", s.handleCollections)
		api.GET("/collections/:collection", s.handleItems)
		api.GET("/collections/:collection/:id", s.handleItem)
		api.GET("/collections/:collection/:id/related", s.handleRelated)
		api.GET("/receipt", s.handleReceipt)
		api.POST("/checkout", s.handleCheckout)
		api.POST("/subscribe", s.handleSubscribe)
		api.POST("/sync", s.handleSync)
	}

	return s
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.deps.Logger.Info("serving storefront api", "addr", addr)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(c *gin.Context) {
	start := s.deps.Now()
	c.Next()
	s.deps.Logger.Debug("request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", s.deps.Now().Sub(start),
	)
}
