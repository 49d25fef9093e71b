// Package loader keeps local copies of CMS collections fresh.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"markket/internal/cms"
	"markket/internal/store"
)

// DefaultInterval is the minimum time between two fetches of a collection.
const DefaultInterval = 6 * time.Second

// Fetcher returns the full item set for a query.
type Fetcher interface {
	Fetch(ctx context.Context, q cms.Query) ([]store.Item, error)
}

// SchemaSource describes a content type as Strapi attributes.
type SchemaSource interface {
	Schema(ctx context.Context, contentType string) ([]byte, error)
}

// Options tune a Loader. Zero values select the defaults.
type Options struct {
	Interval time.Duration
	Schemas  SchemaSource
	Logger   *slog.Logger
	Now      func() time.Time
}

// Stats reports one load.
type Stats struct {
	Collection string
	Skipped    bool
	Items      int
	Invalid    int
	Duration   time.Duration
}

// Loader syncs one collection. Loads of the same Loader never interleave.
type Loader struct {
	Name  string
	Query cms.Query

	fetcher  Fetcher
	store    store.Store
	schemas  SchemaSource
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	validator *cms.Validator
}

// New creates a loader for one collection.
func New(name string, q cms.Query, f Fetcher, s store.Store, opts Options) *Loader {
	l := &Loader{
		Name:     name,
		Query:    q,
		fetcher:  f,
		store:    s,
		schemas:  opts.Schemas,
		interval: opts.Interval,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if l.interval <= 0 {
		l.interval = DefaultInterval
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.now == nil {
		l.now = time.Now
	}
	l.logger = l.logger.With("collection", name)
	return l
}

// Load fetches and replaces the collection unless it was synced less than
// the interval ago.
func (l *Loader) Load(ctx context.Context) (Stats, error) {
	return l.load(ctx, false)
}

// Refresh fetches and replaces the collection regardless of the interval.
func (l *Loader) Refresh(ctx context.Context) (Stats, error) {
	return l.load(ctx, true)
}

func (l *Loader) load(ctx context.Context, force bool) (Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := l.now()
	stats := Stats{Collection: l.Name}
	key := store.LastSyncedKey(l.Name)

	if !force {
		last, err := l.store.GetMeta(ctx, key)
		if err != nil {
			return stats, fmt.Errorf("read last sync of %s: %w", l.Name, err)
		}
		if ms, err := strconv.ParseInt(last, 10, 64); err == nil && start.Sub(time.UnixMilli(ms)) < l.interval {
			l.logger.Debug("collection fresh, skipping fetch", "last_synced", time.UnixMilli(ms))
			stats.Skipped = true
			return stats, nil
		}
	}

	items, err := l.fetcher.Fetch(ctx, l.Query)
	if err != nil {
		return stats, fmt.Errorf("fetch %s: %w", l.Name, err)
	}
	stats.Items = len(items)
	stats.Invalid = l.validate(ctx, items)

	if err := l.store.ReplaceCollection(ctx, l.Name, items); err != nil {
		return stats, fmt.Errorf("replace %s: %w", l.Name, err)
	}
	if err := l.store.SetMeta(ctx, key, strconv.FormatInt(start.UnixMilli(), 10)); err != nil {
		return stats, fmt.Errorf("stamp %s: %w", l.Name, err)
	}

	stats.Duration = l.now().Sub(start)
	l.logger.Info("collection synced", "items", stats.Items, "invalid", stats.Invalid, "duration", stats.Duration)
	return stats, nil
}

// validate checks items against the content-type schema and returns how
// many failed. Schema problems are logged; they never block the load.
func (l *Loader) validate(ctx context.Context, items []store.Item) int {
	if l.schemas == nil {
		return 0
	}
	if l.validator == nil {
		v, err := l.compileSchema(ctx)
		if err != nil {
			l.logger.Warn("schema unavailable", "err", err)
			return 0
		}
		l.validator = v
	}

	invalid := 0
	for _, it := range items {
		if err := l.validator.Validate(it.Data); err != nil {
			invalid++
			l.logger.Warn("item does not match schema", "id", it.ID, "err", err)
		}
	}
	return invalid
}

func (l *Loader) compileSchema(ctx context.Context) (*cms.Validator, error) {
	attrs, err := l.schemas.Schema(ctx, l.Query.ContentType)
	if err != nil {
		return nil, err
	}
	doc, err := cms.JSONSchema(attrs)
	if err != nil {
		return nil, err
	}
	v, err := cms.CompileSchema(l.Name, doc)
	if err != nil {
		return nil, err
	}
	if err := l.store.PutSchema(ctx, l.Name, doc); err != nil {
		l.logger.Warn("store schema", "err", err)
	}
	return v, nil
}
