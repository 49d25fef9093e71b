package loader

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"markket/internal/store"
)

// ProgressFunc is called after each collection finishes, from the
// goroutine that loaded it.
type ProgressFunc func(Stats, error)

// Set holds one loader per collection.
type Set struct {
	loaders map[string]*Loader
	order   []string
}

// NewSet builds loaders for every definition.
func NewSet(defs []Definition, f Fetcher, s store.Store, opts Options) *Set {
	set := &Set{loaders: make(map[string]*Loader, len(defs))}
	for _, d := range defs {
		if _, dup := set.loaders[d.Name]; !dup {
			set.order = append(set.order, d.Name)
		}
		set.loaders[d.Name] = New(d.Name, d.Query, f, s, opts)
	}
	return set
}

// Names lists the collections in definition order.
func (s *Set) Names() []string {
	return append([]string(nil), s.order...)
}

// Get returns the loader for a collection.
func (s *Set) Get(name string) (*Loader, bool) {
	l, ok := s.loaders[name]
	return l, ok
}

// SyncAll loads the named collections concurrently, or every collection
// when names is empty. A failing collection does not stop the others; the
// first error is returned after all have finished.
func (s *Set) SyncAll(ctx context.Context, names []string, force bool, onProgress ProgressFunc) ([]Stats, error) {
	if len(names) == 0 {
		names = s.order
	}
	loaders := make([]*Loader, 0, len(names))
	for _, name := range names {
		l, ok := s.loaders[name]
		if !ok {
			return nil, fmt.Errorf("unknown collection %q", name)
		}
		loaders = append(loaders, l)
	}

	results := make([]Stats, len(loaders))
	var g errgroup.Group
	for i, l := range loaders {
		g.Go(func() error {
			var st Stats
			var err error
			if force {
				st, err = l.Refresh(ctx)
			} else {
				st, err = l.Load(ctx)
			}
			results[i] = st
			if onProgress != nil {
				onProgress(st, err)
			}
			return err
		})
	}
	err := g.Wait()

	sort.SliceStable(results, func(i, j int) bool { return results[i].Collection < results[j].Collection })
	return results, err
}
