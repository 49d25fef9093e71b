package content

import (
	"context"

	"github.com/tidwall/gjson"

	"markket/internal/store"
)

// StoreCollection holds the single record describing this storefront.
const StoreCollection = "store"

// Storefront returns the synced store record, or an empty result when the
// store collection has not been synced.
func Storefront(ctx context.Context, s store.Store) (gjson.Result, error) {
	items, err := s.Items(ctx, StoreCollection)
	if err != nil {
		return gjson.Result{}, err
	}
	if len(items) == 0 {
		return gjson.Result{}, nil
	}
	return items[0].Doc(), nil
}
