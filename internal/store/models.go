package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/tidwall/gjson"
)

// ErrNotFound is returned when an item or collection has no stored value.
var ErrNotFound = errors.New("not found")

// Item is one CMS record held in a collection. Data is the record as the CMS
// returned it; no field inside it is assumed to exist.
type Item struct {
	ID         string
	Collection string
	Data       json.RawMessage
}

// Doc returns the item data ready for path lookups.
func (it Item) Doc() gjson.Result {
	return gjson.ParseBytes(it.Data)
}

// CollectionSummary describes a stored collection.
type CollectionSummary struct {
	Name       string
	Items      int
	LastSynced time.Time
}

// LastSyncedKey is the meta key holding a collection's last successful sync,
// stored as Unix milliseconds.
func LastSyncedKey(collection string) string {
	return "last_synced:" + collection
}
