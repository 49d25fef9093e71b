package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Each collection is a hash of
// id -> JSON plus a list holding the sync order. Replacement writes both
// under staging keys and renames them onto the live keys in one MULTI/EXEC.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// OpenRedis connects using a redis:// URL. Keys are namespaced by prefix.
func OpenRedis(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(rdb, prefix), nil
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "markket"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) itemsKey(collection string) string { return s.prefix + ":items:" + collection }
func (s *RedisStore) orderKey(collection string) string { return s.prefix + ":order:" + collection }
func (s *RedisStore) collectionsKey() string            { return s.prefix + ":collections" }
func (s *RedisStore) metaKey() string                   { return s.prefix + ":meta" }
func (s *RedisStore) schemasKey() string                { return s.prefix + ":schemas" }

// Items reads the order list and the hash in one MULTI/EXEC so a concurrent
// ReplaceCollection cannot land between the two reads.
func (s *RedisStore) Items(ctx context.Context, collection string) ([]Item, error) {
	var (
		order *redis.StringSliceCmd
		all   *redis.MapStringStringCmd
	)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		order = pipe.LRange(ctx, s.orderKey(collection), 0, -1)
		all = pipe.HGetAll(ctx, s.itemsKey(collection))
		return nil
	})
	if err != nil {
		return nil, err
	}
	ids, data := order.Val(), all.Val()
	if len(ids) == 0 {
		return nil, nil
	}
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		v, ok := data[id]
		if !ok {
			continue
		}
		items = append(items, Item{ID: id, Collection: collection, Data: []byte(v)})
	}
	return items, nil
}

func (s *RedisStore) Item(ctx context.Context, collection, id string) (Item, error) {
	data, err := s.rdb.HGet(ctx, s.itemsKey(collection), id).Result()
	if errors.Is(err, redis.Nil) {
		return Item{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return Item{}, err
	}
	return Item{ID: id, Collection: collection, Data: []byte(data)}, nil
}

func (s *RedisStore) ReplaceCollection(ctx context.Context, collection string, items []Item) error {
	stage := s.prefix + ":staging:" + uuid.NewString()
	stageItems, stageOrder := stage+":items", stage+":order"

	if len(items) > 0 {
		_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			fields := make([]any, 0, len(items)*2)
			order := make([]any, 0, len(items))
			seen := make(map[string]bool, len(items))
			for _, it := range items {
				if seen[it.ID] {
					continue
				}
				seen[it.ID] = true
				fields = append(fields, it.ID, string(it.Data))
				order = append(order, it.ID)
			}
			pipe.HSet(ctx, stageItems, fields...)
			pipe.RPush(ctx, stageOrder, order...)
			return nil
		})
		if err != nil {
			s.rdb.Del(ctx, stageItems, stageOrder)
			return fmt.Errorf("stage %s: %w", collection, err)
		}
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(items) == 0 {
			pipe.Del(ctx, s.itemsKey(collection), s.orderKey(collection))
		} else {
			pipe.Rename(ctx, stageItems, s.itemsKey(collection))
			pipe.Rename(ctx, stageOrder, s.orderKey(collection))
		}
		pipe.SAdd(ctx, s.collectionsKey(), collection)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", collection, err)
	}
	return nil
}

func (s *RedisStore) Collections(ctx context.Context) ([]CollectionSummary, error) {
	names, err := s.rdb.SMembers(ctx, s.collectionsKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]CollectionSummary, 0, len(names))
	for _, name := range names {
		n, err := s.rdb.LLen(ctx, s.orderKey(name)).Result()
		if err != nil {
			return nil, err
		}
		stamp, err := s.GetMeta(ctx, LastSyncedKey(name))
		if err != nil {
			return nil, err
		}
		out = append(out, CollectionSummary{Name: name, Items: int(n), LastSynced: parseMillis(stamp)})
	}
	return out, nil
}

func (s *RedisStore) GetMeta(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.HGet(ctx, s.metaKey(), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *RedisStore) SetMeta(ctx context.Context, key, value string) error {
	return s.rdb.HSet(ctx, s.metaKey(), key, value).Err()
}

func (s *RedisStore) PutSchema(ctx context.Context, collection string, schema []byte) error {
	return s.rdb.HSet(ctx, s.schemasKey(), collection, string(schema)).Err()
}

func (s *RedisStore) Schema(ctx context.Context, collection string) ([]byte, error) {
	v, err := s.rdb.HGet(ctx, s.schemasKey(), collection).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("schema %s: %w", collection, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
