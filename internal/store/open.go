package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OpenDSN opens the backend named by dsn: "memory", a redis:// or rediss://
// URL, or otherwise a SQLite file path (its directory is created).
func OpenDSN(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "memory":
		return NewMemStore(), nil
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return OpenRedis(ctx, dsn, "markket")
	default:
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		return Open(dsn)
	}
}
