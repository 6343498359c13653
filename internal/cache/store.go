// Package cache persists fetched posts locally. Every backend keeps the first
// version of a post it sees and ignores later copies with the same id.
package cache

import (
	"context"
	"fmt"

	"github.com/tOgg1/nostrfeed/internal/models"
)

// Store is a persistent, deduplicating post cache.
type Store interface {
	// Load returns every cached post. A missing cache is empty; a corrupt
	// cache is logged and treated as empty.
	Load(ctx context.Context) ([]models.Post, error)
	// MergeAndSave adds posts whose ids are not cached yet and persists the
	// result, returning how many were added.
	MergeAndSave(ctx context.Context, posts []models.Post) (int, error)
	// IsEmpty reports whether the cache holds no posts.
	IsEmpty(ctx context.Context) (bool, error)
	Close() error
}

// Open returns the store for backend at path.
func Open(ctx context.Context, backend, path string) (Store, error) {
	switch backend {
	case "", "json":
		return NewFileStore(path), nil
	case "sqlite":
		return OpenSQLite(ctx, path)
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", models.ErrConfigMissing, backend)
	}
}

// merge appends incoming posts whose ids are not in existing, in order.
func merge(existing, incoming []models.Post) ([]models.Post, int) {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, p := range existing {
		seen[p.ID] = struct{}{}
	}
	out := existing
	added := 0
	for _, p := range incoming {
		if p.ID == "" {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
		added++
	}
	return out, added
}
