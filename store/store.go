// Package store provides the persistence boundary for quality metrics and
// validation history. The engine treats the store as optional: a nil store
// degrades every caller to in-memory-only behavior without failing calls.
package store

import (
	"context"
	"time"
)

// Store persists metric documents and append-only history lists. Keys follow
// the "quality_metrics:<content_type>" pattern for validation metrics.
type Store interface {
	// StoreMetrics upserts a metric document under key with an expiry.
	// A non-positive ttl stores the document without expiry.
	StoreMetrics(ctx context.Context, key string, value map[string]any, ttl time.Duration) error

	// AddToList appends a document to the named list.
	AddToList(ctx context.Context, key string, value map[string]any) error

	// GetList returns the documents appended to the named list in order.
	GetList(ctx context.Context, key string) ([]map[string]any, error)
}
