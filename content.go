package newsapi

import (
	"context"
	"database/sql"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = sql.ErrNoRows

// Field names of the news content type.
const (
	FieldCategory = "field_news_category"
	FieldImages   = "field_news_images"
)

// ContentReader loads nodes and their field values from the content store.
type ContentReader interface {
	// LoadNodes returns every node of the given type ordered by id.
	LoadNodes(ctx context.Context, nodeType string) ([]Node, error)
	// ReferencedLabels returns the labels of the entities referenced by
	// field, in delta order. References to missing entities are skipped.
	ReferencedLabels(ctx context.Context, nodeID int64, field string) ([]string, error)
	// ImageItems returns the image field values in delta order.
	ImageItems(ctx context.Context, nodeID int64, field string) ([]ImageItem, error)
}

// FileReader resolves managed files.
type FileReader interface {
	// LoadFile returns ErrNotFound when no file has the id.
	LoadFile(ctx context.Context, id int64) (File, error)
	// PublicURL returns the root-relative URL the file is served under.
	PublicURL(f File) string
}

// CountReader reads per-node view counters.
type CountReader interface {
	// ViewCounts returns every count row per node id. Nodes without rows
	// are absent from the map.
	ViewCounts(ctx context.Context, nodeIDs []int64) (map[int64][]int, error)
}

// SettingsStore is a namespaced string key/value configuration backend.
type SettingsStore interface {
	// Get returns "" without error when the key was never set.
	Get(ctx context.Context, namespace, key string) (string, error)
	Set(ctx context.Context, namespace, key, value string) error
}
