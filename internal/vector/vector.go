// Package vector defines the boundary contract to the external
// nearest-neighbor similarity backend. Distances are cosine distances
// (1 - cosine similarity); callers convert back to similarity.
package vector

import (
	"context"

	"github.com/logos-rag/backend/internal/storage/models"
)

// Entry is one vector plus its chunk content and denormalized metadata.
type Entry struct {
	Key      string
	Vector   []float32
	Content  string
	Metadata models.ChunkMetadata
}

// Match is one ranked result from a similarity query, ordered by
// ascending distance.
type Match struct {
	Key      string
	Distance float32
	Content  string
	Metadata models.ChunkMetadata
}

// Index is the vector-index adapter. Query with a non-nil allowedKeys
// restricts candidates to those keys; nil means the whole index. Ties
// are broken by the backend's native order.
type Index interface {
	Upsert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, vec []float32, k int, allowedKeys []string) ([]Match, error)
	Delete(ctx context.Context, keys []string) error
	Count(ctx context.Context) (int64, error)
}
