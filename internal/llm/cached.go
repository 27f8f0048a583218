package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/logos-rag/backend/internal/metrics"
	"github.com/logos-rag/backend/pkg/hashutil"
	"github.com/logos-rag/backend/pkg/logger"
)

// EmbeddingCache stores embeddings keyed by the hash of their text.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// CachedProvider wraps a Provider with an embedding cache. Generation
// is never cached; only Embed is intercepted. Cache errors degrade to
// misses.
type CachedProvider struct {
	Provider
	cache EmbeddingCache
	ttl   time.Duration
}

func NewCachedProvider(p Provider, cache EmbeddingCache, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedProvider{Provider: p, cache: cache, ttl: ttl}
}

func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := hashutil.Text(text)

	if embedding, ok, err := c.cache.GetEmbedding(ctx, key); err == nil && ok {
		metrics.CacheHits.WithLabelValues("embedding").Inc()
		return embedding, nil
	}
	metrics.CacheMisses.WithLabelValues("embedding").Inc()

	embedding, err := c.Provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetEmbedding(ctx, key, embedding, c.ttl); err != nil {
		logger.Warn("Failed to cache embedding", zap.Error(err))
	}

	return embedding, nil
}
