package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	embedCalls int
}

func (s *stubProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	s.embedCalls++
	return []float32{1, 2, 3}, nil
}

func (s *stubProvider) Generate(_ context.Context, _ string, _ GenerateOptions) (string, error) {
	return "answer", nil
}

type stubCache struct {
	data   map[string][]float32
	getErr error
}

func newStubCache() *stubCache {
	return &stubCache{data: make(map[string][]float32)}
}

func (s *stubCache) GetEmbedding(_ context.Context, textHash string) ([]float32, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	embedding, ok := s.data[textHash]
	return embedding, ok, nil
}

func (s *stubCache) SetEmbedding(_ context.Context, textHash string, embedding []float32, _ time.Duration) error {
	s.data[textHash] = embedding
	return nil
}

func TestCachedProviderEmbedsOncePerText(t *testing.T) {
	provider := &stubProvider{}
	cached := NewCachedProvider(provider, newStubCache(), time.Minute)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "God is love")
	require.NoError(t, err)

	second, err := cached.Embed(ctx, "God is love")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.embedCalls)

	_, err = cached.Embed(ctx, "different text")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.embedCalls)
}

func TestCachedProviderDegradesOnCacheError(t *testing.T) {
	provider := &stubProvider{}
	cache := newStubCache()
	cache.getErr = errors.New("redis down")
	cached := NewCachedProvider(provider, cache, time.Minute)

	embedding, err := cached.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, embedding)
	assert.Equal(t, 1, provider.embedCalls)
}

func TestCachedProviderPassesGenerateThrough(t *testing.T) {
	cached := NewCachedProvider(&stubProvider{}, newStubCache(), time.Minute)

	answer, err := cached.Generate(context.Background(), "prompt", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "answer", answer)
}
