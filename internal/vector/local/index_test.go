package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logos-rag/backend/internal/vector"
)

func entry(key string, vec ...float32) vector.Entry {
	return vector.Entry{Key: key, Vector: vec, Content: "content " + key}
}

func TestQueryRanksByCosineDistance(t *testing.T) {
	ix := New()
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, []vector.Entry{
		entry("a", 1, 0),
		entry("b", 0, 1),
		entry("c", 1, 0.1),
	}))

	matches, err := ix.Query(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "a", matches[0].Key)
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)
	assert.Equal(t, "c", matches[1].Key)
	assert.Less(t, matches[0].Distance, matches[1].Distance)
}

func TestQueryTiesBreakByInsertionOrder(t *testing.T) {
	ix := New()
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, []vector.Entry{
		entry("second", 2, 0),
		entry("first", 1, 0),
	}))

	matches, err := ix.Query(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "second", matches[0].Key)
	assert.Equal(t, "first", matches[1].Key)
}

func TestQueryAllowedKeys(t *testing.T) {
	ix := New()
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, []vector.Entry{
		entry("a", 1, 0),
		entry("b", 1, 0),
	}))

	matches, err := ix.Query(ctx, []float32{1, 0}, 5, []string{"b"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].Key)

	// An empty (non-nil) allow list matches nothing.
	matches, err = ix.Query(ctx, []float32{1, 0}, 5, []string{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestUpsertReplaces(t *testing.T) {
	ix := New()
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, []vector.Entry{entry("a", 1, 0)}))
	require.NoError(t, ix.Upsert(ctx, []vector.Entry{entry("a", 0, 1)}))

	count, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	matches, err := ix.Query(ctx, []float32{0, 1}, 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)
}

func TestDelete(t *testing.T) {
	ix := New()
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, []vector.Entry{entry("a", 1, 0), entry("b", 0, 1)}))
	require.NoError(t, ix.Delete(ctx, []string{"a", "missing"}))

	count, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestUpsertValidation(t *testing.T) {
	ix := New()
	ctx := context.Background()

	assert.Error(t, ix.Upsert(ctx, []vector.Entry{{Key: "", Vector: []float32{1}}}))
	assert.Error(t, ix.Upsert(ctx, []vector.Entry{{Key: "a"}}))
}
