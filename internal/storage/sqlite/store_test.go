package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logos-rag/backend/internal/llm"
	"github.com/logos-rag/backend/internal/storage/models"
	"github.com/logos-rag/backend/internal/vector/local"
)

// countingEmbedder returns a deterministic vector per text and counts
// how often the embedding service is reached.
type countingEmbedder struct {
	calls int
}

func (e *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	v := make([]float32, 4)
	for i, r := range text {
		v[i%4] += float32(r)
	}
	return v, nil
}

func (e *countingEmbedder) Generate(_ context.Context, _ string, _ llm.GenerateOptions) (string, error) {
	return "", nil
}

func newTestStore(t *testing.T) (*Store, *local.Index, *countingEmbedder) {
	t.Helper()

	idx := local.New()
	emb := &countingEmbedder{}

	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"), 5000, idx, emb)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.InitSchema())
	return store, idx, emb
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAddDocument(t *testing.T) {
	store, idx, emb := newTestStore(t)
	ctx := context.Background()

	path := writeFile(t, "sermon.txt", "For God so loved the world.")

	docID, err := store.AddDocument(ctx, path, []string{"chunk one", "chunk two"})
	require.NoError(t, err)
	assert.Positive(t, docID)
	assert.Equal(t, 2, emb.calls)

	doc, err := store.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "sermon.txt", doc.Filename)
	assert.Equal(t, "txt", doc.FileType)
	assert.Equal(t, 2, doc.ChunkCount)
	assert.Equal(t, "processed", doc.Status)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestAddDocumentDuplicateIsNoOp(t *testing.T) {
	store, idx, emb := newTestStore(t)
	ctx := context.Background()

	path := writeFile(t, "sermon.txt", "For God so loved the world.")

	docID, err := store.AddDocument(ctx, path, []string{"chunk one"})
	require.NoError(t, err)

	// Same content under a different path dedups on the file hash.
	dupPath := writeFile(t, "copy.txt", "For God so loved the world.")
	dupID, err := store.AddDocument(ctx, dupPath, []string{"chunk one"})
	assert.ErrorIs(t, err, ErrDocumentExists)
	assert.Equal(t, docID, dupID)

	assert.Equal(t, 1, emb.calls)
	count, _ := idx.Count(ctx)
	assert.EqualValues(t, 1, count)

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestCrossDocumentChunkDedup(t *testing.T) {
	store, idx, emb := newTestStore(t)
	ctx := context.Background()

	pathA := writeFile(t, "a.txt", "first document")
	_, err := store.AddDocument(ctx, pathA, []string{"shared boilerplate", "unique to a"})
	require.NoError(t, err)

	pathB := writeFile(t, "b.txt", "second document")
	docB, err := store.AddDocument(ctx, pathB, []string{"shared boilerplate", "unique to b"})
	require.NoError(t, err)

	// The shared chunk is stored once, owned by the first writer.
	assert.Equal(t, 3, emb.calls)
	count, _ := idx.Count(ctx)
	assert.EqualValues(t, 3, count)

	doc, err := store.GetDocument(ctx, docB)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.ChunkCount)
}

func TestAddDocumentDedupsWithinBatch(t *testing.T) {
	store, _, emb := newTestStore(t)
	ctx := context.Background()

	path := writeFile(t, "a.txt", "content")
	docID, err := store.AddDocument(ctx, path, []string{"same", "same", "other"})
	require.NoError(t, err)

	assert.Equal(t, 2, emb.calls)
	doc, _ := store.GetDocument(ctx, docID)
	assert.Equal(t, 2, doc.ChunkCount)
}

func TestSearchSimilar(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	path := writeFile(t, "a.txt", "content")
	_, err := store.AddDocument(ctx, path, []string{"God is love", "the law of Moses"})
	require.NoError(t, err)

	results := store.SearchSimilar(ctx, "God is love", 2)
	require.Len(t, results, 2)
	assert.Equal(t, "God is love", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 0.0001)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
	assert.Equal(t, "a.txt", results[0].Metadata.Filename)
}

func TestSearchSimilarFilteredEmptySetSkipsEmbedding(t *testing.T) {
	store, _, emb := newTestStore(t)
	ctx := context.Background()

	path := writeFile(t, "a.txt", "content")
	_, err := store.AddDocument(ctx, path, []string{"God is love"})
	require.NoError(t, err)

	embedsBefore := emb.calls

	results := store.SearchSimilarFiltered(ctx, "anything", 5, []int64{9999})
	assert.Empty(t, results)
	assert.Equal(t, embedsBefore, emb.calls)

	results = store.SearchSimilarFiltered(ctx, "anything", 5, nil)
	assert.Empty(t, results)
	assert.Equal(t, embedsBefore, emb.calls)
}

func TestSearchSimilarFilteredRestrictsToDocuments(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	pathA := writeFile(t, "a.txt", "doc a")
	docA, err := store.AddDocument(ctx, pathA, []string{"God is love"})
	require.NoError(t, err)

	pathB := writeFile(t, "b.txt", "doc b")
	_, err = store.AddDocument(ctx, pathB, []string{"God is light"})
	require.NoError(t, err)

	results := store.SearchSimilarFiltered(ctx, "God is love", 10, []int64{docA})
	require.Len(t, results, 1)
	assert.Equal(t, docA, results[0].Metadata.DocumentID)
}

func TestDocumentText(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	path := writeFile(t, "a.txt", "content")
	docID, err := store.AddDocument(ctx, path, []string{"first chunk", "second chunk"})
	require.NoError(t, err)

	text, err := store.DocumentText(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "first chunk\n\nsecond chunk", text)
}

func TestQueryHistory(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordQuery(ctx, "what is grace", 3, 0.12))
	require.NoError(t, store.RecordQuery(ctx, "who was Moses", 1, 0.07))

	records, err := store.QueryHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Most recent first.
	assert.Equal(t, "who was Moses", records[0].QueryText)
	assert.Equal(t, 1, records[0].ResultsCount)
	assert.NotEmpty(t, records[0].QueryHash)
}

func TestStats(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	pathA := writeFile(t, "a.txt", "doc a content")
	_, err := store.AddDocument(ctx, pathA, []string{"one", "two"})
	require.NoError(t, err)

	pathB := writeFile(t, "b.md", "doc b content!")
	_, err = store.AddDocument(ctx, pathB, []string{"three"})
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.DocumentCount)
	assert.EqualValues(t, 3, stats.ChunkCount)
	assert.EqualValues(t, 3, stats.VectorCount)
	assert.EqualValues(t, 1, stats.FileTypeDistribution["txt"])
	assert.EqualValues(t, 1, stats.FileTypeDistribution["md"])
	assert.Positive(t, stats.TotalFileSize)
}

func TestScriptureEntriesRoundTrip(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	path := writeFile(t, "a.txt", "content")
	docID, err := store.AddDocument(ctx, path, []string{"chunk"})
	require.NoError(t, err)

	entries := []models.ScriptureEntry{
		{Reference: "John 3:16", Normalized: "John 3:16", Snippets: []string{"See John 3:16"}},
		{Reference: "Jn 3:16", Normalized: "John 3:16", Snippets: []string{"See John 3:16"}},
	}
	require.NoError(t, store.ReplaceScriptureEntries(ctx, docID, entries))

	got, err := store.DocumentScriptureEntries(ctx, docID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	hits, err := store.SearchScripture(ctx, "Jn 3:16", "John 3:16")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Len(t, hits[0].Entries, 2)
	assert.Equal(t, "a.txt", hits[0].Filename)

	// Reindexing replaces rather than accumulates.
	require.NoError(t, store.ReplaceScriptureEntries(ctx, docID, entries[:1]))
	got, err = store.DocumentScriptureEntries(ctx, docID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSearchScriptureRawFallbackMatchesNormalized(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	path := writeFile(t, "a.txt", "content")
	docID, err := store.AddDocument(ctx, path, []string{"chunk"})
	require.NoError(t, err)

	require.NoError(t, store.ReplaceScriptureEntries(ctx, docID, []models.ScriptureEntry{
		{Reference: "John 3 16", Normalized: "John 3:16"},
	}))

	// A query that did not normalize still matches stored normalized
	// forms, even when no surface form contains it.
	hits, err := store.SearchScripture(ctx, "3:16", "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Len(t, hits[0].Entries, 1)
	assert.Equal(t, "John 3 16", hits[0].Entries[0].Reference)
}

func TestAddDocumentSurfacesChunkLookupErrors(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `DROP TABLE document_chunks`)
	require.NoError(t, err)

	path := writeFile(t, "a.txt", "content")
	_, err = store.AddDocument(ctx, path, []string{"chunk"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to check chunk hash")
}

func TestCleanupRemovesOrphanChunks(t *testing.T) {
	store, idx, _ := newTestStore(t)
	ctx := context.Background()

	pathA := writeFile(t, "a.txt", "doc a")
	docA, err := store.AddDocument(ctx, pathA, []string{"kept chunk"})
	require.NoError(t, err)

	pathB := writeFile(t, "b.txt", "doc b")
	docB, err := store.AddDocument(ctx, pathB, []string{"orphaned chunk"})
	require.NoError(t, err)

	// Simulate a partial failure that left chunks behind.
	_, err = store.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docB)
	require.NoError(t, err)

	removed, err := store.Cleanup(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	text, err := store.DocumentText(ctx, docA)
	require.NoError(t, err)
	assert.Equal(t, "kept chunk", text)

	// Nothing left to remove on a second pass.
	removed, err = store.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestClearAllKeepsQueryHistory(t *testing.T) {
	store, idx, _ := newTestStore(t)
	ctx := context.Background()

	path := writeFile(t, "a.txt", "content")
	docID, err := store.AddDocument(ctx, path, []string{"chunk one", "chunk two"})
	require.NoError(t, err)

	require.NoError(t, store.ReplaceScriptureEntries(ctx, docID, []models.ScriptureEntry{
		{Reference: "John 3:16", Normalized: "John 3:16"},
	}))
	require.NoError(t, store.ReplaceConceptEntries(ctx, docID, []models.ConceptEntry{
		{Concept: "grace", Frequency: 1},
	}))
	require.NoError(t, store.RecordQuery(ctx, "what is grace", 1, 0.05))

	require.NoError(t, store.ClearAll(ctx))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.DocumentCount)
	assert.Zero(t, stats.ChunkCount)

	refs, err := store.DocumentScriptureEntries(ctx, docID)
	require.NoError(t, err)
	assert.Empty(t, refs)

	conceptEntries, err := store.DocumentConceptEntries(ctx, docID)
	require.NoError(t, err)
	assert.Empty(t, conceptEntries)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	records, err := store.QueryHistory(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSearchConceptsRanking(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	pathA := writeFile(t, "a.txt", "doc a")
	docA, err := store.AddDocument(ctx, pathA, []string{"a"})
	require.NoError(t, err)

	pathB := writeFile(t, "b.txt", "doc b")
	docB, err := store.AddDocument(ctx, pathB, []string{"b"})
	require.NoError(t, err)

	require.NoError(t, store.ReplaceConceptEntries(ctx, docA, []models.ConceptEntry{
		{Concept: "grace", Frequency: 2},
		{Concept: "faith", Frequency: 1},
	}))
	require.NoError(t, store.ReplaceConceptEntries(ctx, docB, []models.ConceptEntry{
		{Concept: "grace", Frequency: 10},
	}))

	hits, err := store.SearchConcepts(ctx, []string{"grace", "faith"}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// docA matches two distinct concepts and ranks first despite the
	// lower combined frequency.
	assert.Equal(t, docA, hits[0].DocumentID)
	assert.Equal(t, 2, hits[0].ConceptMatches)
	assert.Equal(t, 3, hits[0].TotalFrequency)
	assert.Equal(t, docB, hits[1].DocumentID)

	hits, err = store.SearchConcepts(ctx, []string{"faith"}, 2)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
