package scripture

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logos-rag/backend/internal/storage/models"
)

type stubStorage struct {
	entries map[int64][]models.ScriptureEntry
	docs    []models.Document
	texts   map[int64]string
}

func newStubStorage() *stubStorage {
	return &stubStorage{
		entries: make(map[int64][]models.ScriptureEntry),
		texts:   make(map[int64]string),
	}
}

func (s *stubStorage) ReplaceScriptureEntries(_ context.Context, docID int64, entries []models.ScriptureEntry) error {
	s.entries[docID] = entries
	return nil
}

func (s *stubStorage) SearchScripture(_ context.Context, raw, normalized string) ([]models.ReferenceHit, error) {
	var hits []models.ReferenceHit
	ids := make([]int64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		var matched []models.ScriptureEntry
		for _, e := range s.entries[id] {
			if strings.Contains(e.Reference, raw) ||
				(normalized != "" && strings.Contains(e.Normalized, normalized)) {
				matched = append(matched, e)
			}
		}
		if len(matched) > 0 {
			hits = append(hits, models.ReferenceHit{DocumentID: id, Entries: matched})
		}
	}
	return hits, nil
}

func (s *stubStorage) DocumentScriptureEntries(_ context.Context, docID int64) ([]models.ScriptureEntry, error) {
	return s.entries[docID], nil
}

func (s *stubStorage) ScriptureStatistics(_ context.Context) (*models.IndexStats, error) {
	stats := &models.IndexStats{}
	unique := make(map[string]bool)
	for _, entries := range s.entries {
		for _, e := range entries {
			stats.TotalEntries++
			unique[e.Normalized] = true
		}
	}
	stats.UniqueKeys = int64(len(unique))
	return stats, nil
}

func (s *stubStorage) ListDocuments(_ context.Context) ([]models.Document, error) {
	return s.docs, nil
}

func (s *stubStorage) DocumentText(_ context.Context, docID int64) (string, error) {
	return s.texts[docID], nil
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"John 3:16", "John 3:16"},
		{"Jn 3:16", "John 3:16"},
		{"Joh 3:16", "John 3:16"},
		{"JOHN 3:16", "John 3:16"},
		{"john 3:16,", "John 3:16"},
		{"Jn. 3:16", "John 3:16"},
		{"1 Cor 13:4-7", "1 Corinthians 13:4-7"},
		{"1cor 13:4", "1 Corinthians 13:4"},
		{"Ps 23:1", "Psalms 23:1"},
		{"John 3 16", "John 3:16"},
		{"Romans 8", "Romans 8"},
		{"Philemon 2", "Philemon 2"},
		{"Xyz 3:16", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	first := Normalize("Jn 3:16")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Normalize("Jn 3:16"))
	}
}

func TestVerseTextKeyedByNormalizedReference(t *testing.T) {
	// The verse table is only ever consulted with Normalize output, so
	// its keys must use canonical book names ("Psalms", not "Psalm").
	for _, input := range []string{"Psalm 23:1", "Ps 23:1", "Jn 3:16"} {
		t.Run(input, func(t *testing.T) {
			text, ok := StaticVerses{}.VerseText(Normalize(input))
			assert.True(t, ok)
			assert.NotEmpty(t, text)
		})
	}
}

func TestExtract(t *testing.T) {
	ix := NewIndexer(newStubStorage())

	refs := ix.Extract("See John 3:16 and Jn 3:16. Also Romans 8 speaks of hope.")

	require.Contains(t, refs, "John 3:16")
	john := refs["John 3:16"]
	assert.Equal(t, "John 3:16", john.Original)
	assert.Equal(t, []string{"John 3:16", "Jn 3:16"}, john.Surfaces)
	assert.Equal(t, 2, john.Count)
	assert.Len(t, john.Contexts, 1)

	require.Contains(t, refs, "Romans 8")
}

func TestExtractChapterOnlyBoundary(t *testing.T) {
	ix := NewIndexer(newStubStorage())

	// "John 3" must not be emitted as a chapter-only reference when it
	// is the prefix of "John 3:16".
	refs := ix.Extract("Read John 3:16 today.")

	require.Contains(t, refs, "John 3:16")
	assert.NotContains(t, refs, "John 3")
}

func TestExtractVerseRanges(t *testing.T) {
	ix := NewIndexer(newStubStorage())

	refs := ix.Extract("Love is described in 1 Cor 13:4-7 at length.")

	require.Contains(t, refs, "1 Corinthians 13:4-7")
}

func TestExtractNoReferences(t *testing.T) {
	ix := NewIndexer(newStubStorage())
	assert.Empty(t, ix.Extract("Nothing biblical in this sentence at all."))
}

func TestIndexDocumentRowPerSurfaceForm(t *testing.T) {
	store := newStubStorage()
	ix := NewIndexer(store)

	ok := ix.IndexDocument(context.Background(), 1, "See John 3:16 and Jn 3:16.", "sermon.txt")
	require.True(t, ok)

	entries := store.entries[1]
	require.Len(t, entries, 2)
	assert.Equal(t, "John 3:16", entries[0].Reference)
	assert.Equal(t, "Jn 3:16", entries[1].Reference)
	assert.Equal(t, entries[0].Normalized, entries[1].Normalized)
}

func TestSearchByReferenceMatchesAnySurfaceForm(t *testing.T) {
	store := newStubStorage()
	ix := NewIndexer(store)

	require.True(t, ix.IndexDocument(context.Background(), 1, "See John 3:16 and Jn 3:16.", "a.txt"))

	hits, err := ix.SearchByReference(context.Background(), "Jn 3:16")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Len(t, hits[0].Entries, 2)
}

func TestRebuildAllIdempotent(t *testing.T) {
	store := newStubStorage()
	ix := NewIndexer(store)

	store.docs = []models.Document{{ID: 1, Filename: "a.txt"}, {ID: 2, Filename: "b.txt"}}
	store.texts[1] = "On John 3:16 and Romans 8:28."
	store.texts[2] = "A study of Gen 1:1."

	require.True(t, ix.RebuildAll(context.Background()))
	first := map[int64][]models.ScriptureEntry{1: store.entries[1], 2: store.entries[2]}

	require.True(t, ix.RebuildAll(context.Background()))
	assert.Equal(t, first[1], store.entries[1])
	assert.Equal(t, first[2], store.entries[2])
}

func TestRebuildAllReportsMissingChunks(t *testing.T) {
	store := newStubStorage()
	ix := NewIndexer(store)

	store.docs = []models.Document{{ID: 1, Filename: "a.txt"}, {ID: 2, Filename: "empty.txt"}}
	store.texts[1] = "On John 3:16."

	assert.False(t, ix.RebuildAll(context.Background()))
	assert.Len(t, store.entries[1], 1)
}
