package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logos-rag/backend/internal/index/scripture"
	"github.com/logos-rag/backend/internal/llm"
	"github.com/logos-rag/backend/internal/storage/models"
)

type stubStore struct {
	results        []models.SearchResult
	searchCalls    int
	filteredCalls  int
	filteredDocIDs []int64
	history        []models.QueryRecord
}

func (s *stubStore) SearchSimilar(_ context.Context, _ string, _ int) []models.SearchResult {
	s.searchCalls++
	return s.results
}

func (s *stubStore) SearchSimilarFiltered(_ context.Context, _ string, _ int, docIDs []int64) []models.SearchResult {
	s.filteredCalls++
	s.filteredDocIDs = docIDs
	return s.results
}

func (s *stubStore) RecordQuery(_ context.Context, queryText string, resultsCount int, executionTime float64) error {
	s.history = append(s.history, models.QueryRecord{
		QueryText:     queryText,
		ResultsCount:  resultsCount,
		ExecutionTime: executionTime,
	})
	return nil
}

func (s *stubStore) QueryHistory(_ context.Context, limit int) ([]models.QueryRecord, error) {
	if limit > len(s.history) {
		limit = len(s.history)
	}
	return s.history[:limit], nil
}

type stubRefs struct {
	hits []models.ReferenceHit
}

func (s *stubRefs) SearchByReference(_ context.Context, _ string) ([]models.ReferenceHit, error) {
	return s.hits, nil
}

func (s *stubRefs) Extract(_ string) map[string]*scripture.Reference {
	return nil
}

type stubConcepts struct {
	hits []models.ConceptHit
}

func (s *stubConcepts) SearchByConcepts(_ context.Context, _ []string, _ int) ([]models.ConceptHit, error) {
	return s.hits, nil
}

type stubLLM struct {
	answer        string
	err           error
	generateCalls int
}

func (s *stubLLM) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (s *stubLLM) Generate(_ context.Context, _ string, _ llm.GenerateOptions) (string, error) {
	s.generateCalls++
	return s.answer, s.err
}

func sampleResults() []models.SearchResult {
	return []models.SearchResult{
		{
			Content:    "God so loved the world.",
			Similarity: 0.91,
			Metadata:   models.ChunkMetadata{DocumentID: 1, Filename: "sermon.txt"},
		},
	}
}

func newTestEngine(store *stubStore, refs *stubRefs, conceptIdx *stubConcepts, provider *stubLLM) *Engine {
	return NewEngine(store, refs, conceptIdx, scripture.StaticVerses{}, provider, nil, Config{
		MaxResults:     10,
		IncludeSources: true,
	})
}

func TestQueryRecordsHistory(t *testing.T) {
	store := &stubStore{results: sampleResults()}
	provider := &stubLLM{answer: "An answer."}
	e := newTestEngine(store, &stubRefs{}, &stubConcepts{}, provider)

	resp := e.Query(context.Background(), "what is love", true, 5)

	assert.Equal(t, "what is love", resp.Query)
	assert.Equal(t, "An answer.", resp.Answer)
	assert.Len(t, resp.Sources, 1)
	assert.Greater(t, resp.ExecutionTime, 0.0)

	require.Len(t, store.history, 1)
	assert.Equal(t, "what is love", store.history[0].QueryText)
	assert.Equal(t, 1, store.history[0].ResultsCount)
}

func TestQueryGenerationFailureSentinel(t *testing.T) {
	store := &stubStore{results: sampleResults()}
	provider := &stubLLM{err: errors.New("model unavailable")}
	e := newTestEngine(store, &stubRefs{}, &stubConcepts{}, provider)

	resp := e.Query(context.Background(), "what is love", true, 5)

	assert.Equal(t, generationFailedAnswer, resp.Answer)
	assert.Len(t, resp.Results, 1)
	assert.Empty(t, resp.Sources)
	// History is still recorded on generation failure.
	assert.Len(t, store.history, 1)
}

func TestQueryNoResultsSkipsGeneration(t *testing.T) {
	store := &stubStore{}
	provider := &stubLLM{answer: "should not be called"}
	e := newTestEngine(store, &stubRefs{}, &stubConcepts{}, provider)

	resp := e.Query(context.Background(), "anything", true, 5)

	assert.Empty(t, resp.Answer)
	assert.Zero(t, provider.generateCalls)
	assert.Len(t, store.history, 1)
}

func TestQueryWithoutGeneration(t *testing.T) {
	store := &stubStore{results: sampleResults()}
	provider := &stubLLM{answer: "should not be called"}
	e := newTestEngine(store, &stubRefs{}, &stubConcepts{}, provider)

	resp := e.Query(context.Background(), "anything", false, 5)

	assert.Empty(t, resp.Answer)
	assert.Zero(t, provider.generateCalls)
	assert.Len(t, resp.Results, 1)
}

func TestReferenceFilterShortCircuit(t *testing.T) {
	store := &stubStore{results: sampleResults()}
	e := newTestEngine(store, &stubRefs{}, &stubConcepts{}, &stubLLM{})

	resp := e.QueryWithReferenceFilter(context.Background(), "grace", "Obadiah 1:1", true)

	assert.Equal(t, "No documents found containing scripture reference: Obadiah 1:1", resp.Answer)
	assert.Empty(t, resp.Results)
	// The similarity search, and with it the embedding service, is
	// never touched when the filter matches nothing.
	assert.Zero(t, store.searchCalls)
	assert.Zero(t, store.filteredCalls)
	assert.Empty(t, store.history)
}

func TestReferenceFilterRestrictsSearch(t *testing.T) {
	store := &stubStore{results: sampleResults()}
	refs := &stubRefs{hits: []models.ReferenceHit{
		{DocumentID: 4, Filename: "a.txt", Entries: []models.ScriptureEntry{{Reference: "John 3:16", Normalized: "John 3:16"}}},
		{DocumentID: 9, Filename: "b.txt", Entries: []models.ScriptureEntry{{Reference: "Jn 3:16", Normalized: "John 3:16"}}},
	}}
	e := newTestEngine(store, refs, &stubConcepts{}, &stubLLM{answer: "ok"})

	resp := e.QueryWithReferenceFilter(context.Background(), "grace", "John 3:16", true)

	assert.Equal(t, "ok", resp.Answer)
	assert.Equal(t, []int64{4, 9}, store.filteredDocIDs)
	assert.Len(t, resp.ReferenceMatches, 2)
}

func TestCombinedFilterIntersection(t *testing.T) {
	store := &stubStore{results: sampleResults()}
	refs := &stubRefs{hits: []models.ReferenceHit{{DocumentID: 2}, {DocumentID: 3}}}
	conceptIdx := &stubConcepts{hits: []models.ConceptHit{
		{DocumentID: 1, Filename: "a.txt"},
		{DocumentID: 2, Filename: "b.txt"},
	}}
	e := newTestEngine(store, refs, conceptIdx, &stubLLM{answer: "ok"})

	resp := e.QueryWithConceptAndReferenceFilter(context.Background(), "grace", "salvation", "John 3:16", true)

	assert.Equal(t, "ok", resp.Answer)
	assert.Equal(t, []int64{2}, store.filteredDocIDs)
}

func TestCombinedFilterNoConceptMatch(t *testing.T) {
	store := &stubStore{}
	e := newTestEngine(store, &stubRefs{hits: []models.ReferenceHit{{DocumentID: 1}}}, &stubConcepts{}, &stubLLM{})

	resp := e.QueryWithConceptAndReferenceFilter(context.Background(), "q", "salvation", "John 3:16", true)

	assert.Equal(t, "No documents found containing theological concept: salvation", resp.Answer)
	assert.Zero(t, store.filteredCalls)
}

func TestCombinedFilterNoIntersection(t *testing.T) {
	store := &stubStore{}
	refs := &stubRefs{hits: []models.ReferenceHit{{DocumentID: 7}}}
	conceptIdx := &stubConcepts{hits: []models.ConceptHit{{DocumentID: 8}}}
	e := newTestEngine(store, refs, conceptIdx, &stubLLM{})

	resp := e.QueryWithConceptAndReferenceFilter(context.Background(), "q", "grace", "John 3:16", true)

	assert.Equal(t, "No documents found meeting both filter criteria.", resp.Answer)
	assert.Zero(t, store.filteredCalls)
}

func TestHistoryPassthrough(t *testing.T) {
	store := &stubStore{}
	e := newTestEngine(store, &stubRefs{}, &stubConcepts{}, &stubLLM{})

	e.Query(context.Background(), "first", false, 1)
	e.Query(context.Background(), "second", false, 1)

	records, err := e.History(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
