// Package query combines similarity search with index filtering and
// optional answer generation.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/logos-rag/backend/internal/cache/redis"
	"github.com/logos-rag/backend/internal/index/scripture"
	"github.com/logos-rag/backend/internal/llm"
	"github.com/logos-rag/backend/internal/metrics"
	"github.com/logos-rag/backend/internal/storage/models"
	"github.com/logos-rag/backend/pkg/hashutil"
	"github.com/logos-rag/backend/pkg/logger"
)

// generationFailedAnswer is returned in place of a generated answer
// when the language model fails; search results are still delivered.
const generationFailedAnswer = "Error generating response. Vector search results available."

// Store is the slice of the content store the engine needs.
type Store interface {
	SearchSimilar(ctx context.Context, query string, topK int) []models.SearchResult
	SearchSimilarFiltered(ctx context.Context, query string, topK int, docIDs []int64) []models.SearchResult
	RecordQuery(ctx context.Context, queryText string, resultsCount int, executionTime float64) error
	QueryHistory(ctx context.Context, limit int) ([]models.QueryRecord, error)
}

// ReferenceIndex is the scripture index surface used for filtering and
// context enrichment.
type ReferenceIndex interface {
	SearchByReference(ctx context.Context, query string) ([]models.ReferenceHit, error)
	Extract(text string) map[string]*scripture.Reference
}

// ConceptIndex is the concept index surface used for filtering.
type ConceptIndex interface {
	SearchByConcepts(ctx context.Context, concepts []string, minFrequency int) ([]models.ConceptHit, error)
}

// Source identifies a document a result came from.
type Source struct {
	DocumentID int64   `json:"document_id"`
	Filename   string  `json:"filename"`
	Filepath   string  `json:"filepath"`
	Similarity float32 `json:"similarity"`
}

// Response is the result of one query.
type Response struct {
	Query            string                `json:"query"`
	ReferenceFilter  string                `json:"reference_filter,omitempty"`
	ConceptFilter    string                `json:"concept_filter,omitempty"`
	Results          []models.SearchResult `json:"results"`
	ReferenceMatches []models.ReferenceHit `json:"reference_matches,omitempty"`
	ConceptMatches   []models.ConceptHit   `json:"concept_matches,omitempty"`
	Answer           string                `json:"answer,omitempty"`
	ExecutionTime    float64               `json:"execution_time"`
	Sources          []Source              `json:"sources,omitempty"`
}

type Config struct {
	MaxResults     int
	IncludeSources bool
	CacheTTL       time.Duration
}

type Engine struct {
	store    Store
	refs     ReferenceIndex
	concepts ConceptIndex
	verses   scripture.VerseLookup
	llm      llm.Provider
	cache    *redis.Client
	cfg      Config
}

// NewEngine wires the engine. cache may be nil, which disables the
// query-response cache.
func NewEngine(store Store, refs ReferenceIndex, conceptIdx ConceptIndex, verses scripture.VerseLookup, provider llm.Provider, cache *redis.Client, cfg Config) *Engine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}

	return &Engine{
		store:    store,
		refs:     refs,
		concepts: conceptIdx,
		verses:   verses,
		llm:      provider,
		cache:    cache,
		cfg:      cfg,
	}
}

// Query runs an unfiltered similarity search and, when requested and
// results exist, generates an answer over them. The query is recorded
// in history regardless of generation outcome.
func (e *Engine) Query(ctx context.Context, text string, useGeneration bool, topK int) *Response {
	start := time.Now()
	queryID := uuid.NewString()

	if topK <= 0 {
		topK = e.cfg.MaxResults
	}

	logger.Info("Processing query",
		zap.String("query_id", queryID),
		zap.Bool("use_generation", useGeneration),
		zap.Int("top_k", topK),
	)

	cacheKey := hashutil.Text(fmt.Sprintf("%s|%d|%t", text, topK, useGeneration))
	if e.cache != nil {
		var cached Response
		if hit, err := e.cache.GetQuery(ctx, cacheKey, &cached); err == nil && hit {
			metrics.CacheHits.WithLabelValues("query").Inc()
			e.recordHistory(ctx, text, len(cached.Results), time.Since(start).Seconds())
			return &cached
		}
		metrics.CacheMisses.WithLabelValues("query").Inc()
	}

	resp := &Response{Query: text}
	resp.Results = e.store.SearchSimilar(ctx, text, topK)

	if len(resp.Results) > 0 && useGeneration {
		answer, err := e.generateAnswer(ctx, text, resp.Results)
		if err != nil {
			logger.Error("Answer generation failed",
				zap.String("query_id", queryID),
				zap.Error(err),
			)
			metrics.QueryTotal.WithLabelValues("generation_failed").Inc()
			resp.Answer = generationFailedAnswer
		} else {
			resp.Answer = answer
			if e.cfg.IncludeSources {
				resp.Sources = extractSources(resp.Results)
			}
		}
	}

	resp.ExecutionTime = time.Since(start).Seconds()
	e.recordHistory(ctx, text, len(resp.Results), resp.ExecutionTime)

	if e.cache != nil {
		if err := e.cache.SetQuery(ctx, cacheKey, resp, e.cfg.CacheTTL); err != nil {
			logger.Warn("Failed to cache query response", zap.Error(err))
		}
	}

	metrics.QueryDuration.WithLabelValues("plain").Observe(resp.ExecutionTime)
	metrics.QueryTotal.WithLabelValues("success").Inc()

	return resp
}

// QueryWithReferenceFilter restricts the search to documents citing
// the given scripture reference. When no document matches, it returns
// immediately without touching the embedding service.
func (e *Engine) QueryWithReferenceFilter(ctx context.Context, text, referenceFilter string, useGeneration bool) *Response {
	start := time.Now()

	resp := &Response{Query: text, ReferenceFilter: referenceFilter}

	hits, err := e.refs.SearchByReference(ctx, referenceFilter)
	if err != nil {
		logger.Error("Reference filter search failed", zap.Error(err))
	}
	if len(hits) == 0 {
		resp.Answer = fmt.Sprintf("No documents found containing scripture reference: %s", referenceFilter)
		resp.ExecutionTime = time.Since(start).Seconds()
		return resp
	}

	resp.ReferenceMatches = hits
	resp.Results = e.store.SearchSimilarFiltered(ctx, text, e.cfg.MaxResults, hitDocIDs(hits))

	if len(resp.Results) > 0 && useGeneration {
		answer, err := e.generateAnswerWithReference(ctx, text, resp.Results, referenceFilter, hits)
		if err != nil {
			logger.Error("Answer generation failed", zap.Error(err))
			resp.Answer = generationFailedAnswer
		} else {
			resp.Answer = answer
			if e.cfg.IncludeSources {
				resp.Sources = extractSources(resp.Results)
			}
		}
	}

	resp.ExecutionTime = time.Since(start).Seconds()
	metrics.QueryDuration.WithLabelValues("reference_filter").Observe(resp.ExecutionTime)
	metrics.QueryTotal.WithLabelValues("success").Inc()

	return resp
}

// QueryWithConceptAndReferenceFilter requires documents to match both
// a theological concept and a scripture reference.
func (e *Engine) QueryWithConceptAndReferenceFilter(ctx context.Context, text, conceptFilter, referenceFilter string, useGeneration bool) *Response {
	start := time.Now()

	resp := &Response{
		Query:           text,
		ConceptFilter:   conceptFilter,
		ReferenceFilter: referenceFilter,
	}

	conceptHits, err := e.concepts.SearchByConcepts(ctx, []string{conceptFilter}, 1)
	if err != nil {
		logger.Error("Concept filter search failed", zap.Error(err))
	}
	if len(conceptHits) == 0 {
		resp.Answer = fmt.Sprintf("No documents found containing theological concept: %s", conceptFilter)
		resp.ExecutionTime = time.Since(start).Seconds()
		return resp
	}

	refHits, err := e.refs.SearchByReference(ctx, referenceFilter)
	if err != nil {
		logger.Error("Reference filter search failed", zap.Error(err))
	}
	if len(refHits) == 0 {
		resp.Answer = fmt.Sprintf("No documents found containing scripture reference: %s", referenceFilter)
		resp.ExecutionTime = time.Since(start).Seconds()
		return resp
	}

	refDocs := make(map[int64]bool)
	for _, h := range refHits {
		refDocs[h.DocumentID] = true
	}

	var combined []int64
	for _, h := range conceptHits {
		if refDocs[h.DocumentID] {
			combined = append(combined, h.DocumentID)
		}
	}

	if len(combined) == 0 {
		resp.Answer = "No documents found meeting both filter criteria."
		resp.ExecutionTime = time.Since(start).Seconds()
		return resp
	}

	resp.ConceptMatches = conceptHits
	resp.ReferenceMatches = refHits
	resp.Results = e.store.SearchSimilarFiltered(ctx, text, e.cfg.MaxResults, combined)

	if len(resp.Results) > 0 && useGeneration {
		answer, err := e.generateAnswerWithConceptAndReference(ctx, text, resp.Results, conceptFilter, conceptHits, referenceFilter, refHits)
		if err != nil {
			logger.Error("Answer generation failed", zap.Error(err))
			resp.Answer = generationFailedAnswer
		} else {
			resp.Answer = answer
			if e.cfg.IncludeSources {
				resp.Sources = extractSources(resp.Results)
			}
		}
	}

	resp.ExecutionTime = time.Since(start).Seconds()
	metrics.QueryDuration.WithLabelValues("combined_filter").Observe(resp.ExecutionTime)
	metrics.QueryTotal.WithLabelValues("success").Inc()

	return resp
}

// History returns the most recent query history records.
func (e *Engine) History(ctx context.Context, limit int) ([]models.QueryRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return e.store.QueryHistory(ctx, limit)
}

func (e *Engine) recordHistory(ctx context.Context, text string, resultsCount int, executionTime float64) {
	if err := e.store.RecordQuery(ctx, text, resultsCount, executionTime); err != nil {
		logger.Warn("Failed to record query history", zap.Error(err))
	}
}

// contextBlock renders the top results as a prompt context, attaching
// known verse texts for any scripture references cited in the content.
func (e *Engine) contextBlock(results []models.SearchResult) string {
	var parts []string

	for _, result := range topN(results, 5) {
		content := result.Content

		refs := e.refs.Extract(content)
		if len(refs) > 0 {
			keys := make([]string, 0, len(refs))
			for key := range refs {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			var additions []string
			for _, key := range keys {
				if verse, ok := e.verses.VerseText(key); ok {
					additions = append(additions, fmt.Sprintf("\n\n%s: %q", key, verse))
				}
			}
			if len(additions) > 0 {
				content += "\n\nReferenced Scriptures:" + strings.Join(additions, "")
			}
		}

		parts = append(parts, fmt.Sprintf("Document %q (relevance: %.3f):\n%s\n", result.Metadata.Filename, result.Similarity, content))
	}

	return strings.Join(parts, "\n")
}

func (e *Engine) generateAnswer(ctx context.Context, query string, results []models.SearchResult) (string, error) {
	prompt := fmt.Sprintf(`Answer the user's question using the information provided in the context below. Be comprehensive and helpful while staying within the bounds of the provided content.

GUIDELINES:
- Base your answer primarily on the information provided in the context below
- When citing information, reference the actual document filenames
- Answer directly and naturally using the provided information
- If the context provides relevant information but not a complete answer, work with what's available and indicate where information might be limited
- Only say you don't have enough information if the context is completely unrelated to the question

Context from sources:
%s

User question: %s

Provide a comprehensive answer based on the information provided above.`, e.contextBlock(results), query)

	return e.llm.Generate(ctx, prompt, llm.GenerateOptions{})
}

func (e *Engine) generateAnswerWithReference(ctx context.Context, query string, results []models.SearchResult, referenceFilter string, hits []models.ReferenceHit) (string, error) {
	var refContext []string
	for _, hit := range topHits(hits, 3) {
		for _, entry := range hit.Entries {
			refContext = append(refContext, fmt.Sprintf("Scripture %s found in %s", entry.Normalized, hit.Filename))
			if len(entry.Snippets) > 0 {
				refContext = append(refContext, fmt.Sprintf("Context: %s", truncate(entry.Snippets[0], 200)))
			}
			break
		}
	}

	prompt := fmt.Sprintf(`Based on the following documents that contain the scripture reference %q, please answer the user's question.

Scripture Reference Context:
%s

Document Content:
%s

User question: %s

Please provide a comprehensive answer that specifically addresses how the scripture reference %q relates to the question, based on the information in the documents.`,
		referenceFilter, strings.Join(refContext, "\n"), e.contextBlock(results), query, referenceFilter)

	return e.llm.Generate(ctx, prompt, llm.GenerateOptions{})
}

func (e *Engine) generateAnswerWithConceptAndReference(ctx context.Context, query string, results []models.SearchResult, conceptFilter string, conceptHits []models.ConceptHit, referenceFilter string, refHits []models.ReferenceHit) (string, error) {
	conceptContext := []string{fmt.Sprintf("Theological concept '%s' found in documents:", conceptFilter)}
	for i, hit := range conceptHits {
		if i >= 3 {
			break
		}
		conceptContext = append(conceptContext, fmt.Sprintf("- %s (matches: %d, frequency: %d)", hit.Filename, hit.ConceptMatches, hit.TotalFrequency))
	}

	refContext := []string{fmt.Sprintf("Scripture references for '%s' found in documents:", referenceFilter)}
	for _, hit := range topHits(refHits, 3) {
		var snippets []string
		if len(hit.Entries) > 0 {
			snippets = hit.Entries[0].Snippets
		}
		if len(snippets) > 2 {
			snippets = snippets[:2]
		}
		refContext = append(refContext, fmt.Sprintf("- %s - Context: %s", hit.Filename, strings.Join(snippets, ",")))
	}

	prompt := fmt.Sprintf(`Based on the documents containing the theological concept %q and the scripture reference %q, please answer the user's question.

Theological Context:
%s

Scripture Reference Context:
%s

Document Content:
%s

User question: %s

Provide a detailed answer how the theological concept and the scripture are related to the user's query.`,
		conceptFilter, referenceFilter, strings.Join(conceptContext, "\n"), strings.Join(refContext, "\n"), e.contextBlock(results), query)

	return e.llm.Generate(ctx, prompt, llm.GenerateOptions{})
}

func extractSources(results []models.SearchResult) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			DocumentID: r.Metadata.DocumentID,
			Filename:   r.Metadata.Filename,
			Filepath:   r.Metadata.Filepath,
			Similarity: r.Similarity,
		}
	}
	return sources
}

func hitDocIDs(hits []models.ReferenceHit) []int64 {
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.DocumentID
	}
	return ids
}

func topN(results []models.SearchResult, n int) []models.SearchResult {
	if len(results) > n {
		return results[:n]
	}
	return results
}

func topHits(hits []models.ReferenceHit, n int) []models.ReferenceHit {
	if len(hits) > n {
		return hits[:n]
	}
	return hits
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
