// Package concepts finds occurrences of curated theological terms and
// maintains the concept index.
package concepts

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/logos-rag/backend/internal/metrics"
	"github.com/logos-rag/backend/internal/storage/models"
	"github.com/logos-rag/backend/pkg/logger"
)

// Storage is the slice of the relational store the indexer needs.
type Storage interface {
	ReplaceConceptEntries(ctx context.Context, docID int64, entries []models.ConceptEntry) error
	SearchConcepts(ctx context.Context, concepts []string, minFrequency int) ([]models.ConceptHit, error)
	DocumentConceptEntries(ctx context.Context, docID int64) ([]models.ConceptEntry, error)
	ConceptStatistics(ctx context.Context) (*models.IndexStats, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	DocumentText(ctx context.Context, docID int64) (string, error)
}

// Concept is one discovered term with its whole-word occurrence count
// and up to three context sentences.
type Concept struct {
	Frequency int
	Contexts  []string
}

type term struct {
	name string
	re   *regexp.Regexp
}

type Indexer struct {
	store         Storage
	terms         []term
	caseSensitive bool
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

func NewIndexer(store Storage, vocab *Vocabulary) *Indexer {
	terms := make([]term, len(vocab.Terms))
	for i, name := range vocab.Terms {
		expr := `\b` + regexp.QuoteMeta(name) + `\b`
		if !vocab.CaseSensitive {
			expr = `(?i)` + expr
		}
		terms[i] = term{name: name, re: regexp.MustCompile(expr)}
	}

	return &Indexer{store: store, terms: terms, caseSensitive: vocab.CaseSensitive}
}

// Extract finds every vocabulary term in text. Frequency counts
// whole-word matches; contexts are the first three distinct sentences
// containing the term as a substring.
func (ix *Indexer) Extract(text string) map[string]*Concept {
	found := make(map[string]*Concept)

	sentences := make([]string, 0)
	for _, s := range sentenceSplit.Split(text, -1) {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}

	for _, t := range ix.terms {
		count := len(t.re.FindAllStringIndex(text, -1))
		if count == 0 {
			continue
		}

		needle := t.name
		if !ix.caseSensitive {
			needle = strings.ToLower(needle)
		}

		var contexts []string
		for _, sentence := range sentences {
			if len(contexts) >= 3 {
				break
			}
			haystack := sentence
			if !ix.caseSensitive {
				haystack = strings.ToLower(sentence)
			}
			if strings.Contains(haystack, needle) && !containsString(contexts, sentence) {
				contexts = append(contexts, sentence)
			}
		}

		found[t.name] = &Concept{Frequency: count, Contexts: contexts}
	}

	return found
}

// IndexDocument replaces the document's concept index rows with the
// terms found in text. Returns true on success, including when nothing
// was found.
func (ix *Indexer) IndexDocument(ctx context.Context, docID int64, text, displayName string) bool {
	found := ix.Extract(text)

	if len(found) == 0 {
		logger.Info("No theological concepts found", zap.String("document", displayName))
		return true
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]models.ConceptEntry, 0, len(names))
	for _, name := range names {
		c := found[name]
		entries = append(entries, models.ConceptEntry{
			Concept:    name,
			DocumentID: docID,
			Frequency:  c.Frequency,
			Snippets:   c.Contexts,
		})
	}

	if err := ix.store.ReplaceConceptEntries(ctx, docID, entries); err != nil {
		logger.Error("Failed to index concepts",
			zap.String("document", displayName),
			zap.Error(err),
		)
		return false
	}

	metrics.ConceptsIndexed.Add(float64(len(entries)))
	logger.Info("Indexed theological concepts",
		zap.String("document", displayName),
		zap.Int("concepts", len(entries)),
	)

	return true
}

// SearchByConcepts ranks documents containing any of the requested
// concepts by distinct matches, then by combined frequency.
func (ix *Indexer) SearchByConcepts(ctx context.Context, concepts []string, minFrequency int) ([]models.ConceptHit, error) {
	hits, err := ix.store.SearchConcepts(ctx, concepts, minFrequency)
	if err != nil {
		return nil, fmt.Errorf("failed to search by concepts: %w", err)
	}
	return hits, nil
}

// DocumentConcepts returns a document's indexed concepts.
func (ix *Indexer) DocumentConcepts(ctx context.Context, docID int64) ([]models.ConceptEntry, error) {
	return ix.store.DocumentConceptEntries(ctx, docID)
}

// Statistics reports aggregate counts over the concept index.
func (ix *Indexer) Statistics(ctx context.Context) (*models.IndexStats, error) {
	return ix.store.ConceptStatistics(ctx)
}

// RebuildAll reindexes every document from its stored chunks. It
// continues past per-document failures and reports true only when
// every document succeeded.
func (ix *Indexer) RebuildAll(ctx context.Context) bool {
	docs, err := ix.store.ListDocuments(ctx)
	if err != nil {
		logger.Error("Failed to list documents for rebuild", zap.Error(err))
		return false
	}

	logger.Info("Rebuilding concept index", zap.Int("documents", len(docs)))

	allOK := true
	for _, doc := range docs {
		text, err := ix.store.DocumentText(ctx, doc.ID)
		if err != nil || text == "" {
			logger.Warn("No chunks found for document", zap.String("filename", doc.Filename))
			allOK = false
			continue
		}

		if !ix.IndexDocument(ctx, doc.ID, text, doc.Filename) {
			allOK = false
		}
	}

	return allOK
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
