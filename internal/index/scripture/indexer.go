// Package scripture extracts Bible references from document text and
// maintains the scripture index.
package scripture

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
	ReplaceScriptureEntries(ctx context.Context, docID int64, entries []models.ScriptureEntry) error
	SearchScripture(ctx context.Context, raw, normalized string) ([]models.ReferenceHit, error)
	DocumentScriptureEntries(ctx context.Context, docID int64) ([]models.ScriptureEntry, error)
	ScriptureStatistics(ctx context.Context) (*models.IndexStats, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	DocumentText(ctx context.Context, docID int64) (string, error)
}

// Reference is one extracted verse citation. Surfaces holds every
// distinct spelling encountered, in first-seen order; all of them
// normalize to the same canonical form.
type Reference struct {
	Normalized string
	Original   string
	Surfaces   []string
	Count      int
	Contexts   []string
}

type pattern struct {
	re          *regexp.Regexp
	chapterOnly bool
}

type Indexer struct {
	store    Storage
	patterns []pattern
}

var (
	sentenceSplit   = regexp.MustCompile(`[.!?]+`)
	trailingPunct   = regexp.MustCompile(`[,.]$`)
	afterChapterRef = regexp.MustCompile(`^\s+\d`)

	normalizers = buildNormalizers()
)

type normalizer struct {
	book string
	re   *regexp.Regexp
}

func buildNormalizers() []normalizer {
	var ns []normalizer
	for _, b := range books {
		for _, alias := range b.aliases {
			ns = append(ns, normalizer{
				book: b.name,
				re:   regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(alias) + `\.?\s*`),
			})
		}
	}
	return ns
}

func NewIndexer(store Storage) *Indexer {
	var patterns []pattern
	for _, b := range books {
		for _, alias := range b.aliases {
			escaped := regexp.QuoteMeta(alias)

			// "John 3:16", "John 3:16-20", "John 3:16, 20-22"
			patterns = append(patterns, pattern{
				re: regexp.MustCompile(`(?i)\b` + escaped + `\.?\s+\d+:\d+(?:-\d+)?(?:,\s*\d+(?:-\d+)?)*\b`),
			})
			// "John 3 16"
			patterns = append(patterns, pattern{
				re: regexp.MustCompile(`(?i)\b` + escaped + `\.?\s+\d+\s+\d+(?:-\d+)?\b`),
			})
			// "John chapter 3 verse 16"
			patterns = append(patterns, pattern{
				re: regexp.MustCompile(`(?i)\b` + escaped + `\.?\s+(?:chapter\s+)?\d+(?:\s+verse\s+|\s+v\.?\s+)\d+(?:-\d+)?\b`),
			})
			// "Romans 8" with no verse. Accepted only when the match is
			// not the prefix of a chapter:verse or space-separated form,
			// checked after the fact since RE2 has no lookahead.
			patterns = append(patterns, pattern{
				re:          regexp.MustCompile(`(?i)\b` + escaped + `\.?\s+\d+\b`),
				chapterOnly: true,
			})
		}
	}

	return &Indexer{store: store, patterns: patterns}
}

// Extract finds every recognizable reference in text, keyed by its
// normalized form. Candidates that match a recognizer but fail
// normalization are counted and dropped.
func (ix *Indexer) Extract(text string) map[string]*Reference {
	refs := make(map[string]*Reference)
	sentences := sentenceSplit.Split(text, -1)

	for _, p := range ix.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if p.chapterOnly && !chapterBoundaryOK(text, loc[1]) {
				continue
			}

			surface := strings.TrimSpace(text[loc[0]:loc[1]])

			normalized := Normalize(surface)
			if normalized == "" {
				metrics.UnparsedReferences.Inc()
				logger.Debug("Unparsed reference candidate", zap.String("candidate", surface))
				continue
			}

			ref, ok := refs[normalized]
			if !ok {
				ref = &Reference{Normalized: normalized, Original: surface}
				refs[normalized] = ref
			}
			ref.Count++

			if !containsString(ref.Surfaces, surface) {
				ref.Surfaces = append(ref.Surfaces, surface)
			}

			lower := strings.ToLower(surface)
			for _, sentence := range sentences {
				if len(ref.Contexts) >= 3 {
					break
				}
				if !strings.Contains(strings.ToLower(sentence), lower) {
					continue
				}
				trimmed := strings.TrimSpace(sentence)
				if trimmed == "" || containsString(ref.Contexts, trimmed) {
					continue
				}
				ref.Contexts = append(ref.Contexts, trimmed)
			}
		}
	}

	return refs
}

// chapterBoundaryOK rejects a chapter-only match that is actually the
// prefix of a chapter:verse or "chapter verse" citation.
func chapterBoundaryOK(text string, end int) bool {
	rest := text[end:]
	if strings.HasPrefix(rest, ":") {
		return false
	}
	return !afterChapterRef.MatchString(rest)
}

// Normalize converts a raw citation to its canonical
// "{Book} {chapter}[:{verse}]" form. It returns "" when no book alias
// matches or the remainder is not a recognizable chapter/verse shape.
func Normalize(reference string) string {
	ref := trailingPunct.ReplaceAllString(strings.TrimSpace(reference), "")

	for _, n := range normalizers {
		m := n.re.FindString(ref)
		if m == "" {
			continue
		}
		remainder := strings.TrimSpace(ref[len(m):])

		switch {
		case strings.Contains(remainder, ":"):
			return n.book + " " + remainder
		case strings.Contains(remainder, " "):
			parts := strings.Fields(remainder)
			if len(parts) >= 2 && isDigits(parts[0]) && isDigits(parts[1]) {
				return n.book + " " + parts[0] + ":" + parts[1]
			}
		case isDigits(remainder) && remainder != "":
			return n.book + " " + remainder
		}
	}

	return ""
}

// IndexDocument replaces the document's scripture index rows with the
// references found in text, one row per distinct surface form. Returns
// true on success, including when nothing was found.
func (ix *Indexer) IndexDocument(ctx context.Context, docID int64, text, displayName string) bool {
	refs := ix.Extract(text)

	if len(refs) == 0 {
		logger.Info("No scripture references found", zap.String("document", displayName))
		return true
	}

	normalized := make([]string, 0, len(refs))
	for key := range refs {
		normalized = append(normalized, key)
	}
	sort.Strings(normalized)

	var entries []models.ScriptureEntry
	for _, key := range normalized {
		ref := refs[key]
		for _, surface := range ref.Surfaces {
			entries = append(entries, models.ScriptureEntry{
				Reference:  surface,
				Normalized: key,
				DocumentID: docID,
				Snippets:   ref.Contexts,
			})
		}
	}

	if err := ix.store.ReplaceScriptureEntries(ctx, docID, entries); err != nil {
		logger.Error("Failed to index scripture references",
			zap.String("document", displayName),
			zap.Error(err),
		)
		return false
	}

	metrics.ReferencesIndexed.Add(float64(len(entries)))
	logger.Info("Indexed scripture references",
		zap.String("document", displayName),
		zap.Int("references", len(refs)),
		zap.Int("rows", len(entries)),
	)

	return true
}

// SearchByReference finds documents citing the queried reference,
// matching against both the raw surface forms and the normalized
// forms. Results are grouped per document, ordered by filename.
func (ix *Indexer) SearchByReference(ctx context.Context, query string) ([]models.ReferenceHit, error) {
	normalized := Normalize(query)
	hits, err := ix.store.SearchScripture(ctx, query, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to search by reference: %w", err)
	}
	return hits, nil
}

// DocumentReferences returns a document's indexed references.
func (ix *Indexer) DocumentReferences(ctx context.Context, docID int64) ([]models.ScriptureEntry, error) {
	return ix.store.DocumentScriptureEntries(ctx, docID)
}

// Statistics reports aggregate counts over the scripture index.
func (ix *Indexer) Statistics(ctx context.Context) (*models.IndexStats, error) {
	return ix.store.ScriptureStatistics(ctx)
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

	logger.Info("Rebuilding scripture index", zap.Int("documents", len(docs)))

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

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
