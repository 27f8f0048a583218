package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/logos-rag/backend/internal/storage/models"
)

// ReplaceScriptureEntries rewrites a document's scripture index rows.
// The delete-then-insert keeps reindexing idempotent.
func (s *Store) ReplaceScriptureEntries(ctx context.Context, docID int64, entries []models.ScriptureEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DELETE FROM scripture_index WHERE document_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("failed to clear scripture entries: %w", err)
	}

	for _, e := range entries {
		snippets, err := json.Marshal(e.Snippets)
		if err != nil {
			return fmt.Errorf("failed to marshal snippets: %w", err)
		}

		var normalized sql.NullString
		if e.Normalized != "" {
			normalized = sql.NullString{String: e.Normalized, Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO scripture_index (reference, document_id, context_snippets, normalized_reference)
			VALUES (?, ?, ?, ?)`,
			e.Reference, docID, string(snippets), normalized,
		)
		if err != nil {
			return fmt.Errorf("failed to insert scripture entry: %w", err)
		}
	}

	return tx.Commit()
}

// SearchScripture finds documents whose index rows match the raw query
// as a substring of the surface form, or the normalized query as a
// substring of the normalized reference. When normalization failed the
// raw query is matched against both columns. Results are grouped per
// document and ordered by filename.
func (s *Store) SearchScripture(ctx context.Context, raw, normalized string) ([]models.ReferenceHit, error) {
	query := `
		SELECT d.id, d.filename, d.filepath, si.reference, COALESCE(si.normalized_reference, ''), COALESCE(si.context_snippets, '[]')
		FROM scripture_index si
		JOIN documents d ON d.id = si.document_id
		WHERE si.reference LIKE ? OR si.normalized_reference LIKE ?
		ORDER BY d.filename, si.reference
	`

	rawPattern := "%" + raw + "%"
	normPattern := rawPattern
	if normalized != "" {
		normPattern = "%" + normalized + "%"
	}

	rows, err := s.db.QueryContext(ctx, query, rawPattern, normPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search scripture index: %w", err)
	}
	defer rows.Close()

	var hits []models.ReferenceHit
	byDoc := make(map[int64]int)

	for rows.Next() {
		var docID int64
		var filename, filepathStr, reference, norm, snippetsJSON string

		if err := rows.Scan(&docID, &filename, &filepathStr, &reference, &norm, &snippetsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		entry := models.ScriptureEntry{
			Reference:  reference,
			Normalized: norm,
			DocumentID: docID,
		}
		json.Unmarshal([]byte(snippetsJSON), &entry.Snippets)

		idx, ok := byDoc[docID]
		if !ok {
			idx = len(hits)
			byDoc[docID] = idx
			hits = append(hits, models.ReferenceHit{
				DocumentID: docID,
				Filename:   filename,
				Filepath:   filepathStr,
			})
		}
		hits[idx].Entries = append(hits[idx].Entries, entry)
	}

	return hits, rows.Err()
}

// DocumentScriptureEntries returns a document's scripture index rows.
func (s *Store) DocumentScriptureEntries(ctx context.Context, docID int64) ([]models.ScriptureEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reference, COALESCE(normalized_reference, ''), COALESCE(context_snippets, '[]')
		FROM scripture_index WHERE document_id = ? ORDER BY reference`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scripture entries: %w", err)
	}
	defer rows.Close()

	var entries []models.ScriptureEntry
	for rows.Next() {
		var e models.ScriptureEntry
		var snippetsJSON string

		if err := rows.Scan(&e.Reference, &e.Normalized, &snippetsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.DocumentID = docID
		json.Unmarshal([]byte(snippetsJSON), &e.Snippets)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// ScriptureStatistics summarizes the scripture index: total rows,
// distinct normalized references and the twenty most cited.
func (s *Store) ScriptureStatistics(ctx context.Context) (*models.IndexStats, error) {
	return s.indexStatistics(ctx, "scripture_index", "normalized_reference")
}

// ConceptStatistics summarizes the concept index.
func (s *Store) ConceptStatistics(ctx context.Context) (*models.IndexStats, error) {
	return s.indexStatistics(ctx, "theological_concept_index", "concept")
}

func (s *Store) indexStatistics(ctx context.Context, table, keyColumn string) (*models.IndexStats, error) {
	stats := &models.IndexStats{}

	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*), COUNT(DISTINCT %s) FROM %s`, keyColumn, table)).
		Scan(&stats.TotalEntries, &stats.UniqueKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to get index statistics: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s, COUNT(*) AS doc_count
		FROM %s
		WHERE %s IS NOT NULL
		GROUP BY %s
		ORDER BY doc_count DESC
		LIMIT 20`, keyColumn, table, keyColumn, keyColumn))
	if err != nil {
		return nil, fmt.Errorf("failed to get top index keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kc models.IndexKeyCount
		if err := rows.Scan(&kc.Key, &kc.DocumentCount); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		stats.Top = append(stats.Top, kc)
	}

	return stats, rows.Err()
}

// ReplaceConceptEntries rewrites a document's concept index rows.
func (s *Store) ReplaceConceptEntries(ctx context.Context, docID int64, entries []models.ConceptEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DELETE FROM theological_concept_index WHERE document_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("failed to clear concept entries: %w", err)
	}

	for _, e := range entries {
		snippets, err := json.Marshal(e.Snippets)
		if err != nil {
			return fmt.Errorf("failed to marshal snippets: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO theological_concept_index (concept, document_id, frequency, context_snippets)
			VALUES (?, ?, ?, ?)`,
			e.Concept, docID, e.Frequency, string(snippets),
		)
		if err != nil {
			return fmt.Errorf("failed to insert concept entry: %w", err)
		}
	}

	return tx.Commit()
}

// SearchConcepts ranks documents containing any of the given concepts
// with at least minFrequency occurrences, by distinct concepts matched
// and then by combined frequency.
func (s *Store) SearchConcepts(ctx context.Context, concepts []string, minFrequency int) ([]models.ConceptHit, error) {
	if len(concepts) == 0 {
		return nil, nil
	}
	if minFrequency < 1 {
		minFrequency = 1
	}

	placeholders := strings.Repeat("?,", len(concepts))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, 0, len(concepts)+1)
	for _, c := range concepts {
		args = append(args, strings.ToLower(c))
	}
	args = append(args, minFrequency)

	query := fmt.Sprintf(`
		SELECT d.id, d.filename, d.filepath,
			COUNT(DISTINCT tci.concept) AS concept_matches,
			SUM(tci.frequency) AS total_frequency
		FROM theological_concept_index tci
		JOIN documents d ON d.id = tci.document_id
		WHERE tci.concept IN (%s) AND tci.frequency >= ?
		GROUP BY d.id, d.filename, d.filepath
		ORDER BY concept_matches DESC, total_frequency DESC, d.filename`, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search concept index: %w", err)
	}
	defer rows.Close()

	var hits []models.ConceptHit
	for rows.Next() {
		var h models.ConceptHit
		if err := rows.Scan(&h.DocumentID, &h.Filename, &h.Filepath, &h.ConceptMatches, &h.TotalFrequency); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		hits = append(hits, h)
	}

	return hits, rows.Err()
}

// DocumentConceptEntries returns a document's concept index rows in
// descending frequency order.
func (s *Store) DocumentConceptEntries(ctx context.Context, docID int64) ([]models.ConceptEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT concept, frequency, COALESCE(context_snippets, '[]')
		FROM theological_concept_index WHERE document_id = ? ORDER BY frequency DESC, concept`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to get concept entries: %w", err)
	}
	defer rows.Close()

	var entries []models.ConceptEntry
	for rows.Next() {
		var e models.ConceptEntry
		var snippetsJSON string

		if err := rows.Scan(&e.Concept, &e.Frequency, &snippetsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.DocumentID = docID
		json.Unmarshal([]byte(snippetsJSON), &e.Snippets)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
