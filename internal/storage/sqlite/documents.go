package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/logos-rag/backend/internal/metrics"
	"github.com/logos-rag/backend/internal/storage/models"
	"github.com/logos-rag/backend/internal/vector"
	"github.com/logos-rag/backend/pkg/hashutil"
	"github.com/logos-rag/backend/pkg/logger"
)

// AddDocument stores a document and its chunks, embeds the chunks and
// upserts them into the vector index, all inside one transaction. A
// file whose content hash is already stored returns ErrDocumentExists.
// Chunks whose text already exists anywhere in the corpus are skipped,
// so shared boilerplate is embedded once.
func (s *Store) AddDocument(ctx context.Context, filePath string, chunks []string) (int64, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}

	fileHash, err := hashutil.File(filePath)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM documents WHERE file_hash = ?`, fileHash).Scan(&existingID)
	if err == nil {
		return existingID, ErrDocumentExists
	}

	filename := filepath.Base(filePath)
	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), ".")
	now := time.Now().Unix()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO documents (filename, filepath, file_hash, file_size, file_type, created_at, modified_at, chunk_count, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, 'processing')`,
		filename, filePath, fileHash, info.Size(), fileType, now, info.ModTime().Unix(),
	)
	if err != nil {
		// A racing ingester may have inserted the same hash between the
		// existence check and the insert.
		if isUniqueViolation(err) {
			if scanErr := s.db.QueryRowContext(ctx, `SELECT id FROM documents WHERE file_hash = ?`, fileHash).Scan(&existingID); scanErr == nil {
				return existingID, ErrDocumentExists
			}
		}
		return 0, fmt.Errorf("failed to insert document: %w", err)
	}

	docID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get document id: %w", err)
	}

	// Dedup both against the stored corpus and within this batch.
	seen := make(map[string]bool)
	entries := make([]vector.Entry, 0, len(chunks))
	stored := 0

	for i, chunk := range chunks {
		chunkHash := hashutil.Text(chunk)

		if seen[chunkHash] {
			metrics.ChunksDeduplicated.Inc()
			continue
		}
		seen[chunkHash] = true

		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM document_chunks WHERE chunk_hash = ?`, chunkHash).Scan(&exists)
		if err == nil {
			metrics.ChunksDeduplicated.Inc()
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("failed to check chunk hash: %w", err)
		}

		vectorKey := fmt.Sprintf("doc_%d_chunk_%d", docID, i)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO document_chunks (document_id, chunk_index, chunk_text, chunk_hash, vector_key, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			docID, i, chunk, chunkHash, vectorKey, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				metrics.ChunksDeduplicated.Inc()
				continue
			}
			return 0, fmt.Errorf("failed to insert chunk: %w", err)
		}
		stored++

		embedding, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}

		entries = append(entries, vector.Entry{
			Key:     vectorKey,
			Vector:  embedding,
			Content: chunk,
			Metadata: models.ChunkMetadata{
				DocumentID: docID,
				ChunkIndex: i,
				Filename:   filename,
				Filepath:   filePath,
			},
		})
	}

	if err := s.vectors.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE documents SET chunk_count = ?, status = 'processed' WHERE id = ?`, stored, docID)
	if err != nil {
		return 0, fmt.Errorf("failed to finalize document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	logger.Info("Document added",
		zap.Int64("document_id", docID),
		zap.String("filename", filename),
		zap.Int("chunks_stored", stored),
		zap.Int("chunks_deduplicated", len(chunks)-stored),
	)

	return docID, nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure,
// which the ingestion path treats as a dedup confirmation.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

// IsProcessed reports whether a file with this content hash has
// already been ingested.
func (s *Store) IsProcessed(ctx context.Context, filePath string) (bool, error) {
	fileHash, err := hashutil.File(filePath)
	if err != nil {
		return false, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM documents WHERE file_hash = ?`, fileHash).Scan(&id)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Store) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	query := `
		SELECT id, filename, filepath, file_hash, file_size, file_type, created_at, modified_at, chunk_count, status
		FROM documents WHERE id = ?
	`

	var doc models.Document
	var createdAt, modifiedAt int64

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.Filename, &doc.Filepath, &doc.FileHash, &doc.FileSize,
		&doc.FileType, &createdAt, &modifiedAt, &doc.ChunkCount, &doc.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.ModifiedAt = time.Unix(modifiedAt, 0)

	return &doc, nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]models.Document, error) {
	query := `
		SELECT id, filename, filepath, file_hash, file_size, file_type, created_at, modified_at, chunk_count, status
		FROM documents ORDER BY filename
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		var createdAt, modifiedAt int64

		err := rows.Scan(
			&doc.ID, &doc.Filename, &doc.Filepath, &doc.FileHash, &doc.FileSize,
			&doc.FileType, &createdAt, &modifiedAt, &doc.ChunkCount, &doc.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		doc.CreatedAt = time.Unix(createdAt, 0)
		doc.ModifiedAt = time.Unix(modifiedAt, 0)
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// DocumentText reassembles a document from its stored chunks in index
// order. Deduplicated chunks are absent, so the text may have gaps
// relative to the original file.
func (s *Store) DocumentText(ctx context.Context, docID int64) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_text FROM document_chunks WHERE document_id = ? ORDER BY chunk_index`, docID)
	if err != nil {
		return "", fmt.Errorf("failed to get chunks: %w", err)
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return "", fmt.Errorf("failed to scan row: %w", err)
		}
		parts = append(parts, text)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	return strings.Join(parts, "\n\n"), nil
}

// VectorKeysForDocuments returns the vector keys of all chunks owned
// by the given documents.
func (s *Store) VectorKeysForDocuments(ctx context.Context, docIDs []int64) ([]string, error) {
	if len(docIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(docIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(docIDs))
	for i, id := range docIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT vector_key FROM document_chunks WHERE document_id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get vector keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// SearchSimilar embeds the query and returns the topK most similar
// chunks. Embedding or backend failures are logged and surface as an
// empty result rather than an error.
func (s *Store) SearchSimilar(ctx context.Context, query string, topK int) []models.SearchResult {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Error("Failed to embed query", zap.Error(err))
		return nil
	}

	return s.searchByVector(ctx, embedding, topK, nil)
}

// SearchSimilarFiltered restricts similarity search to chunks owned by
// the given documents. An empty document set short-circuits before the
// embedding call.
func (s *Store) SearchSimilarFiltered(ctx context.Context, query string, topK int, docIDs []int64) []models.SearchResult {
	keys, err := s.VectorKeysForDocuments(ctx, docIDs)
	if err != nil {
		logger.Error("Failed to resolve vector keys", zap.Error(err))
		return nil
	}
	if len(keys) == 0 {
		return nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Error("Failed to embed query", zap.Error(err))
		return nil
	}

	return s.searchByVector(ctx, embedding, topK, keys)
}

func (s *Store) searchByVector(ctx context.Context, embedding []float32, topK int, allowedKeys []string) []models.SearchResult {
	matches, err := s.vectors.Query(ctx, embedding, topK, allowedKeys)
	if err != nil {
		logger.Error("Vector search failed", zap.Error(err))
		return nil
	}

	metrics.VectorResultsCount.Observe(float64(len(matches)))

	results := make([]models.SearchResult, len(matches))
	for i, m := range matches {
		results[i] = models.SearchResult{
			Content:    m.Content,
			Metadata:   m.Metadata,
			Similarity: 1 - m.Distance,
			VectorKey:  m.Key,
		}
	}

	return results
}
