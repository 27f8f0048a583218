// Package sqlite is the relational metadata store. It owns all SQL in
// the system: documents, chunks, both secondary indexes and the query
// history log live here.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/logos-rag/backend/internal/llm"
	"github.com/logos-rag/backend/internal/storage/models"
	"github.com/logos-rag/backend/internal/vector"
	"github.com/logos-rag/backend/pkg/hashutil"
	"github.com/logos-rag/backend/pkg/logger"
)

// ErrDocumentExists is returned by AddDocument when a document with
// the same content hash is already stored.
var ErrDocumentExists = errors.New("document already exists")

type Store struct {
	db       *sql.DB
	vectors  vector.Index
	embedder llm.Provider
}

// NewStore opens the database in WAL mode with the given busy timeout
// in milliseconds. The vector index and embedder are used by the
// ingestion and search paths.
func NewStore(dbPath string, busyTimeoutMS int, vectors vector.Index, embedder llm.Provider) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on", dbPath, busyTimeoutMS)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger.Info("SQLite store initialized", zap.String("path", dbPath))

	return &Store{db: db, vectors: vectors, embedder: embedder}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		filepath TEXT UNIQUE NOT NULL,
		file_hash TEXT UNIQUE NOT NULL,
		file_size INTEGER NOT NULL,
		file_type TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		modified_at INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'processed'
	);
	CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(file_hash);
	CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(file_type);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL,
		chunk_index INTEGER NOT NULL,
		chunk_text TEXT NOT NULL,
		chunk_hash TEXT UNIQUE NOT NULL,
		vector_key TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document ON document_chunks(document_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_hash ON document_chunks(chunk_hash);

	CREATE TABLE IF NOT EXISTS scripture_index (
		reference TEXT NOT NULL,
		document_id INTEGER NOT NULL,
		context_snippets TEXT,
		normalized_reference TEXT,
		PRIMARY KEY (reference, document_id),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_scripture_normalized ON scripture_index(normalized_reference);

	CREATE TABLE IF NOT EXISTS theological_concept_index (
		concept TEXT NOT NULL,
		document_id INTEGER NOT NULL,
		frequency INTEGER NOT NULL DEFAULT 0,
		context_snippets TEXT,
		PRIMARY KEY (concept, document_id),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_concept_name ON theological_concept_index(concept);

	CREATE TABLE IF NOT EXISTS query_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_text TEXT NOT NULL,
		query_hash TEXT NOT NULL,
		results_count INTEGER NOT NULL,
		execution_time REAL NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_history(created_at);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// RecordQuery appends one row to the query history log.
func (s *Store) RecordQuery(ctx context.Context, queryText string, resultsCount int, executionTime float64) error {
	query := `INSERT INTO query_history (query_text, query_hash, results_count, execution_time, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		queryText,
		hashutil.Text(queryText),
		resultsCount,
		executionTime,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}

	return nil
}

func (s *Store) QueryHistory(ctx context.Context, limit int) ([]models.QueryRecord, error) {
	query := `
		SELECT id, query_text, query_hash, results_count, execution_time, created_at
		FROM query_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get query history: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var r models.QueryRecord
		var createdAt int64

		err := rows.Scan(&r.ID, &r.QueryText, &r.QueryHash, &r.ResultsCount, &r.ExecutionTime, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

// Stats aggregates corpus counts. The vector count comes from the
// vector backend, not from the relational tables.
func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{FileTypeDistribution: make(map[string]int64)}

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(file_size), 0) FROM documents`).
		Scan(&stats.DocumentCount, &stats.TotalFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&stats.ChunkCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT file_type, COUNT(*) FROM documents GROUP BY file_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to get file type distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fileType string
		var count int64
		if err := rows.Scan(&fileType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		stats.FileTypeDistribution[fileType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vectorCount, err := s.vectors.Count(ctx)
	if err != nil {
		logger.Warn("Failed to count vectors", zap.Error(err))
	} else {
		stats.VectorCount = vectorCount
	}

	return stats, nil
}
