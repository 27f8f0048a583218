package sqlite

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/logos-rag/backend/pkg/logger"
)

// Cleanup removes chunks whose owning document no longer exists,
// deletes their vectors and compacts the database file.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	keys, err := s.orphanVectorKeys(ctx)
	if err != nil {
		return 0, err
	}

	if len(keys) > 0 {
		if err := s.vectors.Delete(ctx, keys); err != nil {
			return 0, fmt.Errorf("failed to delete orphan vectors: %w", err)
		}
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM document_chunks WHERE document_id NOT IN (SELECT id FROM documents)`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan chunks: %w", err)
	}
	removed, _ := res.RowsAffected()

	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return removed, fmt.Errorf("failed to vacuum: %w", err)
	}

	logger.Info("Store cleanup complete", zap.Int64("orphan_chunks_removed", removed))
	return removed, nil
}

// ClearAll wipes documents, chunks, both secondary indexes and the
// vector backend. Query history is kept.
func (s *Store) ClearAll(ctx context.Context) error {
	keys, err := s.allVectorKeys(ctx)
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		if err := s.vectors.Delete(ctx, keys); err != nil {
			return fmt.Errorf("failed to clear vectors: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"scripture_index", "theological_concept_index", "document_chunks", "documents"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	logger.Info("Store cleared", zap.Int("vectors_removed", len(keys)))
	return nil
}

func (s *Store) orphanVectorKeys(ctx context.Context) ([]string, error) {
	return s.scanKeys(ctx,
		`SELECT vector_key FROM document_chunks WHERE document_id NOT IN (SELECT id FROM documents) AND vector_key != ''`)
}

func (s *Store) allVectorKeys(ctx context.Context) ([]string, error) {
	return s.scanKeys(ctx, `SELECT vector_key FROM document_chunks WHERE vector_key != ''`)
}

func (s *Store) scanKeys(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
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
