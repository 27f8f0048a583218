// Package milvus adapts a Milvus collection to the vector.Index
// contract. The collection uses the COSINE metric, so reported
// distances are cosine distances directly.
package milvus

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/logos-rag/backend/internal/storage/models"
	"github.com/logos-rag/backend/internal/vector"
	"github.com/logos-rag/backend/pkg/logger"
)

type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

func NewClient(endpoint, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(
		context.Background(),
		endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Theological document chunk embeddings",
		Fields: []*entity.Field{
			{
				Name:       "chunk_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "16384",
				},
			},
			{
				Name:     "document_id",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "filename",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "filepath",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "1024",
				},
			},
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.COSINE, 1024)
	if err != nil {
		return fmt.Errorf("failed to build index definition: %w", err)
	}
	err = m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = m.client.LoadCollection(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

func (m *Client) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(entries))
	embeddings := make([][]float32, len(entries))
	contents := make([]string, len(entries))
	documentIDs := make([]int64, len(entries))
	chunkIndexes := make([]int64, len(entries))
	filenames := make([]string, len(entries))
	filepaths := make([]string, len(entries))

	for i, e := range entries {
		chunkIDs[i] = e.Key
		embeddings[i] = e.Vector
		contents[i] = e.Content
		documentIDs[i] = e.Metadata.DocumentID
		chunkIndexes[i] = int64(e.Metadata.ChunkIndex)
		filenames[i] = e.Metadata.Filename
		filepaths[i] = e.Metadata.Filepath
	}

	_, err := m.client.Upsert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnInt64("document_id", documentIDs),
		entity.NewColumnInt64("chunk_index", chunkIndexes),
		entity.NewColumnVarChar("filename", filenames),
		entity.NewColumnVarChar("filepath", filepaths),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}

	err = m.client.Flush(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Chunks upserted into vector DB", zap.Int("count", len(entries)))

	return nil
}

func (m *Client) Query(ctx context.Context, vec []float32, k int, allowedKeys []string) ([]vector.Match, error) {
	expr := ""
	if allowedKeys != nil {
		if len(allowedKeys) == 0 {
			return nil, nil
		}
		expr = keyFilterExpr(allowedKeys)
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		[]string{"chunk_id", "content", "document_id", "chunk_index", "filename", "filepath"},
		[]entity.Vector{entity.FloatVector(vec)},
		"embedding",
		entity.COSINE,
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	matches := make([]vector.Match, 0)
	for _, sr := range searchResult {
		chunkIDCol := sr.Fields.GetColumn("chunk_id")
		contentCol := sr.Fields.GetColumn("content")
		documentIDCol := sr.Fields.GetColumn("document_id")
		chunkIndexCol := sr.Fields.GetColumn("chunk_index")
		filenameCol := sr.Fields.GetColumn("filename")
		filepathCol := sr.Fields.GetColumn("filepath")

		for i := 0; i < sr.ResultCount; i++ {
			chunkID, _ := chunkIDCol.Get(i)
			content, _ := contentCol.Get(i)
			documentID, _ := documentIDCol.Get(i)
			chunkIndex, _ := chunkIndexCol.Get(i)
			filename, _ := filenameCol.Get(i)
			filepath, _ := filepathCol.Get(i)

			matches = append(matches, vector.Match{
				Key: chunkID.(string),
				// COSINE scores are similarities; the contract reports
				// cosine distance.
				Distance: 1 - sr.Scores[i],
				Content:  content.(string),
				Metadata: models.ChunkMetadata{
					DocumentID: documentID.(int64),
					ChunkIndex: int(chunkIndex.(int64)),
					Filename:   filename.(string),
					Filepath:   filepath.(string),
				},
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", k),
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

func (m *Client) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	err := m.client.DeleteByPks(ctx, m.collectionName, "", entity.NewColumnVarChar("chunk_id", keys))
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	return nil
}

func (m *Client) Count(ctx context.Context) (int64, error) {
	stats, err := m.client.GetCollectionStatistics(ctx, m.collectionName)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection statistics: %w", err)
	}

	count, err := strconv.ParseInt(stats["row_count"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse row count: %w", err)
	}

	return count, nil
}

func keyFilterExpr(keys []string) string {
	quoted := make([]string, len(keys))
	for i, key := range keys {
		quoted[i] = fmt.Sprintf("%q", key)
	}
	return fmt.Sprintf("chunk_id in [%s]", strings.Join(quoted, ", "))
}
