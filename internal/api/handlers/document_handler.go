package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/logos-rag/backend/internal/cache/redis"
	"github.com/logos-rag/backend/internal/index/concepts"
	"github.com/logos-rag/backend/internal/index/scripture"
	"github.com/logos-rag/backend/internal/ingestion"
	"github.com/logos-rag/backend/internal/storage/sqlite"
	"github.com/logos-rag/backend/pkg/logger"
)

type DocumentHandler struct {
	store      *sqlite.Store
	processor  *ingestion.Processor
	refIdx     *scripture.Indexer
	conceptIdx *concepts.Indexer
	cache      *redis.Client
}

// NewDocumentHandler wires the ingestion and per-document index
// endpoints. cache may be nil when response caching is disabled.
func NewDocumentHandler(store *sqlite.Store, processor *ingestion.Processor, refIdx *scripture.Indexer, conceptIdx *concepts.Indexer, cache *redis.Client) *DocumentHandler {
	return &DocumentHandler{
		store:      store,
		processor:  processor,
		refIdx:     refIdx,
		conceptIdx: conceptIdx,
		cache:      cache,
	}
}

func (h *DocumentHandler) HandleIngest(c *fiber.Ctx) error {
	var req struct {
		Directory string   `json:"directory"`
		Files     []string `json:"files"`
		Force     bool     `json:"force"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Directory == "" && len(req.Files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Either directory or files is required",
		})
	}

	var result *ingestion.Result
	if req.Directory != "" {
		r, err := h.processor.ProcessDirectory(c.Context(), req.Directory)
		if err != nil {
			logger.Error("Directory ingestion failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":  "Ingestion failed",
				"result": r,
			})
		}
		result = r
	} else {
		result = h.processor.ProcessFiles(c.Context(), req.Files, req.Force)
	}

	if h.cache != nil && result.Processed > 0 {
		if err := h.cache.InvalidateQueryCache(c.Context()); err != nil {
			logger.Warn("Failed to invalidate query cache", zap.Error(err))
		}
	}

	return c.JSON(result)
}

func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	docs, err := h.store.ListDocuments(c.Context())
	if err != nil {
		logger.Error("Failed to list documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}

	return c.JSON(fiber.Map{
		"documents": docs,
	})
}

func (h *DocumentHandler) GetDocumentReferences(c *fiber.Ctx) error {
	docID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document id",
		})
	}

	entries, err := h.refIdx.DocumentReferences(c.Context(), int64(docID))
	if err != nil {
		logger.Error("Failed to get document references", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get document references",
		})
	}

	return c.JSON(fiber.Map{
		"document_id": docID,
		"references":  entries,
	})
}

func (h *DocumentHandler) HandleCleanup(c *fiber.Ctx) error {
	removed, err := h.store.Cleanup(c.Context())
	if err != nil {
		logger.Error("Cleanup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Cleanup failed",
		})
	}

	return c.JSON(fiber.Map{
		"orphan_chunks_removed": removed,
	})
}

func (h *DocumentHandler) HandleClearAll(c *fiber.Ctx) error {
	if err := h.store.ClearAll(c.Context()); err != nil {
		logger.Error("Clear failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Clear failed",
		})
	}

	if h.cache != nil {
		if err := h.cache.InvalidateQueryCache(c.Context()); err != nil {
			logger.Warn("Failed to invalidate query cache", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"status": "cleared",
	})
}

func (h *DocumentHandler) GetDocumentConcepts(c *fiber.Ctx) error {
	docID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document id",
		})
	}

	entries, err := h.conceptIdx.DocumentConcepts(c.Context(), int64(docID))
	if err != nil {
		logger.Error("Failed to get document concepts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get document concepts",
		})
	}

	return c.JSON(fiber.Map{
		"document_id": docID,
		"concepts":    entries,
	})
}
