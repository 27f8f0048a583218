package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/logos-rag/backend/internal/cache/redis"
	"github.com/logos-rag/backend/internal/index/concepts"
	"github.com/logos-rag/backend/internal/index/scripture"
	"github.com/logos-rag/backend/internal/storage/sqlite"
	"github.com/logos-rag/backend/pkg/logger"
)

type IndexHandler struct {
	store      *sqlite.Store
	refIdx     *scripture.Indexer
	conceptIdx *concepts.Indexer
	cache      *redis.Client
}

// NewIndexHandler wires the rebuild and statistics endpoints. cache may
// be nil when response caching is disabled.
func NewIndexHandler(store *sqlite.Store, refIdx *scripture.Indexer, conceptIdx *concepts.Indexer, cache *redis.Client) *IndexHandler {
	return &IndexHandler{
		store:      store,
		refIdx:     refIdx,
		conceptIdx: conceptIdx,
		cache:      cache,
	}
}

func (h *IndexHandler) HandleRebuild(c *fiber.Ctx) error {
	referencesOK := h.refIdx.RebuildAll(c.Context())
	conceptsOK := h.conceptIdx.RebuildAll(c.Context())

	if h.cache != nil {
		if err := h.cache.InvalidateQueryCache(c.Context()); err != nil {
			logger.Warn("Failed to invalidate query cache", zap.Error(err))
		}
	}

	status := fiber.StatusOK
	if !referencesOK || !conceptsOK {
		status = fiber.StatusMultiStatus
	}

	return c.Status(status).JSON(fiber.Map{
		"references_ok": referencesOK,
		"concepts_ok":   conceptsOK,
	})
}

func (h *IndexHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.store.Stats(c.Context())
	if err != nil {
		logger.Error("Failed to collect stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to collect stats",
		})
	}

	refStats, err := h.refIdx.Statistics(c.Context())
	if err != nil {
		logger.Error("Failed to collect scripture statistics", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to collect scripture statistics",
		})
	}

	conceptStats, err := h.conceptIdx.Statistics(c.Context())
	if err != nil {
		logger.Error("Failed to collect concept statistics", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to collect concept statistics",
		})
	}

	return c.JSON(fiber.Map{
		"storage":    stats,
		"references": refStats,
		"concepts":   conceptStats,
	})
}
