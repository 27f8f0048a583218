package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/logos-rag/backend/internal/query"
	"github.com/logos-rag/backend/pkg/logger"
)

type QueryHandler struct {
	engine *query.Engine
}

func NewQueryHandler(engine *query.Engine) *QueryHandler {
	return &QueryHandler{engine: engine}
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req struct {
		Query           string `json:"query"`
		ReferenceFilter string `json:"reference_filter"`
		ConceptFilter   string `json:"concept_filter"`
		UseGeneration   *bool  `json:"use_generation"`
		TopK            int    `json:"top_k"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	useGeneration := true
	if req.UseGeneration != nil {
		useGeneration = *req.UseGeneration
	}

	var resp *query.Response
	switch {
	case req.ConceptFilter != "" && req.ReferenceFilter != "":
		resp = h.engine.QueryWithConceptAndReferenceFilter(c.Context(), req.Query, req.ConceptFilter, req.ReferenceFilter, useGeneration)
	case req.ConceptFilter != "":
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "concept_filter requires reference_filter",
		})
	case req.ReferenceFilter != "":
		resp = h.engine.QueryWithReferenceFilter(c.Context(), req.Query, req.ReferenceFilter, useGeneration)
	default:
		resp = h.engine.Query(c.Context(), req.Query, useGeneration, req.TopK)
	}

	return c.JSON(resp)
}

func (h *QueryHandler) GetQueryHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)

	records, err := h.engine.History(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to get query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get query history",
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}
