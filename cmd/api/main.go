package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/logos-rag/backend/internal/api/handlers"
	"github.com/logos-rag/backend/internal/cache/redis"
	"github.com/logos-rag/backend/internal/chunker"
	"github.com/logos-rag/backend/internal/index/concepts"
	"github.com/logos-rag/backend/internal/index/scripture"
	"github.com/logos-rag/backend/internal/ingestion"
	"github.com/logos-rag/backend/internal/llm"
	"github.com/logos-rag/backend/internal/metrics"
	"github.com/logos-rag/backend/internal/query"
	"github.com/logos-rag/backend/internal/storage/sqlite"
	"github.com/logos-rag/backend/internal/vector"
	"github.com/logos-rag/backend/internal/vector/local"
	"github.com/logos-rag/backend/internal/vector/milvus"
	"github.com/logos-rag/backend/pkg/config"
	appLogger "github.com/logos-rag/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Logos RAG API Server")

	metrics.Init()

	var vectorIndex vector.Index
	switch cfg.Vector.Provider {
	case "milvus":
		milvusClient, err := milvus.NewClient(
			cfg.Vector.Endpoint,
			cfg.Vector.CollectionName,
			cfg.Vector.Dim,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
		}
		defer milvusClient.Close()

		err = milvusClient.EnsureCollection(context.Background())
		if err != nil {
			appLogger.Fatal("Failed to ensure collection", zap.Error(err))
		}
		vectorIndex = milvusClient
	case "local":
		vectorIndex = local.New()
	default:
		appLogger.Fatal("Unknown vector provider", zap.String("provider", cfg.Vector.Provider))
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, continuing without cache", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	var provider llm.Provider = llmClient
	if cache != nil {
		provider = llm.NewCachedProvider(llmClient, cache, 0)
	}

	store, err := sqlite.NewStore(cfg.SQLite.Path, cfg.SQLite.BusyTimeout, vectorIndex, provider)
	if err != nil {
		appLogger.Fatal("Failed to open content store", zap.Error(err))
	}
	defer store.Close()

	err = store.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	refIndexer := scripture.NewIndexer(store)
	conceptIndexer := concepts.NewIndexer(store, concepts.LoadVocabulary(cfg.Concepts.VocabularyPath))

	queryEngine := query.NewEngine(store, refIndexer, conceptIndexer, scripture.StaticVerses{}, provider, cache, query.Config{
		MaxResults:     cfg.Output.MaxResults,
		IncludeSources: cfg.Output.IncludeSources,
	})

	processor := ingestion.NewProcessor(store, chunker.Config{
		MaxSize: cfg.Ingestion.MaxChunkSize,
		Overlap: cfg.Ingestion.ChunkOverlap,
	}, refIndexer, conceptIndexer)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	queryHandler := handlers.NewQueryHandler(queryEngine)
	documentHandler := handlers.NewDocumentHandler(store, processor, refIndexer, conceptIndexer, cache)
	indexHandler := handlers.NewIndexHandler(store, refIndexer, conceptIndexer, cache)

	api := app.Group("/api/v1")

	api.Post("/query", queryHandler.HandleQuery)
	api.Get("/query/history", queryHandler.GetQueryHistory)

	api.Post("/documents/ingest", documentHandler.HandleIngest)
	api.Get("/documents", documentHandler.ListDocuments)
	api.Post("/documents/cleanup", documentHandler.HandleCleanup)
	api.Delete("/documents", documentHandler.HandleClearAll)
	api.Get("/documents/:id/references", documentHandler.GetDocumentReferences)
	api.Get("/documents/:id/concepts", documentHandler.GetDocumentConcepts)

	api.Post("/index/rebuild", indexHandler.HandleRebuild)
	api.Get("/stats", indexHandler.GetStats)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
