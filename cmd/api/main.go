package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/docuqa/backend/internal/api/handlers"
	redisCache "github.com/docuqa/backend/internal/cache/redis"
	"github.com/docuqa/backend/internal/enrich"
	"github.com/docuqa/backend/internal/evaluation"
	"github.com/docuqa/backend/internal/ingestion"
	kgraph "github.com/docuqa/backend/internal/kgraph/neo4j"
	"github.com/docuqa/backend/internal/middleware/ratelimit"
	"github.com/docuqa/backend/internal/middleware/security"
	"github.com/docuqa/backend/internal/middleware/validation"
	"github.com/docuqa/backend/internal/qa"
	"github.com/docuqa/backend/internal/query"
	"github.com/docuqa/backend/internal/relations"
	"github.com/docuqa/backend/internal/storage/sqlite"
	"github.com/docuqa/backend/internal/syncengine"
	"github.com/docuqa/backend/pkg/config"
	appLogger "github.com/docuqa/backend/pkg/logger"
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

	appLogger.Info("Starting DocuQA API Server")

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var cacheClient *redisCache.Client
	if cfg.Redis.Enabled {
		cacheClient, err = redisCache.NewClient(cfg.Redis)
		if err != nil {
			appLogger.Warn("Redis unavailable, answer caching disabled", zap.Error(err))
			cacheClient = nil
		} else {
			defer cacheClient.Close()
		}
	}

	var graphClient *kgraph.Client
	if cfg.Neo4j.Enabled {
		graphClient, err = kgraph.NewClient(cfg.Neo4j)
		if err != nil {
			appLogger.Warn("Neo4j unavailable, graph mirroring disabled", zap.Error(err))
			graphClient = nil
		} else {
			defer graphClient.Close(context.Background())
		}
	}

	enrichClient := enrich.NewClient(cfg.Enrichment)

	var mirror syncengine.GraphMirror
	if graphClient != nil {
		mirror = graphClient
	}
	var invalidator syncengine.CacheInvalidator
	if cacheClient != nil {
		invalidator = cacheClient
	}
	syncEngine := syncengine.NewEngine(sqliteClient, mirror, invalidator)

	resolver := qa.NewResolver(cfg.QA)
	registry := qa.NewRegistry(sqliteClient, syncEngine)
	relationHandler := relations.NewHandler(sqliteClient, cfg.QA.RelationListMax)
	relationService := relations.NewService(sqliteClient, syncEngine)
	relationExecutor := relations.NewExecutor(relationService)
	processor := ingestion.NewProcessor(sqliteClient)
	evaluator := evaluation.NewEvaluator(sqliteClient, resolver)

	var answerCache query.AnswerCache
	if cacheClient != nil {
		answerCache = cacheClient
	}
	var enricher query.Enricher
	if enrichClient.Enabled() {
		enricher = enrichClient
	}
	queryEngine := query.NewEngine(sqliteClient, resolver, registry, relationHandler, answerCache, enricher)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Actor, X-Privileged",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		MaxDocumentSize: cfg.Server.BodyLimit,
		Logger:          appLogger.GetLogger(),
	}))

	askHandler := handlers.NewAskHandler(queryEngine)
	qaHandler := handlers.NewQAHandler(registry, sqliteClient)
	relHandler := handlers.NewRelationHandler(relationService, relationExecutor)
	syncHandler := handlers.NewSyncHandler(syncEngine, evaluator)
	documentHandler := handlers.NewDocumentHandler(processor)
	wsHandler := handlers.NewWebSocketHandler(queryEngine)

	api := app.Group("/api/v1")

	api.Post("/ask", askHandler.Ask)
	api.Get("/questions", askHandler.History)

	api.Post("/qa/validate", qaHandler.Validate)
	api.Post("/qa/:id/correct", qaHandler.Correct)
	api.Get("/qa", qaHandler.List)
	api.Delete("/qa/:id", qaHandler.Delete)
	api.Post("/feedback", qaHandler.Feedback)

	api.Post("/relations", relHandler.Create)
	api.Put("/relations/:id", relHandler.Update)
	api.Delete("/relations/:id", relHandler.Delete)
	api.Post("/relations/:id/validate", relHandler.Validate)
	api.Post("/relations/confirm", relHandler.Confirm)

	api.Post("/sync/:document_id", syncHandler.Sync)
	api.Get("/sync/:document_id/status", syncHandler.Status)
	api.Post("/evaluate/:document_id", syncHandler.Evaluate)

	api.Post("/documents", documentHandler.Import)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/ask", websocket.New(wsHandler.HandleAsk))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

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
