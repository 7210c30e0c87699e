package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/smartgrade-ai/smartgrade-go-api/internal/config"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/database"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/handler"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/middleware"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/models"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/repository"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/router"
	"github.com/smartgrade-ai/smartgrade-go-api/internal/service"
	"github.com/smartgrade-ai/smartgrade-go-api/pkg/ai"
	"github.com/smartgrade-ai/smartgrade-go-api/pkg/ocr"
	"github.com/smartgrade-ai/smartgrade-go-api/pkg/pdfdoc"
	"github.com/smartgrade-ai/smartgrade-go-api/pkg/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Evaluation{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer cache.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	grader := ai.NewClient(ai.ClientConfig{
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.GradingModel,
		MaxTokens:   cfg.MaxTokens,
		Temperature: float32(cfg.Temperature),
		Logger:      logger,
	})

	vision := ai.NewVisionClient(ai.VisionConfig{
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.VisionModel,
		MaxTokens:   cfg.MaxTokens,
		Temperature: float32(cfg.Temperature),
		Logger:      logger,
	})

	ocrChain := ocr.NewChain(logger,
		ocr.NewVisionStrategy(vision),
		ocr.NewTesseractStrategy(),
	)

	evaluationRepo := repository.NewEvaluationRepository(db)

	evaluationService := service.NewEvaluationService(grader, evaluationRepo, validate, cfg, logger)
	extractionService := service.NewExtractionService(pdfdoc.NewReader(), ocrChain, cache, service.ExtractionConfig{
		MaxUploadMB:          cfg.MaxUploadMB,
		DigitalTextThreshold: cfg.DigitalTextThreshold,
		RenderDPI:            cfg.RenderDPI,
		CacheTTL:             cfg.ExtractionCacheTTL,
	}, logger)
	reportService := service.NewReportService(report.NewPDFRenderer(), validate, cfg.Thresholds, logger)
	historyService := service.NewHistoryService(evaluationRepo, cfg.Thresholds, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.MaxUploadMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		EvaluationHandler: handler.NewEvaluationHandler(evaluationService, logger),
		ExtractionHandler: handler.NewExtractionHandler(extractionService, logger),
		ReportHandler:     handler.NewReportHandler(reportService, logger),
		HistoryHandler:    handler.NewHistoryHandler(historyService, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
