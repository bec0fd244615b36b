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
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradehub-api/internal/config"
	"github.com/noah-isme/gradehub-api/internal/database"
	"github.com/noah-isme/gradehub-api/internal/events"
	"github.com/noah-isme/gradehub-api/internal/handler"
	"github.com/noah-isme/gradehub-api/internal/middleware"
	"github.com/noah-isme/gradehub-api/internal/repository"
	"github.com/noah-isme/gradehub-api/internal/router"
	"github.com/noah-isme/gradehub-api/internal/service"
	"github.com/noah-isme/gradehub-api/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	registry, err := config.LoadCourseRegistry(cfg.CourseConfigPath)
	if err != nil {
		log.Fatalf("failed to load course configuration: %v", err)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	var publisher events.Publisher = events.NopPublisher{}
	if natsConn != nil {
		defer natsConn.Close()
		publisher = events.NewNATSPublisher(natsConn, cfg.NATSSubjectBase, logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	summaryRepo := repository.NewSummaryRepository(db)
	ingestRepo := repository.NewIngestRepository(db)

	adapters := buildAdapters(cfg, logger)

	retry := source.RetryPolicy{
		MaxAttempts: cfg.SyncRetryAttempts,
		BaseDelay:   cfg.SyncRetryBaseDelay,
		CallTimeout: cfg.SyncCallTimeout,
	}

	ingestService := service.NewIngestService(ingestRepo, validate, logger)
	summaryService := service.NewSummaryService(courseRepo, assignmentRepo, studentRepo, submissionRepo, summaryRepo, redisClient, cfg.SummaryCacheTTL, logger)
	syncService := service.NewSyncService(registry, adapters, ingestService, summaryService, retry, publisher, logger)

	syncHandler := handler.NewSyncHandler(syncService, logger)
	summaryHandler := handler.NewSummaryHandler(summaryService, logger)
	ingestHandler := handler.NewIngestHandler(ingestService, summaryService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SyncHandler:    syncHandler,
		SummaryHandler: summaryHandler,
		IngestHandler:  ingestHandler,
		JWTMiddleware:  middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

// buildAdapters wires every source whose credentials are present. A course
// referencing a source without credentials fails that source at sync time
// with an explicit report entry.
func buildAdapters(cfg config.Config, logger zerolog.Logger) map[string]source.Adapter {
	adapters := map[string]source.Adapter{}

	if cfg.GradebookBaseURL != "" {
		gradebook, err := source.NewGradebookSource(source.GradebookConfig{
			BaseURL:  cfg.GradebookBaseURL,
			Email:    cfg.GradebookEmail,
			Password: cfg.GradebookPassword,
		}, logger)
		if err != nil {
			log.Fatalf("failed to configure gradebook source: %v", err)
		}
		adapters[gradebook.Name()] = gradebook
	}

	if cfg.AssessmentBaseURL != "" {
		assessment, err := source.NewAssessmentSource(source.AssessmentConfig{
			BaseURL:  cfg.AssessmentBaseURL,
			APIToken: cfg.AssessmentAPIToken,
		}, logger)
		if err != nil {
			log.Fatalf("failed to configure assessment source: %v", err)
		}
		adapters[assessment.Name()] = assessment
	}

	if cfg.ResponsesBaseURL != "" {
		responses, err := source.NewResponseSource(source.ResponseConfig{
			BaseURL:  cfg.ResponsesBaseURL,
			Username: cfg.ResponsesUsername,
			Password: cfg.ResponsesPassword,
		}, logger)
		if err != nil {
			log.Fatalf("failed to configure response source: %v", err)
		}
		adapters[responses.Name()] = responses
	}

	return adapters
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
