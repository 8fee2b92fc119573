// Package main is the entry point for the classroom API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/classroom/internal/config"
	"github.com/capitalize-ai/classroom/internal/handler"
	"github.com/capitalize-ai/classroom/internal/llm"
	natsclient "github.com/capitalize-ai/classroom/internal/nats"
	"github.com/capitalize-ai/classroom/internal/service"
	"github.com/capitalize-ai/classroom/internal/store"
	"github.com/capitalize-ai/classroom/pkg/logger"
	"github.com/capitalize-ai/classroom/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	if cfg.IsDevelopment() {
		return logger.NewDevelopment()
	}
	return logger.New(cfg.LogLevel)
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting API server", zap.String("driver", cfg.DatabaseDriver))

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "classroom", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	db, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx, log); err != nil {
		return err
	}

	registry, err := llm.NewRegistryFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure AI providers: %w", err)
	}
	log.Info("AI providers configured", zap.Strings("providers", registry.Available()))
	dispatcher := llm.NewDispatcher(registry, cfg.LLMTimeout, log)

	// The event bus is optional; without NATS_URL activity stays in the database only.
	var (
		publisher  service.EventPublisher
		natsHealth handler.ConnChecker
	)
	if cfg.NATSURL != "" {
		nc, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
			Name:     "classroom-api",
		}, log)
		if err != nil {
			return err
		}
		defer nc.Close()

		events := natsclient.NewPublisher(nc)
		if err := events.EnsureStream(ctx); err != nil {
			return fmt.Errorf("failed to ensure stream: %w", err)
		}
		publisher = events
		natsHealth = nc
	}

	activity := service.NewActivityRecorder(db, publisher, log)

	authSvc := service.NewAuthService(db, service.AuthConfig{
		Secret:     []byte(cfg.SessionSecret),
		SessionTTL: cfg.SessionTTL,
	}, log)
	aiConfigSvc := service.NewAIConfigService(db, registry, log)
	conversationSvc := service.NewConversationService(db, dispatcher, activity, log)
	annotationSvc := service.NewAnnotationService(db, activity)
	documentSvc := service.NewDocumentService(db, activity)
	projectSvc := service.NewProjectService(db, activity, log)
	teacherSvc := service.NewTeacherService(db, projectSvc, activity, log)
	uploadSvc, err := service.NewUploadService(cfg.UploadDir, cfg.UploadMaxBytes, activity, log)
	if err != nil {
		return err
	}

	router := handler.NewRouter(handler.Deps{
		Logger:            log,
		Authenticator:     authSvc,
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,

		Health:        handler.NewHealthHandler(db, natsHealth),
		Auth:          handler.NewAuthHandler(authSvc, log),
		Conversations: handler.NewConversationHandler(conversationSvc, log),
		AIConfigs:     handler.NewAIConfigHandler(aiConfigSvc, log),
		Annotations:   handler.NewAnnotationHandler(annotationSvc, log),
		Documents:     handler.NewDocumentHandler(documentSvc, log),
		Projects:      handler.NewProjectHandler(projectSvc, log),
		Teacher:       handler.NewTeacherHandler(teacherSvc, log),
		Uploads:       handler.NewUploadHandler(uploadSvc, log),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
