package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/capitalize-ai/classroom/internal/config"
	"github.com/capitalize-ai/classroom/internal/service"
	"github.com/capitalize-ai/classroom/internal/store"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

// app holds what every subcommand shares.
type app struct {
	verbose bool

	cfg   *config.Config
	log   *logger.Logger
	store *store.Store
}

func (a *app) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.cfg = config.Load()

	level := a.cfg.LogLevel
	if a.verbose {
		level = "debug"
	}
	log, err := logger.New(level)
	if err != nil {
		return err
	}
	a.log = log

	s, err := store.Open(ctx, a.cfg.DatabaseDriver, a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	a.store = s
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("failed to close store", zap.Error(err))
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func (a *app) authService() *service.AuthService {
	return service.NewAuthService(a.store, service.AuthConfig{
		Secret:     []byte(a.cfg.SessionSecret),
		SessionTTL: a.cfg.SessionTTL,
	}, a.log)
}
