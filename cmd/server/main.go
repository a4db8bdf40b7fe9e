// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/classkit/internal/auth"
	"github.com/jason-s-yu/classkit/internal/config"
	"github.com/jason-s-yu/classkit/internal/generator"
	"github.com/jason-s-yu/classkit/internal/handlers"
	"github.com/jason-s-yu/classkit/internal/handoff"
	"github.com/jason-s-yu/classkit/internal/settings"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()
	logger.WithFields(cfg.LogFields()).Info("starting classkit")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issuer, err := auth.NewIssuer(cfg.TokenExpireTime)
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	store, closeStore := newHandoffStore(ctx, cfg, logger)
	defer closeStore()

	var gen generator.Generator
	if cfg.MockGenerator() {
		logger.Warn("no LLM configured, using the mock content generator")
		gen = generator.NewMockGenerator()
	} else {
		gen = generator.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	}
	genService := generator.NewService(gen, generator.ServiceConfig{
		Timeout:  cfg.GenerationTimeout,
		Fallback: cfg.FallbackContent,
	})

	srv := handlers.NewServer(logger, store, genService, issuer)
	srv.Settings = settings.Settings{Theme: settings.Theme(cfg.DefaultTheme)}
	srv.IdleTimeout = cfg.IdleTimeout
	srv.OriginPatterns = cfg.AllowedOrigins
	if len(srv.OriginPatterns) == 0 && !cfg.IsProduction() {
		srv.OriginPatterns = []string{"*"}
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Running on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("graceful shutdown failed: %v", err)
	}
}

// newHandoffStore picks the session handoff backend. The returned func releases it.
func newHandoffStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (handoff.Store, func()) {
	if cfg.HandoffBackend != "redis" {
		return handoff.NewMemoryStore(cfg.HandoffTTL, nil), func() {}
	}

	rdb, err := handoff.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("handoff: %v", err)
	}
	logger.Infof("handoff store: redis at %s", cfg.RedisAddr)
	return handoff.NewRedisStore(rdb, cfg.HandoffTTL), func() { closeRedis(rdb, logger) }
}

func closeRedis(rdb *redis.Client, logger *logrus.Logger) {
	if err := rdb.Close(); err != nil {
		logger.Warnf("closing redis: %v", err)
	}
}
