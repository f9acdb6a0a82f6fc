package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	httpHandler "github.com/mmuslimabdulj/talep-presence/internal/delivery/http"
	"github.com/mmuslimabdulj/talep-presence/internal/auth"
	"github.com/mmuslimabdulj/talep-presence/internal/config"
	"github.com/mmuslimabdulj/talep-presence/internal/delivery/ws"
	"github.com/mmuslimabdulj/talep-presence/internal/logging"
	"github.com/mmuslimabdulj/talep-presence/internal/middleware"
	"github.com/mmuslimabdulj/talep-presence/internal/presence"
	"github.com/spf13/pflag"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path to an optional .env file")
	port := pflag.String("port", "", "listen port (overrides PORT)")
	pflag.Parse()

	// Load .env file (ignore error if not exists, e.g. in production)
	_ = godotenv.Load(*envFile)

	cfg := config.LoadFromEnv()
	if *port != "" {
		cfg.Port = *port
	}

	logger := logging.New(cfg)
	if cfg.JWTSecret == config.DefaultJWTSecret {
		logger.Warn().Msg("JWT_SECRET not set, using development secret")
	}

	// Initialize dependencies
	registry := presence.NewRegistry()
	hub := ws.NewHub(registry, logger)
	hub.SetWatcherRoles(cfg.WatcherRoles)
	hub.SetMaxMessageSize(cfg.MaxMessageSize)
	go hub.Run()

	limiters := httpHandler.Limiters{
		API:       middleware.NewIPRateLimiter(cfg.RateLimitAPI, 20),
		WebSocket: middleware.NewIPRateLimiter(cfg.RateLimitWS, 10),
	}

	handler := httpHandler.NewHandler(cfg, hub, registry, auth.NewVerifier(cfg.JWTSecret), logger)

	// Create server with timeouts. WriteTimeout stays unset so long-lived
	// websocket writes are governed by the client's own deadlines.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler.NewRouter(handler, cfg, limiters, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Strs("watcher_roles", cfg.WatcherRoles).
			Msg("presence service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := hub.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("hub did not stop in time")
	}
	limiters.API.Stop()
	limiters.WebSocket.Stop()

	logger.Info().Msg("server exited gracefully")
}
