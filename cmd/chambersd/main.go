package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GasCanCharlie/chambers-api/internal/audit"
	"github.com/GasCanCharlie/chambers-api/internal/auth"
	"github.com/GasCanCharlie/chambers-api/internal/bridge"
	"github.com/GasCanCharlie/chambers-api/internal/config"
	"github.com/GasCanCharlie/chambers-api/internal/httpapi"
	"github.com/GasCanCharlie/chambers-api/internal/observability"
	"github.com/GasCanCharlie/chambers-api/internal/ratelimit"
	"github.com/GasCanCharlie/chambers-api/internal/realtime"
	"github.com/GasCanCharlie/chambers-api/internal/store"
)

func main() {
	audit.Init(os.Getenv("LOG_LEVEL"))
	log := audit.L()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config error", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	st, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("store init failed", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	verifier, err := auth.NewJWTVerifier(cfg.AuthJWTSecret)
	if err != nil {
		log.Error("auth init failed", "error", err)
		os.Exit(1)
	}

	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set, reflection sessions will fail to connect")
	}

	upstream := func(voice string, sink realtime.EventSink) bridge.UpstreamSession {
		return realtime.NewSession(realtime.Config{
			BaseURL:        cfg.RealtimeBaseURL,
			APIKey:         cfg.OpenAIAPIKey,
			Model:          cfg.RealtimeModel,
			Voice:          voice,
			Instructions:   cfg.SystemInstructions,
			ConnectTimeout: cfg.ConnectTimeout,
		}, sink)
	}

	br := bridge.New(
		bridge.Config{
			DefaultVoice:   cfg.DefaultVoice,
			SessionTimeout: cfg.SessionTimeout,
		},
		verifier,
		ratelimit.New(cfg.RateLimitPerSecond, time.Second),
		upstream,
		metrics,
		st,
	)

	api := httpapi.New(cfg, st, verifier, br, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Info("server listening", "addr", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		_ = httpServer.Close()
	}

	log.Info("shutdown complete")
}
