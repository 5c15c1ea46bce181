package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookcatalog/internal/config"
	"bookcatalog/internal/httpx"
	"bookcatalog/internal/listview"
	"bookcatalog/internal/platform/catalogapi"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("web exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := catalogapi.NewClient(cfg.APIBaseURL, catalogapi.Options{
		Timeout: 5 * time.Second,
		RPS:     cfg.RateLimitRPS,
	})
	logger.Info("using catalog API", slog.String("base_url", cfg.APIBaseURL))

	pages := listview.NewHandler(ctx, client, logger, 30*time.Minute, listview.DefaultMaxVisitors)
	rateLimiter := httpx.NewRateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustProxy)

	router := http.NewServeMux()
	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	pages.Register(router)

	handler := httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(logger),
		httpx.RecoveryMiddleware(logger),
		httpx.SecurityHeadersMiddleware,
		httpx.RequestSizeLimitMiddleware(4<<10),
		rateLimiter.Middleware,
	)
	return httpx.Serve(ctx, httpx.NewServer(cfg.WebAddr, handler), logger, 20*time.Second)
}
