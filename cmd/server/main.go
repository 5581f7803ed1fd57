// cmd/server serves the gallery HTTP API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tendant/simple-gallery/internal/app"
	"github.com/tendant/simple-gallery/internal/config"
	"github.com/tendant/simple-gallery/internal/httpapi"
	"github.com/tendant/simple-gallery/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal(slog.Default(), "load config", err)
	}
	logger := app.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("server starting", "addr", cfg.HTTPAddr, "root", cfg.GalleryRoot, "max_upload_bytes", cfg.MaxUploadBytes)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		fatal(logger, "build gallery", err)
	}
	defer a.Close()

	srv := httpapi.NewApp(httpapi.NewHandler(a.Manager, cfg.MaxUploadBytes, logger), metrics.Handler(a.Registry))

	errc := make(chan error, 1)
	go func() { errc <- srv.Listen(cfg.HTTPAddr) }()

	select {
	case err := <-errc:
		fatal(logger, "listen", err, "addr", cfg.HTTPAddr)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := srv.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", "err", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}
