// cmd/worker regenerates missing derivatives on request from NATS.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tendant/simple-gallery/internal/app"
	"github.com/tendant/simple-gallery/internal/config"
	"github.com/tendant/simple-gallery/pkg/schema"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal(slog.Default(), "load config", err)
	}
	logger := app.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.NATSURL == "" {
		fatal(logger, "worker needs a bus", errors.New("NATS_URL is empty"))
	}
	logger.Info("worker starting", "nats_url", cfg.NATSURL, "subject", cfg.RegenSubject, "queue", cfg.WorkerQueue, "root", cfg.GalleryRoot)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		fatal(logger, "build gallery", err)
	}
	defer a.Close()

	w := &worker{
		manager:       a.Manager,
		publisher:     a.Bus,
		resultSubject: schema.Subject(cfg.SubjectPrefix, schema.SubjectRegenerateResult),
		logger:        logger,
	}
	_, err = a.Bus.QueueSubscribeJSON(cfg.RegenSubject, cfg.WorkerQueue, w.handle)
	if err != nil {
		fatal(logger, "subscribe", err, "subject", cfg.RegenSubject, "queue", cfg.WorkerQueue)
	}
	logger.Info("listening for regeneration requests", "subject", cfg.RegenSubject, "queue", cfg.WorkerQueue)

	<-ctx.Done()
	logger.Info("worker stopping")
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}
