// cmd/backfill walks the gallery root and heals missing derivatives, either
// in process or by publishing regeneration requests for the workers.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tendant/simple-gallery/internal/app"
	"github.com/tendant/simple-gallery/internal/config"
)

type options struct {
	DryRun  bool
	Publish bool
	Limit   int
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		fatal(slog.Default(), "load config", err)
	}
	logger := app.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("backfill starting", "root", cfg.GalleryRoot, "dry_run", opts.DryRun, "publish", opts.Publish, "limit", opts.Limit)

	if opts.Publish && cfg.NATSURL == "" {
		fatal(logger, "publish mode needs a bus", errors.New("NATS_URL is empty"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		fatal(logger, "build gallery", err)
	}
	defer a.Close()

	b := &backfiller{
		manager: a.Manager,
		subject: cfg.RegenSubject,
		opts:    opts,
		logger:  logger,
	}
	if a.Bus != nil {
		b.publisher = a.Bus
	}

	stats, err := b.Run(ctx)
	if err != nil {
		fatal(logger, "backfill", err)
	}
	logger.Info("backfill finished",
		"scanned", stats.Scanned,
		"complete", stats.Complete,
		"regenerated", stats.Regenerated,
		"published", stats.Published,
		"failed", stats.Failed,
	)
}

func parseFlags() options {
	var opts options
	var execute bool
	flag.BoolVar(&opts.DryRun, "dry-run", true, "Only report originals with missing derivatives")
	flag.BoolVar(&execute, "execute", false, "Actually regenerate or publish (disables dry-run)")
	flag.BoolVar(&opts.Publish, "publish", false, "Publish regeneration requests to NATS instead of regenerating in process")
	flag.IntVar(&opts.Limit, "limit", 0, "Maximum number of incomplete originals to handle (0 = unlimited)")
	flag.Parse()
	if execute {
		opts.DryRun = false
	}
	return opts
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}
