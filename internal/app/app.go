// Package app wires configuration into a ready gallery Manager with its
// optional Redis lock, NATS bus and Prometheus registry.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/tendant/simple-gallery/internal/bus"
	"github.com/tendant/simple-gallery/internal/config"
	"github.com/tendant/simple-gallery/internal/gallery"
	"github.com/tendant/simple-gallery/internal/lock"
	"github.com/tendant/simple-gallery/internal/metrics"
)

type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Manager  *gallery.Manager
	Bus      *bus.Client
	Redis    *redis.Client
	Registry *prometheus.Registry
}

// NewLogger builds the text logger every binary uses.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// New connects the optional backends named in cfg. Callers must Close the
// result.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := os.MkdirAll(cfg.GalleryRoot, 0o755); err != nil {
		return nil, fmt.Errorf("ensure gallery root: %w", err)
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		a.Redis = redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.Redis.Ping(pingCtx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		locker = lock.NewRedisLocker(a.Redis, cfg.LockTTL, logger)
		logger.Info("using redis asset lock", "ttl", cfg.LockTTL)
	}

	opts := gallery.Options{
		Locker:        locker,
		SubjectPrefix: cfg.SubjectPrefix,
		MaxPixels:     cfg.MaxPixels,
		Metrics:       metrics.New(a.Registry),
		Logger:        logger,
	}
	if cfg.NATSURL != "" {
		nc, err := bus.Connect(cfg.NATSURL, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Bus = nc
		opts.Publisher = nc
		logger.Info("connected to NATS", "nats_url", cfg.NATSURL)
	}

	a.Manager = gallery.NewManager(gallery.NewResolver(cfg.GalleryRoot, cfg.GallerySpecs()), opts)
	logger.Info("gallery ready", "root", a.Manager.Resolver().Root(), "derivatives", len(cfg.Derivatives))
	return a, nil
}

func (a *App) Close() {
	if a.Bus != nil {
		a.Bus.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("close redis", "err", err)
		}
	}
}
