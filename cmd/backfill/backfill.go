package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tendant/simple-gallery/internal/gallery"
	"github.com/tendant/simple-gallery/pkg/schema"
)

type Stats struct {
	Scanned     int
	Complete    int
	Regenerated int
	Published   int
	Failed      int
}

type backfiller struct {
	manager   *gallery.Manager
	publisher gallery.Publisher
	subject   string
	opts      options
	logger    *slog.Logger
}

// Run checks every original in name order. Per-asset failures are counted and
// logged; only a failure to list the root aborts the run.
func (b *backfiller) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	names, err := b.manager.Resolver().ListOriginals()
	if err != nil {
		return stats, err
	}

	handled := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if b.opts.Limit > 0 && handled >= b.opts.Limit {
			b.logger.Info("limit reached", "limit", b.opts.Limit)
			break
		}
		stats.Scanned++

		st, err := b.manager.Status(name)
		if err != nil {
			stats.Failed++
			b.logger.Warn("skipping unreadable asset", "filename", name, "err", err)
			continue
		}
		missing := missingFolders(st)
		if len(missing) == 0 {
			stats.Complete++
			continue
		}
		handled++

		logger := b.logger.With("filename", name, "missing", missing)
		switch {
		case b.opts.DryRun:
			logger.Info("would regenerate")
		case b.opts.Publish:
			if err := b.publish(name); err != nil {
				stats.Failed++
				logger.Error("publish request failed", "err", err)
				continue
			}
			stats.Published++
		default:
			if _, err := b.manager.GenerateThumbnails(ctx, name); err != nil {
				stats.Failed++
				logger.Error("regenerate failed", "err", err)
				continue
			}
			stats.Regenerated++
			logger.Info("regenerated")
		}
	}
	return stats, nil
}

func (b *backfiller) publish(filename string) error {
	if b.publisher == nil {
		return errors.New("no publisher configured")
	}
	return b.publisher.PublishJSON(b.subject, schema.RegenerateRequest{
		ID:       uuid.NewString(),
		Filename: filename,
	})
}

func missingFolders(st *gallery.AssetStatus) []string {
	var out []string
	for _, d := range st.Derivatives {
		if !d.Exists {
			out = append(out, d.Folder)
		}
	}
	return out
}
