package gallery

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/tendant/simple-gallery/internal/img"
	"github.com/tendant/simple-gallery/pkg/schema"
)

// GenerateThumbnails brings every derivative of filename into existence.
// Derivatives already on disk are left untouched and reported as
// already_exists. The original is only read when something is missing.
//
// Any encode failure fails the whole call; derivatives written before it
// stay on disk.
func (m *Manager) GenerateThumbnails(ctx context.Context, filename string) ([]ThumbnailStatus, error) {
	if err := CheckFilename(filename); err != nil {
		return nil, err
	}
	logger := m.logger.With("filename", filename)

	release, err := m.lockAsset(ctx, filename)
	if err != nil {
		return nil, err
	}
	defer release()

	paths := m.resolver.Paths(filename)
	ok, err := fileExists(paths.Original)
	if err != nil {
		return nil, fmt.Errorf("stat original %s: %w", filename, err)
	}
	if !ok {
		return nil, &NotFoundError{Filename: filename}
	}

	var src image.Image
	statuses := make([]ThumbnailStatus, 0, len(paths.Versions))
	generated := 0

	for _, v := range paths.Versions {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("regenerate %s: %w", filename, err)
		}

		exists, err := fileExists(v.Path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", v.RelativePath, err)
		}
		if exists {
			m.metrics.DerivativeSkipped(v.Spec.Folder)
			statuses = append(statuses, ThumbnailStatus{Folder: v.Spec.Folder, RelativePath: v.RelativePath, Status: StatusAlreadyExists})
			continue
		}

		if src == nil {
			data, err := os.ReadFile(paths.Original)
			if err != nil {
				return nil, fmt.Errorf("read original %s: %w", filename, err)
			}
			src, _, err = img.DecodeLimited(data, m.maxPixels)
			if err != nil {
				m.metrics.EncodeFailed("")
				return nil, &EncodeError{Path: filename, Err: err}
			}
		}

		start := time.Now()
		if _, _, err := img.Encode(src, v.Path, v.Spec.MaxDimension, v.Spec.Quality); err != nil {
			m.metrics.EncodeFailed(v.Spec.Folder)
			logger.Error("regenerate derivative failed", "folder", v.Spec.Folder, "err", err)
			return nil, &EncodeError{Folder: v.Spec.Folder, Path: v.RelativePath, Err: err}
		}
		m.metrics.DerivativeGenerated(v.Spec.Folder, time.Since(start))
		generated++
		statuses = append(statuses, ThumbnailStatus{Folder: v.Spec.Folder, RelativePath: v.RelativePath, Status: StatusGenerated})
	}

	logger.Info("thumbnails checked", "generated", generated, "total", len(statuses))
	if generated > 0 {
		m.publish(schema.SubjectThumbnailsRegenerated, schema.ThumbnailsRegenerated{
			ID:          newEventID(),
			Filename:    filename,
			Derivatives: statusesToSchema(statuses),
			HappenedAt:  now(),
		})
	}
	return statuses, nil
}

func statusesToSchema(statuses []ThumbnailStatus) []schema.Derivative {
	out := make([]schema.Derivative, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, schema.Derivative{Folder: s.Folder, RelativePath: s.RelativePath, Status: s.Status})
	}
	return out
}
