package gallery

import (
	"context"
	"fmt"
	"time"

	"github.com/tendant/simple-gallery/internal/exifmeta"
	"github.com/tendant/simple-gallery/internal/img"
	"github.com/tendant/simple-gallery/pkg/schema"
)

// ProcessImage ingests an upload: it stores the untouched bytes under a fresh
// AssetBaseName and writes every configured derivative in order.
//
// A nil error means the original and all derivatives exist. When a derivative
// fails the call fails, but files already written stay in place and can be
// completed later with GenerateThumbnails.
func (m *Manager) ProcessImage(ctx context.Context, data []byte, originalName string) (*ProcessedImage, error) {
	// The stored name must stay addressable by delete and regenerate.
	if err := CheckFilename(originalName); err != nil {
		return nil, err
	}
	filename := m.namer.GenerateFilename(originalName) + Ext(originalName)
	logger := m.logger.With("filename", filename)

	src, info, err := img.DecodeLimited(data, m.maxPixels)
	if err != nil {
		m.metrics.EncodeFailed("")
		logger.Warn("undecodable upload", "original_name", originalName, "err", err)
		return nil, &EncodeError{Path: filename, Err: err}
	}
	logger.Info("decoded upload", "width", info.Width, "height", info.Height, "format", info.Format, "bytes", len(data))

	release, err := m.lockAsset(ctx, filename)
	if err != nil {
		return nil, err
	}
	defer release()

	paths := m.resolver.Paths(filename)
	if err := img.WriteNew(paths.Original, data); err != nil {
		logger.Error("store original failed", "err", err)
		return nil, &EncodeError{Path: paths.OriginalRelative, Err: err}
	}
	m.metrics.OriginalStored()
	m.resolver.Remember(filename)

	result := &ProcessedImage{
		Original: paths.OriginalRelative,
		Width:    info.Width,
		Height:   info.Height,
		Format:   info.Format,
		Versions: make([]Version, 0, len(paths.Versions)),
	}

	for _, v := range paths.Versions {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("process %s: %w", filename, err)
		}

		start := time.Now()
		w, h, err := img.Encode(src, v.Path, v.Spec.MaxDimension, v.Spec.Quality)
		if err != nil {
			m.metrics.EncodeFailed(v.Spec.Folder)
			logger.Error("derivative failed", "folder", v.Spec.Folder, "err", err)
			return nil, &EncodeError{Folder: v.Spec.Folder, Path: v.RelativePath, Err: err}
		}
		took := time.Since(start)
		m.metrics.DerivativeGenerated(v.Spec.Folder, took)
		logger.Debug("derivative written", "folder", v.Spec.Folder, "width", w, "height", h, "took_ms", took.Milliseconds())

		result.Versions = append(result.Versions, Version{Folder: v.Spec.Folder, RelativePath: v.RelativePath})
	}

	if meta, err := exifmeta.Extract(data); err == nil {
		result.Exif = meta
	} else {
		logger.Debug("no exif data", "err", err)
	}

	logger.Info("image processed", "derivatives", len(result.Versions))
	m.publish(schema.SubjectAssetProcessed, schema.AssetProcessed{
		ID:          newEventID(),
		Filename:    filename,
		Width:       info.Width,
		Height:      info.Height,
		Format:      info.Format,
		Derivatives: versionsToSchema(result.Versions),
		HappenedAt:  now(),
	})
	return result, nil
}

func versionsToSchema(versions []Version) []schema.Derivative {
	out := make([]schema.Derivative, 0, len(versions))
	for _, v := range versions {
		out = append(out, schema.Derivative{Folder: v.Folder, RelativePath: v.RelativePath, Status: StatusGenerated})
	}
	return out
}
