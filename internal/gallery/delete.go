package gallery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tendant/simple-gallery/pkg/schema"
)

// DeleteImageFiles removes the original and every derivative of filename.
// Missing files are not errors, so deleting twice yields zero files and no
// errors the second time. Removal failures are collected per file and do not
// stop the remaining removals.
func (m *Manager) DeleteImageFiles(ctx context.Context, filename string) (*DeleteResult, error) {
	if err := CheckFilename(filename); err != nil {
		return nil, err
	}

	release, err := m.lockAsset(ctx, filename)
	if err != nil {
		return nil, err
	}
	defer release()

	paths := m.resolver.Paths(filename)
	type candidate struct{ path, rel string }
	candidates := []candidate{{paths.Original, paths.OriginalRelative}}
	for _, v := range paths.Versions {
		candidates = append(candidates, candidate{v.Path, v.RelativePath})
	}

	result := &DeleteResult{Errors: []string{}}
	for _, c := range candidates {
		info, err := os.Stat(c.path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", c.rel, err))
			}
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if err := os.Remove(c.path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", c.rel, err))
			continue
		}
		result.DeletedFiles++
	}
	m.resolver.Forget(filename)

	m.metrics.Deleted(result.DeletedFiles, len(result.Errors))
	m.logger.Info("image files deleted", "filename", filename, "deleted", result.DeletedFiles, "errors", len(result.Errors))

	if result.DeletedFiles > 0 {
		m.publish(schema.SubjectAssetDeleted, schema.AssetDeleted{
			ID:           newEventID(),
			Filename:     filename,
			DeletedFiles: result.DeletedFiles,
			Errors:       result.Errors,
			HappenedAt:   now(),
		})
	}
	return result, nil
}
