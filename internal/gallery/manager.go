// Package gallery manages originals and their resized derivatives under a
// gallery root: ingestion, lazy regeneration and cascading deletion.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-gallery/internal/exifmeta"
	"github.com/tendant/simple-gallery/internal/img"
	"github.com/tendant/simple-gallery/internal/lock"
	"github.com/tendant/simple-gallery/internal/metrics"
	"github.com/tendant/simple-gallery/pkg/schema"
)

// Publisher receives lifecycle events. *bus.Client satisfies it.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

// Version is one derivative written for an original.
type Version struct {
	Folder       string `json:"folder"`
	RelativePath string `json:"relativePath"`
}

// ProcessedImage is the result of ingesting an upload.
type ProcessedImage struct {
	Original string         `json:"original"`
	Width    int            `json:"width"`
	Height   int            `json:"height"`
	Format   string         `json:"format"`
	Versions []Version      `json:"versions"`
	Exif     *exifmeta.Info `json:"exif,omitempty"`
}

const (
	StatusAlreadyExists = "already_exists"
	StatusGenerated     = "generated"
)

// ThumbnailStatus reports what regeneration did for one derivative.
type ThumbnailStatus struct {
	Folder       string `json:"folder"`
	RelativePath string `json:"relativePath"`
	Status       string `json:"status"`
}

// DeleteResult counts removed files. Errors lists files that could not be
// removed; a non-empty list does not imply DeletedFiles is zero.
type DeleteResult struct {
	DeletedFiles int      `json:"deletedFiles"`
	Errors       []string `json:"errors,omitempty"`
}

type Options struct {
	Namer         *Namer
	Locker        lock.Locker
	Publisher     Publisher
	SubjectPrefix string
	Metrics       *metrics.Collector
	Logger        *slog.Logger
	// MaxPixels caps width*height of decoded sources; 0 means
	// img.DefaultMaxPixels.
	MaxPixels int
}

// Manager runs the four gallery operations against one Resolver.
type Manager struct {
	resolver  *Resolver
	namer     *Namer
	locker    lock.Locker
	publisher Publisher
	prefix    string
	metrics   *metrics.Collector
	logger    *slog.Logger
	maxPixels int
}

func NewManager(resolver *Resolver, opts Options) *Manager {
	m := &Manager{
		resolver:  resolver,
		namer:     opts.Namer,
		locker:    opts.Locker,
		publisher: opts.Publisher,
		prefix:    opts.SubjectPrefix,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		maxPixels: opts.MaxPixels,
	}
	if m.maxPixels <= 0 {
		m.maxPixels = img.DefaultMaxPixels
	}
	if m.namer == nil {
		m.namer = NewNamer(nil)
	}
	if m.locker == nil {
		m.locker = lock.NewKeyedMutex()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

func (m *Manager) Resolver() *Resolver { return m.resolver }

// lockAsset serialises work on one AssetBaseName.
func (m *Manager) lockAsset(ctx context.Context, filename string) (func(), error) {
	release, err := m.locker.Lock(ctx, Base(filename))
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", Base(filename), err)
	}
	return release, nil
}

func (m *Manager) publish(suffix string, v any) {
	if m.publisher == nil {
		return
	}
	subject := schema.Subject(m.prefix, suffix)
	if err := m.publisher.PublishJSON(subject, v); err != nil {
		m.logger.Error("publish event failed", "subject", subject, "err", err)
	}
}

func newEventID() string { return uuid.NewString() }

func now() int64 { return time.Now().Unix() }

// fileExists reports whether path is a regular file. Directories and other
// non-regular entries count as absent.
func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.Mode().IsRegular(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
