package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-gallery/internal/config"
	"github.com/tendant/simple-gallery/internal/gallery"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	specs, err := config.ParseSpecs(config.DefaultDerivativeSpecs)
	require.NoError(t, err)
	return config.Config{
		GalleryRoot:    filepath.Join(t.TempDir(), "gallery"),
		HTTPAddr:       ":0",
		MaxUploadBytes: 1 << 20,
		Derivatives:    specs,
		SubjectPrefix:  "gallery",
		RegenSubject:   "gallery.thumbnails.regenerate",
		LockTTL:        time.Second,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewInProcess(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.DirExists(t, cfg.GalleryRoot)
	assert.Nil(t, a.Bus)
	assert.Nil(t, a.Redis)
	assert.Equal(t, gallery.DefaultSpecs(), a.Manager.Resolver().Specs())

	families, err := a.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Redis)

	_, err = a.Manager.DeleteImageFiles(context.Background(), "1-x.png")
	require.NoError(t, err)
	assert.False(t, mr.Exists("gallery:lock:1-x"), "lease released after delete")
}

func TestNewRedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "redis://127.0.0.1:1"

	_, err := New(context.Background(), cfg, discardLogger())
	assert.Error(t, err)
}
