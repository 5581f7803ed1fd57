package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-gallery/internal/gallery"
	"github.com/tendant/simple-gallery/pkg/schema"
)

type fakePublisher struct {
	mu      sync.Mutex
	subject string
	results []schema.RegenerateResult
}

func (p *fakePublisher) PublishJSON(subject string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subject = subject
	p.results = append(p.results, v.(schema.RegenerateResult))
	return nil
}

func newTestWorker(t *testing.T) (*worker, *fakePublisher, string) {
	t.Helper()
	root := t.TempDir()
	pub := &fakePublisher{}
	m := gallery.NewManager(gallery.NewResolver(root, gallery.DefaultSpecs()), gallery.Options{
		Namer:  gallery.NewNamer(func() time.Time { return time.UnixMilli(1700000000000) }),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &worker{
		manager:       m,
		publisher:     pub,
		resultSubject: "gallery.thumbnails.result",
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, pub, root
}

func request(t *testing.T, id, filename string) []byte {
	t.Helper()
	b, err := json.Marshal(schema.RegenerateRequest{ID: id, Filename: filename})
	require.NoError(t, err)
	return b
}

func TestHandleRegeneratesMissingDerivatives(t *testing.T) {
	w, pub, root := newTestWorker(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 20))))
	require.NoError(t, os.WriteFile(filepath.Join(root, "1-bird.png"), buf.Bytes(), 0o644))

	w.handle(context.Background(), request(t, "req-1", "1-bird.png"))

	require.Len(t, pub.results, 1)
	res := pub.results[0]
	assert.Equal(t, "gallery.thumbnails.result", pub.subject)
	assert.Equal(t, "req-1", res.ID)
	assert.Empty(t, res.Error)
	require.Len(t, res.Derivatives, 3)
	for _, d := range res.Derivatives {
		assert.Equal(t, gallery.StatusGenerated, d.Status)
		assert.FileExists(t, filepath.Join(root, filepath.FromSlash(d.RelativePath)))
	}
	assert.NotZero(t, res.HappenedAt)
}

func TestHandleReportsFailures(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    schema.FailureType
	}{
		{"bad json", []byte("{"), schema.FailureTypeValidation},
		{"unsafe name", request(t, "r", "..%2Fsecret.png"), schema.FailureTypeValidation},
		{"missing original", request(t, "r", "1-ghost.png"), schema.FailureTypeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, pub, _ := newTestWorker(t)

			w.handle(context.Background(), tt.payload)

			require.Len(t, pub.results, 1)
			assert.Equal(t, tt.want, pub.results[0].FailureType)
			assert.NotEmpty(t, pub.results[0].Error)
		})
	}
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, schema.FailureType(""), classifyError(nil))
	assert.Equal(t, schema.FailureTypeValidation, classifyError(&gallery.ValidationError{Filename: "x", Reason: "empty"}))
	assert.Equal(t, schema.FailureTypeNotFound, classifyError(&gallery.NotFoundError{Filename: "x"}))
	assert.Equal(t, schema.FailureTypePermanent, classifyError(&gallery.EncodeError{Path: "x", Err: errors.New("image: unknown format")}))
	assert.Equal(t, schema.FailureTypeRetryable, classifyError(&gallery.EncodeError{Folder: "thmb", Path: "x", Err: errors.New("write: no space left on device")}))
	assert.Equal(t, schema.FailureTypeRetryable, classifyError(context.DeadlineExceeded))
	assert.Equal(t, schema.FailureTypeRetryable, classifyError(errors.New("something odd")))
}
