package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tendant/simple-gallery/internal/gallery"
	"github.com/tendant/simple-gallery/pkg/schema"
)

type regenerator interface {
	GenerateThumbnails(ctx context.Context, filename string) ([]gallery.ThumbnailStatus, error)
}

type worker struct {
	manager       regenerator
	publisher     gallery.Publisher
	resultSubject string
	logger        *slog.Logger
}

// handle processes one schema.RegenerateRequest and always publishes a
// schema.RegenerateResult, successful or not.
func (w *worker) handle(ctx context.Context, data []byte) {
	var req schema.RegenerateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		w.logger.Warn("invalid request payload", "err", err)
		w.publishResult(schema.RegenerateResult{
			Error:       fmt.Sprintf("decode request: %v", err),
			FailureType: schema.FailureTypeValidation,
		})
		return
	}

	reqLogger := w.logger.With("request_id", req.ID, "filename", req.Filename)
	result := schema.RegenerateResult{ID: req.ID, Filename: req.Filename}

	statuses, err := w.regenerate(ctx, req.Filename)
	if err != nil {
		result.Error = err.Error()
		result.FailureType = classifyError(err)
		reqLogger.Error("regeneration failed", "failure_type", result.FailureType, "err", err)
		w.publishResult(result)
		return
	}

	for _, s := range statuses {
		result.Derivatives = append(result.Derivatives, schema.Derivative{Folder: s.Folder, RelativePath: s.RelativePath, Status: s.Status})
	}
	reqLogger.Info("regeneration completed", "derivatives", len(statuses))
	w.publishResult(result)
}

func (w *worker) regenerate(ctx context.Context, raw string) ([]gallery.ThumbnailStatus, error) {
	filename, err := gallery.ValidateFilename(raw)
	if err != nil {
		return nil, err
	}
	return w.manager.GenerateThumbnails(ctx, filename)
}

func (w *worker) publishResult(result schema.RegenerateResult) {
	result.HappenedAt = time.Now().Unix()
	if err := w.publisher.PublishJSON(w.resultSubject, result); err != nil {
		w.logger.Error("publish result failed", "subject", w.resultSubject, "id", result.ID, "err", err)
	}
}

func classifyError(err error) schema.FailureType {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, gallery.ErrInvalidFilename):
		return schema.FailureTypeValidation
	case errors.Is(err, gallery.ErrNotFound):
		return schema.FailureTypeNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return schema.FailureTypeRetryable
	case errors.Is(err, gallery.ErrEncode):
		if isTransient(err.Error()) {
			return schema.FailureTypeRetryable
		}
		return schema.FailureTypePermanent
	}

	// unknown errors default to retryable
	return schema.FailureTypeRetryable
}

func isTransient(msg string) bool {
	for _, s := range []string{"connection refused", "timeout", "temporary failure", "no space left", "i/o timeout"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
