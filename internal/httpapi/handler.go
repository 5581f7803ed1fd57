// Package httpapi exposes the gallery over HTTP with fiber.
package httpapi

import (
	"errors"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/tendant/simple-gallery/internal/gallery"
	"github.com/tendant/simple-gallery/internal/upload"
)

type Handler struct {
	manager   *gallery.Manager
	maxUpload int64
	logger    *slog.Logger
}

func NewHandler(manager *gallery.Manager, maxUpload int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{manager: manager, maxUpload: maxUpload, logger: logger}
}

func (h *Handler) Register(app *fiber.App) {
	api := app.Group("/api/images")
	api.Post("/", h.Upload)
	api.Get("/:filename", h.Status)
	api.Delete("/:filename", h.Delete)
	api.Post("/:filename/thumbnails", h.GenerateThumbnails)

	app.Get("/gallery/:folder/:name", h.ServeDerivative)
}

// Upload stores the multipart field "image" and its derivatives.
func (h *Handler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no image file provided"})
	}

	src, err := upload.ReadFormFile(fh, h.maxUpload)
	if err != nil {
		if errors.Is(err, upload.ErrTooLarge) {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Error("read upload failed", "err", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "could not read upload"})
	}
	if err := gallery.CheckFilename(src.Filename); err != nil {
		return writeError(c, err)
	}
	if !src.IsImage() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported media type", "mimeType": src.MimeType})
	}

	h.logger.Info("upload received", "original_name", src.Filename, "bytes", len(src.Data), "mime_type", src.MimeType)
	res, err := h.manager.ProcessImage(c.UserContext(), src.Data, src.Filename)
	if err != nil {
		var encErr *gallery.EncodeError
		if errors.As(err, &encErr) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":  "image upload failed",
				"reason": encErr.Error(),
			})
		}
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *Handler) Status(c *fiber.Ctx) error {
	filename, err := gallery.ValidateFilename(utils.CopyString(c.Params("filename")))
	if err != nil {
		return writeError(c, err)
	}
	st, err := h.manager.Status(filename)
	if err != nil {
		return writeError(c, err)
	}
	if st.FileCount() == 0 {
		return writeError(c, &gallery.NotFoundError{Filename: filename})
	}
	return c.JSON(st)
}

// Delete answers 404 when no file of the asset existed beforehand.
func (h *Handler) Delete(c *fiber.Ctx) error {
	filename, err := gallery.ValidateFilename(utils.CopyString(c.Params("filename")))
	if err != nil {
		return writeError(c, err)
	}
	st, err := h.manager.Status(filename)
	if err != nil {
		return writeError(c, err)
	}
	if st.FileCount() == 0 {
		return writeError(c, &gallery.NotFoundError{Filename: filename})
	}

	res, err := h.manager.DeleteImageFiles(c.UserContext(), filename)
	if err != nil {
		return writeError(c, err)
	}
	if len(res.Errors) > 0 {
		h.logger.Warn("partial delete", "filename", filename, "deleted", res.DeletedFiles, "errors", res.Errors)
	}
	return c.JSON(res)
}

func (h *Handler) GenerateThumbnails(c *fiber.Ctx) error {
	filename, err := gallery.ValidateFilename(utils.CopyString(c.Params("filename")))
	if err != nil {
		return writeError(c, err)
	}
	statuses, err := h.manager.GenerateThumbnails(c.UserContext(), filename)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"filename": filename, "thumbnails": statuses})
}

// ServeDerivative sends a derivative, generating it first when missing.
func (h *Handler) ServeDerivative(c *fiber.Ctx) error {
	folder := utils.CopyString(c.Params("folder"))
	name, err := gallery.ValidateFilename(utils.CopyString(c.Params("name")))
	if err != nil {
		return writeError(c, err)
	}

	path, err := h.manager.DerivativePath(c.UserContext(), folder, name)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	// SendFile routes the path through a request URI, so it must be escaped.
	return c.SendFile((&url.URL{Path: path}).EscapedPath())
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gallery.ErrInvalidFilename):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, gallery.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, gallery.ErrEncode):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "encode failed", "reason": err.Error()})
	default:
		slog.Error("request failed", "path", c.Path(), "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
