package httpapi

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// multipartSlack covers form boundaries and headers around the image part.
const multipartSlack = 64 << 10

// NewApp builds the fiber app serving h plus /healthz and, when metrics is
// non-nil, /metrics.
func NewApp(h *Handler, metrics http.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "simple-gallery",
		BodyLimit:             int(h.maxUpload) + multipartSlack,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	h.Register(app)
	return app
}
