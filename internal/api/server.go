package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/maheshrc27/threads-poster/internal/api/handlers"
	"github.com/maheshrc27/threads-poster/internal/api/middleware"
)

// NewApp wires the status routes. /health stays open; /api requires the key when one is set.
func NewApp(status *handlers.StatusHandler, auth *middleware.AuthMiddleware) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("request failed", "path", c.Path(), "error", err)
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())

	app.Get("/health", status.Health)

	api := app.Group("/api")
	api.Use(auth.AuthMiddleware())
	api.Get("/posts", status.ListPosts)
	api.Get("/history", status.ListHistory)
	api.Post("/cycle", status.TriggerCycle)

	return app
}
