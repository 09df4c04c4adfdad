package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/threads-poster/internal/models"
	"github.com/maheshrc27/threads-poster/internal/transfer"
)

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

func toPostView(rec *models.PostRecord) transfer.PostView {
	view := transfer.PostView{
		Row:    rec.Row,
		Text:   rec.Text,
		Status: string(rec.Status),
	}
	if rec.Image != nil {
		view.Image = rec.Image.Location
	}
	if rec.PostedAt != nil {
		view.PostedAt = rec.PostedAt.Format(models.PostedAtLayout)
	}
	return view
}
