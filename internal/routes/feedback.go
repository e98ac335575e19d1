package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mutual-feedback/mutual_feedback/internal/matching"
	"github.com/mutual-feedback/mutual_feedback/internal/notification"
)

// RegisterFeedbackRoutes wires the feedback signal endpoint.
func RegisterFeedbackRoutes(r fiber.Router, h *matching.Handler) {
	r.Post("/send-feedback", h.SendFeedback)
}

// RegisterNotificationRoutes wires the notification read endpoints.
// /get-notifications is kept for older clients.
func RegisterNotificationRoutes(r fiber.Router, h *notification.Handler) {
	r.Get("/notifications", h.List)
	r.Get("/get-notifications", h.List)
}
