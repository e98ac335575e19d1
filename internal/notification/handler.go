package notification

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mutual-feedback/mutual_feedback/internal/middleware"
)

// Handler exposes the notification read endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a notification handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type notificationResponse struct {
	ID               string `json:"id"`
	To               string `json:"to"`
	Context          string `json:"context"`
	NotificationTime string `json:"notificationTime"`
	SKT              string `json:"skt"`
}

// List returns the caller's live notifications. Non-numeric query values fall
// back to the defaults.
func (h *Handler) List(c *fiber.Ctx) error {
	user := middleware.CallerIdentity(c)
	if user == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}

	page, err := h.service.List(c.UserContext(), user, c.QueryInt("limit", DefaultLimit), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}

	out := make([]notificationResponse, 0, len(page.Notifications))
	for _, n := range page.Notifications {
		out = append(out, notificationResponse{
			ID:               n.ID,
			To:               n.To,
			Context:          n.Context,
			NotificationTime: n.CreatedAt.UTC().Format(time.RFC3339Nano),
			SKT:              n.ExpiresAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":       true,
		"notifications": out,
		"total":         page.Total,
		"limit":         page.Limit,
		"offset":        page.Offset,
	})
}
