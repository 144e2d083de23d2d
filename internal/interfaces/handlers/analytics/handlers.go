package analytics

import (
	analyticssvc "tradedesk-backend/internal/application/analytics"
	"tradedesk-backend/internal/interfaces/handlers/httperr"
	"tradedesk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *analyticssvc.Service
}

// GET /api/v1/analytics/summary
func (h *Handlers) Summary(c *fiber.Ctx) error {
	sum, err := h.Service.Summary(c.UserContext())
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Summary fetched successfully", sum, fiber.Map{"cached": sum.Cached})
}

func (h *Handlers) Register(r fiber.Router) {
	r.Get("/analytics/summary", h.Summary)
}
