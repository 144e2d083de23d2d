package tanks

import (
	"encoding/json"

	tanksvc "tradedesk-backend/internal/application/tanks"
	"tradedesk-backend/internal/interfaces/handlers/httperr"
	"tradedesk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *tanksvc.Service
}

// POST /api/v1/tanks
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in tanksvc.Input
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return httperr.BadBody(c)
	}
	res, err := h.Service.Create(c.UserContext(), in)
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.SuccessCreated(c, "Tank created successfully", res.Tank, fiber.Map{"warnings": res.Warnings})
}

// GET /api/v1/tanks/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	t, err := h.Service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Tank fetched successfully", t, nil)
}

// PATCH /api/v1/tanks/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	var p tanksvc.Patch
	if err := json.Unmarshal(c.Body(), &p); err != nil {
		return httperr.BadBody(c)
	}
	res, err := h.Service.Update(c.UserContext(), c.Params("id"), p)
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Tank updated successfully", res.Tank, fiber.Map{"warnings": res.Warnings})
}

// DELETE /api/v1/tanks/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Service.Delete(c.UserContext(), id); err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Tank deleted successfully", fiber.Map{"id": id}, nil)
}

func (h *Handlers) Register(r fiber.Router) {
	g := r.Group("/tanks")
	g.Post("/", h.Create)
	g.Get("/:id", h.Get)
	g.Patch("/:id", h.Update)
	g.Delete("/:id", h.Delete)
}
