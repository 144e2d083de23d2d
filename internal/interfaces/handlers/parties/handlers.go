package parties

import (
	"encoding/json"

	partysvc "tradedesk-backend/internal/application/parties"
	"tradedesk-backend/internal/interfaces/handlers/httperr"
	"tradedesk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *partysvc.Service
}

func (h *Handlers) Create(c *fiber.Ctx) error {
	var in partysvc.Input
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return httperr.BadBody(c)
	}
	p, err := h.Service.Create(c.UserContext(), in)
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.SuccessCreated(c, "Party created successfully", p, nil)
}

// List accepts ?type=Supplier|Buyer.
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.List(c.UserContext(), c.Query("type"))
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.List(c, "Parties fetched successfully", list)
}

func (h *Handlers) Get(c *fiber.Ctx) error {
	p, err := h.Service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Party fetched successfully", p, nil)
}

func (h *Handlers) Update(c *fiber.Ctx) error {
	var patch partysvc.Patch
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		return httperr.BadBody(c)
	}
	p, err := h.Service.Update(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Party updated successfully", p, nil)
}

func (h *Handlers) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Service.Delete(c.UserContext(), id); err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Party deleted successfully", fiber.Map{"id": id}, nil)
}

func (h *Handlers) Register(r fiber.Router) {
	g := r.Group("/parties")
	g.Post("/", h.Create)
	g.Get("/", h.List)
	g.Get("/:id", h.Get)
	g.Patch("/:id", h.Update)
	g.Delete("/:id", h.Delete)
}
