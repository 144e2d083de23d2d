package contracts

import (
	"encoding/json"

	contractsvc "tradedesk-backend/internal/application/contracts"
	"tradedesk-backend/internal/interfaces/handlers/httperr"
	"tradedesk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *contractsvc.Service
}

// POST /api/v1/contracts
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in contractsvc.Input
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return httperr.BadBody(c)
	}
	res, err := h.Service.Create(c.UserContext(), in)
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.SuccessCreated(c, "Contract created successfully", res.Contract, fiber.Map{"warnings": res.Warnings})
}

// POST /api/v1/contracts/import keeps a supplied id (canonicalised) and status.
func (h *Handlers) Import(c *fiber.Ctx) error {
	var in contractsvc.Input
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return httperr.BadBody(c)
	}
	res, err := h.Service.Import(c.UserContext(), in)
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.SuccessCreated(c, "Contract imported successfully", res.Contract, fiber.Map{"warnings": res.Warnings})
}

// GET /api/v1/contracts?type=&status=&product_type=
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.List(c.UserContext(), contractsvc.Filter{
		Type:        c.Query("type"),
		Status:      c.Query("status"),
		ProductType: c.Query("product_type"),
	})
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.List(c, "Contracts fetched successfully", list)
}

// GET /api/v1/contracts/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	contract, err := h.Service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Contract fetched successfully", contract, nil)
}

// PATCH /api/v1/contracts/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	var p contractsvc.Patch
	if err := json.Unmarshal(c.Body(), &p); err != nil {
		return httperr.BadBody(c)
	}
	res, err := h.Service.Update(c.UserContext(), c.Params("id"), p)
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Contract updated successfully", res.Contract, fiber.Map{"warnings": res.Warnings})
}

// DELETE /api/v1/contracts/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Service.Delete(c.UserContext(), id); err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Contract deleted successfully", fiber.Map{"id": id}, nil)
}

// GET /api/v1/contracts/:id/position
func (h *Handlers) Position(c *fiber.Ctx) error {
	pos, err := h.Service.Position(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Contract position fetched successfully", pos, nil)
}

// GET /api/v1/contracts/:id/shipments
func (h *Handlers) Shipments(c *fiber.Ctx) error {
	list, err := h.Service.Shipments(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.List(c, "Shipments fetched successfully", list)
}

// Register mounts the contract routes on r.
func (h *Handlers) Register(r fiber.Router) {
	g := r.Group("/contracts")
	g.Post("/", h.Create)
	g.Post("/import", h.Import)
	g.Get("/", h.List)
	g.Get("/:id", h.Get)
	g.Patch("/:id", h.Update)
	g.Delete("/:id", h.Delete)
	g.Get("/:id/position", h.Position)
	g.Get("/:id/shipments", h.Shipments)
}
