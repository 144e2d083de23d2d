package shipments

import (
	"encoding/json"

	routingsvc "tradedesk-backend/internal/application/routing"
	shipmentsvc "tradedesk-backend/internal/application/shipments"
	"tradedesk-backend/internal/interfaces/handlers/httperr"
	"tradedesk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *shipmentsvc.Service
	Routing *routingsvc.Service
}

// POST /api/v1/shipments
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in shipmentsvc.Input
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return httperr.BadBody(c)
	}
	sh, err := h.Service.Create(c.UserContext(), in)
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.SuccessCreated(c, "Shipment created successfully", sh, nil)
}

// GET /api/v1/shipments?contract_id=
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.List(c.UserContext(), c.Query("contract_id"))
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.List(c, "Shipments fetched successfully", list)
}

// GET /api/v1/shipments/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	sh, err := h.Service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Shipment fetched successfully", sh, nil)
}

// PATCH /api/v1/shipments/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	var p shipmentsvc.Patch
	if err := json.Unmarshal(c.Body(), &p); err != nil {
		return httperr.BadBody(c)
	}
	sh, err := h.Service.Update(c.UserContext(), c.Params("id"), p)
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Shipment updated successfully", sh, nil)
}

// DELETE /api/v1/shipments/:id removes the shipment and its tanks.
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Service.Delete(c.UserContext(), id); err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Shipment deleted successfully", fiber.Map{"id": id}, nil)
}

// GET /api/v1/shipments/:id/tanks
func (h *Handlers) Tanks(c *fiber.Ctx) error {
	list, err := h.Service.Tanks(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.List(c, "Tanks fetched successfully", list)
}

// GET /api/v1/shipments/:id/quality
func (h *Handlers) Quality(c *fiber.Ctx) error {
	report, err := h.Service.QualityReport(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Shipment quality fetched successfully", report, nil)
}

// GET /api/v1/shipments/:id/eligible-contracts
func (h *Handlers) EligibleContracts(c *fiber.Ctx) error {
	list, err := h.Routing.EligibleContracts(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.List(c, "Eligible contracts fetched successfully", list)
}

// Register mounts the shipment routes on r.
func (h *Handlers) Register(r fiber.Router) {
	g := r.Group("/shipments")
	g.Post("/", h.Create)
	g.Get("/", h.List)
	g.Get("/:id", h.Get)
	g.Patch("/:id", h.Update)
	g.Delete("/:id", h.Delete)
	g.Get("/:id/tanks", h.Tanks)
	g.Get("/:id/quality", h.Quality)
	g.Get("/:id/eligible-contracts", h.EligibleContracts)
}
