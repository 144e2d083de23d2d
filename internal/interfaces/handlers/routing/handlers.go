package routing

import (
	"encoding/json"
	"strings"

	routingsvc "tradedesk-backend/internal/application/routing"
	"tradedesk-backend/internal/interfaces/handlers/httperr"
	"tradedesk-backend/internal/middleware"
	"tradedesk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *routingsvc.Service
}

type unrouteBody struct {
	ShipmentID string `json:"shipmentId"`
}

func parseRoute(c *fiber.Ctx) (routingsvc.RouteInput, bool) {
	var in routingsvc.RouteInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return in, false
	}
	in.ShipmentID = strings.TrimSpace(in.ShipmentID)
	in.ContractID = strings.TrimSpace(in.ContractID)
	return in, in.ShipmentID != "" && in.ContractID != ""
}

// POST /api/v1/routing/validate always answers 200; the verdict is in data.isValid.
func (h *Handlers) Validate(c *fiber.Ctx) error {
	in, ok := parseRoute(c)
	if !ok {
		return response.Error(c, "shipmentId and contractId are required", fiber.StatusBadRequest, nil)
	}
	v, err := h.Service.ValidateRouting(c.UserContext(), in.ShipmentID, in.ContractID)
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Routing validated", v, nil)
}

// POST /api/v1/routing/route
func (h *Handlers) Route(c *fiber.Ctx) error {
	in, ok := parseRoute(c)
	if !ok {
		return response.Error(c, "shipmentId and contractId are required", fiber.StatusBadRequest, nil)
	}
	in.Actor = middleware.GetActor(c)
	res, err := h.Service.Route(c.UserContext(), in)
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Shipment routed successfully", res, nil)
}

// POST /api/v1/routing/unroute
func (h *Handlers) Unroute(c *fiber.Ctx) error {
	var body unrouteBody
	if err := json.Unmarshal(c.Body(), &body); err != nil || strings.TrimSpace(body.ShipmentID) == "" {
		return response.Error(c, "shipmentId is required", fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.Unroute(c.UserContext(), strings.TrimSpace(body.ShipmentID), middleware.GetActor(c))
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Shipment unrouted successfully", res, nil)
}

// GET /api/v1/routing/contracts/:id/routed-quantity
func (h *Handlers) RoutedQuantity(c *fiber.Ctx) error {
	id := c.Params("id")
	total, err := h.Service.RoutedQuantity(c.UserContext(), id)
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.Success(c, "Routed quantity fetched successfully", fiber.Map{"contractId": id, "routedQuantity": total}, nil)
}

// GET /api/v1/routing/events?shipment_id=&contract_id=
func (h *Handlers) Events(c *fiber.Ctx) error {
	list, err := h.Service.Events(c.UserContext(), routingsvc.EventFilter{
		ShipmentID: c.Query("shipment_id"),
		ContractID: c.Query("contract_id"),
	})
	if err != nil {
		return httperr.Write(c, err)
	}
	return response.List(c, "Routing events fetched successfully", list)
}

func (h *Handlers) Register(r fiber.Router) {
	g := r.Group("/routing")
	g.Post("/validate", h.Validate)
	g.Post("/route", h.Route)
	g.Post("/unroute", h.Unroute)
	g.Get("/contracts/:id/routed-quantity", h.RoutedQuantity)
	g.Get("/events", h.Events)
}
