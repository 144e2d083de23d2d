package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradedesk-backend/internal/application/policies/capacity"
	"tradedesk-backend/internal/application/quality"
	"tradedesk-backend/internal/domain"
	"tradedesk-backend/internal/events"
	"tradedesk-backend/internal/infrastructure/store"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DefaultActor is recorded when a caller does not identify itself.
const DefaultActor = "system"

type Service struct {
	Store *store.Store
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Validation is the outcome of checking a proposed routing. Errors block
// routing; warnings are advisory.
type Validation struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type RouteInput struct {
	ShipmentID string `json:"shipmentId"`
	ContractID string `json:"contractId"`
	Actor      string `json:"-"`
}

// Result is a routed or unrouted shipment and the target contract's routed
// quantity after the change.
type Result struct {
	Shipment       *domain.Shipment `json:"shipment"`
	ContractID     string           `json:"contractId"`
	RoutedQuantity decimal.Decimal  `json:"routedQuantity"`
	Warnings       []string         `json:"warnings"`
}

// EventFilter narrows the routing audit log; empty fields match everything.
type EventFilter struct {
	ShipmentID string
	ContractID string
}

func routedSum(shipments []domain.Shipment) decimal.Decimal {
	return capacity.Allocated(capacity.FromShipments(shipments), "")
}

// RoutedQuantity sums the quantity of every shipment currently routed to
// contractID. It is computed from current state on every call.
func (s *Service) RoutedQuantity(ctx context.Context, contractID string) (decimal.Decimal, error) {
	return routedQuantity(ctx, s.Store, contractID)
}

func routedQuantity(ctx context.Context, st *store.Store, contractID string) (decimal.Decimal, error) {
	routed, err := st.ShipmentsRoutedTo(ctx, contractID)
	if err != nil {
		return decimal.Zero, err
	}
	return routedSum(routed), nil
}

// FindEligibleContracts returns the opened Sales contracts of the shipment's
// product type with enough unrouted quantity left to take it, ordered by id.
func (s *Service) FindEligibleContracts(ctx context.Context, sh *domain.Shipment) ([]domain.Contract, error) {
	candidates, err := s.Store.Contracts().Find(ctx, "type = ? AND status = ? AND product_type = ?",
		domain.ContractTypeSales, domain.ContractStatusOpened, sh.ProductType)
	if err != nil {
		return nil, err
	}
	routed, err := s.Store.RoutedShipments(ctx)
	if err != nil {
		return nil, err
	}
	byContract := map[string]decimal.Decimal{}
	for _, r := range routed {
		id := r.RoutingDetails.RoutedToContractID
		byContract[id] = byContract[id].Add(r.Quantity)
	}
	out := []domain.Contract{}
	for _, c := range candidates {
		if c.Quantity.Sub(byContract[c.ID]).GreaterThanOrEqual(sh.Quantity) {
			out = append(out, c)
		}
	}
	return out, nil
}

// EligibleContracts looks the shipment up and returns its eligible contracts.
func (s *Service) EligibleContracts(ctx context.Context, shipmentID string) ([]domain.Contract, error) {
	sh, err := s.Store.Shipments().GetByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	return s.FindEligibleContracts(ctx, sh)
}

// ValidateRouting checks every structural rule and reports all violations
// together. Quality and capacity concerns come back as warnings.
func (s *Service) ValidateRouting(ctx context.Context, shipmentID, contractID string) (*Validation, error) {
	v, _, _, err := validate(ctx, s.Store, shipmentID, contractID)
	return v, err
}

func lookup[T any](ctx context.Context, get func(context.Context, string) (*T, error), id string) (*T, string, error) {
	v, err := get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err.Error(), nil
	}
	if err != nil {
		return nil, "", err
	}
	return v, "", nil
}

func validate(ctx context.Context, st *store.Store, shipmentID, contractID string) (*Validation, *domain.Shipment, *domain.Contract, error) {
	v := &Validation{Errors: []string{}, Warnings: []string{}}

	sh, missing, err := lookup(ctx, st.Shipments().GetByID, shipmentID)
	if err != nil {
		return nil, nil, nil, err
	}
	if missing != "" {
		v.Errors = append(v.Errors, missing)
	}
	c, missing, err := lookup(ctx, st.Contracts().GetByID, contractID)
	if err != nil {
		return nil, nil, nil, err
	}
	if missing != "" {
		v.Errors = append(v.Errors, missing)
	}

	if sh != nil {
		if sh.Type != domain.ContractTypeSupply {
			v.Errors = append(v.Errors, fmt.Sprintf("Only Supply shipments can be routed (shipment %s is %s)", sh.ID, sh.Type))
		}
		if sh.IsRouted() {
			v.Errors = append(v.Errors, fmt.Sprintf("Shipment %s is already routed to %s; unroute it first",
				sh.ID, sh.RoutingDetails.RoutedToContractID))
		}
		if sh.IsCancelled() {
			v.Errors = append(v.Errors, fmt.Sprintf("Shipment %s is cancelled", sh.ID))
		}
	}
	if c != nil {
		if c.Type != domain.ContractTypeSales {
			v.Errors = append(v.Errors, fmt.Sprintf("Shipments can only be routed to Sales contracts (contract %s is %s)", c.ID, c.Type))
		}
		if c.Status == domain.ContractStatusClosed {
			v.Errors = append(v.Errors, fmt.Sprintf("Contract %s is closed", c.ID))
		}
	}
	if sh != nil && c != nil {
		if sh.ProductType != c.ProductType {
			v.Errors = append(v.Errors, fmt.Sprintf("Product type mismatch: shipment is %s, contract is %s",
				sh.ProductType, c.ProductType))
		}
		warnings, err := advisories(ctx, st, sh, c)
		if err != nil {
			return nil, nil, nil, err
		}
		v.Warnings = warnings
	}
	v.IsValid = len(v.Errors) == 0
	return v, sh, c, nil
}

// advisories are the non-blocking concerns of routing sh to c.
func advisories(ctx context.Context, st *store.Store, sh *domain.Shipment, c *domain.Contract) ([]string, error) {
	warnings := []string{}
	if sh.Quality == nil {
		warnings = append(warnings, fmt.Sprintf("Shipment %s has no quality data to check against contract %s", sh.ID, c.ID))
	} else {
		warnings = append(warnings, quality.ContractWarnings(*sh.Quality, c)...)
	}
	routed, err := st.ShipmentsRoutedTo(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if remaining := capacity.RemainingCapacity(c.Quantity, capacity.FromShipments(routed), sh.ID); sh.Quantity.GreaterThan(remaining) {
		warnings = append(warnings, fmt.Sprintf("Shipment quantity %s exceeds the %s left to route on contract %s",
			sh.Quantity.String(), remaining.String(), c.ID))
	}
	return warnings, nil
}

// Route links a Supply shipment to a Sales contract and records a ROUTED
// event. Any structural violation aborts with every reason collected.
func (s *Service) Route(ctx context.Context, in RouteInput) (*Result, error) {
	actor := strings.TrimSpace(in.Actor)
	if actor == "" {
		actor = DefaultActor
	}
	logger := log.Ctx(ctx).With().Str("component", "routing").Str("shipment_id", in.ShipmentID).
		Str("contract_id", in.ContractID).Str("actor", actor).Logger()

	var out *Result
	err := s.Store.InTx(ctx, func(tx *store.Store) error {
		v, sh, c, err := validate(ctx, tx, in.ShipmentID, in.ContractID)
		if err != nil {
			return err
		}
		if !v.IsValid {
			return &domain.RoutingViolationError{Errors: v.Errors}
		}
		details := &domain.RoutingDetails{RoutedToContractID: c.ID, RoutedAt: s.now(), RoutedBy: actor}
		updated, err := tx.Shipments().Update(ctx, sh.ID, func(row *domain.Shipment) error {
			row.RoutingDetails = details
			return nil
		})
		if err != nil {
			return err
		}
		if err := recordEvent(ctx, tx, domain.RoutingEventRouted, updated, c.ID, actor, v.Warnings); err != nil {
			return err
		}
		total, err := routedQuantity(ctx, tx, c.ID)
		if err != nil {
			return err
		}
		out = &Result{Shipment: updated, ContractID: c.ID, RoutedQuantity: total, Warnings: v.Warnings}
		return nil
	})
	if err != nil {
		var rv *domain.RoutingViolationError
		if errors.As(err, &rv) {
			logger.Warn().Strs("violations", rv.Errors).Msg("routing refused")
		}
		return nil, err
	}
	logger.Info().Int("warnings", len(out.Warnings)).Msg("shipment routed")
	return out, nil
}

// Unroute clears a shipment's routing and records an UNROUTED event. The
// target contract is not touched; its routed quantity is derived.
func (s *Service) Unroute(ctx context.Context, shipmentID, actor string) (*Result, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = DefaultActor
	}
	var out *Result
	err := s.Store.InTx(ctx, func(tx *store.Store) error {
		sh, err := tx.Shipments().GetByID(ctx, shipmentID)
		if err != nil {
			return err
		}
		if !sh.IsRouted() {
			return &domain.RoutingViolationError{Errors: []string{fmt.Sprintf("Shipment %s is not routed", sh.ID)}}
		}
		contractID := sh.RoutingDetails.RoutedToContractID
		updated, err := tx.Shipments().Update(ctx, sh.ID, func(row *domain.Shipment) error {
			row.RoutingDetails = nil
			return nil
		})
		if err != nil {
			return err
		}
		if err := recordEvent(ctx, tx, domain.RoutingEventUnrouted, updated, contractID, actor, nil); err != nil {
			return err
		}
		total, err := routedQuantity(ctx, tx, contractID)
		if err != nil {
			return err
		}
		out = &Result{Shipment: updated, ContractID: contractID, RoutedQuantity: total, Warnings: []string{}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("component", "routing").Str("shipment_id", shipmentID).
		Str("contract_id", out.ContractID).Str("actor", actor).Msg("shipment unrouted")
	return out, nil
}

func recordEvent(ctx context.Context, tx *store.Store, eventType string, sh *domain.Shipment, contractID, actor string, warnings []string) error {
	payload := map[string]interface{}{
		"quantity":     sh.Quantity.String(),
		"product_type": sh.ProductType,
	}
	if len(warnings) > 0 {
		payload["warnings"] = warnings
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := tx.DB(ctx).Create(&domain.RoutingEvent{
		ShipmentID: sh.ID,
		ContractID: contractID,
		EventType:  eventType,
		Actor:      actor,
		EventData:  datatypes.JSON(data),
	}).Error; err != nil {
		return err
	}
	tx.Emit(ctx, events.CollectionChangedEvent(domain.CollectionRoutingEvents))
	return nil
}

// Events returns the routing audit log, oldest first.
func (s *Service) Events(ctx context.Context, f EventFilter) ([]domain.RoutingEvent, error) {
	q := s.Store.DB(ctx).Model(&domain.RoutingEvent{})
	if f.ShipmentID != "" {
		q = q.Where("shipment_id = ?", f.ShipmentID)
	}
	if f.ContractID != "" {
		q = q.Where("contract_id = ?", f.ContractID)
	}
	var out []domain.RoutingEvent
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
