package shipments

import (
	"context"
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
)

type Service struct {
	Store *store.Store
}

// Input is the create payload. Type and productType are taken from the contract.
type Input struct {
	ContractID    string          `json:"contractId"`
	Status        string          `json:"status"`
	Quantity      decimal.Decimal `json:"quantity"`
	DepartureDate *time.Time      `json:"departureDate"`
	ArrivalDate   *time.Time      `json:"arrivalDate"`
	Terminal      string          `json:"terminal"`
	Port          string          `json:"port"`
	Country       string          `json:"country"`
	ShippingLine  string          `json:"shippingLine"`
}

// Patch is a partial update. Quality and routing details are not writable here.
type Patch struct {
	Status        *string          `json:"status"`
	Quantity      *decimal.Decimal `json:"quantity"`
	DepartureDate *time.Time       `json:"departureDate"`
	ArrivalDate   *time.Time       `json:"arrivalDate"`
	Terminal      *string          `json:"terminal"`
	Port          *string          `json:"port"`
	Country       *string          `json:"country"`
	ShippingLine  *string          `json:"shippingLine"`
	IsFulfilled   *bool            `json:"isFulfilled"`
}

// onlyFulfilment reports whether the patch touches nothing but the fulfilled flag.
func (p Patch) onlyFulfilment() bool {
	return p.Status == nil && p.Quantity == nil && p.DepartureDate == nil && p.ArrivalDate == nil &&
		p.Terminal == nil && p.Port == nil && p.Country == nil && p.ShippingLine == nil
}

// QualityReport compares a shipment's aggregated quality with its contract's spec.
type QualityReport struct {
	ShipmentID string            `json:"shipmentId"`
	ContractID string            `json:"contractId"`
	Quality    *domain.Quality   `json:"quality"`
	Errors     map[string]string `json:"errors"`
	Warnings   []string          `json:"warnings"`
}

func contractWindow(c *domain.Contract) capacity.Window {
	return capacity.Window{Start: c.DeliveryStart, End: c.DeliveryEnd}
}

// Create draws a new shipment against an open contract, within its remaining
// quantity and delivery window.
func (s *Service) Create(ctx context.Context, in Input) (*domain.Shipment, error) {
	logger := log.With().Str("component", "shipments").Str("contract_id", in.ContractID).Logger()
	status := in.Status
	if status == "" {
		status = domain.ShipmentStatusScheduled
	}
	var msgs []string
	if strings.TrimSpace(in.ContractID) == "" {
		msgs = append(msgs, "contractId is required")
	}
	if !in.Quantity.IsPositive() {
		msgs = append(msgs, "quantity must be greater than 0")
	}
	if !domain.Contains(domain.ValidShipmentStatuses, status) {
		msgs = append(msgs, fmt.Sprintf("invalid status: %s", status))
	}
	if len(msgs) > 0 {
		return nil, domain.NewValidationError(msgs...)
	}

	var sh *domain.Shipment
	err := s.Store.InTx(ctx, func(tx *store.Store) error {
		c, err := tx.Contracts().GetByID(ctx, in.ContractID)
		if err != nil {
			return err
		}
		if c.Status == domain.ContractStatusClosed {
			return domain.Conflictf("Contract %s is closed", c.ID)
		}
		siblings, err := tx.ShipmentsForContract(ctx, c.ID)
		if err != nil {
			return err
		}
		parent := capacity.ParentRef{Kind: "contract", ID: c.ID, Quantity: c.Quantity}
		if err := capacity.Check(parent, capacity.FromShipments(siblings), "", in.Quantity); err != nil {
			return err
		}
		child := capacity.Window{Start: in.DepartureDate, End: in.ArrivalDate}
		if err := capacity.CheckDates("contract delivery", contractWindow(c), child); err != nil {
			return err
		}
		id, err := tx.NextID(ctx, domain.ShipmentIDPrefix(c.ID), tx.Shipments().Exists)
		if err != nil {
			return err
		}
		sh = &domain.Shipment{
			ID:            id,
			Type:          c.Type,
			Status:        status,
			ContractID:    c.ID,
			ProductType:   c.ProductType,
			Quantity:      in.Quantity,
			DepartureDate: in.DepartureDate,
			ArrivalDate:   in.ArrivalDate,
			Terminal:      in.Terminal,
			Port:          in.Port,
			Country:       in.Country,
			ShippingLine:  in.ShippingLine,
		}
		return tx.Shipments().Create(ctx, sh)
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("shipment_id", sh.ID).Str("quantity", sh.Quantity.String()).Msg("shipment created")
	return sh, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Shipment, error) {
	return s.Store.Shipments().GetByID(ctx, id)
}

// List returns every shipment, or those of one contract when contractID is set.
func (s *Service) List(ctx context.Context, contractID string) ([]domain.Shipment, error) {
	if contractID != "" {
		return s.Store.ShipmentsForContract(ctx, contractID)
	}
	return s.Store.Shipments().GetAll(ctx)
}

// Tanks lists the tanks allocated within a shipment.
func (s *Service) Tanks(ctx context.Context, id string) ([]domain.Tank, error) {
	if _, err := s.Store.Shipments().GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.TanksForShipment(ctx, id)
}

// Update merges p into the shipment. A fulfilled shipment only accepts a
// change of its fulfilled flag.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*domain.Shipment, error) {
	var out *domain.Shipment
	err := s.Store.InTx(ctx, func(tx *store.Store) error {
		updated, err := tx.Shipments().Update(ctx, id, func(sh *domain.Shipment) error {
			return merge(ctx, tx, sh, p)
		})
		out = updated
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func merge(ctx context.Context, tx *store.Store, sh *domain.Shipment, p Patch) error {
	if sh.IsFulfilled && !p.onlyFulfilment() {
		return domain.Conflictf("Shipment %s is fulfilled", sh.ID)
	}
	if p.Status != nil && *p.Status != sh.Status {
		if !domain.Contains(domain.ValidShipmentStatuses, *p.Status) {
			return domain.NewValidationError(fmt.Sprintf("invalid status: %s", *p.Status))
		}
		if *p.Status == domain.ShipmentStatusCancelled && sh.IsRouted() {
			return domain.Conflictf("Shipment %s is routed to %s; unroute it before cancelling",
				sh.ID, sh.RoutingDetails.RoutedToContractID)
		}
		sh.Status = *p.Status
	}

	c, err := tx.Contracts().GetByID(ctx, sh.ContractID)
	if err != nil {
		return err
	}
	if p.Quantity != nil {
		if !p.Quantity.IsPositive() {
			return domain.NewValidationError("quantity must be greater than 0")
		}
		siblings, err := tx.ShipmentsForContract(ctx, c.ID)
		if err != nil {
			return err
		}
		parent := capacity.ParentRef{Kind: "contract", ID: c.ID, Quantity: c.Quantity}
		if err := capacity.Check(parent, capacity.FromShipments(siblings), sh.ID, *p.Quantity); err != nil {
			return err
		}
		tanks, err := tx.TanksForShipment(ctx, sh.ID)
		if err != nil {
			return err
		}
		if inTanks := capacity.Allocated(capacity.FromTanks(tanks), ""); p.Quantity.LessThan(inTanks) {
			return domain.NewValidationError(fmt.Sprintf(
				"quantity %s is below the %s already allocated to tanks", p.Quantity.String(), inTanks.String()))
		}
		sh.Quantity = *p.Quantity
	}
	if p.DepartureDate != nil {
		sh.DepartureDate = p.DepartureDate
	}
	if p.ArrivalDate != nil {
		sh.ArrivalDate = p.ArrivalDate
	}
	if p.DepartureDate != nil || p.ArrivalDate != nil {
		child := capacity.Window{Start: sh.DepartureDate, End: sh.ArrivalDate}
		if err := capacity.CheckDates("contract delivery", contractWindow(c), child); err != nil {
			return err
		}
		tanks, err := tx.TanksForShipment(ctx, sh.ID)
		if err != nil {
			return err
		}
		if err := capacity.CheckChildren("shipment", child, capacity.TankWindows(tanks)); err != nil {
			return err
		}
	}
	if p.Terminal != nil {
		sh.Terminal = *p.Terminal
	}
	if p.Port != nil {
		sh.Port = *p.Port
	}
	if p.Country != nil {
		sh.Country = *p.Country
	}
	if p.ShippingLine != nil {
		sh.ShippingLine = *p.ShippingLine
	}
	if p.IsFulfilled != nil {
		sh.IsFulfilled = *p.IsFulfilled
	}
	return nil
}

// Delete removes a shipment and its tanks in one transaction. Fulfilled or
// routed shipments are refused.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Store.InTx(ctx, func(tx *store.Store) error {
		sh, err := tx.Shipments().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if sh.IsFulfilled {
			return domain.Conflictf("Shipment %s is fulfilled and cannot be deleted", id)
		}
		if sh.IsRouted() {
			return domain.Conflictf("Shipment %s is routed to %s; unroute it first",
				id, sh.RoutingDetails.RoutedToContractID)
		}
		if _, err := tx.Tanks().DeleteWhere(ctx, "shipment_id = ?", id); err != nil {
			return err
		}
		return tx.Shipments().Delete(ctx, id)
	})
}

// RecomputeQuality re-aggregates the shipment's quality from its tanks and
// persists it, then announces the change with ShipmentChanged.
func (s *Service) RecomputeQuality(ctx context.Context, id string) (*domain.Shipment, error) {
	var out *domain.Shipment
	err := s.Store.InTx(ctx, func(tx *store.Store) error {
		tanks, err := tx.TanksForShipment(ctx, id)
		if err != nil {
			return err
		}
		agg := quality.Aggregate(quality.FromTanks(tanks))
		updated, err := tx.Shipments().Update(ctx, id, func(sh *domain.Shipment) error {
			sh.Quality = agg
			return nil
		})
		if err != nil {
			return err
		}
		out = updated
		tx.Emit(ctx, events.ShipmentChangedEvent(updated.ID, updated.ContractID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HandleTankChanged is the TankChanged subscriber. A shipment deleted in the
// meantime has nothing left to recompute.
func (s *Service) HandleTankChanged(ctx context.Context, e events.Event) error {
	sh, err := s.RecomputeQuality(ctx, e.ShipmentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	ev := log.Debug().Str("shipment_id", sh.ID)
	if sh.Quality != nil {
		ev = ev.Float64("ffa", sh.Quality.FFA).Float64("iv", sh.Quality.IV)
	}
	ev.Msg("shipment quality recomputed")
	return nil
}

// Subscribe wires quality recomputation to tank changes.
func (s *Service) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.TankChanged, s.HandleTankChanged)
}

// QualityReport checks the shipment's aggregated quality against its own contract.
func (s *Service) QualityReport(ctx context.Context, id string) (*QualityReport, error) {
	sh, err := s.Store.Shipments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := s.Store.Contracts().GetByID(ctx, sh.ContractID)
	if err != nil {
		return nil, err
	}
	out := &QualityReport{
		ShipmentID: sh.ID,
		ContractID: c.ID,
		Quality:    sh.Quality,
		Errors:     map[string]string{},
		Warnings:   []string{},
	}
	if sh.Quality == nil {
		return out, nil
	}
	spec, err := c.QualitySpec()
	if err != nil {
		out.Warnings = []string{quality.UncheckableSpec(c, err)}
		return out, nil
	}
	r := quality.ValidateAgainstSpec(*sh.Quality, spec)
	out.Errors = r.Errors
	out.Warnings = r.WarningList()
	return out, nil
}
