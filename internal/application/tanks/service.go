package tanks

import (
	"context"
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

type Input struct {
	ShipmentID    string          `json:"shipmentId"`
	Status        string          `json:"status"`
	Quantity      decimal.Decimal `json:"quantity"`
	Quality       *domain.Quality `json:"quality"`
	DepartureDate *time.Time      `json:"departureDate"`
	ArrivalDate   *time.Time      `json:"arrivalDate"`
}

// Patch is a partial update. ClearQuality removes recorded quality.
type Patch struct {
	Status        *string          `json:"status"`
	Quantity      *decimal.Decimal `json:"quantity"`
	Quality       *domain.Quality  `json:"quality"`
	ClearQuality  bool             `json:"clearQuality"`
	DepartureDate *time.Time       `json:"departureDate"`
	ArrivalDate   *time.Time       `json:"arrivalDate"`
}

// Result is a written tank plus tolerance warnings against the contract spec.
// Warnings never block the write.
type Result struct {
	Tank     *domain.Tank `json:"tank"`
	Warnings []string     `json:"warnings"`
}

func shipmentWindow(sh *domain.Shipment) capacity.Window {
	return capacity.Window{Start: sh.DepartureDate, End: sh.ArrivalDate}
}

func rangeError(q *domain.Quality) error {
	if q == nil {
		return nil
	}
	errs := q.RangeErrors()
	if len(errs) == 0 {
		return nil
	}
	var msgs []string
	for _, p := range domain.QualityParams {
		if m, ok := errs[p]; ok {
			msgs = append(msgs, m)
		}
	}
	return domain.NewValidationError(msgs...)
}

// writableShipment loads the owning shipment and refuses cancelled or fulfilled ones.
func writableShipment(ctx context.Context, tx *store.Store, id string) (*domain.Shipment, error) {
	sh, err := tx.Shipments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh.IsFulfilled {
		return nil, domain.Conflictf("Shipment %s is fulfilled", sh.ID)
	}
	if sh.IsCancelled() {
		return nil, domain.Conflictf("Shipment %s is cancelled", sh.ID)
	}
	return sh, nil
}

// Create allocates a tank within a shipment's remaining quantity and dates.
func (s *Service) Create(ctx context.Context, in Input) (*Result, error) {
	logger := log.With().Str("component", "tanks").Str("shipment_id", in.ShipmentID).Logger()
	status := in.Status
	if status == "" {
		status = domain.TankStatusLoaded
	}
	var msgs []string
	if strings.TrimSpace(in.ShipmentID) == "" {
		msgs = append(msgs, "shipmentId is required")
	}
	if !in.Quantity.IsPositive() {
		msgs = append(msgs, "quantity must be greater than 0")
	}
	if !domain.Contains(domain.ValidTankStatuses, status) {
		msgs = append(msgs, fmt.Sprintf("invalid status: %s", status))
	}
	if len(msgs) > 0 {
		return nil, domain.NewValidationError(msgs...)
	}
	if err := rangeError(in.Quality); err != nil {
		return nil, err
	}

	var t *domain.Tank
	var warnings []string
	err := s.Store.InTx(ctx, func(tx *store.Store) error {
		sh, err := writableShipment(ctx, tx, in.ShipmentID)
		if err != nil {
			return err
		}
		siblings, err := tx.TanksForShipment(ctx, sh.ID)
		if err != nil {
			return err
		}
		parent := capacity.ParentRef{Kind: "shipment", ID: sh.ID, Quantity: sh.Quantity}
		if err := capacity.Check(parent, capacity.FromTanks(siblings), "", in.Quantity); err != nil {
			return err
		}
		child := capacity.Window{Start: in.DepartureDate, End: in.ArrivalDate}
		if err := capacity.CheckDates("shipment", shipmentWindow(sh), child); err != nil {
			return err
		}
		id, err := tx.NextID(ctx, domain.TankIDPrefix(sh.ID), tx.Tanks().Exists)
		if err != nil {
			return err
		}
		t = &domain.Tank{
			ID:            id,
			ShipmentID:    sh.ID,
			Status:        status,
			Quantity:      in.Quantity,
			Quality:       in.Quality,
			DepartureDate: in.DepartureDate,
			ArrivalDate:   in.ArrivalDate,
		}
		if err := tx.Tanks().Create(ctx, t); err != nil {
			return err
		}
		tx.Emit(ctx, events.TankChangedEvent(sh.ID))
		warnings, err = specWarnings(ctx, tx, sh, t.Quality)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("tank_id", t.ID).Int("warnings", len(warnings)).Msg("tank created")
	return &Result{Tank: t, Warnings: warnings}, nil
}

// specWarnings checks a tank's quality against its contract's spec.
// The result is advisory only.
func specWarnings(ctx context.Context, tx *store.Store, sh *domain.Shipment, q *domain.Quality) ([]string, error) {
	if q == nil {
		return []string{}, nil
	}
	c, err := tx.Contracts().GetByID(ctx, sh.ContractID)
	if err != nil {
		return nil, err
	}
	return quality.ContractWarnings(*q, c), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Tank, error) {
	return s.Store.Tanks().GetByID(ctx, id)
}

// Update merges p into the tank. A change of quantity or quality triggers
// recomputation of the shipment's quality.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*Result, error) {
	if err := rangeError(p.Quality); err != nil {
		return nil, err
	}
	var out *domain.Tank
	var warnings []string
	err := s.Store.InTx(ctx, func(tx *store.Store) error {
		current, err := tx.Tanks().GetByID(ctx, id)
		if err != nil {
			return err
		}
		sh, err := writableShipment(ctx, tx, current.ShipmentID)
		if err != nil {
			return err
		}
		changed := false
		updated, err := tx.Tanks().Update(ctx, id, func(t *domain.Tank) error {
			if p.Status != nil {
				if !domain.Contains(domain.ValidTankStatuses, *p.Status) {
					return domain.NewValidationError(fmt.Sprintf("invalid status: %s", *p.Status))
				}
				t.Status = *p.Status
			}
			if p.Quantity != nil && !p.Quantity.Equal(t.Quantity) {
				if !p.Quantity.IsPositive() {
					return domain.NewValidationError("quantity must be greater than 0")
				}
				siblings, err := tx.TanksForShipment(ctx, sh.ID)
				if err != nil {
					return err
				}
				parent := capacity.ParentRef{Kind: "shipment", ID: sh.ID, Quantity: sh.Quantity}
				if err := capacity.Check(parent, capacity.FromTanks(siblings), t.ID, *p.Quantity); err != nil {
					return err
				}
				t.Quantity = *p.Quantity
				changed = true
			}
			if p.ClearQuality {
				changed = changed || t.Quality != nil
				t.Quality = nil
			} else if p.Quality != nil && (t.Quality == nil || *t.Quality != *p.Quality) {
				q := *p.Quality
				t.Quality = &q
				changed = true
			}
			if p.DepartureDate != nil {
				t.DepartureDate = p.DepartureDate
			}
			if p.ArrivalDate != nil {
				t.ArrivalDate = p.ArrivalDate
			}
			if p.DepartureDate != nil || p.ArrivalDate != nil {
				return capacity.CheckDates("shipment", shipmentWindow(sh),
					capacity.Window{Start: t.DepartureDate, End: t.ArrivalDate})
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = updated
		if changed {
			tx.Emit(ctx, events.TankChangedEvent(sh.ID))
		}
		warnings, err = specWarnings(ctx, tx, sh, updated.Quality)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Result{Tank: out, Warnings: warnings}, nil
}

// Delete removes a tank unless its shipment is fulfilled.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Store.InTx(ctx, func(tx *store.Store) error {
		t, err := tx.Tanks().GetByID(ctx, id)
		if err != nil {
			return err
		}
		sh, err := tx.Shipments().GetByID(ctx, t.ShipmentID)
		if err != nil {
			return err
		}
		if sh.IsFulfilled {
			return domain.Conflictf("Shipment %s is fulfilled; its tanks cannot be deleted", sh.ID)
		}
		if err := tx.Tanks().Delete(ctx, id); err != nil {
			return err
		}
		tx.Emit(ctx, events.TankChangedEvent(sh.ID))
		return nil
	})
}
