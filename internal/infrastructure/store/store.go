package store

import (
	"context"

	"tradedesk-backend/internal/domain"
	"tradedesk-backend/internal/events"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store owns the persistence handle for every entity collection and the bus
// that change notifications are published on.
type Store struct {
	db  *gorm.DB
	bus *events.Bus
	// pending is non-nil inside InTx; events wait there until commit.
	pending *[]events.Event
}

func New(db *gorm.DB, bus *events.Bus) *Store {
	return &Store{db: db, bus: bus}
}

// DB returns the handle bound to the current transaction, if any.
func (s *Store) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) Contracts() *Repository[domain.Contract] {
	return newRepository[domain.Contract](s, domain.CollectionContracts, "Contract")
}

func (s *Store) Shipments() *Repository[domain.Shipment] {
	return newRepository[domain.Shipment](s, domain.CollectionShipments, "Shipment")
}

func (s *Store) Tanks() *Repository[domain.Tank] {
	return newRepository[domain.Tank](s, domain.CollectionTanks, "Tank")
}

func (s *Store) Parties() *Repository[domain.Party] {
	return newRepository[domain.Party](s, domain.CollectionParties, "Party")
}

// InTx runs fn inside one database transaction. Events emitted by fn are
// published only after the transaction commits, and dropped on rollback.
// Calls nested inside an open transaction join it.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.pending != nil {
		return fn(s)
	}
	var pending []events.Event
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&Store{db: gtx, bus: s.bus, pending: &pending})
	})
	if err != nil {
		return err
	}
	for _, e := range pending {
		s.publish(ctx, e)
	}
	return nil
}

// Emit queues e until commit inside a transaction, or publishes it immediately.
func (s *Store) Emit(ctx context.Context, e events.Event) {
	if s.pending != nil {
		*s.pending = append(*s.pending, e)
		return
	}
	s.publish(ctx, e)
}

func (s *Store) publish(ctx context.Context, e events.Event) {
	// The mutation is already committed; subscriber failures are logged, not returned.
	if err := s.bus.Publish(ctx, e); err != nil {
		log.Error().Err(err).Str("event", e.Type).Str("collection", e.Collection).
			Str("shipment_id", e.ShipmentID).Msg("event subscriber failed")
	}
}

// NextSequence atomically increments and returns the counter for scope.
// Call it inside InTx so the id and the row it names commit together.
func (s *Store) NextSequence(ctx context.Context, scope string) (int64, error) {
	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Sequence{Scope: scope, Value: 0}).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&domain.Sequence{}).Where("scope = ?", scope).
		UpdateColumn("value", gorm.Expr("value + 1")).Error; err != nil {
		return 0, err
	}
	var seq domain.Sequence
	if err := db.Where("scope = ?", scope).First(&seq).Error; err != nil {
		return 0, err
	}
	return seq.Value, nil
}

// NextID allocates the next free "{prefix}-{seq:3}" id. Sequence values that
// collide with an existing id (e.g. rows migrated from the legacy format) are skipped.
func (s *Store) NextID(ctx context.Context, prefix string, exists func(ctx context.Context, id string) (bool, error)) (string, error) {
	for {
		seq, err := s.NextSequence(ctx, prefix)
		if err != nil {
			return "", err
		}
		id := domain.SequencedID(prefix, seq)
		taken, err := exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
}

// ShipmentsForContract returns every shipment drawn against contractID.
func (s *Store) ShipmentsForContract(ctx context.Context, contractID string) ([]domain.Shipment, error) {
	return s.Shipments().Find(ctx, "contract_id = ?", contractID)
}

// RoutedShipments returns every shipment currently carrying routing details.
// The routing column is JSON, so the filter by target runs in Go.
func (s *Store) RoutedShipments(ctx context.Context) ([]domain.Shipment, error) {
	return s.Shipments().Find(ctx, "routing_details IS NOT NULL")
}

// ShipmentsRoutedTo returns the shipments routed to a Sales contract.
func (s *Store) ShipmentsRoutedTo(ctx context.Context, contractID string) ([]domain.Shipment, error) {
	routed, err := s.RoutedShipments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Shipment, 0, len(routed))
	for _, sh := range routed {
		if sh.RoutedTo(contractID) {
			out = append(out, sh)
		}
	}
	return out, nil
}

// TanksForShipment returns every tank allocated within shipmentID.
func (s *Store) TanksForShipment(ctx context.Context, shipmentID string) ([]domain.Tank, error) {
	return s.Tanks().Find(ctx, "shipment_id = ?", shipmentID)
}
