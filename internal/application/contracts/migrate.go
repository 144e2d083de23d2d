package contracts

import (
	"context"

	"tradedesk-backend/internal/domain"
	"tradedesk-backend/internal/events"
	"tradedesk-backend/internal/infrastructure/store"

	"github.com/rs/zerolog/log"
)

// Rename is one contract id rewritten by CanonicalizeLegacyIDs.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CanonicalizeLegacyIDs rewrites contracts still carrying SUPPLIER/SALES id
// segments to the SUP/SEL form, together with the ids and references of their
// shipments, tanks, routing details and routing events. Each contract is
// migrated in its own transaction; a canonical id that is already taken is
// reported as a conflict and stops the run.
func (s *Service) CanonicalizeLegacyIDs(ctx context.Context) ([]Rename, error) {
	logger := log.With().Str("component", "contracts_migration").Logger()
	all, err := s.Store.Contracts().GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var renames []Rename
	for _, c := range all {
		to := domain.CanonicalID(c.ID)
		if to == c.ID {
			continue
		}
		if err := s.Store.InTx(ctx, func(tx *store.Store) error {
			return renameContract(ctx, tx, c.ID, to)
		}); err != nil {
			return renames, err
		}
		logger.Info().Str("from", c.ID).Str("to", to).Msg("contract id canonicalised")
		renames = append(renames, Rename{From: c.ID, To: to})
	}
	return renames, nil
}

func renameContract(ctx context.Context, tx *store.Store, from, to string) error {
	exists, err := tx.Contracts().Exists(ctx, to)
	if err != nil {
		return err
	}
	if exists {
		return domain.Conflictf("Cannot rename %s: contract %s already exists", from, to)
	}
	db := tx.DB(ctx)
	if err := db.Model(&domain.Contract{}).Where("id = ?", from).Update("id", to).Error; err != nil {
		return err
	}

	shipments, err := tx.ShipmentsForContract(ctx, from)
	if err != nil {
		return err
	}
	for _, sh := range shipments {
		newShipmentID := domain.CanonicalID(sh.ID)
		if err := db.Model(&domain.Shipment{}).Where("id = ?", sh.ID).
			Updates(map[string]interface{}{"id": newShipmentID, "contract_id": to}).Error; err != nil {
			return err
		}
		tanks, err := tx.TanksForShipment(ctx, sh.ID)
		if err != nil {
			return err
		}
		for _, t := range tanks {
			if err := db.Model(&domain.Tank{}).Where("id = ?", t.ID).
				Updates(map[string]interface{}{"id": domain.CanonicalID(t.ID), "shipment_id": newShipmentID}).Error; err != nil {
				return err
			}
		}
		if err := db.Model(&domain.RoutingEvent{}).Where("shipment_id = ?", sh.ID).
			Update("shipment_id", newShipmentID).Error; err != nil {
			return err
		}
	}

	routed, err := tx.ShipmentsRoutedTo(ctx, from)
	if err != nil {
		return err
	}
	for _, sh := range routed {
		sh.RoutingDetails.RoutedToContractID = to
		if err := db.Model(&domain.Shipment{}).Where("id = ?", sh.ID).
			Select("routing_details").Updates(&domain.Shipment{RoutingDetails: sh.RoutingDetails}).Error; err != nil {
			return err
		}
	}
	if err := db.Model(&domain.RoutingEvent{}).Where("contract_id = ?", from).
		Update("contract_id", to).Error; err != nil {
		return err
	}

	for _, collection := range []string{domain.CollectionContracts, domain.CollectionShipments, domain.CollectionTanks} {
		tx.Emit(ctx, events.CollectionChangedEvent(collection))
	}
	return nil
}
