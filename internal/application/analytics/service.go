package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tradedesk-backend/internal/domain"
	"tradedesk-backend/internal/events"
	"tradedesk-backend/internal/infrastructure/store"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CacheKey holds the serialised Summary until the next collection change.
const CacheKey = "analytics:summary"

const defaultTTL = time.Minute

// Service computes the back-office summary. The Redis cache is optional.
type Service struct {
	Store *store.Store
	Rdb   *redis.Client
	TTL   time.Duration
	Now   func() time.Time
}

type ContractStats struct {
	Total    int                        `json:"total"`
	ByType   map[string]int             `json:"byType"`
	ByStatus map[string]int             `json:"byStatus"`
	Quantity map[string]decimal.Decimal `json:"quantityByType"`
}

type ShipmentStats struct {
	Total           int             `json:"total"`
	ByStatus        map[string]int  `json:"byStatus"`
	ShippedQuantity decimal.Decimal `json:"shippedQuantity"`
	WithQuality     int             `json:"withQuality"`
	Fulfilled       int             `json:"fulfilled"`
}

type RoutingStats struct {
	RoutedShipments        int             `json:"routedShipments"`
	RoutedSupplyQuantity   decimal.Decimal `json:"routedSupplyQuantity"`
	UnroutedSupplyQuantity decimal.Decimal `json:"unroutedSupplyQuantity"`
}

type Summary struct {
	Contracts   ContractStats `json:"contracts"`
	Shipments   ShipmentStats `json:"shipments"`
	Routing     RoutingStats  `json:"routing"`
	Tanks       int           `json:"tanks"`
	Parties     int           `json:"parties"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Cached      bool          `json:"cached"`
}

func (s *Service) ttl() time.Duration {
	if s.TTL <= 0 {
		return defaultTTL
	}
	return s.TTL
}

// Summary returns the cached summary when present, otherwise computes and caches it.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	if s.Rdb != nil {
		raw, err := s.Rdb.Get(ctx, CacheKey).Bytes()
		switch {
		case err == nil:
			var cached Summary
			if jerr := json.Unmarshal(raw, &cached); jerr == nil {
				cached.Cached = true
				return &cached, nil
			}
		case !errors.Is(err, redis.Nil):
			log.Warn().Err(err).Str("component", "analytics").Msg("summary cache read failed")
		}
	}

	sum, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	if s.Rdb != nil {
		s.store(ctx, sum)
	}
	return sum, nil
}

func (s *Service) store(ctx context.Context, sum *Summary) {
	b, err := json.Marshal(sum)
	if err != nil {
		log.Warn().Err(err).Str("component", "analytics").Msg("summary not cached: encode failed")
		return
	}
	if err := s.Rdb.Set(ctx, CacheKey, b, s.ttl()).Err(); err != nil {
		log.Warn().Err(err).Str("component", "analytics").Msg("summary cache write failed")
	}
}

func (s *Service) compute(ctx context.Context) (*Summary, error) {
	contracts, err := s.Store.Contracts().GetAll(ctx)
	if err != nil {
		return nil, err
	}
	shipments, err := s.Store.Shipments().GetAll(ctx)
	if err != nil {
		return nil, err
	}
	tanks, err := s.Store.Tanks().CountAll(ctx)
	if err != nil {
		return nil, err
	}
	parties, err := s.Store.Parties().CountAll(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	sum := &Summary{
		Contracts: ContractStats{
			Total:    len(contracts),
			ByType:   map[string]int{},
			ByStatus: map[string]int{},
			Quantity: map[string]decimal.Decimal{},
		},
		Shipments:   ShipmentStats{Total: len(shipments), ByStatus: map[string]int{}},
		Tanks:       int(tanks),
		Parties:     int(parties),
		GeneratedAt: now,
	}
	for _, c := range contracts {
		sum.Contracts.ByType[c.Type]++
		sum.Contracts.ByStatus[c.Status]++
		sum.Contracts.Quantity[c.Type] = sum.Contracts.Quantity[c.Type].Add(c.Quantity)
	}
	for _, sh := range shipments {
		sum.Shipments.ByStatus[sh.Status]++
		if sh.Quality != nil {
			sum.Shipments.WithQuality++
		}
		if sh.IsFulfilled {
			sum.Shipments.Fulfilled++
		}
		if sh.IsCancelled() {
			continue
		}
		sum.Shipments.ShippedQuantity = sum.Shipments.ShippedQuantity.Add(sh.Quantity)
		if sh.Type != domain.ContractTypeSupply {
			continue
		}
		if sh.IsRouted() {
			sum.Routing.RoutedShipments++
			sum.Routing.RoutedSupplyQuantity = sum.Routing.RoutedSupplyQuantity.Add(sh.Quantity)
		} else {
			sum.Routing.UnroutedSupplyQuantity = sum.Routing.UnroutedSupplyQuantity.Add(sh.Quantity)
		}
	}
	return sum, nil
}

// Invalidate drops the cached summary.
func (s *Service) Invalidate(ctx context.Context) {
	if s.Rdb == nil {
		return
	}
	if err := s.Rdb.Del(ctx, CacheKey).Err(); err != nil {
		log.Warn().Err(err).Str("component", "analytics").Msg("summary cache invalidation failed")
	}
}

// HandleChange drops the cached summary on any local data change.
func (s *Service) HandleChange(ctx context.Context, _ events.Event) error {
	s.Invalidate(ctx)
	return nil
}

// Subscribe invalidates the summary on collection writes and on recomputed
// shipment quality, which feeds the withQuality count.
func (s *Service) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.CollectionChanged, s.HandleChange)
	bus.Subscribe(events.ShipmentChanged, s.HandleChange)
}

// OnRemoteChange handles a collection name relayed from another instance.
func (s *Service) OnRemoteChange(ctx context.Context, collection string) {
	s.Invalidate(ctx)
}
