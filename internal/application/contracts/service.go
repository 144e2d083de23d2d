package contracts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradedesk-backend/internal/application/policies/capacity"
	"tradedesk-backend/internal/domain"
	"tradedesk-backend/internal/infrastructure/store"
	"tradedesk-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

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

// Input is the create/import payload. ID and Status are honoured by Import only.
type Input struct {
	ID               string          `json:"id"`
	Type             string          `json:"type"`
	Status           string          `json:"status"`
	ProductType      string          `json:"productType"`
	Quantity         decimal.Decimal `json:"quantity"`
	QualityFFA       string          `json:"qualityFFA"`
	QualityIV        string          `json:"qualityIV"`
	QualityS         string          `json:"qualityS"`
	QualityM1        string          `json:"qualityM1"`
	SellerID         *string         `json:"sellerId"`
	BuyerID          *string         `json:"buyerId"`
	Currency         string          `json:"currency"`
	Price            decimal.Decimal `json:"price"`
	CountryCode      string          `json:"countryCode"`
	ContractDate     *time.Time      `json:"contractDate"`
	DeliveryStart    *time.Time      `json:"deliveryStart"`
	DeliveryEnd      *time.Time      `json:"deliveryEnd"`
	DeliveryLocation string          `json:"deliveryLocation"`
}

// Patch is a partial update; nil fields are left unchanged. Type is immutable.
type Patch struct {
	Status           *string          `json:"status"`
	ProductType      *string          `json:"productType"`
	Quantity         *decimal.Decimal `json:"quantity"`
	QualityFFA       *string          `json:"qualityFFA"`
	QualityIV        *string          `json:"qualityIV"`
	QualityS         *string          `json:"qualityS"`
	QualityM1        *string          `json:"qualityM1"`
	SellerID         *string          `json:"sellerId"`
	BuyerID          *string          `json:"buyerId"`
	Currency         *string          `json:"currency"`
	Price            *decimal.Decimal `json:"price"`
	CountryCode      *string          `json:"countryCode"`
	ContractDate     *time.Time       `json:"contractDate"`
	DeliveryStart    *time.Time       `json:"deliveryStart"`
	DeliveryEnd      *time.Time       `json:"deliveryEnd"`
	DeliveryLocation *string          `json:"deliveryLocation"`
}

// Result is a written contract plus advisory warnings about its counterparties.
type Result struct {
	Contract *domain.Contract `json:"contract"`
	Warnings []string         `json:"warnings"`
}

// Filter narrows List; empty fields match everything.
type Filter struct {
	Type        string
	Status      string
	ProductType string
}

// Position is a contract's quantity breakdown. Routed figures are set for Sales contracts only.
type Position struct {
	ContractID          string           `json:"contractId"`
	Type                string           `json:"type"`
	Status              string           `json:"status"`
	Declared            decimal.Decimal  `json:"declared"`
	Allocated           decimal.Decimal  `json:"allocated"`
	Remaining           decimal.Decimal  `json:"remaining"`
	ShipmentCount       int              `json:"shipmentCount"`
	Routed              *decimal.Decimal `json:"routed,omitempty"`
	AvailableForRouting *decimal.Decimal `json:"availableForRouting,omitempty"`
	RoutedShipmentCount int              `json:"routedShipmentCount,omitempty"`
}

func validateInput(in Input) error {
	var msgs []string
	if in.Type != domain.ContractTypeSupply && in.Type != domain.ContractTypeSales {
		msgs = append(msgs, fmt.Sprintf("type must be %s or %s", domain.ContractTypeSupply, domain.ContractTypeSales))
	}
	if strings.TrimSpace(in.ProductType) == "" {
		msgs = append(msgs, "productType is required")
	}
	if !in.Quantity.IsPositive() {
		msgs = append(msgs, "quantity must be greater than 0")
	}
	if in.Price.IsNegative() {
		msgs = append(msgs, "price cannot be negative")
	}
	if !validation.Optional(in.CountryCode, validation.IsCountryCode) {
		msgs = append(msgs, fmt.Sprintf("invalid countryCode: %s", in.CountryCode))
	}
	if !validation.Optional(in.Currency, validation.IsCurrencyCode) {
		msgs = append(msgs, fmt.Sprintf("invalid currency: %s", in.Currency))
	}
	if in.Status != "" && !domain.Contains(domain.ValidContractStatuses, in.Status) {
		msgs = append(msgs, fmt.Sprintf("invalid status: %s", in.Status))
	}
	if len(msgs) > 0 {
		return domain.NewValidationError(msgs...)
	}
	if _, err := domain.ParseQualitySpec(in.QualityFFA, in.QualityIV, in.QualityS, in.QualityM1); err != nil {
		return err
	}
	return checkDeliveryWindow(in.DeliveryStart, in.DeliveryEnd)
}

func checkDeliveryWindow(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return &domain.DateRangeError{Reason: domain.DateEndBeforeStart, Window: "contract delivery"}
	}
	return nil
}

// Create validates in and stores a new contract with a generated id and "opened" status.
func (s *Service) Create(ctx context.Context, in Input) (*Result, error) {
	in.ID = ""
	in.Status = ""
	return s.write(ctx, in)
}

// Import stores a contract from an external system. A supplied id is
// canonicalised and must be unused; otherwise one is generated.
func (s *Service) Import(ctx context.Context, in Input) (*Result, error) {
	in.ID = domain.CanonicalID(in.ID)
	return s.write(ctx, in)
}

func (s *Service) write(ctx context.Context, in Input) (*Result, error) {
	logger := log.With().Str("component", "contracts").Str("type", in.Type).Logger()
	if err := validateInput(in); err != nil {
		return nil, err
	}
	contractDate := s.now()
	if in.ContractDate != nil {
		contractDate = in.ContractDate.UTC()
	}
	status := in.Status
	if status == "" {
		status = domain.ContractStatusOpened
	}
	c := &domain.Contract{
		ID:               in.ID,
		Type:             in.Type,
		Status:           status,
		ProductType:      strings.TrimSpace(in.ProductType),
		Quantity:         in.Quantity,
		QualityFFA:       strings.TrimSpace(in.QualityFFA),
		QualityIV:        strings.TrimSpace(in.QualityIV),
		QualityS:         strings.TrimSpace(in.QualityS),
		QualityM1:        strings.TrimSpace(in.QualityM1),
		SellerID:         in.SellerID,
		BuyerID:          in.BuyerID,
		Currency:         strings.ToUpper(strings.TrimSpace(in.Currency)),
		Price:            in.Price,
		CountryCode:      strings.ToUpper(strings.TrimSpace(in.CountryCode)),
		ContractDate:     contractDate,
		DeliveryStart:    in.DeliveryStart,
		DeliveryEnd:      in.DeliveryEnd,
		DeliveryLocation: in.DeliveryLocation,
	}

	var warnings []string
	err := s.Store.InTx(ctx, func(tx *store.Store) error {
		w, err := counterpartyWarnings(ctx, tx, c)
		if err != nil {
			return err
		}
		warnings = w
		if c.ID == "" {
			prefix := domain.ContractIDPrefix(c.ProductType, c.Type, c.CountryCode, c.ContractDate)
			id, err := tx.NextID(ctx, prefix, tx.Contracts().Exists)
			if err != nil {
				return err
			}
			c.ID = id
		} else {
			exists, err := tx.Contracts().Exists(ctx, c.ID)
			if err != nil {
				return err
			}
			if exists {
				return domain.Conflictf("Contract %s already exists", c.ID)
			}
		}
		return tx.Contracts().Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("contract_id", c.ID).Msg("contract created")
	return &Result{Contract: c, Warnings: warnings}, nil
}

// counterpartyWarnings resolves the seller and buyer. Unknown ids are NotFound;
// an expired certification is only a warning.
func counterpartyWarnings(ctx context.Context, tx *store.Store, c *domain.Contract) ([]string, error) {
	warnings := []string{}
	refs := []struct {
		role string
		id   *string
	}{{"Seller", c.SellerID}, {"Buyer", c.BuyerID}}
	for _, ref := range refs {
		if ref.id == nil || *ref.id == "" {
			continue
		}
		p, err := tx.Parties().GetByID(ctx, *ref.id)
		if err != nil {
			return nil, err
		}
		if p.CertificationExpired(c.ContractDate) {
			warnings = append(warnings, fmt.Sprintf("%s %s certification expired on %s",
				ref.role, p.Name, p.CertificationExpiry.Format("2006-01-02")))
		}
	}
	return warnings, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Contract, error) {
	return s.Store.Contracts().GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]domain.Contract, error) {
	q := s.Store.DB(ctx).Model(&domain.Contract{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ProductType != "" {
		q = q.Where("product_type = ?", f.ProductType)
	}
	var out []domain.Contract
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Update merges p into the contract. The quantity may not drop below what
// shipments already draw (or, for Sales, what is routed to it), and the
// product type is frozen once shipments exist.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*Result, error) {
	var out *domain.Contract
	var warnings []string
	err := s.Store.InTx(ctx, func(tx *store.Store) error {
		updated, err := tx.Contracts().Update(ctx, id, func(c *domain.Contract) error {
			return s.merge(ctx, tx, c, p)
		})
		if err != nil {
			return err
		}
		out = updated
		if p.SellerID != nil || p.BuyerID != nil || p.ContractDate != nil {
			warnings, err = counterpartyWarnings(ctx, tx, updated)
			return err
		}
		warnings = []string{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Contract: out, Warnings: warnings}, nil
}

func (s *Service) merge(ctx context.Context, tx *store.Store, c *domain.Contract, p Patch) error {
	shipments, err := tx.ShipmentsForContract(ctx, c.ID)
	if err != nil {
		return err
	}
	if p.Status != nil {
		if !domain.Contains(domain.ValidContractStatuses, *p.Status) {
			return domain.NewValidationError(fmt.Sprintf("invalid status: %s", *p.Status))
		}
		c.Status = *p.Status
	}
	if p.ProductType != nil && strings.TrimSpace(*p.ProductType) != c.ProductType {
		if strings.TrimSpace(*p.ProductType) == "" {
			return domain.NewValidationError("productType is required")
		}
		if len(shipments) > 0 {
			return domain.Conflictf("Contract %s has shipments; productType cannot change", c.ID)
		}
		c.ProductType = strings.TrimSpace(*p.ProductType)
	}
	if p.Quantity != nil {
		if !p.Quantity.IsPositive() {
			return domain.NewValidationError("quantity must be greater than 0")
		}
		allocated := capacity.Allocated(capacity.FromShipments(shipments), "")
		if p.Quantity.LessThan(allocated) {
			return domain.NewValidationError(fmt.Sprintf(
				"quantity %s is below the %s already allocated to shipments", p.Quantity.String(), allocated.String()))
		}
		if c.IsSales() {
			routed, err := routedTotal(ctx, tx, c.ID)
			if err != nil {
				return err
			}
			if p.Quantity.LessThan(routed) {
				return domain.NewValidationError(fmt.Sprintf(
					"quantity %s is below the %s already routed to this contract", p.Quantity.String(), routed.String()))
			}
		}
		c.Quantity = *p.Quantity
	}
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	setString(&c.QualityFFA, p.QualityFFA)
	setString(&c.QualityIV, p.QualityIV)
	setString(&c.QualityS, p.QualityS)
	setString(&c.QualityM1, p.QualityM1)
	if _, err := c.QualitySpec(); err != nil {
		return err
	}
	if p.SellerID != nil {
		c.SellerID = nilIfEmpty(*p.SellerID)
	}
	if p.BuyerID != nil {
		c.BuyerID = nilIfEmpty(*p.BuyerID)
	}
	if p.Currency != nil {
		if !validation.Optional(*p.Currency, validation.IsCurrencyCode) {
			return domain.NewValidationError(fmt.Sprintf("invalid currency: %s", *p.Currency))
		}
		c.Currency = strings.ToUpper(strings.TrimSpace(*p.Currency))
	}
	if p.Price != nil {
		if p.Price.IsNegative() {
			return domain.NewValidationError("price cannot be negative")
		}
		c.Price = *p.Price
	}
	if p.CountryCode != nil {
		if !validation.Optional(*p.CountryCode, validation.IsCountryCode) {
			return domain.NewValidationError(fmt.Sprintf("invalid countryCode: %s", *p.CountryCode))
		}
		c.CountryCode = strings.ToUpper(strings.TrimSpace(*p.CountryCode))
	}
	if p.ContractDate != nil {
		c.ContractDate = p.ContractDate.UTC()
	}
	if p.DeliveryStart != nil {
		c.DeliveryStart = p.DeliveryStart
	}
	if p.DeliveryEnd != nil {
		c.DeliveryEnd = p.DeliveryEnd
	}
	setString(&c.DeliveryLocation, p.DeliveryLocation)
	if err := checkDeliveryWindow(c.DeliveryStart, c.DeliveryEnd); err != nil {
		return err
	}
	if p.DeliveryStart != nil || p.DeliveryEnd != nil {
		window := capacity.Window{Start: c.DeliveryStart, End: c.DeliveryEnd}
		return capacity.CheckChildren("contract delivery", window, capacity.ShipmentWindows(shipments))
	}
	return nil
}

func nilIfEmpty(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func routedTotal(ctx context.Context, tx *store.Store, contractID string) (decimal.Decimal, error) {
	routed, err := tx.ShipmentsRoutedTo(ctx, contractID)
	if err != nil {
		return decimal.Zero, err
	}
	return capacity.Allocated(capacity.FromShipments(routed), ""), nil
}

// Delete removes a contract that nothing references. Shipments drawn against
// it, or Supply shipments routed to it, must be removed or unrouted first.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Store.InTx(ctx, func(tx *store.Store) error {
		if _, err := tx.Contracts().GetByID(ctx, id); err != nil {
			return err
		}
		n, err := tx.Shipments().Count(ctx, "contract_id = ?", id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.Conflictf("Contract %s has %d shipment(s); delete them first", id, n)
		}
		routed, err := tx.ShipmentsRoutedTo(ctx, id)
		if err != nil {
			return err
		}
		if len(routed) > 0 {
			return domain.Conflictf("Contract %s has %d routed shipment(s); unroute them first", id, len(routed))
		}
		return tx.Contracts().Delete(ctx, id)
	})
}

// Shipments lists the shipments drawn against a contract.
func (s *Service) Shipments(ctx context.Context, id string) ([]domain.Shipment, error) {
	if _, err := s.Store.Contracts().GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.ShipmentsForContract(ctx, id)
}

// Position computes the contract's allocation and, for Sales contracts, its routing position.
func (s *Service) Position(ctx context.Context, id string) (*Position, error) {
	c, err := s.Store.Contracts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	shipments, err := s.Store.ShipmentsForContract(ctx, id)
	if err != nil {
		return nil, err
	}
	allocations := capacity.FromShipments(shipments)
	pos := &Position{
		ContractID:    c.ID,
		Type:          c.Type,
		Status:        c.Status,
		Declared:      c.Quantity,
		Allocated:     capacity.Allocated(allocations, ""),
		Remaining:     capacity.RemainingCapacity(c.Quantity, allocations, ""),
		ShipmentCount: len(shipments),
	}
	if c.IsSales() {
		routed, err := s.Store.ShipmentsRoutedTo(ctx, id)
		if err != nil {
			return nil, err
		}
		total := capacity.Allocated(capacity.FromShipments(routed), "")
		available := c.Quantity.Sub(total)
		pos.Routed = &total
		pos.AvailableForRouting = &available
		pos.RoutedShipmentCount = len(routed)
	}
	return pos, nil
}
