package parties

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradedesk-backend/internal/domain"
	"tradedesk-backend/internal/infrastructure/store"
	"tradedesk-backend/internal/pkg/validation"
)

type Service struct {
	Store *store.Store
}

type Input struct {
	ID                  string     `json:"id"`
	Type                string     `json:"type"`
	Name                string     `json:"name"`
	CountryCode         string     `json:"countryCode"`
	Email               string     `json:"email"`
	CertificationNumber *string    `json:"certificationNumber"`
	CertificationExpiry *time.Time `json:"certificationExpiry"`
}

type Patch struct {
	Name                *string    `json:"name"`
	CountryCode         *string    `json:"countryCode"`
	Email               *string    `json:"email"`
	CertificationNumber *string    `json:"certificationNumber"`
	CertificationExpiry *time.Time `json:"certificationExpiry"`
}

func validType(t string) bool {
	return t == domain.PartyTypeSupplier || t == domain.PartyTypeBuyer
}

func (s *Service) Create(ctx context.Context, in Input) (*domain.Party, error) {
	var msgs []string
	if !validType(in.Type) {
		msgs = append(msgs, fmt.Sprintf("type must be %s or %s", domain.PartyTypeSupplier, domain.PartyTypeBuyer))
	}
	if strings.TrimSpace(in.Name) == "" {
		msgs = append(msgs, "name is required")
	}
	if !validation.Optional(in.Email, validation.IsValidEmail) {
		msgs = append(msgs, fmt.Sprintf("invalid email: %s", in.Email))
	}
	if !validation.Optional(in.CountryCode, validation.IsCountryCode) {
		msgs = append(msgs, fmt.Sprintf("invalid countryCode: %s", in.CountryCode))
	}
	if len(msgs) > 0 {
		return nil, domain.NewValidationError(msgs...)
	}
	p := &domain.Party{
		ID:                  strings.TrimSpace(in.ID),
		Type:                in.Type,
		Name:                strings.TrimSpace(in.Name),
		CountryCode:         strings.ToUpper(strings.TrimSpace(in.CountryCode)),
		Email:               strings.TrimSpace(in.Email),
		CertificationNumber: in.CertificationNumber,
		CertificationExpiry: in.CertificationExpiry,
	}
	err := s.Store.InTx(ctx, func(tx *store.Store) error {
		if p.ID != "" {
			exists, err := tx.Parties().Exists(ctx, p.ID)
			if err != nil {
				return err
			}
			if exists {
				return domain.Conflictf("Party %s already exists", p.ID)
			}
		}
		return tx.Parties().Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Party, error) {
	return s.Store.Parties().GetByID(ctx, id)
}

// List returns every party, or only those of partyType when set.
func (s *Service) List(ctx context.Context, partyType string) ([]domain.Party, error) {
	if partyType != "" {
		return s.Store.Parties().Find(ctx, "type = ?", partyType)
	}
	return s.Store.Parties().GetAll(ctx)
}

func (s *Service) Update(ctx context.Context, id string, p Patch) (*domain.Party, error) {
	return s.Store.Parties().Update(ctx, id, func(party *domain.Party) error {
		if p.Name != nil {
			if strings.TrimSpace(*p.Name) == "" {
				return domain.NewValidationError("name is required")
			}
			party.Name = strings.TrimSpace(*p.Name)
		}
		if p.CountryCode != nil {
			if !validation.Optional(*p.CountryCode, validation.IsCountryCode) {
				return domain.NewValidationError(fmt.Sprintf("invalid countryCode: %s", *p.CountryCode))
			}
			party.CountryCode = strings.ToUpper(strings.TrimSpace(*p.CountryCode))
		}
		if p.Email != nil {
			if !validation.Optional(*p.Email, validation.IsValidEmail) {
				return domain.NewValidationError(fmt.Sprintf("invalid email: %s", *p.Email))
			}
			party.Email = strings.TrimSpace(*p.Email)
		}
		if p.CertificationNumber != nil {
			party.CertificationNumber = p.CertificationNumber
		}
		if p.CertificationExpiry != nil {
			party.CertificationExpiry = p.CertificationExpiry
		}
		return nil
	})
}

// Delete refuses while a contract names the party as seller or buyer.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Store.InTx(ctx, func(tx *store.Store) error {
		n, err := tx.Contracts().Count(ctx, "seller_id = ? OR buyer_id = ?", id, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.Conflictf("Party %s is referenced by %d contract(s)", id, n)
		}
		return tx.Parties().Delete(ctx, id)
	})
}
