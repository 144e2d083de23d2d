package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PartyTypeSupplier = "Supplier"
	PartyTypeBuyer    = "Buyer"
)

// Party is a supplier or buyer counterparty.
type Party struct {
	ID                  string     `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	Type                string     `gorm:"column:type;type:varchar(10);not null;index" json:"type"`
	Name                string     `gorm:"column:name;not null" json:"name"`
	CountryCode         string     `gorm:"column:country_code;type:varchar(3)" json:"countryCode"`
	Email               string     `gorm:"column:email" json:"email"`
	CertificationNumber *string    `gorm:"column:certification_number" json:"certificationNumber"`
	CertificationExpiry *time.Time `gorm:"column:certification_expiry" json:"certificationExpiry"`
	CreatedAt           time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (Party) TableName() string {
	return CollectionParties
}

// BeforeCreate assigns an id when the caller did not supply one.
func (p *Party) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// CertificationExpired is true when a certification is on file and expired before at.
func (p Party) CertificationExpired(at time.Time) bool {
	return p.CertificationExpiry != nil && p.CertificationExpiry.Before(at)
}
