package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ContractTypeSupply = "Supply"
	ContractTypeSales  = "Sales"
)

const (
	ContractStatusOpened  = "opened"
	ContractStatusPending = "pending"
	ContractStatusClosed  = "closed"
)

// ValidContractStatuses is the set of accepted contract statuses.
var ValidContractStatuses = []string{ContractStatusOpened, ContractStatusPending, ContractStatusClosed}

// Contract is a Supply or Sales trade agreement. Shipments draw down its quantity.
type Contract struct {
	ID               string          `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	Type             string          `gorm:"column:type;type:varchar(10);not null;index" json:"type"`
	Status           string          `gorm:"column:status;type:varchar(10);not null;default:'opened';index" json:"status"`
	ProductType      string          `gorm:"column:product_type;not null;index" json:"productType"`
	Quantity         decimal.Decimal `gorm:"column:quantity;type:decimal(18,3);not null" json:"quantity"`
	QualityFFA       string          `gorm:"column:quality_ffa" json:"qualityFFA"`
	QualityIV        string          `gorm:"column:quality_iv" json:"qualityIV"`
	QualityS         string          `gorm:"column:quality_s" json:"qualityS"`
	QualityM1        string          `gorm:"column:quality_m1" json:"qualityM1"`
	SellerID         *string         `gorm:"column:seller_id;type:varchar(64)" json:"sellerId"`
	BuyerID          *string         `gorm:"column:buyer_id;type:varchar(64)" json:"buyerId"`
	Currency         string          `gorm:"column:currency;type:varchar(3)" json:"currency"`
	Price            decimal.Decimal `gorm:"column:price;type:decimal(18,4);not null;default:0" json:"price"`
	CountryCode      string          `gorm:"column:country_code;type:varchar(3)" json:"countryCode"`
	ContractDate     time.Time       `gorm:"column:contract_date" json:"contractDate"`
	DeliveryStart    *time.Time      `gorm:"column:delivery_start" json:"deliveryStart"`
	DeliveryEnd      *time.Time      `gorm:"column:delivery_end" json:"deliveryEnd"`
	DeliveryLocation string          `gorm:"column:delivery_location" json:"deliveryLocation"`
	CreatedAt        time.Time       `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt        time.Time       `gorm:"column:updated_at" json:"updatedAt"`
}

func (Contract) TableName() string {
	return CollectionContracts
}

// QualitySpec parses the contract's declared quality targets.
func (c Contract) QualitySpec() (QualitySpec, error) {
	return ParseQualitySpec(c.QualityFFA, c.QualityIV, c.QualityS, c.QualityM1)
}

func (c Contract) IsSupply() bool { return c.Type == ContractTypeSupply }

func (c Contract) IsSales() bool { return c.Type == ContractTypeSales }

// CounterpartyID is the seller for Supply contracts and the buyer for Sales contracts.
func (c Contract) CounterpartyID() *string {
	if c.IsSupply() {
		return c.SellerID
	}
	return c.BuyerID
}
