package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TankStatusLoaded     = "Loaded"
	TankStatusDischarged = "Discharged"
	TankStatusInTransit  = "In Transit"
	TankStatusDelivered  = "Delivered"
	TankStatusReceived   = "Received"
	TankStatusCancelled  = "Cancelled"
)

var ValidTankStatuses = []string{
	TankStatusLoaded, TankStatusDischarged, TankStatusInTransit,
	TankStatusDelivered, TankStatusReceived, TankStatusCancelled,
}

// Tank is a quantity and quality bearing allocation within one shipment.
type Tank struct {
	ID            string          `gorm:"column:id;type:varchar(128);primaryKey" json:"id"`
	ShipmentID    string          `gorm:"column:shipment_id;type:varchar(96);not null;index" json:"shipmentId"`
	Status        string          `gorm:"column:status;type:varchar(20);not null;default:'Loaded'" json:"status"`
	Quantity      decimal.Decimal `gorm:"column:quantity;type:decimal(18,3);not null" json:"quantity"`
	Quality       *Quality        `gorm:"column:quality;type:json;serializer:json" json:"quality"`
	DepartureDate *time.Time      `gorm:"column:departure_date" json:"departureDate"`
	ArrivalDate   *time.Time      `gorm:"column:arrival_date" json:"arrivalDate"`
	CreatedAt     time.Time       `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"column:updated_at" json:"updatedAt"`
}

func (Tank) TableName() string {
	return CollectionTanks
}
