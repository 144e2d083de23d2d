package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ShipmentStatusScheduled = "scheduled"
	ShipmentStatusInTransit = "in_transit"
	ShipmentStatusDelivered = "delivered"
	ShipmentStatusReceived  = "received"
	ShipmentStatusCancelled = "cancelled"
)

var ValidShipmentStatuses = []string{
	ShipmentStatusScheduled, ShipmentStatusInTransit, ShipmentStatusDelivered,
	ShipmentStatusReceived, ShipmentStatusCancelled,
}

// RoutingDetails links a Supply shipment to the Sales contract it was matched to.
type RoutingDetails struct {
	RoutedToContractID string    `json:"routedToContractId"`
	RoutedAt           time.Time `json:"routedAt"`
	RoutedBy           string    `json:"routedBy"`
}

// Shipment is a physical movement against exactly one contract.
// Quality is the quantity-weighted average of its tanks and is never set by callers.
type Shipment struct {
	ID             string          `gorm:"column:id;type:varchar(96);primaryKey" json:"id"`
	Type           string          `gorm:"column:type;type:varchar(10);not null" json:"type"`
	Status         string          `gorm:"column:status;type:varchar(20);not null;default:'scheduled'" json:"status"`
	ContractID     string          `gorm:"column:contract_id;type:varchar(64);not null;index" json:"contractId"`
	ProductType    string          `gorm:"column:product_type;not null" json:"productType"`
	Quantity       decimal.Decimal `gorm:"column:quantity;type:decimal(18,3);not null" json:"quantity"`
	Quality        *Quality        `gorm:"column:quality;type:json;serializer:json" json:"quality"`
	DepartureDate  *time.Time      `gorm:"column:departure_date" json:"departureDate"`
	ArrivalDate    *time.Time      `gorm:"column:arrival_date" json:"arrivalDate"`
	Terminal       string          `gorm:"column:terminal" json:"terminal"`
	Port           string          `gorm:"column:port" json:"port"`
	Country        string          `gorm:"column:country" json:"country"`
	ShippingLine   string          `gorm:"column:shipping_line" json:"shippingLine"`
	IsFulfilled    bool            `gorm:"column:is_fulfilled;not null;default:false" json:"isFulfilled"`
	RoutingDetails *RoutingDetails `gorm:"column:routing_details;type:json;serializer:json" json:"routingDetails,omitempty"`
	CreatedAt      time.Time       `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time       `gorm:"column:updated_at" json:"updatedAt"`
}

func (Shipment) TableName() string {
	return CollectionShipments
}

func (s Shipment) IsRouted() bool { return s.RoutingDetails != nil }

func (s Shipment) IsCancelled() bool { return s.Status == ShipmentStatusCancelled }

// RoutedTo reports whether the shipment is currently routed to contractID.
func (s Shipment) RoutedTo(contractID string) bool {
	return s.RoutingDetails != nil && s.RoutingDetails.RoutedToContractID == contractID
}
