package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoutingEventRouted   = "ROUTED"
	RoutingEventUnrouted = "UNROUTED"
)

// RoutingEvent is the audit trail of route/unroute operations.
type RoutingEvent struct {
	EventID    uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"eventId"`
	ShipmentID string         `gorm:"column:shipment_id;type:varchar(96);not null;index" json:"shipmentId"`
	ContractID string         `gorm:"column:contract_id;type:varchar(64);not null;index" json:"contractId"`
	EventType  string         `gorm:"column:event_type;type:varchar(20);not null" json:"eventType"`
	Actor      string         `gorm:"column:actor" json:"actor"`
	EventData  datatypes.JSON `gorm:"column:event_data" json:"eventData"`
	CreatedAt  time.Time      `gorm:"column:created_at" json:"createdAt"`
}

func (RoutingEvent) TableName() string {
	return CollectionRoutingEvents
}

func (e *RoutingEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}

// Sequence is a monotonic counter per id scope (contract prefix, contract, shipment).
type Sequence struct {
	Scope string `gorm:"column:scope;type:varchar(128);primaryKey"`
	Value int64  `gorm:"column:value;not null"`
}

func (Sequence) TableName() string {
	return "sequences"
}
