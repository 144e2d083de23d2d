package events

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	// CollectionChanged fires once per committed mutation; consumers refetch the whole collection.
	CollectionChanged = "collection.changed"
	// TankChanged fires when a tank's quantity or quality changed, or it was created or deleted.
	TankChanged = "tank.changed"
	// ShipmentChanged fires after a shipment's derived quality was recomputed.
	ShipmentChanged = "shipment.changed"
)

// Event is a committed change. Only the fields relevant to Type are set.
type Event struct {
	Type       string
	Collection string
	ShipmentID string
	ContractID string
	Time       time.Time
}

func CollectionChangedEvent(collection string) Event {
	return Event{Type: CollectionChanged, Collection: collection}
}

func TankChangedEvent(shipmentID string) Event {
	return Event{Type: TankChanged, ShipmentID: shipmentID}
}

func ShipmentChangedEvent(shipmentID, contractID string) Event {
	return Event{Type: ShipmentChanged, ShipmentID: shipmentID, ContractID: contractID}
}

// Handler reacts to a published event.
type Handler func(ctx context.Context, e Event) error

// Bus dispatches events synchronously, in subscription order.
// A nil *Bus drops every event.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish runs every handler for e.Type and joins their errors.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if b == nil {
		return nil
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[e.Type]...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
