package capacity

import (
	"time"

	"tradedesk-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// Allocation is a sibling's claim on the parent's quantity.
type Allocation struct {
	ID       string
	Quantity decimal.Decimal
}

// RemainingCapacity is parent minus the sum of siblings, ignoring excludeID
// (the record being updated). It can be negative if data is already inconsistent.
func RemainingCapacity(parent decimal.Decimal, siblings []Allocation, excludeID string) decimal.Decimal {
	return parent.Sub(Allocated(siblings, excludeID))
}

// Allocated sums every sibling except excludeID.
func Allocated(siblings []Allocation, excludeID string) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range siblings {
		if excludeID != "" && s.ID == excludeID {
			continue
		}
		sum = sum.Add(s.Quantity)
	}
	return sum
}

// ParentRef names the parent a capacity check runs against.
type ParentRef struct {
	Kind     string // "contract" or "shipment"
	ID       string
	Quantity decimal.Decimal
}

// Check fails with CapacityExceededError when requested does not fit into
// what is left of the parent. The requested quantity is never clamped.
func Check(parent ParentRef, siblings []Allocation, excludeID string, requested decimal.Decimal) error {
	remaining := RemainingCapacity(parent.Quantity, siblings, excludeID)
	if requested.GreaterThan(remaining) {
		return &domain.CapacityExceededError{
			Parent:    parent.Kind,
			ParentID:  parent.ID,
			Requested: requested,
			Remaining: remaining,
		}
	}
	return nil
}

// FromShipments converts shipments into allocations against their contract.
func FromShipments(shipments []domain.Shipment) []Allocation {
	out := make([]Allocation, 0, len(shipments))
	for _, s := range shipments {
		out = append(out, Allocation{ID: s.ID, Quantity: s.Quantity})
	}
	return out
}

// FromTanks converts tanks into allocations against their shipment.
func FromTanks(tanks []domain.Tank) []Allocation {
	out := make([]Allocation, 0, len(tanks))
	for _, t := range tanks {
		out = append(out, Allocation{ID: t.ID, Quantity: t.Quantity})
	}
	return out
}

// Window is an optional departure/arrival (or start/end) pair.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// CheckDates enforces childStart <= childEnd, childStart >= parentStart and
// childEnd <= parentEnd. Bounds that are not set are not checked.
func CheckDates(parentName string, parent, child Window) error {
	if child.Start != nil && child.End != nil && child.End.Before(*child.Start) {
		return &domain.DateRangeError{Reason: domain.DateEndBeforeStart, Window: parentName}
	}
	outside := func() error {
		return &domain.DateRangeError{Reason: domain.DateOutsideParentWindow, Window: parentName}
	}
	if parent.Start != nil {
		if child.Start != nil && child.Start.Before(*parent.Start) {
			return outside()
		}
		if child.End != nil && child.End.Before(*parent.Start) {
			return outside()
		}
	}
	if parent.End != nil {
		if child.End != nil && child.End.After(*parent.End) {
			return outside()
		}
		if child.Start != nil && child.Start.After(*parent.End) {
			return outside()
		}
	}
	return nil
}

// Child is an existing record's date window under a parent.
type Child struct {
	ID     string
	Window Window
}

// ShipmentWindows lists the date windows of a contract's shipments.
func ShipmentWindows(shipments []domain.Shipment) []Child {
	out := make([]Child, 0, len(shipments))
	for _, s := range shipments {
		out = append(out, Child{ID: s.ID, Window: Window{Start: s.DepartureDate, End: s.ArrivalDate}})
	}
	return out
}

// TankWindows lists the date windows of a shipment's tanks.
func TankWindows(tanks []domain.Tank) []Child {
	out := make([]Child, 0, len(tanks))
	for _, t := range tanks {
		out = append(out, Child{ID: t.ID, Window: Window{Start: t.DepartureDate, End: t.ArrivalDate}})
	}
	return out
}

// CheckChildren fails with the first existing child that would no longer nest
// inside a changed parent window.
func CheckChildren(parentName string, parent Window, children []Child) error {
	for _, c := range children {
		if err := CheckDates(parentName, parent, c.Window); err != nil {
			return &domain.DateRangeError{Reason: domain.DateOutsideParentWindow, Window: parentName, Child: c.ID}
		}
	}
	return nil
}
