package domain

import (
	"fmt"
	"strings"
	"time"
)

// Collection names double as table names and as the payload of change notifications.
const (
	CollectionContracts     = "contracts"
	CollectionShipments     = "shipments"
	CollectionTanks         = "tanks"
	CollectionParties       = "parties"
	CollectionRoutingEvents = "routing_events"
)

// Type codes used in contract ids. Older records used the long forms.
const (
	supplyCode       = "SUP"
	salesCode        = "SEL"
	legacySupplyCode = "SUPPLIER"
	legacySalesCode  = "SALES"
)

// ContractIDPrefix builds {productType}-{SUP|SEL}-{countryCode}-{YYMMDD}.
func ContractIDPrefix(productType, contractType, countryCode string, date time.Time) string {
	code := supplyCode
	if contractType == ContractTypeSales {
		code = salesCode
	}
	cc := strings.ToUpper(strings.TrimSpace(countryCode))
	if cc == "" {
		cc = "XX"
	}
	return fmt.Sprintf("%s-%s-%s-%s", idToken(productType), code, cc, date.Format("060102"))
}

// ShipmentIDPrefix is the per-contract scope for shipment sequences.
func ShipmentIDPrefix(contractID string) string {
	return contractID + "-SH"
}

// TankIDPrefix is the per-shipment scope for tank sequences.
func TankIDPrefix(shipmentID string) string {
	return shipmentID + "-TNK"
}

// SequencedID appends a 1-based, zero-padded sequence to prefix.
func SequencedID(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%03d", prefix, seq)
}

// CanonicalID rewrites legacy SUPPLIER/SALES segments of a contract id (and of
// shipment and tank ids derived from one) to the SUP/SEL form.
func CanonicalID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return id
	}
	parts := strings.Split(id, "-")
	for i, p := range parts {
		switch strings.ToUpper(p) {
		case legacySupplyCode:
			parts[i] = supplyCode
		case legacySalesCode:
			parts[i] = salesCode
		}
	}
	return strings.Join(parts, "-")
}

func idToken(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "")
	return strings.ReplaceAll(s, "-", "")
}
