package enums

import "fmt"

// ReferenceType names the business event that caused a ledger transaction.
type ReferenceType string

const (
	ReferenceOrderHold    ReferenceType = "order_hold"
	ReferenceOrderCapture ReferenceType = "order_capture"
	ReferenceOrderVoid    ReferenceType = "order_void"
	ReferenceAdjustment   ReferenceType = "adjustment"
	ReferenceFunding      ReferenceType = "funding"
)

var validReferenceTypes = []ReferenceType{
	ReferenceOrderHold,
	ReferenceOrderCapture,
	ReferenceOrderVoid,
	ReferenceAdjustment,
	ReferenceFunding,
}

// IsValid reports whether the value is a known ReferenceType.
func (r ReferenceType) IsValid() bool {
	for _, candidate := range validReferenceTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsOrderFlow reports whether only the order orchestrator may post this type.
func (r ReferenceType) IsOrderFlow() bool {
	switch r {
	case ReferenceOrderHold, ReferenceOrderCapture, ReferenceOrderVoid:
		return true
	}
	return false
}

// ParseReferenceType converts raw input into a ReferenceType.
func ParseReferenceType(value string) (ReferenceType, error) {
	for _, candidate := range validReferenceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reference type %q", value)
}
