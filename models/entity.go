package models

import "fmt"

// EntityKind identifies a parent record type that owns assets
type EntityKind string

const (
	KindVoucher          EntityKind = "voucher"
	KindCounterReading   EntityKind = "counter_reading"
	KindMeterCalculation EntityKind = "meter_calculation"
)

// Fixed slot names of single-slot entities
const (
	SlotCounterPhoto = "fotoMedidor"
	SlotPhotoBefore  = "foto-anterior"
	SlotPhotoAfter   = "foto-actual"
)

// Kinds lists every entity kind in a stable order
var Kinds = []EntityKind{KindVoucher, KindCounterReading, KindMeterCalculation}

// Collection returns the public path segment of the entity kind
func (k EntityKind) Collection() string {
	switch k {
	case KindVoucher:
		return "vouchers"
	case KindCounterReading:
		return "contadores"
	case KindMeterCalculation:
		return "calculos-medidor"
	default:
		return string(k)
	}
}

// Validate reports whether the kind is known
func (k EntityKind) Validate() error {
	for _, known := range Kinds {
		if k == known {
			return nil
		}
	}
	return fmt.Errorf("unknown entity kind: %q", string(k))
}
