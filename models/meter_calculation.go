package models

import (
	"time"

	"github.com/google/uuid"
)

// MeterCalculation represents an electricity bill calculation with before and after photos
type MeterCalculation struct {
	ID               uuid.UUID `json:"id"`
	Nombre           string    `json:"nombre"`
	Apellido         string    `json:"apellido"`
	DNI              string    `json:"dni"`
	Habitacion       string    `json:"habitacion"`
	MedicionAnterior float64   `json:"medicionAnterior"`
	MedicionActual   float64   `json:"medicionActual"`
	ConsumoCalculado float64   `json:"consumoCalculado"`
	MontoTotal       float64   `json:"montoTotal"`
	PrecioKWH        float64   `json:"precioKWH"`
	FechaRegistro    time.Time `json:"fechaRegistro"`
	Timestamp        int64     `json:"timestamp"`

	PhotoBefore *AssetRecord `json:"fotoAnteriorData,omitempty"`
	PhotoAfter  *AssetRecord `json:"fotoActualData,omitempty"`

	PhotoBeforeURL string `json:"fotoAnteriorUrl,omitempty"`
	PhotoAfterURL  string `json:"fotoActualUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MeterCalculationFilter narrows meter calculation listings
type MeterCalculationFilter struct {
	DNI        string
	Habitacion string
}

// SlotAsset returns the asset stored in the named slot
func (m *MeterCalculation) SlotAsset(slot string) *AssetRecord {
	switch slot {
	case SlotPhotoBefore:
		return m.PhotoBefore
	case SlotPhotoAfter:
		return m.PhotoAfter
	default:
		return nil
	}
}
