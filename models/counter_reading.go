package models

import (
	"time"

	"github.com/google/uuid"
)

// CounterReadingActive is the state of a freshly recorded reading
const CounterReadingActive = "activo"

// CounterReading represents a utility meter reading with an optional meter photo
type CounterReading struct {
	ID              uuid.UUID `json:"id"`
	DNI             string    `json:"dni"`
	Nombre          string    `json:"nombre"`
	Apellidos       string    `json:"apellidos"`
	Habitacion      string    `json:"habitacion"`
	NumeroMedidor   string    `json:"numeroMedidor"`
	LecturaActual   float64   `json:"lecturaActual"`
	LecturaAnterior float64   `json:"lecturaAnterior"`
	FechaLectura    time.Time `json:"fechaLectura"`
	Observaciones   string    `json:"observaciones,omitempty"`
	Consumo         float64   `json:"consumo"`
	Estado          string    `json:"estado"`

	Photo *AssetRecord `json:"fotoMedidorData,omitempty"`

	// Legacy path of the meter photo below the uploads directory
	FotoMedidor string `json:"fotoMedidor,omitempty"`

	PhotoURL string `json:"fotoMedidorUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CounterReadingFilter narrows counter reading listings
type CounterReadingFilter struct {
	DNI        string
	Habitacion string
}

// SlotAsset returns the asset stored in the named slot
func (c *CounterReading) SlotAsset(slot string) *AssetRecord {
	if slot != SlotCounterPhoto {
		return nil
	}
	if c.Photo != nil {
		return c.Photo
	}
	if c.FotoMedidor != "" {
		return &AssetRecord{Filename: c.FotoMedidor, LegacyPath: c.FotoMedidor}
	}
	return nil
}
