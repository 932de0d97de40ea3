package models

import (
	"time"

	"github.com/google/uuid"
)

// VoucherStatus represents the review state of a voucher
type VoucherStatus string

const (
	VoucherPending  VoucherStatus = "pendiente"
	VoucherApproved VoucherStatus = "aprobado"
	VoucherRejected VoucherStatus = "rechazado"
)

// Voucher represents a payment voucher with its receipt photos
type Voucher struct {
	ID        uuid.UUID     `json:"id"`
	Nombre    string        `json:"nombre"`
	Apellido  string        `json:"apellido"`
	DNI       string        `json:"dni"`
	Email     string        `json:"email"`
	Ref4      string        `json:"ref4"`
	Hab       string        `json:"hab"`
	Monto     float64       `json:"monto"`
	Timestamp time.Time     `json:"timestamp"`
	Estado    VoucherStatus `json:"estado"`

	// Receipt photos
	Images AssetRecords `json:"imagenes,omitempty"`

	// Legacy file names below uploads/vouchers
	Fotos []string `json:"fotos,omitempty"`

	// Retrieval paths, set by projection
	Files []FileRef `json:"files,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VoucherFilter narrows voucher listings
type VoucherFilter struct {
	DNI string
	Hab string
}

// Assets returns every asset of the voucher, legacy files included
func (v *Voucher) Assets() AssetRecords {
	assets := make(AssetRecords, 0, len(v.Fotos)+len(v.Images))
	for _, foto := range v.Fotos {
		assets = append(assets, AssetRecord{Filename: foto, LegacyPath: "vouchers/" + foto})
	}
	return append(assets, v.Images...)
}

// FindAsset looks up a voucher asset by exact filename.
// Current images take precedence over legacy files of the same name.
func (v *Voucher) FindAsset(filename string) *AssetRecord {
	if rec := v.Images.FindByFilename(filename); rec != nil {
		return rec
	}
	for _, foto := range v.Fotos {
		if foto == filename {
			return &AssetRecord{Filename: foto, LegacyPath: "vouchers/" + foto}
		}
	}
	return nil
}
