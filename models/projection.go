package models

import (
	"net/url"

	"github.com/google/uuid"
)

// APIPrefix is prepended to every retrieval path
const APIPrefix = "/api"

// FileRef is a named retrieval path of a multi-slot asset
type FileRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AssetPath builds the host-agnostic retrieval path of a slot or filename
func AssetPath(kind EntityKind, id uuid.UUID, slotOrFilename string) string {
	if kind == KindVoucher {
		return APIPrefix + "/" + kind.Collection() + "/" + id.String() + "/image/" + url.PathEscape(slotOrFilename)
	}
	return APIPrefix + "/" + kind.Collection() + "/" + id.String() + "/" + slotOrFilename
}

// ProjectVoucher returns a copy of v with its asset metadata replaced by retrieval paths.
// A voucher that no longer carries asset metadata is returned unchanged.
func ProjectVoucher(v Voucher) Voucher {
	if len(v.Images) == 0 && len(v.Fotos) == 0 {
		return v
	}
	files := make([]FileRef, 0, len(v.Fotos)+len(v.Images))
	for _, asset := range v.Assets() {
		files = append(files, FileRef{Name: asset.Filename, URL: AssetPath(KindVoucher, v.ID, asset.Filename)})
	}
	v.Files = files
	v.Images = nil
	v.Fotos = nil
	return v
}

// ProjectVouchers projects every voucher of a listing
func ProjectVouchers(vouchers []*Voucher) []Voucher {
	out := make([]Voucher, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, ProjectVoucher(*v))
	}
	return out
}

// ProjectCounterReading returns a copy of c with its meter photo replaced by a retrieval path
func ProjectCounterReading(c CounterReading) CounterReading {
	if c.Photo == nil && c.FotoMedidor == "" {
		return c
	}
	c.PhotoURL = AssetPath(KindCounterReading, c.ID, SlotCounterPhoto)
	c.Photo = nil
	c.FotoMedidor = ""
	return c
}

// ProjectCounterReadings projects every reading of a listing
func ProjectCounterReadings(readings []*CounterReading) []CounterReading {
	out := make([]CounterReading, 0, len(readings))
	for _, c := range readings {
		out = append(out, ProjectCounterReading(*c))
	}
	return out
}

// ProjectMeterCalculation returns a copy of m with its photos replaced by retrieval paths
func ProjectMeterCalculation(m MeterCalculation) MeterCalculation {
	if m.PhotoBefore != nil {
		m.PhotoBeforeURL = AssetPath(KindMeterCalculation, m.ID, SlotPhotoBefore)
		m.PhotoBefore = nil
	}
	if m.PhotoAfter != nil {
		m.PhotoAfterURL = AssetPath(KindMeterCalculation, m.ID, SlotPhotoAfter)
		m.PhotoAfter = nil
	}
	return m
}

// ProjectMeterCalculations projects every calculation of a listing
func ProjectMeterCalculations(calculations []*MeterCalculation) []MeterCalculation {
	out := make([]MeterCalculation, 0, len(calculations))
	for _, m := range calculations {
		out = append(out, ProjectMeterCalculation(*m))
	}
	return out
}
