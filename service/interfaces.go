package service

import (
	"context"

	"evidencia-backend/imageproc"
	"evidencia-backend/models"
	"evidencia-backend/storage"

	"github.com/google/uuid"
)

// VoucherRepository persists vouchers
type VoucherRepository interface {
	Create(ctx context.Context, voucher *models.Voucher) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	List(ctx context.Context, filter models.VoucherFilter) ([]*models.Voucher, error)
	UpdateEstado(ctx context.Context, id uuid.UUID, estado models.VoucherStatus) (*models.Voucher, error)
	BlobReferenceLister
}

// CounterReadingRepository persists counter readings
type CounterReadingRepository interface {
	Create(ctx context.Context, reading *models.CounterReading) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CounterReading, error)
	List(ctx context.Context, filter models.CounterReadingFilter) ([]*models.CounterReading, error)
	BlobReferenceLister
}

// MeterCalculationRepository persists meter calculations
type MeterCalculationRepository interface {
	Create(ctx context.Context, calculation *models.MeterCalculation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MeterCalculation, error)
	List(ctx context.Context, filter models.MeterCalculationFilter) ([]*models.MeterCalculation, error)
	BlobReferenceLister
}

// BlobReferenceLister reports every blob id referenced by persisted records
type BlobReferenceLister interface {
	ListBlobIDs(ctx context.Context) ([]string, error)
}

// ImageCompressor transforms uploaded images; it never fails
type ImageCompressor interface {
	Compress(ctx context.Context, data []byte, declaredMime string) imageproc.Result
}

// LegacyOpener opens assets of the filesystem storage generation
type LegacyOpener interface {
	OpenLegacy(ctx context.Context, relPath string) (*storage.Object, error)
}
