package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"evidencia-backend/models"

	"github.com/google/uuid"
)

// MemoryVoucherRepository keeps vouchers in process memory.
// It backs tests and DATABASE_URL=memory development runs.
type MemoryVoucherRepository struct {
	mu       sync.RWMutex
	vouchers map[uuid.UUID]*models.Voucher
}

// NewMemoryVoucherRepository creates an empty in-memory voucher repository
func NewMemoryVoucherRepository() *MemoryVoucherRepository {
	return &MemoryVoucherRepository{vouchers: make(map[uuid.UUID]*models.Voucher)}
}

func (r *MemoryVoucherRepository) Create(ctx context.Context, voucher *models.Voucher) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.vouchers[voucher.ID]; exists {
		return fmt.Errorf("voucher %s already exists", voucher.ID)
	}
	now := time.Now().UTC()
	voucher.CreatedAt, voucher.UpdatedAt = now, now
	r.vouchers[voucher.ID] = copyVoucher(voucher)
	return nil
}

func (r *MemoryVoucherRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vouchers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyVoucher(v), nil
}

func (r *MemoryVoucherRepository) List(ctx context.Context, filter models.VoucherFilter) ([]*models.Voucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Voucher
	for _, v := range r.vouchers {
		if filter.DNI != "" && v.DNI != filter.DNI {
			continue
		}
		if filter.Hab != "" && v.Hab != filter.Hab {
			continue
		}
		out = append(out, copyVoucher(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryVoucherRepository) UpdateEstado(ctx context.Context, id uuid.UUID, estado models.VoucherStatus) (*models.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vouchers[id]
	if !ok {
		return nil, ErrNotFound
	}
	v.Estado = estado
	v.UpdatedAt = time.Now().UTC()
	return copyVoucher(v), nil
}

func (r *MemoryVoucherRepository) ListBlobIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, v := range r.vouchers {
		ids = append(ids, v.Images.BlobIDs()...)
	}
	return ids, nil
}

func copyVoucher(v *models.Voucher) *models.Voucher {
	c := *v
	c.Images = append(models.AssetRecords(nil), v.Images...)
	c.Fotos = append([]string(nil), v.Fotos...)
	return &c
}

// MemoryCounterReadingRepository keeps counter readings in process memory
type MemoryCounterReadingRepository struct {
	mu       sync.RWMutex
	readings map[uuid.UUID]*models.CounterReading
}

// NewMemoryCounterReadingRepository creates an empty in-memory counter reading repository
func NewMemoryCounterReadingRepository() *MemoryCounterReadingRepository {
	return &MemoryCounterReadingRepository{readings: make(map[uuid.UUID]*models.CounterReading)}
}

func (r *MemoryCounterReadingRepository) Create(ctx context.Context, reading *models.CounterReading) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.readings[reading.ID]; exists {
		return fmt.Errorf("counter reading %s already exists", reading.ID)
	}
	now := time.Now().UTC()
	reading.CreatedAt, reading.UpdatedAt = now, now
	r.readings[reading.ID] = copyCounterReading(reading)
	return nil
}

func (r *MemoryCounterReadingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CounterReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.readings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyCounterReading(c), nil
}

func (r *MemoryCounterReadingRepository) List(ctx context.Context, filter models.CounterReadingFilter) ([]*models.CounterReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.CounterReading
	for _, c := range r.readings {
		if filter.DNI != "" && c.DNI != filter.DNI {
			continue
		}
		if filter.Habitacion != "" && c.Habitacion != filter.Habitacion {
			continue
		}
		out = append(out, copyCounterReading(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryCounterReadingRepository) ListBlobIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, c := range r.readings {
		if c.Photo != nil && c.Photo.BlobID != "" {
			ids = append(ids, c.Photo.BlobID)
		}
	}
	return ids, nil
}

func copyCounterReading(c *models.CounterReading) *models.CounterReading {
	out := *c
	out.Photo = copyAsset(c.Photo)
	return &out
}

// MemoryMeterCalculationRepository keeps meter calculations in process memory
type MemoryMeterCalculationRepository struct {
	mu           sync.RWMutex
	calculations map[uuid.UUID]*models.MeterCalculation
}

// NewMemoryMeterCalculationRepository creates an empty in-memory meter calculation repository
func NewMemoryMeterCalculationRepository() *MemoryMeterCalculationRepository {
	return &MemoryMeterCalculationRepository{calculations: make(map[uuid.UUID]*models.MeterCalculation)}
}

func (r *MemoryMeterCalculationRepository) Create(ctx context.Context, calculation *models.MeterCalculation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.calculations[calculation.ID]; exists {
		return fmt.Errorf("meter calculation %s already exists", calculation.ID)
	}
	now := time.Now().UTC()
	calculation.CreatedAt, calculation.UpdatedAt = now, now
	r.calculations[calculation.ID] = copyMeterCalculation(calculation)
	return nil
}

func (r *MemoryMeterCalculationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MeterCalculation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.calculations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMeterCalculation(m), nil
}

func (r *MemoryMeterCalculationRepository) List(ctx context.Context, filter models.MeterCalculationFilter) ([]*models.MeterCalculation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.MeterCalculation
	for _, m := range r.calculations {
		if filter.DNI != "" && m.DNI != filter.DNI {
			continue
		}
		if filter.Habitacion != "" && m.Habitacion != filter.Habitacion {
			continue
		}
		out = append(out, copyMeterCalculation(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryMeterCalculationRepository) ListBlobIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, m := range r.calculations {
		for _, rec := range []*models.AssetRecord{m.PhotoBefore, m.PhotoAfter} {
			if rec != nil && rec.BlobID != "" {
				ids = append(ids, rec.BlobID)
			}
		}
	}
	return ids, nil
}

func copyMeterCalculation(m *models.MeterCalculation) *models.MeterCalculation {
	out := *m
	out.PhotoBefore = copyAsset(m.PhotoBefore)
	out.PhotoAfter = copyAsset(m.PhotoAfter)
	return &out
}

func copyAsset(rec *models.AssetRecord) *models.AssetRecord {
	if rec == nil {
		return nil
	}
	c := *rec
	return &c
}
