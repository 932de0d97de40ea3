package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"evidencia-backend/models"
	"evidencia-backend/repository"

	"github.com/google/uuid"
)

// VoucherService handles business logic for vouchers
type VoucherService struct {
	voucherRepo VoucherRepository
	ingest      *IngestService
	limits      Limits
	logger      *slog.Logger
}

// VoucherServiceOption is a functional option for VoucherService
type VoucherServiceOption func(*VoucherService)

// WithVoucherRepository sets the voucher repository
func WithVoucherRepository(repo VoucherRepository) VoucherServiceOption {
	return func(s *VoucherService) {
		s.voucherRepo = repo
	}
}

// VoucherWithIngestService sets the ingest service
func VoucherWithIngestService(ingest *IngestService) VoucherServiceOption {
	return func(s *VoucherService) {
		s.ingest = ingest
	}
}

// VoucherWithLimits sets the upload limits
func VoucherWithLimits(limits Limits) VoucherServiceOption {
	return func(s *VoucherService) {
		s.limits = limits
	}
}

// VoucherWithLogger sets the logger
func VoucherWithLogger(l *slog.Logger) VoucherServiceOption {
	return func(s *VoucherService) {
		s.logger = l
	}
}

// NewVoucherService creates a new voucher service
func NewVoucherService(opts ...VoucherServiceOption) *VoucherService {
	s := &VoucherService{
		limits: Limits{MaxFiles: 10, MaxFileSize: 10 << 20},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateVoucherRequest represents a request to create a voucher
type CreateVoucherRequest struct {
	Voucher *models.Voucher
	Files   []*Upload
}

// CreateVoucherResult represents the result of creating a voucher
type CreateVoucherResult struct {
	Voucher *models.Voucher
}

// CreateVoucher stores every receipt photo and then persists the voucher in one write
func (s *VoucherService) CreateVoucher(ctx context.Context, req CreateVoucherRequest) (*CreateVoucherResult, error) {
	if s.voucherRepo == nil || s.ingest == nil {
		return nil, errors.New("voucher service not configured")
	}
	if req.Voucher == nil {
		return nil, &ValidationError{Problems: []string{"voucher is required"}}
	}
	if err := CheckLimits(req.Files, s.limits); err != nil {
		return nil, err
	}

	records, err := s.ingest.Ingest(ctx, models.KindVoucher, req.Files)
	if err != nil {
		return nil, err
	}

	voucher := req.Voucher
	voucher.ID = uuid.New()
	if voucher.Estado == "" {
		voucher.Estado = models.VoucherPending
	}
	if voucher.Timestamp.IsZero() {
		voucher.Timestamp = time.Now().UTC()
	}
	voucher.Images = make(models.AssetRecords, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			voucher.Images = append(voucher.Images, *rec)
		}
	}

	if err := s.voucherRepo.Create(ctx, voucher); err != nil {
		s.ingest.Reclaim(ctx, records...)
		return nil, fmt.Errorf("failed to save voucher: %w", err)
	}

	s.logger.Info("voucher created", slog.String("id", voucher.ID.String()), slog.Int("images", len(voucher.Images)))
	return &CreateVoucherResult{Voucher: voucher}, nil
}

// GetVoucher retrieves a voucher by ID
func (s *VoucherService) GetVoucher(ctx context.Context, id string) (*models.Voucher, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	voucher, err := s.voucherRepo.GetByID(ctx, parsed)
	if err != nil {
		return nil, notFound(err)
	}
	return voucher, nil
}

// ListVouchers lists vouchers, newest first
func (s *VoucherService) ListVouchers(ctx context.Context, filter models.VoucherFilter) ([]*models.Voucher, error) {
	return s.voucherRepo.List(ctx, filter)
}

// UpdateEstado changes the review state of a voucher
func (s *VoucherService) UpdateEstado(ctx context.Context, id string, estado models.VoucherStatus) (*models.Voucher, error) {
	switch estado {
	case models.VoucherPending, models.VoucherApproved, models.VoucherRejected:
	default:
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("invalid estado %q", estado)}}
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	voucher, err := s.voucherRepo.UpdateEstado(ctx, parsed, estado)
	if err != nil {
		return nil, notFound(err)
	}
	return voucher, nil
}

// notFound converts a repository miss into ErrNotFound and leaves other errors intact
func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
