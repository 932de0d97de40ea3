package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"evidencia-backend/models"

	"github.com/google/uuid"
)

// MeterCalculationService handles business logic for meter calculations
type MeterCalculationService struct {
	calculationRepo MeterCalculationRepository
	ingest          *IngestService
	limits          Limits
	logger          *slog.Logger
}

// MeterCalculationServiceOption is a functional option for MeterCalculationService
type MeterCalculationServiceOption func(*MeterCalculationService)

// WithMeterCalculationRepository sets the meter calculation repository
func WithMeterCalculationRepository(repo MeterCalculationRepository) MeterCalculationServiceOption {
	return func(s *MeterCalculationService) {
		s.calculationRepo = repo
	}
}

// CalculationWithIngestService sets the ingest service
func CalculationWithIngestService(ingest *IngestService) MeterCalculationServiceOption {
	return func(s *MeterCalculationService) {
		s.ingest = ingest
	}
}

// CalculationWithLimits sets the upload limits
func CalculationWithLimits(limits Limits) MeterCalculationServiceOption {
	return func(s *MeterCalculationService) {
		s.limits = limits
	}
}

// CalculationWithLogger sets the logger
func CalculationWithLogger(l *slog.Logger) MeterCalculationServiceOption {
	return func(s *MeterCalculationService) {
		s.logger = l
	}
}

// NewMeterCalculationService creates a new meter calculation service
func NewMeterCalculationService(opts ...MeterCalculationServiceOption) *MeterCalculationService {
	s := &MeterCalculationService{
		limits: Limits{MaxFiles: 2, MaxFileSize: 5 << 20},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateMeterCalculationRequest represents a request to create a meter calculation
type CreateMeterCalculationRequest struct {
	Calculation *models.MeterCalculation
	PhotoBefore *Upload // optional
	PhotoAfter  *Upload // optional
}

// CreateMeterCalculation stores both slot photos and persists the calculation
func (s *MeterCalculationService) CreateMeterCalculation(ctx context.Context, req CreateMeterCalculationRequest) (*models.MeterCalculation, error) {
	if s.calculationRepo == nil || s.ingest == nil {
		return nil, errors.New("meter calculation service not configured")
	}
	if req.Calculation == nil {
		return nil, &ValidationError{Problems: []string{"calculation is required"}}
	}
	files := []*Upload{req.PhotoBefore, req.PhotoAfter}
	if err := CheckLimits(files, s.limits); err != nil {
		return nil, err
	}

	records, err := s.ingest.Ingest(ctx, models.KindMeterCalculation, files)
	if err != nil {
		return nil, err
	}

	calculation := req.Calculation
	calculation.ID = uuid.New()
	now := time.Now().UTC()
	if calculation.FechaRegistro.IsZero() {
		calculation.FechaRegistro = now
	}
	if calculation.Timestamp == 0 {
		calculation.Timestamp = now.UnixMilli()
	}
	calculation.PhotoBefore = records[0]
	calculation.PhotoAfter = records[1]

	if err := s.calculationRepo.Create(ctx, calculation); err != nil {
		s.ingest.Reclaim(ctx, records...)
		return nil, fmt.Errorf("failed to save meter calculation: %w", err)
	}

	s.logger.Info("meter calculation created", slog.String("id", calculation.ID.String()))
	return calculation, nil
}

// GetMeterCalculation retrieves a meter calculation by ID
func (s *MeterCalculationService) GetMeterCalculation(ctx context.Context, id string) (*models.MeterCalculation, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	calculation, err := s.calculationRepo.GetByID(ctx, parsed)
	if err != nil {
		return nil, notFound(err)
	}
	return calculation, nil
}

// ListMeterCalculations lists meter calculations, newest first
func (s *MeterCalculationService) ListMeterCalculations(ctx context.Context, filter models.MeterCalculationFilter) ([]*models.MeterCalculation, error) {
	return s.calculationRepo.List(ctx, filter)
}
