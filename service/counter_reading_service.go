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

// CounterReadingService handles business logic for counter readings
type CounterReadingService struct {
	readingRepo CounterReadingRepository
	ingest      *IngestService
	limits      Limits
	logger      *slog.Logger
}

// CounterReadingServiceOption is a functional option for CounterReadingService
type CounterReadingServiceOption func(*CounterReadingService)

// WithCounterReadingRepository sets the counter reading repository
func WithCounterReadingRepository(repo CounterReadingRepository) CounterReadingServiceOption {
	return func(s *CounterReadingService) {
		s.readingRepo = repo
	}
}

// CounterWithIngestService sets the ingest service
func CounterWithIngestService(ingest *IngestService) CounterReadingServiceOption {
	return func(s *CounterReadingService) {
		s.ingest = ingest
	}
}

// CounterWithLimits sets the upload limits
func CounterWithLimits(limits Limits) CounterReadingServiceOption {
	return func(s *CounterReadingService) {
		s.limits = limits
	}
}

// CounterWithLogger sets the logger
func CounterWithLogger(l *slog.Logger) CounterReadingServiceOption {
	return func(s *CounterReadingService) {
		s.logger = l
	}
}

// NewCounterReadingService creates a new counter reading service
func NewCounterReadingService(opts ...CounterReadingServiceOption) *CounterReadingService {
	s := &CounterReadingService{
		limits: Limits{MaxFiles: 1, MaxFileSize: 5 << 20},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCounterReadingRequest represents a request to create a counter reading
type CreateCounterReadingRequest struct {
	Reading *models.CounterReading
	Photo   *Upload // optional
}

// CreateCounterReading stores the meter photo, derives consumption and persists the reading
func (s *CounterReadingService) CreateCounterReading(ctx context.Context, req CreateCounterReadingRequest) (*models.CounterReading, error) {
	if s.readingRepo == nil || s.ingest == nil {
		return nil, errors.New("counter reading service not configured")
	}
	if req.Reading == nil {
		return nil, &ValidationError{Problems: []string{"reading is required"}}
	}
	files := []*Upload{req.Photo}
	if err := CheckLimits(files, s.limits); err != nil {
		return nil, err
	}

	records, err := s.ingest.Ingest(ctx, models.KindCounterReading, files)
	if err != nil {
		return nil, err
	}

	reading := req.Reading
	reading.ID = uuid.New()
	reading.Consumo = reading.LecturaActual - reading.LecturaAnterior
	if reading.Estado == "" {
		reading.Estado = models.CounterReadingActive
	}
	if reading.FechaLectura.IsZero() {
		reading.FechaLectura = time.Now().UTC()
	}
	reading.Photo = records[0]

	if err := s.readingRepo.Create(ctx, reading); err != nil {
		s.ingest.Reclaim(ctx, records...)
		return nil, fmt.Errorf("failed to save counter reading: %w", err)
	}

	s.logger.Info("counter reading created", slog.String("id", reading.ID.String()), slog.Bool("photo", reading.Photo != nil))
	return reading, nil
}

// GetCounterReading retrieves a counter reading by ID
func (s *CounterReadingService) GetCounterReading(ctx context.Context, id string) (*models.CounterReading, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	reading, err := s.readingRepo.GetByID(ctx, parsed)
	if err != nil {
		return nil, notFound(err)
	}
	return reading, nil
}

// ListCounterReadings lists counter readings, newest first
func (s *CounterReadingService) ListCounterReadings(ctx context.Context, filter models.CounterReadingFilter) ([]*models.CounterReading, error) {
	return s.readingRepo.List(ctx, filter)
}
