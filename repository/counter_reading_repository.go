package repository

import (
	"context"
	"fmt"

	"evidencia-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const counterReadingColumns = `id, dni, nombre, apellidos, habitacion, numero_medidor,
			lectura_actual, lectura_anterior, fecha_lectura, observaciones, consumo, estado,
			foto_medidor_data, foto_medidor, created_at, updated_at`

// CounterReadingRepository handles database operations for counter readings
type CounterReadingRepository struct {
	db *pgxpool.Pool
}

// NewCounterReadingRepository creates a new counter reading repository
func NewCounterReadingRepository(db *pgxpool.Pool) *CounterReadingRepository {
	return &CounterReadingRepository{db: db}
}

// Create inserts a reading together with its meter photo record
func (r *CounterReadingRepository) Create(ctx context.Context, reading *models.CounterReading) error {
	query := `
		INSERT INTO counter_readings (
			id, dni, nombre, apellidos, habitacion, numero_medidor,
			lectura_actual, lectura_anterior, fecha_lectura, observaciones, consumo, estado,
			foto_medidor_data, foto_medidor
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		) RETURNING created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		reading.ID,
		reading.DNI,
		reading.Nombre,
		reading.Apellidos,
		reading.Habitacion,
		reading.NumeroMedidor,
		reading.LecturaActual,
		reading.LecturaAnterior,
		reading.FechaLectura,
		reading.Observaciones,
		reading.Consumo,
		reading.Estado,
		nullableAsset(reading.Photo),
		reading.FotoMedidor,
	).Scan(&reading.CreatedAt, &reading.UpdatedAt)

	return err
}

// GetByID retrieves a counter reading by ID
func (r *CounterReadingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CounterReading, error) {
	query := `SELECT ` + counterReadingColumns + ` FROM counter_readings WHERE id = $1`

	reading, err := scanCounterReading(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return reading, nil
}

// List retrieves counter readings matching the filter, newest first
func (r *CounterReadingRepository) List(ctx context.Context, filter models.CounterReadingFilter) ([]*models.CounterReading, error) {
	query := `SELECT ` + counterReadingColumns + ` FROM counter_readings WHERE 1 = 1`

	args := []interface{}{}
	argIndex := 1

	if filter.DNI != "" {
		query += fmt.Sprintf(" AND dni = $%d", argIndex)
		args = append(args, filter.DNI)
		argIndex++
	}
	if filter.Habitacion != "" {
		query += fmt.Sprintf(" AND habitacion = $%d", argIndex)
		args = append(args, filter.Habitacion)
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []*models.CounterReading
	for rows.Next() {
		reading, err := scanCounterReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}

	return readings, rows.Err()
}

// ListBlobIDs returns every object id referenced by a meter photo
func (r *CounterReadingRepository) ListBlobIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT foto_medidor_data->>'blobId'
		FROM counter_readings
		WHERE COALESCE(foto_medidor_data->>'blobId', '') <> ''`

	return collectIDs(ctx, r.db, query)
}

func scanCounterReading(row pgx.Row) (*models.CounterReading, error) {
	reading := &models.CounterReading{}
	var photo []byte
	err := row.Scan(
		&reading.ID,
		&reading.DNI,
		&reading.Nombre,
		&reading.Apellidos,
		&reading.Habitacion,
		&reading.NumeroMedidor,
		&reading.LecturaActual,
		&reading.LecturaAnterior,
		&reading.FechaLectura,
		&reading.Observaciones,
		&reading.Consumo,
		&reading.Estado,
		&photo,
		&reading.FotoMedidor,
		&reading.CreatedAt,
		&reading.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reading.Photo, err = decodeAsset(photo); err != nil {
		return nil, fmt.Errorf("failed to decode meter photo: %w", err)
	}
	return reading, nil
}
