package repository

import (
	"context"
	"fmt"

	"evidencia-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const meterCalculationColumns = `id, nombre, apellido, dni, habitacion,
			medicion_anterior, medicion_actual, consumo_calculado, monto_total, precio_kwh,
			fecha_registro, "timestamp", foto_anterior_data, foto_actual_data, created_at, updated_at`

// MeterCalculationRepository handles database operations for meter calculations
type MeterCalculationRepository struct {
	db *pgxpool.Pool
}

// NewMeterCalculationRepository creates a new meter calculation repository
func NewMeterCalculationRepository(db *pgxpool.Pool) *MeterCalculationRepository {
	return &MeterCalculationRepository{db: db}
}

// Create inserts a calculation together with both photo records
func (r *MeterCalculationRepository) Create(ctx context.Context, calculation *models.MeterCalculation) error {
	query := `
		INSERT INTO meter_calculations (
			id, nombre, apellido, dni, habitacion,
			medicion_anterior, medicion_actual, consumo_calculado, monto_total, precio_kwh,
			fecha_registro, "timestamp", foto_anterior_data, foto_actual_data
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		) RETURNING created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		calculation.ID,
		calculation.Nombre,
		calculation.Apellido,
		calculation.DNI,
		calculation.Habitacion,
		calculation.MedicionAnterior,
		calculation.MedicionActual,
		calculation.ConsumoCalculado,
		calculation.MontoTotal,
		calculation.PrecioKWH,
		calculation.FechaRegistro,
		calculation.Timestamp,
		nullableAsset(calculation.PhotoBefore),
		nullableAsset(calculation.PhotoAfter),
	).Scan(&calculation.CreatedAt, &calculation.UpdatedAt)

	return err
}

// GetByID retrieves a meter calculation by ID
func (r *MeterCalculationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MeterCalculation, error) {
	query := `SELECT ` + meterCalculationColumns + ` FROM meter_calculations WHERE id = $1`

	calculation, err := scanMeterCalculation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return calculation, nil
}

// List retrieves meter calculations matching the filter, newest first
func (r *MeterCalculationRepository) List(ctx context.Context, filter models.MeterCalculationFilter) ([]*models.MeterCalculation, error) {
	query := `SELECT ` + meterCalculationColumns + ` FROM meter_calculations WHERE 1 = 1`

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

	var calculations []*models.MeterCalculation
	for rows.Next() {
		calculation, err := scanMeterCalculation(rows)
		if err != nil {
			return nil, err
		}
		calculations = append(calculations, calculation)
	}

	return calculations, rows.Err()
}

// ListBlobIDs returns every object id referenced by either photo slot
func (r *MeterCalculationRepository) ListBlobIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT foto_anterior_data->>'blobId' FROM meter_calculations
		WHERE COALESCE(foto_anterior_data->>'blobId', '') <> ''
		UNION ALL
		SELECT foto_actual_data->>'blobId' FROM meter_calculations
		WHERE COALESCE(foto_actual_data->>'blobId', '') <> ''`

	return collectIDs(ctx, r.db, query)
}

func scanMeterCalculation(row pgx.Row) (*models.MeterCalculation, error) {
	calculation := &models.MeterCalculation{}
	var before, after []byte
	err := row.Scan(
		&calculation.ID,
		&calculation.Nombre,
		&calculation.Apellido,
		&calculation.DNI,
		&calculation.Habitacion,
		&calculation.MedicionAnterior,
		&calculation.MedicionActual,
		&calculation.ConsumoCalculado,
		&calculation.MontoTotal,
		&calculation.PrecioKWH,
		&calculation.FechaRegistro,
		&calculation.Timestamp,
		&before,
		&after,
		&calculation.CreatedAt,
		&calculation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if calculation.PhotoBefore, err = decodeAsset(before); err != nil {
		return nil, fmt.Errorf("failed to decode photo before: %w", err)
	}
	if calculation.PhotoAfter, err = decodeAsset(after); err != nil {
		return nil, fmt.Errorf("failed to decode photo after: %w", err)
	}
	return calculation, nil
}
