package repository

import (
	"context"
	"fmt"

	"evidencia-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const voucherColumns = `id, nombre, apellido, dni, email, ref4, hab, monto, "timestamp", estado,
			imagenes, fotos, created_at, updated_at`

// VoucherRepository handles database operations for vouchers
type VoucherRepository struct {
	db *pgxpool.Pool
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{db: db}
}

// Create inserts a voucher together with its asset records in one statement
func (r *VoucherRepository) Create(ctx context.Context, voucher *models.Voucher) error {
	if voucher.Fotos == nil {
		voucher.Fotos = []string{}
	}
	query := `
		INSERT INTO vouchers (
			id, nombre, apellido, dni, email, ref4, hab, monto, "timestamp", estado, imagenes, fotos
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		) RETURNING created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		voucher.ID,
		voucher.Nombre,
		voucher.Apellido,
		voucher.DNI,
		voucher.Email,
		voucher.Ref4,
		voucher.Hab,
		voucher.Monto,
		voucher.Timestamp,
		voucher.Estado,
		voucher.Images,
		voucher.Fotos,
	).Scan(&voucher.CreatedAt, &voucher.UpdatedAt)

	return err
}

// GetByID retrieves a voucher by ID
func (r *VoucherRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1`

	voucher, err := scanVoucher(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return voucher, nil
}

// List retrieves vouchers matching the filter, newest first
func (r *VoucherRepository) List(ctx context.Context, filter models.VoucherFilter) ([]*models.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE 1 = 1`

	args := []interface{}{}
	argIndex := 1

	if filter.DNI != "" {
		query += fmt.Sprintf(" AND dni = $%d", argIndex)
		args = append(args, filter.DNI)
		argIndex++
	}
	if filter.Hab != "" {
		query += fmt.Sprintf(" AND hab = $%d", argIndex)
		args = append(args, filter.Hab)
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vouchers []*models.Voucher
	for rows.Next() {
		voucher, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, voucher)
	}

	return vouchers, rows.Err()
}

// UpdateEstado changes the review state of a voucher
func (r *VoucherRepository) UpdateEstado(ctx context.Context, id uuid.UUID, estado models.VoucherStatus) (*models.Voucher, error) {
	query := `
		UPDATE vouchers SET
			estado = $2,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + voucherColumns

	voucher, err := scanVoucher(r.db.QueryRow(ctx, query, id, estado))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return voucher, nil
}

// ListBlobIDs returns every object id referenced by a voucher image
func (r *VoucherRepository) ListBlobIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT img->>'blobId'
		FROM vouchers, jsonb_array_elements(imagenes) AS img
		WHERE COALESCE(img->>'blobId', '') <> ''`

	return collectIDs(ctx, r.db, query)
}

func scanVoucher(row pgx.Row) (*models.Voucher, error) {
	voucher := &models.Voucher{}
	err := row.Scan(
		&voucher.ID,
		&voucher.Nombre,
		&voucher.Apellido,
		&voucher.DNI,
		&voucher.Email,
		&voucher.Ref4,
		&voucher.Hab,
		&voucher.Monto,
		&voucher.Timestamp,
		&voucher.Estado,
		&voucher.Images,
		&voucher.Fotos,
		&voucher.CreatedAt,
		&voucher.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return voucher, nil
}

func collectIDs(ctx context.Context, db *pgxpool.Pool, query string) ([]string, error) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
