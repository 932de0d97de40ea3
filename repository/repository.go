package repository

import (
	"errors"

	"evidencia-backend/models"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// nullableAsset keeps an absent slot as SQL NULL instead of a JSON null document
func nullableAsset(rec *models.AssetRecord) any {
	if rec == nil {
		return nil
	}
	return *rec
}

func decodeAsset(raw []byte) (*models.AssetRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	rec := &models.AssetRecord{}
	if err := rec.Scan(raw); err != nil {
		return nil, err
	}
	return rec, nil
}
