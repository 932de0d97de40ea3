package service

import (
	"context"
	"testing"

	"evidencia-backend/models"
	"evidencia-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMeterCalculation(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore(t)
	repo := repository.NewMemoryMeterCalculationRepository()
	svc := NewMeterCalculationService(
		WithMeterCalculationRepository(repo),
		CalculationWithIngestService(NewIngestService(IngestWithBlobStore(store))),
	)
	resolver := NewResolver(ResolverWithMeterCalculationRepository(repo), ResolverWithBlobStore(store))

	created, err := svc.CreateMeterCalculation(ctx, CreateMeterCalculationRequest{
		Calculation: &models.MeterCalculation{DNI: "9", MedicionAnterior: 100, MedicionActual: 180},
		PhotoAfter:  &Upload{Filename: "actual.jpg", MimeType: "image/jpeg", Data: []byte("after")},
	})
	require.NoError(t, err)

	assert.Nil(t, created.PhotoBefore)
	require.NotNil(t, created.PhotoAfter)
	assert.Equal(t, "calculos-medidor", created.PhotoAfter.Bucket)
	assert.NotZero(t, created.Timestamp)
	assert.False(t, created.FechaRegistro.IsZero())

	res, err := resolver.Resolve(ctx, models.KindMeterCalculation, created.ID.String(), models.SlotPhotoAfter)
	require.NoError(t, err)
	assert.Equal(t, "after", string(drain(t, res)))

	_, err = resolver.Resolve(ctx, models.KindMeterCalculation, created.ID.String(), models.SlotPhotoBefore)
	assert.ErrorIs(t, err, ErrNotFound)

	view := models.ProjectMeterCalculation(*created)
	assert.Empty(t, view.PhotoBeforeURL)
	assert.Equal(t, "/api/calculos-medidor/"+created.ID.String()+"/foto-actual", view.PhotoAfterURL)
}

func TestCreateMeterCalculationAbortsOnStoreFailure(t *testing.T) {
	store := newRecordingStore(t)
	store.failName = "anterior"
	repo := repository.NewMemoryMeterCalculationRepository()
	svc := NewMeterCalculationService(
		WithMeterCalculationRepository(repo),
		CalculationWithIngestService(NewIngestService(IngestWithBlobStore(store))),
	)

	_, err := svc.CreateMeterCalculation(context.Background(), CreateMeterCalculationRequest{
		Calculation: &models.MeterCalculation{DNI: "9"},
		PhotoBefore: &Upload{Filename: "anterior.jpg", Data: []byte("before")},
		PhotoAfter:  &Upload{Filename: "actual.jpg", Data: []byte("after")},
	})
	require.Error(t, err)

	var storageErr *StorageError
	assert.ErrorAs(t, err, &storageErr)
	assert.Empty(t, bucketObjects(t, store, "calculos-medidor"))

	listed, err := svc.ListMeterCalculations(context.Background(), models.MeterCalculationFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed, "no parent is persisted when a slot fails")
}
