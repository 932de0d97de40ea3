package service

import (
	"context"
	"encoding/json"
	"testing"

	"evidencia-backend/imageproc"
	"evidencia-backend/models"
	"evidencia-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type voucherFixture struct {
	store    *recordingStore
	repo     *repository.MemoryVoucherRepository
	service  *VoucherService
	resolver *Resolver
}

func newVoucherFixture(t *testing.T, repo VoucherRepository) *voucherFixture {
	t.Helper()
	f := &voucherFixture{
		store: newRecordingStore(t),
		repo:  repository.NewMemoryVoucherRepository(),
	}
	if repo == nil {
		repo = f.repo
	}
	ingest := NewIngestService(
		IngestWithBlobStore(f.store),
		IngestWithCompressor(imageproc.NewCompressor(nil, imageproc.Config{})),
	)
	f.service = NewVoucherService(
		WithVoucherRepository(repo),
		VoucherWithIngestService(ingest),
		VoucherWithLimits(Limits{MaxFiles: 10, MaxFileSize: 10 << 20}),
	)
	f.resolver = NewResolver(ResolverWithVoucherRepository(repo), ResolverWithBlobStore(f.store))
	return f
}

func newVoucher() *models.Voucher {
	return &models.Voucher{Nombre: "Ana", Apellido: "Quispe", DNI: "44556677", Hab: "12", Monto: 150.5}
}

func TestCreateVoucherWithTwoLargeFiles(t *testing.T) {
	ctx := context.Background()
	f := newVoucherFixture(t, nil)

	first := randomBytes(2<<20, 2)
	second := randomBytes(1<<20, 3)
	result, err := f.service.CreateVoucher(ctx, CreateVoucherRequest{
		Voucher: newVoucher(),
		Files: []*Upload{
			{Filename: "pago 1.jpg", MimeType: "image/jpeg", Size: int64(len(first)), Data: first},
			{Filename: "pago 2.jpg", MimeType: "image/jpeg", Size: int64(len(second)), Data: second},
		},
	})
	require.NoError(t, err)

	voucher := result.Voucher
	assert.Equal(t, models.VoucherPending, voucher.Estado)
	assert.False(t, voucher.Timestamp.IsZero())
	require.Len(t, voucher.Images, 2)

	for i, want := range [][]byte{first, second} {
		rec := voucher.Images[i]
		assert.NotEmpty(t, rec.BlobID)
		assert.Empty(t, rec.InlineData)

		res, err := f.resolver.Resolve(ctx, models.KindVoucher, voucher.ID.String(), rec.Filename)
		require.NoError(t, err)
		assert.Equal(t, want, drain(t, res), "random bytes do not decode, so they are stored verbatim")
	}

	listed, err := f.service.ListVouchers(ctx, models.VoucherFilter{})
	require.NoError(t, err)
	views := models.ProjectVouchers(listed)
	require.Len(t, views, 1)
	require.Len(t, views[0].Files, 2)
	assert.Equal(t, "/api/vouchers/"+voucher.ID.String()+"/image/pago_1.jpg", views[0].Files[0].URL)
	assert.Equal(t, "/api/vouchers/"+voucher.ID.String()+"/image/pago_2.jpg", views[0].Files[1].URL)

	payload, err := json.Marshal(views)
	require.NoError(t, err)
	assert.Less(t, len(payload), 4096, "list payload must not carry image bytes")
	assert.NotContains(t, string(payload), `"imagenes"`)
	assert.NotContains(t, string(payload), `"data"`)
}

func TestCreateVoucherWithCorruptJPEG(t *testing.T) {
	ctx := context.Background()
	f := newVoucherFixture(t, nil)

	corrupt := append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, []byte("JFIF but then nothing useful")...)
	result, err := f.service.CreateVoucher(ctx, CreateVoucherRequest{
		Voucher: newVoucher(),
		Files:   []*Upload{{Filename: "roto.jpg", MimeType: "image/jpeg", Size: int64(len(corrupt)), Data: corrupt}},
	})
	require.NoError(t, err)

	rec := result.Voucher.Images[0]
	assert.Equal(t, int64(len(corrupt)), rec.Size)
	assert.Equal(t, "image/jpeg", rec.MimeType)

	res, err := f.resolver.Resolve(ctx, models.KindVoucher, result.Voucher.ID.String(), "roto.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", res.MimeType)
	assert.Equal(t, corrupt, drain(t, res))
}

func TestCreateVoucherWithoutFiles(t *testing.T) {
	f := newVoucherFixture(t, nil)

	result, err := f.service.CreateVoucher(context.Background(), CreateVoucherRequest{Voucher: newVoucher()})
	require.NoError(t, err)
	assert.Empty(t, result.Voucher.Images)
}

func TestCreateVoucherReclaimsBlobsWhenPersistenceFails(t *testing.T) {
	f := newVoucherFixture(t, failingVoucherRepo{})

	_, err := f.service.CreateVoucher(context.Background(), CreateVoucherRequest{
		Voucher: newVoucher(),
		Files: []*Upload{
			{Filename: "a.jpg", MimeType: "image/jpeg", Data: []byte("a")},
			{Filename: "b.jpg", MimeType: "image/jpeg", Data: []byte("b")},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)

	stores, _, deletes := f.store.counts()
	assert.Equal(t, 2, stores)
	assert.Equal(t, 2, deletes)
	assert.Empty(t, bucketObjects(t, f.store, "vouchers"))
}

func TestCreateVoucherRejectsOverLimitBeforeStoring(t *testing.T) {
	f := newVoucherFixture(t, nil)

	files := make([]*Upload, 11)
	for i := range files {
		files[i] = &Upload{Filename: "x.jpg", Data: []byte("x")}
	}
	_, err := f.service.CreateVoucher(context.Background(), CreateVoucherRequest{Voucher: newVoucher(), Files: files})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.service.CreateVoucher(context.Background(), CreateVoucherRequest{
		Voucher: newVoucher(),
		Files:   []*Upload{{Filename: "big.jpg", Size: 11 << 20}},
	})
	assert.ErrorIs(t, err, ErrValidation)

	stores, _, _ := f.store.counts()
	assert.Zero(t, stores)
}

func TestGetVoucher(t *testing.T) {
	ctx := context.Background()
	f := newVoucherFixture(t, nil)

	result, err := f.service.CreateVoucher(ctx, CreateVoucherRequest{Voucher: newVoucher()})
	require.NoError(t, err)

	got, err := f.service.GetVoucher(ctx, result.Voucher.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "44556677", got.DNI)

	_, err = f.service.GetVoucher(ctx, "123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateEstado(t *testing.T) {
	ctx := context.Background()
	f := newVoucherFixture(t, nil)

	result, err := f.service.CreateVoucher(ctx, CreateVoucherRequest{Voucher: newVoucher()})
	require.NoError(t, err)
	id := result.Voucher.ID.String()

	updated, err := f.service.UpdateEstado(ctx, id, models.VoucherApproved)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherApproved, updated.Estado)

	_, err = f.service.UpdateEstado(ctx, id, models.VoucherStatus("pagado"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.service.UpdateEstado(ctx, "00000000-0000-0000-0000-000000000000", models.VoucherRejected)
	assert.ErrorIs(t, err, ErrNotFound)
}
