package config

import (
	"testing"
	"time"

	"evidencia-backend/models"
	"evidencia-backend/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, storage.StorageTypeLocal, cfg.Storage.Type)
	assert.Equal(t, "vouchers", cfg.Buckets[models.KindVoucher])
	assert.Equal(t, "contadores", cfg.Buckets[models.KindCounterReading])
	assert.Equal(t, "calculos-medidor", cfg.Buckets[models.KindMeterCalculation])
	assert.Equal(t, 1920, cfg.Image.MaxEdge)
	assert.Equal(t, 80, cfg.Image.Quality)
	assert.Equal(t, int64(40_000_000), cfg.Image.MaxPixels)
	assert.Equal(t, 10, cfg.VoucherLimits.MaxFiles)
	assert.Equal(t, int64(10<<20), cfg.VoucherLimits.MaxFileSize)
	assert.Equal(t, int64(5<<20), cfg.CounterLimits.MaxFileSize)
	assert.Equal(t, 2, cfg.CalculationLimits.MaxFiles)
	assert.Equal(t, time.Hour, cfg.SweepGracePeriod)
	assert.False(t, cfg.UsesMemoryDatabase())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_TYPE", "S3")
	t.Setenv("AWS_REGION", "sa-east-1")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("S3_USE_PATH_STYLE", "true")
	t.Setenv("BUCKET_VOUCHERS", "evidencia-vouchers")
	t.Setenv("IMAGE_JPEG_QUALITY", "70")
	t.Setenv("VOUCHER_MAX_FILES", "4")
	t.Setenv("SWEEP_GRACE_PERIOD", "15m")
	t.Setenv("DATABASE_URL", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, storage.StorageTypeS3, cfg.Storage.Type)
	assert.Equal(t, "sa-east-1", cfg.Storage.S3Region)
	assert.Equal(t, "http://localhost:9000", cfg.Storage.S3Endpoint)
	assert.True(t, cfg.Storage.S3PathStyle)
	assert.Equal(t, "evidencia-vouchers", cfg.Buckets[models.KindVoucher])
	assert.Equal(t, 70, cfg.Image.Quality)
	assert.Equal(t, 4, cfg.VoucherLimits.MaxFiles)
	assert.Equal(t, 15*time.Minute, cfg.SweepGracePeriod)
	assert.True(t, cfg.UsesMemoryDatabase())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown storage", "STORAGE_TYPE", "ftp"},
		{"unknown log format", "LOG_FORMAT", "xml"},
		{"quality too high", "IMAGE_JPEG_QUALITY", "101"},
		{"zero edge", "IMAGE_MAX_EDGE", "0"},
		{"zero files", "VOUCHER_MAX_FILES", "0"},
		{"zero pixel budget", "IMAGE_MAX_PIXELS", "0"},
		{"bucket shared with contadores", "BUCKET_VOUCHERS", "contadores"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateRejectsSharedBuckets(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BUCKET_VOUCHERS", "evidencia")
	t.Setenv("BUCKET_CONTADORES", "evidencia")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `bucket "evidencia"`)
}
