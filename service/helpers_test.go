package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"evidencia-backend/models"
	"evidencia-backend/repository"
	"evidencia-backend/storage"

	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

// recordingStore wraps a blob store, counts calls and can fail stores of chosen files
type recordingStore struct {
	storage.BlobStore

	mu       sync.Mutex
	stores   int
	opens    int
	deletes  int
	failName string
}

func (s *recordingStore) Store(ctx context.Context, bucket string, data []byte, filename, contentType string) (string, error) {
	s.mu.Lock()
	s.stores++
	fail := s.failName != "" && strings.Contains(filename, s.failName)
	s.mu.Unlock()
	if fail {
		return "", errInjected
	}
	return s.BlobStore.Store(ctx, bucket, data, filename, contentType)
}

func (s *recordingStore) Open(ctx context.Context, bucket, objectID string) (*storage.Object, error) {
	s.mu.Lock()
	s.opens++
	s.mu.Unlock()
	return s.BlobStore.Open(ctx, bucket, objectID)
}

func (s *recordingStore) Delete(ctx context.Context, bucket, objectID string) error {
	s.mu.Lock()
	s.deletes++
	s.mu.Unlock()
	return s.BlobStore.Delete(ctx, bucket, objectID)
}

func (s *recordingStore) counts() (stores, opens, deletes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stores, s.opens, s.deletes
}

func newRecordingStore(t *testing.T) *recordingStore {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return &recordingStore{BlobStore: local}
}

// failingVoucherRepo rejects every create
type failingVoucherRepo struct {
	*repository.MemoryVoucherRepository
}

func (failingVoucherRepo) Create(ctx context.Context, voucher *models.Voucher) error {
	return errInjected
}

func randomBytes(n int, seed int64) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func jpegFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func drain(t *testing.T, res *Resource) []byte {
	t.Helper()
	defer res.Close()
	if res.Kind == ResourceBuffer {
		return res.Data
	}
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return data
}

func bucketObjects(t *testing.T, store storage.BlobStore, bucket string) []storage.ObjectInfo {
	t.Helper()
	objects, err := store.List(context.Background(), bucket)
	require.NoError(t, err)
	return objects
}
