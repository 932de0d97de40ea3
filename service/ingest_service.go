package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"evidencia-backend/imageproc"
	"evidencia-backend/models"
	"evidencia-backend/storage"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
)

const reclaimTimeout = 30 * time.Second

// Upload is one file part of a create request
type Upload struct {
	Field    string
	Filename string
	MimeType string
	Size     int64
	Data     []byte
}

// Limits bounds the uploads accepted by one create request
type Limits struct {
	MaxFiles    int
	MaxFileSize int64
}

// Buckets maps each entity kind to its object store namespace
type Buckets map[models.EntityKind]string

// DefaultBuckets returns the namespace used for each kind when none is configured
func DefaultBuckets() Buckets {
	return Buckets{
		models.KindVoucher:          "vouchers",
		models.KindCounterReading:   "contadores",
		models.KindMeterCalculation: "calculos-medidor",
	}
}

// Bucket returns the namespace of kind
func (b Buckets) Bucket(kind models.EntityKind) (string, error) {
	bucket, ok := b[kind]
	if !ok || bucket == "" {
		return "", fmt.Errorf("no bucket configured for %s", kind)
	}
	return bucket, nil
}

// IngestService turns uploaded files into stored asset records
type IngestService struct {
	store      storage.BlobStore
	compressor ImageCompressor
	buckets    Buckets
	logger     *slog.Logger
	now        func() time.Time
}

// IngestServiceOption is a functional option for IngestService
type IngestServiceOption func(*IngestService)

// IngestWithBlobStore sets the blob store
func IngestWithBlobStore(store storage.BlobStore) IngestServiceOption {
	return func(s *IngestService) {
		s.store = store
	}
}

// IngestWithCompressor sets the image compressor
func IngestWithCompressor(c ImageCompressor) IngestServiceOption {
	return func(s *IngestService) {
		s.compressor = c
	}
}

// IngestWithBuckets sets the kind to bucket mapping
func IngestWithBuckets(b Buckets) IngestServiceOption {
	return func(s *IngestService) {
		s.buckets = b
	}
}

// IngestWithLogger sets the logger
func IngestWithLogger(l *slog.Logger) IngestServiceOption {
	return func(s *IngestService) {
		s.logger = l
	}
}

// IngestWithClock overrides the upload timestamp source
func IngestWithClock(now func() time.Time) IngestServiceOption {
	return func(s *IngestService) {
		s.now = now
	}
}

// NewIngestService creates a new ingest service
func NewIngestService(opts ...IngestServiceOption) *IngestService {
	s := &IngestService{
		buckets: DefaultBuckets(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "ingest"))
	return s
}

// CheckLimits validates file count and sizes before any work is done.
// Nil entries are absent optional slots and do not count.
func CheckLimits(files []*Upload, limits Limits) error {
	var problems []string
	count := 0
	for _, f := range files {
		if f == nil {
			continue
		}
		count++
		size := f.Size
		if int64(len(f.Data)) > size {
			size = int64(len(f.Data))
		}
		if limits.MaxFileSize > 0 && size > limits.MaxFileSize {
			problems = append(problems, fmt.Sprintf("file %q exceeds maximum size of %d bytes", f.Filename, limits.MaxFileSize))
		}
	}
	if limits.MaxFiles > 0 && count > limits.MaxFiles {
		problems = append(problems, fmt.Sprintf("at most %d files are allowed, got %d", limits.MaxFiles, count))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Ingest compresses and stores every file and returns one asset record per input position.
// Absent slots (nil uploads) yield nil records. Either every file is stored or none is:
// on failure the objects already written are deleted before the error is returned.
func (s *IngestService) Ingest(ctx context.Context, kind models.EntityKind, files []*Upload) ([]*models.AssetRecord, error) {
	records := make([]*models.AssetRecord, len(files))
	if s.store == nil {
		return nil, fmt.Errorf("blob store not set")
	}
	bucket, err := s.buckets.Bucket(kind)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		if f == nil {
			continue
		}
		g.Go(func() error {
			rec, err := s.ingestOne(gctx, bucket, f)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.Reclaim(ctx, records...)
		return nil, err
	}
	return records, nil
}

func (s *IngestService) ingestOne(ctx context.Context, bucket string, f *Upload) (*models.AssetRecord, error) {
	uploadedAt := s.now().UTC()
	filename := models.NormalizeFilename(f.Filename, uploadedAt)

	res := s.compress(ctx, f)
	sum := blake2b.Sum256(res.Data)

	blobID, err := s.store.Store(ctx, bucket, res.Data, filename, res.MimeType)
	if err != nil {
		return nil, &StorageError{Op: "store " + filename, Err: err}
	}

	s.logger.Debug("asset stored",
		slog.String("bucket", bucket),
		slog.String("blob_id", blobID),
		slog.String("filename", filename),
		slog.Int64("size", res.Size),
	)

	return &models.AssetRecord{
		Filename:   filename,
		MimeType:   res.MimeType,
		Size:       res.Size,
		UploadedAt: uploadedAt,
		Checksum:   hex.EncodeToString(sum[:]),
		Bucket:     bucket,
		BlobID:     blobID,
	}, nil
}

func (s *IngestService) compress(ctx context.Context, f *Upload) imageproc.Result {
	if s.compressor == nil {
		return imageproc.Result{Data: f.Data, Size: int64(len(f.Data)), MimeType: f.MimeType}
	}
	return s.compressor.Compress(ctx, f.Data, f.MimeType)
}

// Reclaim deletes the blobs of records that will never be referenced by a persisted parent.
// It runs detached from ctx cancellation so an aborted request still cleans up.
func (s *IngestService) Reclaim(ctx context.Context, records ...*models.AssetRecord) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reclaimTimeout)
	defer cancel()

	for _, rec := range records {
		if rec == nil || rec.BlobID == "" {
			continue
		}
		if err := s.store.Delete(ctx, rec.Bucket, rec.BlobID); err != nil {
			s.logger.Warn("failed to reclaim blob, left for sweeper",
				slog.String("bucket", rec.Bucket),
				slog.String("blob_id", rec.BlobID),
				slog.Any("error", err),
			)
			continue
		}
		s.logger.Info("reclaimed blob", slog.String("bucket", rec.Bucket), slog.String("blob_id", rec.BlobID))
	}
}
