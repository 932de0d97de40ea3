package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"path"

	"evidencia-backend/models"
	"evidencia-backend/storage"

	"github.com/google/uuid"
)

// ResourceKind tells callers whether a resolved asset is streamed or held in memory
type ResourceKind int

const (
	ResourceStream ResourceKind = iota
	ResourceBuffer
)

// Resource is a resolved asset payload ready to be served.
// Body is set for streams and must be closed by the caller; Data is set for buffers.
type Resource struct {
	Kind     ResourceKind
	Filename string
	MimeType string
	Size     int64
	Checksum string
	Body     io.ReadCloser
	Data     []byte
}

// Close releases the stream of the resource, if any
func (r *Resource) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// Resolver locates the bytes of one asset across every storage generation
type Resolver struct {
	vouchers     VoucherRepository
	readings     CounterReadingRepository
	calculations MeterCalculationRepository
	store        storage.BlobStore
	legacy       LegacyOpener
	buckets      Buckets
	logger       *slog.Logger
}

// ResolverOption is a functional option for Resolver
type ResolverOption func(*Resolver)

// ResolverWithVoucherRepository sets the voucher repository
func ResolverWithVoucherRepository(repo VoucherRepository) ResolverOption {
	return func(r *Resolver) {
		r.vouchers = repo
	}
}

// ResolverWithCounterReadingRepository sets the counter reading repository
func ResolverWithCounterReadingRepository(repo CounterReadingRepository) ResolverOption {
	return func(r *Resolver) {
		r.readings = repo
	}
}

// ResolverWithMeterCalculationRepository sets the meter calculation repository
func ResolverWithMeterCalculationRepository(repo MeterCalculationRepository) ResolverOption {
	return func(r *Resolver) {
		r.calculations = repo
	}
}

// ResolverWithBlobStore sets the blob store
func ResolverWithBlobStore(store storage.BlobStore) ResolverOption {
	return func(r *Resolver) {
		r.store = store
	}
}

// ResolverWithLegacyFiles sets the opener for filesystem-era assets
func ResolverWithLegacyFiles(legacy LegacyOpener) ResolverOption {
	return func(r *Resolver) {
		r.legacy = legacy
	}
}

// ResolverWithBuckets sets the kind to bucket mapping used when a record names no bucket
func ResolverWithBuckets(b Buckets) ResolverOption {
	return func(r *Resolver) {
		r.buckets = b
	}
}

// ResolverWithLogger sets the logger
func ResolverWithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a new resolver
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		buckets: DefaultBuckets(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds the asset named by name (a filename for vouchers, a slot otherwise)
// on the parent record and returns its payload. Blob storage is consulted first,
// then inline bytes, then the legacy uploads directory. Every miss is ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, kind models.EntityKind, parentID, name string) (*Resource, error) {
	id, err := uuid.Parse(parentID)
	if err != nil {
		return nil, ErrNotFound
	}

	rec, err := r.lookup(ctx, kind, id, name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}

	loc := rec.Location()
	switch loc.Kind {
	case models.LocationBlob:
		return r.openBlob(ctx, kind, rec, loc)
	case models.LocationInline:
		return &Resource{
			Kind:     ResourceBuffer,
			Filename: rec.Filename,
			MimeType: rec.ContentType(),
			Size:     int64(len(loc.Data)),
			Checksum: rec.Checksum,
			Data:     loc.Data,
		}, nil
	case models.LocationLegacyPath:
		return r.openLegacy(ctx, rec, loc)
	default:
		return nil, ErrNotFound
	}
}

func (r *Resolver) lookup(ctx context.Context, kind models.EntityKind, id uuid.UUID, name string) (*models.AssetRecord, error) {
	switch kind {
	case models.KindVoucher:
		if r.vouchers == nil {
			return nil, ErrNotFound
		}
		v, err := r.vouchers.GetByID(ctx, id)
		if err != nil {
			return nil, notFound(err)
		}
		return v.FindAsset(name), nil
	case models.KindCounterReading:
		if r.readings == nil {
			return nil, ErrNotFound
		}
		c, err := r.readings.GetByID(ctx, id)
		if err != nil {
			return nil, notFound(err)
		}
		return c.SlotAsset(name), nil
	case models.KindMeterCalculation:
		if r.calculations == nil {
			return nil, ErrNotFound
		}
		m, err := r.calculations.GetByID(ctx, id)
		if err != nil {
			return nil, notFound(err)
		}
		return m.SlotAsset(name), nil
	default:
		return nil, ErrNotFound
	}
}

func (r *Resolver) openBlob(ctx context.Context, kind models.EntityKind, rec *models.AssetRecord, loc models.Location) (*Resource, error) {
	if r.store == nil {
		return nil, ErrNotFound
	}
	bucket := loc.Bucket
	if bucket == "" {
		var err error
		if bucket, err = r.buckets.Bucket(kind); err != nil {
			return nil, ErrNotFound
		}
	}

	obj, err := r.store.Open(ctx, bucket, loc.BlobID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, storage.ErrObjectNotFound) {
			level = slog.LevelError
		}
		r.logger.Log(ctx, level, "asset blob unavailable",
			slog.String("bucket", bucket),
			slog.String("blob_id", loc.BlobID),
			slog.String("filename", rec.Filename),
			slog.Any("error", err),
		)
		return nil, ErrNotFound
	}

	size := obj.Size
	if size < 0 {
		size = rec.Size
	}
	return &Resource{
		Kind:     ResourceStream,
		Filename: rec.Filename,
		MimeType: rec.ContentType(),
		Size:     size,
		Checksum: rec.Checksum,
		Body:     obj.Body,
	}, nil
}

func (r *Resolver) openLegacy(ctx context.Context, rec *models.AssetRecord, loc models.Location) (*Resource, error) {
	if r.legacy == nil {
		return nil, ErrNotFound
	}
	obj, err := r.legacy.OpenLegacy(ctx, loc.Path)
	if err != nil {
		r.logger.Warn("legacy asset unavailable", slog.String("path", loc.Path), slog.Any("error", err))
		return nil, ErrNotFound
	}

	mimeType := rec.MimeType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(path.Ext(loc.Path))
	}
	if mimeType == "" {
		mimeType = models.DefaultMimeType
	}
	return &Resource{
		Kind:     ResourceStream,
		Filename: rec.Filename,
		MimeType: mimeType,
		Size:     obj.Size,
		Checksum: rec.Checksum,
		Body:     obj.Body,
	}, nil
}
