package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"evidencia-backend/models"
	"evidencia-backend/storage"
)

// DefaultSweepGracePeriod protects blobs whose parent write may still be in flight
const DefaultSweepGracePeriod = time.Hour

// SweepResult summarizes one orphan sweep
type SweepResult struct {
	CandidateCount int   `json:"candidate_count"`
	DeletedCount   int   `json:"deleted_count"`
	FailedCount    int   `json:"failed_count"`
	ReclaimedBytes int64 `json:"reclaimed_bytes"`
	DryRun         bool  `json:"dry_run"`
}

// Sweeper deletes stored objects that no persisted record references
type Sweeper struct {
	store   storage.BlobStore
	buckets Buckets
	refs    map[models.EntityKind]BlobReferenceLister
	grace   time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// SweeperOption is a functional option for Sweeper
type SweeperOption func(*Sweeper)

// SweeperWithBlobStore sets the blob store
func SweeperWithBlobStore(store storage.BlobStore) SweeperOption {
	return func(s *Sweeper) {
		s.store = store
	}
}

// SweeperWithBuckets sets the kind to bucket mapping
func SweeperWithBuckets(b Buckets) SweeperOption {
	return func(s *Sweeper) {
		s.buckets = b
	}
}

// SweeperWithReferences registers the reference source of one entity kind
func SweeperWithReferences(kind models.EntityKind, refs BlobReferenceLister) SweeperOption {
	return func(s *Sweeper) {
		s.refs[kind] = refs
	}
}

// SweeperWithGracePeriod sets the minimum age of a sweepable object
func SweeperWithGracePeriod(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.grace = d
	}
}

// SweeperWithClock overrides the time source
func SweeperWithClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		s.now = now
	}
}

// SweeperWithLogger sets the logger
func SweeperWithLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = l
	}
}

// NewSweeper creates a new sweeper
func NewSweeper(opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		buckets: DefaultBuckets(),
		refs:    make(map[models.EntityKind]BlobReferenceLister),
		grace:   DefaultSweepGracePeriod,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep finds unreferenced objects older than the grace period and, when apply is set, deletes them.
// References are read before objects are listed so a blob stored after the reference scan
// is protected by the grace period rather than by the snapshot. Kinds sharing a bucket are
// checked against their combined references; a bucket with an unregistered owner is skipped.
func (s *Sweeper) Sweep(ctx context.Context, apply bool) (SweepResult, error) {
	result := SweepResult{DryRun: !apply}
	if s.store == nil {
		return result, fmt.Errorf("blob store not set")
	}

	buckets, owners, err := s.bucketOwners()
	if err != nil {
		return result, err
	}

	for _, bucket := range buckets {
		live, ok, err := s.liveReferences(ctx, owners[bucket])
		if err != nil {
			return result, err
		}
		if !ok {
			s.logger.Warn("skipping bucket with unregistered references", slog.String("bucket", bucket))
			continue
		}

		objects, err := s.store.List(ctx, bucket)
		if err != nil {
			return result, &StorageError{Op: "list " + bucket, Err: err}
		}

		cutoff := s.now().Add(-s.grace)
		for _, obj := range objects {
			if _, ok := live[obj.ID]; ok {
				continue
			}
			if obj.LastModified.After(cutoff) {
				continue
			}
			result.CandidateCount++
			if !apply {
				result.ReclaimedBytes += obj.Size
				continue
			}
			if err := s.store.Delete(ctx, bucket, obj.ID); err != nil {
				result.FailedCount++
				s.logger.Warn("failed to delete orphan blob",
					slog.String("bucket", bucket),
					slog.String("blob_id", obj.ID),
					slog.Any("error", err),
				)
				continue
			}
			result.DeletedCount++
			result.ReclaimedBytes += obj.Size
		}
	}

	s.logger.Info("sweep finished",
		slog.Bool("dry_run", result.DryRun),
		slog.Int("candidates", result.CandidateCount),
		slog.Int("deleted", result.DeletedCount),
		slog.Int("failed", result.FailedCount),
		slog.Int64("reclaimed_bytes", result.ReclaimedBytes),
	)
	return result, nil
}

// bucketOwners groups entity kinds by bucket. Only buckets with at least one registered
// reference source are returned, in the order of models.Kinds.
func (s *Sweeper) bucketOwners() ([]string, map[string][]models.EntityKind, error) {
	var buckets []string
	owners := make(map[string][]models.EntityKind)
	for _, kind := range models.Kinds {
		bucket, err := s.buckets.Bucket(kind)
		if err != nil {
			if _, registered := s.refs[kind]; registered {
				return nil, nil, err
			}
			continue
		}
		owners[bucket] = append(owners[bucket], kind)
	}
	for _, kind := range models.Kinds {
		bucket, err := s.buckets.Bucket(kind)
		if err != nil {
			continue
		}
		if _, registered := s.refs[kind]; !registered || slices.Contains(buckets, bucket) {
			continue
		}
		buckets = append(buckets, bucket)
	}
	return buckets, owners, nil
}

// liveReferences unions the blob ids of every kind stored in one bucket.
// ok is false when any of those kinds has no reference source.
func (s *Sweeper) liveReferences(ctx context.Context, kinds []models.EntityKind) (map[string]struct{}, bool, error) {
	live := make(map[string]struct{})
	for _, kind := range kinds {
		lister, registered := s.refs[kind]
		if !registered {
			return nil, false, nil
		}
		ids, err := lister.ListBlobIDs(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("failed to list %s references: %w", kind, err)
		}
		for _, id := range ids {
			live[id] = struct{}{}
		}
	}
	return live, true, nil
}
