// Package imageproc normalizes uploaded photos into size-bounded JPEGs.
package imageproc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"runtime"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultMaxEdge   = 1920
	DefaultQuality   = 80
	DefaultMaxPixels = 40_000_000

	jpegMimeType   = "image/jpeg"
	binaryMimeType = "application/octet-stream" // declared by browsers for untyped files
)

// Config holds the compression policy
type Config struct {
	MaxEdge   int   // longer edge bound in pixels
	Quality   int   // JPEG quality, 1-100
	MaxPixels int64 // larger images are stored as uploaded without being decoded
	Workers   int   // concurrent compressions, defaults to the CPU count
}

// Result is the output of one compression. On fallback it carries the original input.
type Result struct {
	Data       []byte
	Size       int64
	MimeType   string
	Compressed bool
}

// Compressor re-encodes images under a bounded worker budget.
// Compression faults are recovered: the caller always receives usable bytes.
type Compressor struct {
	maxEdge   int
	quality   int
	maxPixels int64
	sem       *semaphore.Weighted
	logger    *slog.Logger
}

// NewCompressor creates a compressor with cfg, filling zero values with defaults
func NewCompressor(log *slog.Logger, cfg Config) *Compressor {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxEdge <= 0 {
		cfg.MaxEdge = DefaultMaxEdge
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultQuality
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = DefaultMaxPixels
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Compressor{
		maxEdge:   cfg.MaxEdge,
		quality:   cfg.Quality,
		maxPixels: cfg.MaxPixels,
		sem:       semaphore.NewWeighted(int64(cfg.Workers)),
		logger:    log.With(slog.String("component", "imageproc")),
	}
}

// Compress orients, downsizes and re-encodes data as JPEG.
// Any failure returns the original bytes, size and declared MIME type unchanged.
func (c *Compressor) Compress(ctx context.Context, data []byte, declaredMime string) Result {
	original := Result{Data: data, Size: int64(len(data)), MimeType: declaredMime}
	if !isImage(data, declaredMime) {
		c.logger.Debug("skipping compression of non-image payload", slog.String("mime", declaredMime))
		return original
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		c.logger.Warn("compression skipped", slog.Any("error", err))
		return original
	}
	defer c.sem.Release(1)

	out, err := c.encode(data)
	if err != nil {
		c.logger.Warn("compression failed, keeping original",
			slog.String("mime", declaredMime),
			slog.Int("size", len(data)),
			slog.Any("error", err),
		)
		return original
	}

	c.logger.Info("image compressed",
		slog.Int("before", len(data)),
		slog.Int("after", len(out)),
		slog.String("reduction_pct", reduction(len(data), len(out))),
	)
	return Result{Data: out, Size: int64(len(out)), MimeType: jpegMimeType, Compressed: true}
}

func (c *Compressor) encode(data []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("codec panic: %v", r)
		}
	}()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > c.maxPixels {
		return nil, fmt.Errorf("%dx%d image exceeds %d pixels", cfg.Width, cfg.Height, c.maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > c.maxEdge || bounds.Dy() > c.maxEdge {
		img = imaging.Fit(img, c.maxEdge, c.maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(c.quality)); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// isImage trusts an image/* declaration and sniffs payloads declared as generic binary
func isImage(data []byte, declaredMime string) bool {
	declared := strings.ToLower(strings.TrimSpace(declaredMime))
	if strings.HasPrefix(declared, "image/") {
		return true
	}
	if declared != "" && declared != binaryMimeType {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(data), "image/")
}

func reduction(before, after int) string {
	if before == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", 100*(1-float64(after)/float64(before)))
}
