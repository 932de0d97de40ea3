package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultMimeType is served when an asset record carries no MIME type
const DefaultMimeType = "application/octet-stream"

// LocationKind identifies which storage generation holds an asset's bytes
type LocationKind string

const (
	LocationNone       LocationKind = ""
	LocationBlob       LocationKind = "blob"
	LocationInline     LocationKind = "inline"
	LocationLegacyPath LocationKind = "legacy_path"
)

// Location is the resolved storage location of one asset.
// Exactly one of Data, BlobID or Path is meaningful, selected by Kind.
type Location struct {
	Kind   LocationKind
	Data   []byte
	Bucket string
	BlobID string
	Path   string
}

// AssetRecord represents the persisted metadata of one stored image
type AssetRecord struct {
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mimeType"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
	Checksum   string    `json:"checksum,omitempty"`

	// Inline bytes stored in the parent row (legacy / fallback storage)
	InlineData []byte `json:"data,omitempty"`

	// Object store handle (current storage)
	Bucket string `json:"bucket,omitempty"`
	BlobID string `json:"blobId,omitempty"`

	// Path below the legacy uploads directory (first storage generation)
	LegacyPath string `json:"legacyPath,omitempty"`
}

// Location derives the storage variant of the record.
// Blob storage wins over inline bytes, inline bytes over a legacy path.
func (a *AssetRecord) Location() Location {
	if a == nil {
		return Location{}
	}
	switch {
	case a.BlobID != "":
		return Location{Kind: LocationBlob, Bucket: a.Bucket, BlobID: a.BlobID}
	case len(a.InlineData) > 0:
		return Location{Kind: LocationInline, Data: a.InlineData}
	case a.LegacyPath != "":
		return Location{Kind: LocationLegacyPath, Path: a.LegacyPath}
	default:
		return Location{}
	}
}

// ContentType returns the record MIME type or the generic binary type
func (a *AssetRecord) ContentType() string {
	if a == nil || strings.TrimSpace(a.MimeType) == "" {
		return DefaultMimeType
	}
	return a.MimeType
}

// Value implements driver.Valuer for JSONB
func (a AssetRecord) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB
func (a *AssetRecord) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, err := jsonBytes(value)
	if err != nil || len(bytes) == 0 {
		return err
	}
	return json.Unmarshal(bytes, a)
}

// AssetRecords represents the asset list of a multi-slot parent
type AssetRecords []AssetRecord

// Value implements driver.Valuer for JSONB
func (r AssetRecords) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB
func (r *AssetRecords) Scan(value interface{}) error {
	if value == nil {
		*r = AssetRecords{}
		return nil
	}
	bytes, err := jsonBytes(value)
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		*r = AssetRecords{}
		return nil
	}
	return json.Unmarshal(bytes, r)
}

// FindByFilename returns the first record whose filename matches exactly
func (r AssetRecords) FindByFilename(filename string) *AssetRecord {
	for i := range r {
		if r[i].Filename == filename {
			return &r[i]
		}
	}
	return nil
}

// BlobIDs returns the object store ids referenced by the list
func (r AssetRecords) BlobIDs() []string {
	ids := make([]string, 0, len(r))
	for _, rec := range r {
		if rec.BlobID != "" {
			ids = append(ids, rec.BlobID)
		}
	}
	return ids
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeFilename replaces each run of whitespace in an upload name with one underscore.
// An empty name is replaced with a generated one.
func NormalizeFilename(name string, now time.Time) string {
	normalized := whitespaceRun.ReplaceAllString(name, "_")
	if normalized == "" {
		return fmt.Sprintf("img_%d", now.UnixMilli())
	}
	return normalized
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported JSONB source type %T", value)
	}
}
