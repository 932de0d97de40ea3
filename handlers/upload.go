package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"evidencia-backend/service"

	"github.com/gin-gonic/gin"
)

// formFiles returns the file parts of a multipart field, or nil for other request types
func formFiles(c *gin.Context, field string) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File[field]
}

// slotParts returns one part per single-file slot field; an empty slot yields a nil header.
// A slot carrying more than one file is a validation error.
func slotParts(c *gin.Context, fields ...string) ([]filePart, error) {
	parts := make([]filePart, len(fields))
	var errs problems
	for i, field := range fields {
		files := formFiles(c, field)
		if len(files) > 1 {
			errs = append(errs, fmt.Sprintf("%s admite un solo archivo, se recibieron %d", field, len(files)))
			continue
		}
		parts[i] = filePart{field: field}
		if len(files) == 1 {
			parts[i].header = files[0]
		}
	}
	if len(errs) > 0 {
		return nil, &service.ValidationError{Problems: errs}
	}
	return parts, nil
}

// readUpload loads one file part into memory
func readUpload(field string, fh *multipart.FileHeader) (*service.Upload, error) {
	if fh == nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	return &service.Upload{
		Field:    field,
		Filename: fh.Filename,
		MimeType: mimeType,
		Size:     fh.Size,
		Data:     data,
	}, nil
}

// filePart is one multipart file bound to the form field it came from
type filePart struct {
	field  string
	header *multipart.FileHeader
}

// checkedUploads validates the parts against limits before reading any of them.
// Parts without a header stay nil in the result.
func checkedUploads(parts []filePart, limits service.Limits) ([]*service.Upload, error) {
	probe := make([]*service.Upload, len(parts))
	for i, p := range parts {
		if p.header != nil {
			probe[i] = &service.Upload{Filename: p.header.Filename, Size: p.header.Size}
		}
	}
	if err := service.CheckLimits(probe, limits); err != nil {
		return nil, err
	}

	uploads := make([]*service.Upload, len(parts))
	for i, p := range parts {
		u, err := readUpload(p.field, p.header)
		if err != nil {
			return nil, err
		}
		uploads[i] = u
	}
	return uploads, nil
}
