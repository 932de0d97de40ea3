package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"evidencia-backend/models"
	"evidencia-backend/service"

	"github.com/gin-gonic/gin"
)

// Asset bytes never change once stored, so clients may cache them for a year
const assetCacheControl = "public, max-age=31536000, immutable"

// serveAsset resolves one asset and writes its bytes
func serveAsset(c *gin.Context, resolver *service.Resolver, kind models.EntityKind, parentID, name string) {
	res, err := resolver.Resolve(c.Request.Context(), kind, parentID, name)
	if err != nil {
		respondServiceError(c, err, "Image not found")
		return
	}
	defer res.Close()

	c.Header("Cache-Control", assetCacheControl)
	if res.Checksum != "" {
		etag := `"` + res.Checksum + `"`
		c.Header("ETag", etag)
		if etagMatches(c.GetHeader("If-None-Match"), etag) {
			c.Status(http.StatusNotModified)
			return
		}
	}

	switch res.Kind {
	case service.ResourceBuffer:
		c.Header("Content-Length", strconv.Itoa(len(res.Data)))
		c.Data(http.StatusOK, res.MimeType, res.Data)
	default:
		c.DataFromReader(http.StatusOK, res.Size, res.MimeType, res.Body, nil)
	}
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
