package handlers

import (
	"context"
	"net/http"
	"time"

	"evidencia-backend/storage"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports the readiness of the database and blob store
type HealthHandler struct {
	db    Pinger
	store storage.BlobStore
}

// NewHealthHandler creates a new health handler; db may be nil for in-memory runs
func NewHealthHandler(db Pinger, store storage.BlobStore) *HealthHandler {
	return &HealthHandler{db: db, store: store}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if h.store != nil {
		if err := h.store.HealthCheck(ctx); err != nil {
			checks["storage"] = err.Error()
			healthy = false
		} else {
			checks["storage"] = "ok"
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"checks": checks,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": checks,
	})
}
