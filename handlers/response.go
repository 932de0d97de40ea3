package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"evidencia-backend/logger"
	"evidencia-backend/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps a service error onto the error envelope
func respondServiceError(c *gin.Context, err error, notFoundMessage string) {
	var validation *service.ValidationError
	var storageErr *service.StorageError

	switch {
	case errors.As(err, &validation):
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", strings.Join(validation.Problems, ", "))
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", notFoundMessage)
	case errors.As(err, &storageErr):
		logger.FromContext(c.Request.Context()).Error("storage failure", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to store file")
	default:
		logger.FromContext(c.Request.Context()).Error("request failed", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", err.Error())
	}
}

func respondList[T any](c *gin.Context, items []T) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"total":   len(items),
	})
}
