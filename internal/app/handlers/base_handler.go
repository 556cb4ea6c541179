// Package handlers holds helpers shared by the domain HTTP handlers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/models"
)

type BaseHandler struct {
	Logger *zap.Logger
}

func NewBaseHandler(logger *zap.Logger) *BaseHandler {
	return &BaseHandler{Logger: logger}
}

// RespondError maps domain sentinel errors to HTTP statuses and writes the
// `{"error": ...}` body every endpoint shares.
func (h *BaseHandler) RespondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInvalidRole),
		errors.Is(err, models.ErrOrderClosed),
		errors.Is(err, models.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.Logger.Error("Unhandled handler error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// PageParams reads ?page and ?per_page with defaults.
func PageParams(c *gin.Context) (int, int) {
	page := intQuery(c, "page", 1)
	perPage := intQuery(c, "per_page", 20)
	return page, perPage
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	var v int
	for _, r := range raw {
		if r < '0' || r > '9' {
			return def
		}
		v = v*10 + int(r-'0')
	}
	if v == 0 {
		return def
	}
	return v
}
