package auditlog

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/handlers"
	"github.com/fieldsale/fieldsale/internal/app/models"
)

type Handler struct {
	*handlers.BaseHandler
	service Service
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		BaseHandler: handlers.NewBaseHandler(logger),
		service:     service,
	}
}

// List handles GET /api/v1/audit-logs
func (h *Handler) List(c *gin.Context) {
	page, perPage := handlers.PageParams(c)
	filter := models.AuditLogFilter{
		Entity:  c.Query("entity"),
		Action:  c.Query("action"),
		Page:    page,
		PerPage: perPage,
	}
	if raw := c.Query("actor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid actor_id"})
			return
		}
		filter.ActorID = &id
	}
	if raw := c.Query("date_from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date_from must be YYYY-MM-DD"})
			return
		}
		filter.DateFrom = &t
	}
	if raw := c.Query("date_to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date_to must be YYYY-MM-DD"})
			return
		}
		end := t.AddDate(0, 0, 1)
		filter.DateTo = &end
	}

	entries, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.RespondError(c, err, "could not list audit logs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":  entries,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}
