package collection

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/handlers"
	"github.com/fieldsale/fieldsale/internal/app/middleware"
	"github.com/fieldsale/fieldsale/internal/app/models"
)

type RecordCollectionRequest struct {
	OrderID string  `json:"order_id" binding:"required,uuid"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	Method  string  `json:"method" binding:"required"`
}

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

// Record handles POST /api/v1/collections
func (h *Handler) Record(c *gin.Context) {
	var req RecordCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id, a positive amount and method are required"})
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order_id"})
		return
	}

	actorID := middleware.GetUserIDFromContext(c)
	created, err := h.service.Record(c.Request.Context(), actorID, orderID, req.Amount, req.Method)
	if err != nil {
		h.RespondError(c, err, "could not record collection")
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Get handles GET /api/v1/collections/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection id"})
		return
	}

	collection, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.RespondError(c, err, "could not fetch collection")
		return
	}
	c.JSON(http.StatusOK, collection)
}

// List handles GET /api/v1/collections
func (h *Handler) List(c *gin.Context) {
	page, perPage := handlers.PageParams(c)
	filter := models.CollectionFilter{
		Page:    page,
		PerPage: perPage,
	}
	if raw := c.Query("order_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order_id"})
			return
		}
		filter.OrderID = &id
	}
	if raw := c.Query("shop_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shop_id"})
			return
		}
		filter.ShopID = &id
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

	collections, total, err := h.service.List(c.Request.Context(),
		middleware.GetRoleFromContext(c), middleware.GetUserIDFromContext(c), filter)
	if err != nil {
		h.RespondError(c, err, "could not list collections")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"collections": collections,
		"total":       total,
		"page":        page,
		"per_page":    perPage,
	})
}

// Balance handles GET /api/v1/orders/:id/balance
func (h *Handler) Balance(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	balance, err := h.service.OrderBalance(c.Request.Context(), orderID)
	if err != nil {
		h.RespondError(c, err, "could not compute balance")
		return
	}
	c.JSON(http.StatusOK, balance)
}
