package order

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/handlers"
	"github.com/fieldsale/fieldsale/internal/app/middleware"
	"github.com/fieldsale/fieldsale/internal/app/models"
)

type CreateOrderRequest struct {
	ShopID string             `json:"shop_id" binding:"required,uuid"`
	Items  []models.OrderItem `json:"items" binding:"required"`
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

// Create handles POST /api/v1/orders
func (h *Handler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shop_id and items are required"})
		return
	}
	shopID, err := uuid.Parse(req.ShopID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shop_id"})
		return
	}

	actorID := middleware.GetUserIDFromContext(c)
	created, err := h.service.Create(c.Request.Context(), actorID, shopID, req.Items)
	if err != nil {
		h.RespondError(c, err, "could not create order")
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Get handles GET /api/v1/orders/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.service.GetByID(c.Request.Context(),
		middleware.GetRoleFromContext(c), middleware.GetUserIDFromContext(c), id)
	if err != nil {
		h.RespondError(c, err, "could not fetch order")
		return
	}
	c.JSON(http.StatusOK, order)
}

// List handles GET /api/v1/orders
func (h *Handler) List(c *gin.Context) {
	page, perPage := handlers.PageParams(c)
	filter := models.OrderFilter{
		Status:  c.Query("status"),
		Page:    page,
		PerPage: perPage,
	}
	if raw := c.Query("shop_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shop_id"})
			return
		}
		filter.ShopID = &id
	}
	if raw := c.Query("created_by"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid created_by"})
			return
		}
		filter.CreatedBy = &id
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

	orders, total, err := h.service.List(c.Request.Context(),
		middleware.GetRoleFromContext(c), middleware.GetUserIDFromContext(c), filter)
	if err != nil {
		h.RespondError(c, err, "could not list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":   orders,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// Deliver handles POST /api/v1/orders/:id/deliver
func (h *Handler) Deliver(c *gin.Context) {
	h.updateStatus(c, h.service.MarkDelivered)
}

// Cancel handles POST /api/v1/orders/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	h.updateStatus(c, h.service.Cancel)
}

func (h *Handler) updateStatus(c *gin.Context, fn func(ctx context.Context, actorRole string, actorID uuid.UUID, id uuid.UUID) (*models.Order, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := fn(c.Request.Context(),
		middleware.GetRoleFromContext(c), middleware.GetUserIDFromContext(c), id)
	if err != nil {
		h.RespondError(c, err, "could not update order")
		return
	}
	c.JSON(http.StatusOK, order)
}
