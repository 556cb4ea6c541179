package shop

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/handlers"
	"github.com/fieldsale/fieldsale/internal/app/middleware"
	"github.com/fieldsale/fieldsale/internal/app/models"
)

type CreateShopRequest struct {
	Name      string `json:"name" binding:"required"`
	OwnerName string `json:"owner_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Area      string `json:"area"`
}

type UpdateShopRequest struct {
	Name      *string `json:"name"`
	OwnerName *string `json:"owner_name"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	Area      *string `json:"area"`
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

// Create handles POST /api/v1/shops
func (h *Handler) Create(c *gin.Context) {
	var req CreateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	actorID := middleware.GetUserIDFromContext(c)
	created, err := h.service.Create(c.Request.Context(), actorID, CreateShopParams{
		Name:      req.Name,
		OwnerName: req.OwnerName,
		Phone:     req.Phone,
		Address:   req.Address,
		Area:      req.Area,
	})
	if err != nil {
		h.RespondError(c, err, "could not create shop")
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Get handles GET /api/v1/shops/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shop id"})
		return
	}

	shop, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.RespondError(c, err, "could not fetch shop")
		return
	}
	c.JSON(http.StatusOK, shop)
}

// List handles GET /api/v1/shops
func (h *Handler) List(c *gin.Context) {
	page, perPage := handlers.PageParams(c)
	shops, total, err := h.service.List(c.Request.Context(), models.ShopFilter{
		Area:    c.Query("area"),
		Search:  c.Query("search"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.RespondError(c, err, "could not list shops")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shops":    shops,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// Update handles PUT /api/v1/shops/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shop id"})
		return
	}

	var req UpdateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	actorID := middleware.GetUserIDFromContext(c)
	updated, err := h.service.Update(c.Request.Context(), actorID, id, UpdateShopParams{
		Name:      req.Name,
		OwnerName: req.OwnerName,
		Phone:     req.Phone,
		Address:   req.Address,
		Area:      req.Area,
	})
	if err != nil {
		h.RespondError(c, err, "could not update shop")
		return
	}

	c.JSON(http.StatusOK, updated)
}
