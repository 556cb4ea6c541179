package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/handlers"
	"github.com/fieldsale/fieldsale/internal/app/middleware"
	"github.com/fieldsale/fieldsale/internal/app/models"
)

type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Role      string `json:"role" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Password  string `json:"password" binding:"required,min=8"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Role      *string `json:"role"`
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

// Create handles POST /api/v1/users
func (h *Handler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, role, first_name and password (min 8 chars) are required"})
		return
	}

	actorRole := middleware.GetRoleFromContext(c)
	actorID := middleware.GetUserIDFromContext(c)
	created, err := h.service.Create(c.Request.Context(), actorRole, actorID, CreateUserParams{
		Email:     req.Email,
		Role:      req.Role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}, req.Password)
	if err != nil {
		h.RespondError(c, err, "could not create user")
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Get handles GET /api/v1/users/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.RespondError(c, err, "could not fetch user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// List handles GET /api/v1/users
func (h *Handler) List(c *gin.Context) {
	page, perPage := handlers.PageParams(c)
	filter := models.UserFilter{
		Role:    c.Query("role"),
		Search:  c.Query("search"),
		Page:    page,
		PerPage: perPage,
	}
	if active := c.Query("is_active"); active != "" {
		b := active == "true"
		filter.IsActive = &b
	}

	actorRole := middleware.GetRoleFromContext(c)
	users, total, err := h.service.List(c.Request.Context(), actorRole, filter)
	if err != nil {
		h.RespondError(c, err, "could not list users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":    users,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// Update handles PUT /api/v1/users/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	actorRole := middleware.GetRoleFromContext(c)
	actorID := middleware.GetUserIDFromContext(c)
	updated, err := h.service.Update(c.Request.Context(), actorRole, actorID, id, UpdateUserParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      req.Role,
	})
	if err != nil {
		h.RespondError(c, err, "could not update user")
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/users/:id (deactivation).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	actorRole := middleware.GetRoleFromContext(c)
	actorID := middleware.GetUserIDFromContext(c)
	if err := h.service.Deactivate(c.Request.Context(), actorRole, actorID, id); err != nil {
		h.RespondError(c, err, "could not deactivate user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deactivated"})
}
