package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/handlers"
	"github.com/fieldsale/fieldsale/internal/app/middleware"
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

// Get handles GET /api/v1/dashboard and dispatches on the caller's role.
func (h *Handler) Get(c *gin.Context) {
	role := middleware.GetRoleFromContext(c)
	ctx := c.Request.Context()

	switch role {
	case models.RoleRep:
		d, err := h.service.ForRep(ctx, middleware.GetUserIDFromContext(c))
		if err != nil {
			h.RespondError(c, err, "could not build dashboard")
			return
		}
		c.JSON(http.StatusOK, d)
	case models.RoleAdmin:
		d, err := h.service.ForAdmin(ctx)
		if err != nil {
			h.RespondError(c, err, "could not build dashboard")
			return
		}
		c.JSON(http.StatusOK, d)
	case models.RoleSuperadmin:
		d, err := h.service.ForSuperadmin(ctx)
		if err != nil {
			h.RespondError(c, err, "could not build dashboard")
			return
		}
		c.JSON(http.StatusOK, d)
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "unknown role"})
	}
}
