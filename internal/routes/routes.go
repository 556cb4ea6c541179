package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/domain/auditlog"
	"github.com/fieldsale/fieldsale/internal/app/domain/auth"
	"github.com/fieldsale/fieldsale/internal/app/domain/collection"
	"github.com/fieldsale/fieldsale/internal/app/domain/dashboard"
	"github.com/fieldsale/fieldsale/internal/app/domain/order"
	"github.com/fieldsale/fieldsale/internal/app/domain/shop"
	"github.com/fieldsale/fieldsale/internal/app/domain/user"
	"github.com/fieldsale/fieldsale/internal/app/middleware"
	"github.com/fieldsale/fieldsale/internal/app/models"
	"github.com/fieldsale/fieldsale/internal/pkg/config"
)

type AppHandlers struct {
	Auth       *auth.AuthHandlers
	User       *user.Handler
	Shop       *shop.Handler
	Order      *order.Handler
	Collection *collection.Handler
	Dashboard  *dashboard.Handler
	AuditLog   *auditlog.Handler
}

// Setup wires repositories, services and handlers, then registers the routes.
func Setup(r *gin.Engine, dbPool *pgxpool.Pool, cfg *config.Config, log *zap.Logger) {
	slogLog := slog.Default()

	handlers := setupDependencies(dbPool, cfg, log, slogLog)
	setupRouter(r, handlers, cfg, log)
}

func setupDependencies(dbPool *pgxpool.Pool, cfg *config.Config, log *zap.Logger, slogLog *slog.Logger) *AppHandlers {
	// Repositories
	authRepo := auth.NewPostgresAuthRepo(dbPool, slogLog)
	userRepo := user.NewPostgresRepo(dbPool, slogLog)
	shopRepo := shop.NewPostgresRepo(dbPool, slogLog)
	orderRepo := order.NewPostgresRepo(dbPool, slogLog)
	collectionRepo := collection.NewPostgresRepo(dbPool, slogLog)
	dashboardRepo := dashboard.NewPostgresRepo(dbPool, slogLog)
	auditRepo := auditlog.NewPostgresRepo(dbPool, slogLog)

	// Services
	auditService := auditlog.NewService(auditRepo, log)
	authService := auth.NewAuthService(authRepo, auditService, cfg, log)
	userService := user.NewService(userRepo, authRepo, auditService, log)
	shopService := shop.NewService(shopRepo, auditService, log)
	orderService := order.NewService(orderRepo, shopRepo, auditService, log)
	collectionService := collection.NewService(collectionRepo, orderRepo, auditService, log)
	dashboardService := dashboard.NewService(dashboardRepo, log)

	return &AppHandlers{
		Auth:       auth.NewAuthHandlers(authService, log),
		User:       user.NewHandler(userService, log),
		Shop:       shop.NewHandler(shopService, log),
		Order:      order.NewHandler(orderService, log),
		Collection: collection.NewHandler(collectionService, log),
		Dashboard:  dashboard.NewHandler(dashboardService, log),
		AuditLog:   auditlog.NewHandler(auditService, log),
	}
}

func setupRouter(r *gin.Engine, h *AppHandlers, cfg *config.Config, log *zap.Logger) {
	jwtConfig := middleware.JWTConfig{
		SecretKey:       cfg.JWT.SecretKey,
		TokenExpiration: cfg.JWT.AccessTokenTTL,
		Issuer:          cfg.JWT.Issuer,
		Audience:        cfg.JWT.Audience,
		Logger:          log,
	}

	// Public auth routes
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", h.Auth.Logout)
		authGroup.POST("/forgot-password", h.Auth.ForgotPassword)
		authGroup.POST("/reset-password", h.Auth.ResetPassword)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(jwtConfig))
	{
		api.GET("/me", h.Auth.Me)
		api.POST("/me/password", h.Auth.ChangePassword)

		api.GET("/dashboard", h.Dashboard.Get)

		// User management is restricted to admins; the service layer applies
		// the finer-grained hierarchy (admins manage reps only).
		users := api.Group("/users")
		users.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSuperadmin))
		{
			users.POST("", h.User.Create)
			users.GET("", h.User.List)
			users.GET("/:id", h.User.Get)
			users.PUT("/:id", h.User.Update)
			users.DELETE("/:id", h.User.Delete)
		}

		shops := api.Group("/shops")
		{
			shops.POST("", h.Shop.Create)
			shops.GET("", h.Shop.List)
			shops.GET("/:id", h.Shop.Get)
			shops.PUT("/:id", h.Shop.Update)
		}

		orders := api.Group("/orders")
		{
			orders.POST("", h.Order.Create)
			orders.GET("", h.Order.List)
			orders.GET("/:id", h.Order.Get)
			orders.POST("/:id/deliver", h.Order.Deliver)
			orders.POST("/:id/cancel", h.Order.Cancel)
			orders.GET("/:id/balance", h.Collection.Balance)
		}

		collections := api.Group("/collections")
		{
			collections.POST("", h.Collection.Record)
			collections.GET("", h.Collection.List)
			collections.GET("/:id", h.Collection.Get)
		}

		auditLogs := api.Group("/audit-logs")
		auditLogs.Use(middleware.RequireRole(models.RoleSuperadmin))
		{
			auditLogs.GET("", h.AuditLog.List)
		}
	}
}
