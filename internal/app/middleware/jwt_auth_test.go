package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/models"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:       "test-secret-key-at-least-32-chars-long",
		TokenExpiration: 15 * time.Minute,
		Issuer:          "fieldsale",
		Audience:        "fieldsale-app",
		Logger:          zap.NewNop(),
	}
}

func testRouter(cfg JWTConfig, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{JWTAuthMiddleware(cfg)}, extra...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString("user_id"),
			"role":    c.GetString("role"),
		})
	})
	r.GET("/protected", chain...)
	return r
}

func issueToken(t *testing.T, cfg JWTConfig, role string) string {
	t.Helper()
	token, err := GenerateToken(cfg, &models.UserAuth{
		ID:        uuid.New(),
		Email:     "rep@example.com",
		Role:      role,
		FirstName: "Test",
		LastName:  "Rep",
	}, uuid.NewString())
	require.NoError(t, err)
	return token
}

func TestJWTAuthMiddlewareRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	r := testRouter(cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, cfg, models.RoleRep))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"rep"`)
}

func TestJWTAuthMiddlewareMissingHeader(t *testing.T) {
	r := testRouter(testJWTConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddlewareBadScheme(t *testing.T) {
	r := testRouter(testJWTConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddlewareWrongSecret(t *testing.T) {
	signing := testJWTConfig()
	verifying := testJWTConfig()
	verifying.SecretKey = "a-completely-different-32-char-secret!!"
	r := testRouter(verifying)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, signing, models.RoleRep))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddlewareExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	cfg.TokenExpiration = -time.Minute
	r := testRouter(cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, cfg, models.RoleRep))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	cfg := testJWTConfig()
	r := testRouter(cfg, RequireRole(models.RoleAdmin, models.RoleSuperadmin))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, cfg, models.RoleRep))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, cfg, models.RoleAdmin))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
