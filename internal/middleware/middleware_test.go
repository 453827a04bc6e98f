package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-admin-api/internal/access"
	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/service"
	"github.com/noah-isme/edu-admin-api/pkg/logger"
)

func newTokens() *service.TokenService {
	return service.NewTokenService(service.TokenConfig{Secret: "test-secret", Issuer: "edu-admin"}, nil)
}

func issue(t *testing.T, tokens *service.TokenService, userID string, role models.UserRole) string {
	t.Helper()
	token, _, err := tokens.Issue(service.IssueTokenRequest{UserID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func newRouter(handlers ...gin.HandlerFunc) (*gin.Engine, *access.Identity) {
	gin.SetMode(gin.TestMode)
	seen := &access.Identity{}
	router := gin.New()
	router.Use(handlers...)
	router.GET("/ping", func(c *gin.Context) {
		*seen = IdentityFromContext(c)
		c.Status(http.StatusNoContent)
	})
	return router, seen
}

func serve(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	tokens := newTokens()
	router, seen := newRouter(Authenticate(tokens))

	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer not-a-token").Code)

	w := serve(router, "Bearer "+issue(t, tokens, "t-1", models.RoleTeacher))
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, access.Identity{UserID: "t-1", Role: models.RoleTeacher}, *seen)
}

func TestAuthenticateSetsLogFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := newTokens()
	router := gin.New()
	router.Use(Authenticate(tokens))
	router.GET("/ping", func(c *gin.Context) {
		assert.Equal(t, "p-1", c.GetString(logger.ContextUserIDKey))
		assert.Equal(t, string(models.RoleParent), c.GetString(logger.ContextRoleKey))
		c.Status(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusNoContent, serve(router, "Bearer "+issue(t, tokens, "p-1", models.RoleParent)).Code)
}

func TestOptionalAuth(t *testing.T) {
	tokens := newTokens()
	router, seen := newRouter(OptionalAuth(tokens))

	require.Equal(t, http.StatusNoContent, serve(router, "").Code)
	assert.Equal(t, access.Anonymous(), *seen)

	require.Equal(t, http.StatusNoContent, serve(router, "bearer "+issue(t, tokens, "s-1", models.RoleStudent)).Code)
	assert.Equal(t, models.RoleStudent, seen.Role)

	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer tampered").Code)
}

func TestRequireRoles(t *testing.T) {
	tokens := newTokens()
	router, _ := newRouter(OptionalAuth(tokens), RequireRoles(models.RoleSuperUser, models.RoleAdmin))

	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, "Bearer "+issue(t, tokens, "t-1", models.RoleTeacher)).Code)
	assert.Equal(t, http.StatusNoContent, serve(router, "Bearer "+issue(t, tokens, "a-1", models.RoleAdmin)).Code)
}

func TestMetricsMiddlewareObservesRequests(t *testing.T) {
	metrics := service.NewMetricsService()
	router, _ := newRouter(Metrics(metrics))

	serve(router, "")
	serve(router, "")

	assert.EqualValues(t, 2, metrics.Snapshot().RequestsTotal)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/ping", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusNoContent)
	})
	serve(router, "")

	require.NotNil(t, meta)
	assert.Equal(t, true, meta[cacheHitKey])
	assert.Contains(t, meta, processingTimeMS)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))
}
