package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sophie-Muchiri12/rentmg/internal/auth"
	"github.com/Sophie-Muchiri12/rentmg/internal/models"
	"github.com/Sophie-Muchiri12/rentmg/internal/scope"
)

const testSecret = "test-secret"

// memRevocations is an in-memory stand-in for the Redis denylist.
type memRevocations struct {
	revoked map[string]bool
	err     error
}

func (m *memRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.revoked[jti], nil
}

func (m *memRevocations) Revoke(_ context.Context, jti string, _ time.Duration) error {
	if m.revoked == nil {
		m.revoked = map[string]bool{}
	}
	m.revoked[jti] = true
	return nil
}

func newRouter(revocations auth.Revocations, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(testSecret, revocations)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		ident := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"user_id": ident.UserID, "role": ident.Role})
	})
	r.GET("/protected", handlers...)
	return r
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	w := doRequest(newRouter(nil), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	w := doRequest(newRouter(nil), "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	w := doRequest(newRouter(nil), "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	token, err := auth.GenerateToken(7, models.RoleTenant, "t@example.com", testSecret, -time.Minute)
	require.NoError(t, err)

	w := doRequest(newRouter(nil), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareInjectsIdentity(t *testing.T) {
	token, err := auth.GenerateToken(7, models.RoleTenant, "t@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	w := doRequest(newRouter(&memRevocations{}), "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"role":"tenant"}`, w.Body.String())
}

func TestAuthMiddlewareRevokedToken(t *testing.T) {
	token, err := auth.GenerateToken(7, models.RoleTenant, "t@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := auth.ParseToken(token, testSecret)
	require.NoError(t, err)

	rev := &memRevocations{}
	require.NoError(t, rev.Revoke(context.Background(), claims.ID, time.Hour))

	w := doRequest(newRouter(rev), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRevocationStoreFailureRejects(t *testing.T) {
	token, err := auth.GenerateToken(7, models.RoleTenant, "t@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	rev := &memRevocations{err: context.DeadlineExceeded}
	w := doRequest(newRouter(rev), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	ownerOnly := RequireRole(models.RoleLandlord, models.RolePropertyManager)

	tenantToken, err := auth.GenerateToken(7, models.RoleTenant, "t@example.com", testSecret, time.Hour)
	require.NoError(t, err)
	landlordToken, err := auth.GenerateToken(8, models.RoleLandlord, "l@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	r := newRouter(nil, ownerOnly)

	w := doRequest(r, "Bearer "+tenantToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(r, "Bearer "+landlordToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetIdentityWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, scope.Identity{}, GetIdentity(c))
	assert.Nil(t, GetClaims(c))
}
