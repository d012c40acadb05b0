package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/config"
	"bizdesk/internal/lifecycle"
)

const secret = "middleware-test-secret"

type MockPermissionLookup struct {
	mock.Mock
}

func (m *MockPermissionLookup) PermissionCodes(ctx context.Context, roleName string) ([]string, error) {
	args := m.Called(ctx, roleName)
	codes, _ := args.Get(0).([]string)
	return codes, args.Error(1)
}

func signToken(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func validClaims(sub uuid.UUID, role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   sub.String(),
		"role":  role,
		"email": role + "@bizdesk.test",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func newRouter(auth *Auth, guard gin.HandlerFunc, seen *lifecycle.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", guard, func(c *gin.Context) {
		*seen = CurrentActor(c)
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r *gin.Engine, token string, asCookie bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if token != "" {
		if asCookie {
			req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
		} else {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	auth := NewAuth(config.AuthConfig{JWTSecret: secret}, false, new(MockPermissionLookup))
	var seen lifecycle.Actor
	r := newRouter(auth, auth.RequireAuth(), &seen)
	id := uuid.New()

	t.Run("header token", func(t *testing.T) {
		w := get(r, signToken(t, secret, validClaims(id, "staff")), false)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, lifecycle.Actor{ID: id, Role: "staff", Email: "staff@bizdesk.test"}, seen)
	})

	t.Run("cookie token", func(t *testing.T) {
		w := get(r, signToken(t, secret, validClaims(id, "manager")), true)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "manager", seen.Role)
	})

	t.Run("missing", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "", false).Code)
	})

	t.Run("wrong key", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, signToken(t, "other", validClaims(id, "staff")), false).Code)
	})

	t.Run("expired", func(t *testing.T) {
		claims := validClaims(id, "staff")
		claims["exp"] = time.Now().Add(-time.Minute).Unix()
		assert.Equal(t, http.StatusUnauthorized, get(r, signToken(t, secret, claims), false).Code)
	})

	t.Run("subject not a uuid", func(t *testing.T) {
		claims := validClaims(id, "staff")
		claims["sub"] = "42"
		assert.Equal(t, http.StatusUnauthorized, get(r, signToken(t, secret, claims), false).Code)
	})
}

func TestRequireRole(t *testing.T) {
	auth := NewAuth(config.AuthConfig{JWTSecret: secret}, false, new(MockPermissionLookup))
	var seen lifecycle.Actor
	r := newRouter(auth, auth.RequireRole("admin", "manager"), &seen)

	assert.Equal(t, http.StatusNoContent, get(r, signToken(t, secret, validClaims(uuid.New(), "manager")), false).Code)
	assert.Equal(t, http.StatusForbidden, get(r, signToken(t, secret, validClaims(uuid.New(), "staff")), false).Code)
}

func TestRequirePermission_CachesPerRole(t *testing.T) {
	perms := new(MockPermissionLookup)
	perms.On("PermissionCodes", mock.Anything, "staff").Return([]string{"tickets.read"}, nil).Once()
	auth := NewAuth(config.AuthConfig{JWTSecret: secret}, false, perms)
	var seen lifecycle.Actor
	r := newRouter(auth, auth.RequirePermission("tickets.read"), &seen)
	token := signToken(t, secret, validClaims(uuid.New(), "staff"))

	assert.Equal(t, http.StatusNoContent, get(r, token, false).Code)
	assert.Equal(t, http.StatusNoContent, get(r, token, false).Code)
	perms.AssertNumberOfCalls(t, "PermissionCodes", 1)

	// a cleared cache reloads, and the reloaded codes apply
	perms.On("PermissionCodes", mock.Anything, "staff").Return([]string{}, nil).Once()
	auth.ClearPermissionCache("staff")
	assert.Equal(t, http.StatusForbidden, get(r, token, false).Code)
	perms.AssertNumberOfCalls(t, "PermissionCodes", 2)
}

func TestRequirePermission_CacheExpires(t *testing.T) {
	perms := new(MockPermissionLookup)
	perms.On("PermissionCodes", mock.Anything, "staff").Return([]string{"tickets.read"}, nil)
	auth := NewAuth(config.AuthConfig{JWTSecret: secret}, false, perms)
	now := time.Now()
	auth.now = func() time.Time { return now }

	_, err := auth.PermissionsFor(context.Background(), "staff")
	require.NoError(t, err)
	now = now.Add(6 * time.Minute)
	_, err = auth.PermissionsFor(context.Background(), "staff")
	require.NoError(t, err)

	perms.AssertNumberOfCalls(t, "PermissionCodes", 2)
}

func TestSetTokenCookies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := NewAuth(config.AuthConfig{JWTSecret: secret, AccessTTL: time.Hour, RefreshTTL: 48 * time.Hour}, true, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	auth.SetTokenCookies(c, "access", "refresh")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "access_token", cookies[0].Name)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.Equal(t, 48*3600, cookies[1].MaxAge)
	assert.True(t, cookies[1].Secure)
	assert.True(t, cookies[1].HttpOnly)
	assert.Equal(t, http.SameSiteNoneMode, cookies[1].SameSite)
}
