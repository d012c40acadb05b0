package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bizdesk/internal/config"
	"bizdesk/internal/lifecycle"
	"bizdesk/pkg/response"
)

const (
	ctxUserID    = "userID"
	ctxUserRole  = "userRole"
	ctxUserEmail = "userEmail"
)

// PermissionLookup resolves the permission codes granted to a role
type PermissionLookup interface {
	PermissionCodes(ctx context.Context, roleName string) ([]string, error)
}

// permCacheEntry stores cached permission codes for a role with TTL
type permCacheEntry struct {
	codes     []string
	expiresAt time.Time
}

// Auth validates access tokens and guards routes by role or permission
type Auth struct {
	secret     []byte
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
	perms      PermissionLookup

	permCache    sync.Map // roleName -> permCacheEntry
	permCacheTTL time.Duration
	now          func() time.Time
}

// NewAuth builds the guard. secureCookies switches cookies to SameSite=None; Secure
// for cross-origin deployments.
func NewAuth(cfg config.AuthConfig, secureCookies bool, perms PermissionLookup) *Auth {
	return &Auth{
		secret:       []byte(cfg.JWTSecret),
		secure:       secureCookies,
		accessTTL:    cfg.AccessTTL,
		refreshTTL:   cfg.RefreshTTL,
		perms:        perms,
		permCacheTTL: 5 * time.Minute,
		now:          time.Now,
	}
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func (a *Auth) SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	c.SetSameSite(a.sameSite())
	c.SetCookie("access_token", accessToken, int(a.accessTTL.Seconds()), "/", "", a.secure, true)
	c.SetCookie("refresh_token", refreshToken, int(a.refreshTTL.Seconds()), "/", "", a.secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func (a *Auth) ClearTokenCookies(c *gin.Context) {
	c.SetSameSite(a.sameSite())
	c.SetCookie("access_token", "", -1, "/", "", a.secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", a.secure, true)
}

func (a *Auth) sameSite() http.SameSite {
	if a.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// RequireAuth accepts any valid access token
func (a *Auth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.authenticate(c) {
			return
		}
		c.Next()
	}
}

// RequireRole validates the JWT and checks the role claim against allowedRoles
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.authenticate(c) {
			return
		}
		role := c.GetString(ctxUserRole)
		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// RequirePermission validates the JWT and checks that the user's role holds every required permission code
func (a *Auth) RequirePermission(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.authenticate(c) {
			return
		}

		userPerms, err := a.PermissionsFor(c.Request.Context(), c.GetString(ctxUserRole))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
			return
		}

		permSet := make(map[string]bool, len(userPerms))
		for _, p := range userPerms {
			permSet[p] = true
		}
		for _, required := range requiredPerms {
			if !permSet[required] {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+required+"'"))
				return
			}
		}

		c.Next()
	}
}

// PermissionsFor returns cached or freshly loaded permission codes for a role name
func (a *Auth) PermissionsFor(ctx context.Context, roleName string) ([]string, error) {
	if entry, ok := a.permCache.Load(roleName); ok {
		cached := entry.(permCacheEntry)
		if a.now().Before(cached.expiresAt) {
			return cached.codes, nil
		}
	}

	codes, err := a.perms.PermissionCodes(ctx, roleName)
	if err != nil {
		return nil, err
	}

	a.permCache.Store(roleName, permCacheEntry{
		codes:     codes,
		expiresAt: a.now().Add(a.permCacheTTL),
	})
	return codes, nil
}

// ClearPermissionCache removes cached permissions for a specific role (or all roles if empty)
func (a *Auth) ClearPermissionCache(roleName string) {
	if roleName == "" {
		a.permCache.Range(func(key, _ interface{}) bool {
			a.permCache.Delete(key)
			return true
		})
		return
	}
	a.permCache.Delete(roleName)
}

// authenticate parses the access token from the cookie or the Authorization
// header and stores its claims on the context. It aborts and reports false on failure.
func (a *Auth) authenticate(c *gin.Context) bool {
	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr != nil || tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return false
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
			return false
		}
		tokenString = parts[1]
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return false
	}
	sub, _ := claims["sub"].(string)
	if _, err := uuid.Parse(sub); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return false
	}
	role, ok := claims["role"].(string)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
		return false
	}
	email, _ := claims["email"].(string)

	c.Set(ctxUserID, sub)
	c.Set(ctxUserRole, role)
	c.Set(ctxUserEmail, email)
	return true
}

// CurrentActor returns the authenticated caller. The zero Actor (nil ID) means
// the request carried no valid token.
func CurrentActor(c *gin.Context) lifecycle.Actor {
	id, err := uuid.Parse(c.GetString(ctxUserID))
	if err != nil {
		return lifecycle.Actor{}
	}
	return lifecycle.Actor{
		ID:    id,
		Role:  c.GetString(ctxUserRole),
		Email: c.GetString(ctxUserEmail),
	}
}
