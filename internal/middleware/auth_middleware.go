package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rotasul/transport-backend/pkg/jwt"
)

// TenantContextKey is the key used to store tenant information in Gin context
const TenantContextKey = "tenant"

// TenantContext represents the authenticated caller's tenant scope
type TenantContext struct {
	TenantID uuid.UUID `json:"tenant_id"`
	UserID   uuid.UUID `json:"user_id"`
	Roles    []string  `json:"roles"`
}

// AuthMiddleware creates a middleware that validates bearer tokens and places
// the caller's tenant scope in the request context. Handlers thread the
// tenant id from here into every core operation.
func AuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header is required",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid authorization header format. Expected: Bearer <token>",
			})
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(TenantContextKey, &TenantContext{
			TenantID: claims.TenantID,
			UserID:   claims.UserID,
			Roles:    claims.Roles,
		})
		c.Next()
	}
}

// GetTenantContext retrieves the tenant context from the Gin context
func GetTenantContext(c *gin.Context) (*TenantContext, bool) {
	value, exists := c.Get(TenantContextKey)
	if !exists {
		return nil, false
	}
	tenant, ok := value.(*TenantContext)
	return tenant, ok
}
