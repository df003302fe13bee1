package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yashrajoria/fulfillment-service/models"
	"github.com/yashrajoria/fulfillment-service/services"
)

const (
	UserContextKey = "userID"
	RoleContextKey = "role"
)

// AuthMiddleware reads the identity headers set by the API gateway.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			if v, err := c.Cookie("user_id"); err == nil {
				raw = v
			}
		}
		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		role := c.GetHeader("X-User-Role")
		if role == "" {
			role = models.RoleCustomer
		}

		c.Set(UserContextKey, userID)
		c.Set(RoleContextKey, role)
		c.Request = c.Request.WithContext(services.WithActor(c.Request.Context(), userID))
		c.Next()
	}
}

// RequireRole lets through only callers holding one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(RoleContextKey)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
	}
}

// AdminOnly admits admins and staff.
func AdminOnly() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin, models.RoleStaff)
}

func GetUserID(c *gin.Context) (uuid.UUID, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(uuid.UUID); ok && id != uuid.Nil {
			return id, nil
		}
	}
	return uuid.Nil, errors.New("user ID not found in context")
}
