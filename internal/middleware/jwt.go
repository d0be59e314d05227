package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-live/backend/internal/auth"
	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserName is the key for the display name in gin context.
	ContextUserName = "user_name"
)

// JWT returns a middleware that validates JWT and sets user claims in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, string(claims.Role))
		c.Set(ContextUserName, claims.Name)
		c.Next()
	}
}

// OptionalJWT sets user claims when a valid bearer token is present and lets anonymous
// requests through unchanged.
func OptionalJWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			if claims, err := jwtService.Validate(parts[1]); err == nil {
				c.Set(ContextUserID, claims.UserID)
				c.Set(ContextUserRole, string(claims.Role))
				c.Set(ContextUserName, claims.Name)
			}
		}
		c.Next()
	}
}

// Caller is the authenticated user of a request.
type Caller struct {
	UserID uuid.UUID
	Name   string
	Role   models.Role
}

// CurrentUser returns the caller set by JWT. ok is false on routes without the middleware.
func CurrentUser(c *gin.Context) (Caller, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return Caller{}, false
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return Caller{}, false
	}
	return Caller{
		UserID: id,
		Name:   c.GetString(ContextUserName),
		Role:   models.Role(c.GetString(ContextUserRole)),
	}, true
}
