package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/foodgram/backend/internal/models"
	"github.com/foodgram/foodgram/backend/internal/types"
)

const callerKey = "caller"

// TokenValidator is an interface for validating JWT tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
}

// Caller is the identity behind a request. The zero value is anonymous.
type Caller struct {
	UserID    uint
	Role      models.Role
	TokenID   string
	ExpiresAt time.Time
}

// Anonymous returns the caller used for requests without a token
func Anonymous() Caller {
	return Caller{}
}

func (c Caller) IsAnonymous() bool {
	return c.UserID == 0
}

func (c Caller) IsAdmin() bool {
	return !c.IsAnonymous() && c.Role == models.RoleAdmin
}

// CanModify reports whether the caller may change something owned by ownerID
func (c Caller) CanModify(ownerID uint) bool {
	return !c.IsAnonymous() && (c.UserID == ownerID || c.IsAdmin())
}

// CallerFrom returns the caller resolved for this request
func CallerFrom(c *gin.Context) Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(Caller); ok {
			return caller
		}
	}
	return Anonymous()
}

// SetCaller stores the caller on the request context
func SetCaller(c *gin.Context, caller Caller) {
	c.Set(callerKey, caller)
}

// ResolveCaller validates an optional "Token <jwt>" or "Bearer <jwt>"
// Authorization header. Requests without the header continue anonymously;
// malformed, invalid or revoked tokens are rejected with 401.
func ResolveCaller(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			SetCaller(c, Anonymous())
			c.Next()
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || (parts[0] != "Token" && parts[0] != "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "invalid authorization header format"})
			return
		}

		claims, err := validator.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "invalid or expired token"})
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "invalid or expired token"})
			return
		}

		caller := Caller{
			UserID:  userID,
			Role:    models.Role(claims.Role),
			TokenID: claims.ID,
		}
		if claims.ExpiresAt != nil {
			caller.ExpiresAt = claims.ExpiresAt.Time
		}
		SetCaller(c, caller)
		c.Next()
	}
}

// RequireAuth rejects anonymous callers
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerFrom(c).IsAnonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "authentication credentials were not provided"})
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerFrom(c)
		if caller.IsAnonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{Error: "authentication credentials were not provided"})
			return
		}
		if !caller.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, types.ErrorResponse{Error: "you do not have permission to perform this action"})
			return
		}
		c.Next()
	}
}
