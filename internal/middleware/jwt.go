package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/icec/internal/pkg/errcode"
	"github.com/xxxsen/icec/internal/pkg/jwt"
	"github.com/xxxsen/icec/internal/pkg/response"
)

const (
	ContextUserIDKey  = "user_id"
	ContextEmailKey   = "user_email"
	ContextIsAdminKey = "is_admin"
)

func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret, jwt.PurposeSession, time.Now())
		if err != nil {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextEmailKey, claims.Email)
		c.Set(ContextIsAdminKey, claims.IsAdmin)
		c.Next()
	}
}

// RequireAdmin must run after JWTAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextIsAdminKey) {
			response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "admin only")
			c.Abort()
			return
		}
		c.Next()
	}
}
