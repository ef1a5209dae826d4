package middleware

import (
	"errors"
	"net/http"
	"strings"

	"table_admin/internal/auth"

	"github.com/gin-gonic/gin"
)

// bearerToken extracts the token from "Authorization: Bearer <token>".
// Any other scheme counts as no token.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func abortForTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
	case errors.Is(err, auth.ErrExpiredToken):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Token expired"})
	default:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid token"})
	}
}

// AuthMiddleware requires a valid bearer token: 401 when none is presented,
// 403 when it is invalid or expired.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := auth.ValidateToken(bearerToken(c), secret)
		if err != nil {
			abortForTokenError(c, err)
			return
		}

		auth.SetClaims(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware lets anonymous requests through but still rejects a
// token that is presented and invalid.
func OptionalAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := auth.ValidateToken(token, secret)
		if err != nil {
			abortForTokenError(c, err)
			return
		}

		auth.SetClaims(c, claims)
		c.Next()
	}
}
