package auth

import (
	"net/http"
	"strings"

	"bkpconnect/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the authenticated user's ID.
const UserIDKey = "userID"

func bearerToken(c *gin.Context) string {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required", "code": "UNAUTHORIZED"})
			return
		}
		userID, err := jwt.ParseToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": "UNAUTHORIZED"})
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// QueryTokenMiddleware authenticates with the "token" query parameter, falling back to
// the Authorization header. Browsers cannot set headers on a websocket upgrade.
func QueryTokenMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			tokenString = bearerToken(c)
		}
		userID, err := jwt.ParseToken(secret, tokenString)
		if tokenString == "" || err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token", "code": "UNAUTHORIZED"})
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user's ID, or "" when the request is anonymous.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
