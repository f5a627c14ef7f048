package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ensgate/ensgate/service"
)

// contextUserKey is where the middleware stores the authenticated user
const contextUserKey = "authUser"

func bearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	return token, token != ""
}

// AuthMiddleware creates middleware that validates session tokens
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		user, err := authService.VerifySession(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}
