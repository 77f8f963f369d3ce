package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/vigil/core"
	"github.com/layer-3/vigil/service"
)

// AuthMiddleware validates the bearer access token against the identity
// authority and stores the resolved profile in the request context.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization header"})
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")

		user, err := authService.Validate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": core.MessageOf(err)})
			return
		}

		c.Set("user", user)
		c.Next()
	}
}
