package http

import (
	"github.com/gin-gonic/gin"

	"github.com/layer-3/vigil/service"
)

// SetupRouter sets up the Gin router. Paths mirror the frontend's fetch
// targets and must stay stable.
func SetupRouter(authService *service.AuthService) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService)

	mfa := router.Group("/mfa")
	{
		mfa.POST("/auth", handlers.Login)
		mfa.POST("/verify", handlers.VerifyMFA)
		mfa.POST("/register", handlers.RegisterMFA)
		mfa.POST("/setup", handlers.SetupMFA)
		mfa.POST("/refresh", handlers.Refresh)
		mfa.POST("/validate", handlers.Validate)
		mfa.POST("/signup", handlers.SignUp)
		mfa.POST("/email-verification", handlers.ConfirmSignUp)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
	}

	return router
}
