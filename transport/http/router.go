package http

import (
	"github.com/gin-gonic/gin"

	"github.com/ensgate/ensgate/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService)

	api := router.Group("/api")
	{
		api.GET("/health", handlers.Health)

		auth := api.Group("/auth")
		{
			auth.GET("/nonce", handlers.Nonce)
			auth.POST("/ens-login", handlers.Login)
			auth.GET("/verify", handlers.Verify)
		}

		protected := api.Group("")
		protected.Use(AuthMiddleware(authService))
		{
			protected.GET("/me", handlers.Me)
		}
	}

	return router
}
