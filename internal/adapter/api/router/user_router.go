package router

import (
	"github.com/labstack/echo/v4"

	"snackswap/internal/adapter/api/handler"
	"snackswap/internal/adapter/api/middleware"
)

func SetupUserRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit echo.MiddlewareFunc) {
	userHandler := handler.GetUserHandler()

	users := e.Group("/v1/users")
	users.Use(authMiddleware.Authenticate)
	users.Use(rateLimit)

	users.GET("/me", userHandler.GetProfile)
	users.PUT("/me", userHandler.UpdateProfile)
	users.GET("/:id", userHandler.GetUser)
}
