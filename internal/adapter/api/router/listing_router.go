package router

import (
	"github.com/labstack/echo/v4"

	"snackswap/internal/adapter/api/handler"
	"snackswap/internal/adapter/api/middleware"
)

func SetupListingRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit echo.MiddlewareFunc) {
	listingHandler := handler.GetListingHandler()

	// Public routes
	listings := e.Group("/v1/listings")
	listings.Use(authMiddleware.Optional)
	listings.Use(rateLimit)
	listings.GET("/:id", listingHandler.GetListing)

	// Protected routes
	authenticated := e.Group("/v1/listings")
	authenticated.Use(authMiddleware.Authenticate)
	authenticated.Use(rateLimit)

	authenticated.POST("", listingHandler.CreateListing)
	authenticated.PATCH("/:id/status", listingHandler.UpdateStatus)
}
