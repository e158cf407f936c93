package router

import (
	"github.com/labstack/echo/v4"

	"snackswap/internal/adapter/api/handler"
	"snackswap/internal/adapter/api/middleware"
)

func SetupReviewRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit echo.MiddlewareFunc) {
	reviewHandler := handler.GetReviewHandler()

	// Public routes
	reviews := e.Group("/v1/reviews")
	reviews.Use(authMiddleware.Optional)
	reviews.Use(rateLimit)
	reviews.GET("/user/:id", reviewHandler.GetUserReviews)

	// Protected routes
	authenticated := e.Group("/v1/reviews")
	authenticated.Use(authMiddleware.Authenticate)
	authenticated.Use(rateLimit)

	authenticated.POST("", reviewHandler.CreateReview)
	authenticated.GET("/me/received", reviewHandler.GetReceived)
	authenticated.GET("/me/written", reviewHandler.GetWritten)
}
