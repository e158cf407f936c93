package router

import (
	"github.com/labstack/echo/v4"

	"snackswap/internal/adapter/api/middleware"
	"snackswap/internal/usecase"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter usecase.RateLimiter, environment string) {
	rateLimit := middleware.RateLimit(limiter)

	SetupThreadRouter(e, authMiddleware, rateLimit)
	SetupOfferRouter(e, authMiddleware, rateLimit)
	SetupListingRouter(e, authMiddleware, rateLimit)
	SetupReviewRouter(e, authMiddleware, rateLimit)
	SetupUserRouter(e, authMiddleware, rateLimit)
	SetupHealthRouter(e)
	SetupDevRouter(e, environment)
}
