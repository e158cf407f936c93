package router

import (
	"github.com/labstack/echo/v4"

	"snackswap/internal/adapter/api/handler"
	"snackswap/internal/adapter/api/middleware"
)

func SetupOfferRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit echo.MiddlewareFunc) {
	offerHandler := handler.GetOfferHandler()

	offers := e.Group("/v1/offers")
	offers.Use(authMiddleware.Authenticate)
	offers.Use(rateLimit)

	offers.POST("", offerHandler.CreateOffer)
	offers.GET("/mine", offerHandler.GetMyOffers)
	offers.GET("/unread", offerHandler.GetUnread)
	offers.PATCH("/:id", offerHandler.UpdateOffer)
}
