package router

import (
	"github.com/labstack/echo/v4"

	"snackswap/internal/adapter/api/handler"
	"snackswap/internal/adapter/api/middleware"
)

func SetupThreadRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit echo.MiddlewareFunc) {
	threadHandler := handler.GetThreadHandler()

	threads := e.Group("/v1/threads")
	threads.Use(authMiddleware.Authenticate)
	threads.Use(rateLimit)

	threads.POST("/start", threadHandler.StartThread)
	threads.GET("/mine", threadHandler.GetMyThreads)
	threads.GET("/unread", threadHandler.GetUnread)
	threads.GET("/:id", threadHandler.GetThread)
	threads.GET("/:id/messages", threadHandler.GetMessages)
	threads.POST("/:id/messages", threadHandler.SendMessage)
}
