package router

import (
	"github.com/labstack/echo/v4"

	"snackswap/internal/adapter/api/handler"
)

// SetupDevRouter exposes token issuing only in development and only when a
// token service is configured.
func SetupDevRouter(e *echo.Echo, environment string) {
	devTokenHandler := handler.GetDevTokenHandler()
	if environment != "development" || devTokenHandler == nil {
		return
	}

	e.POST("/_dev/token", devTokenHandler.IssueToken)
}
