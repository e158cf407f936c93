package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by every storage backend and the unread cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	driver string
	store  Pinger
	cache  Pinger
}

var healthHandler *HealthHandler

func NewHealthHandler(driver string, store Pinger, cache Pinger) *HealthHandler {
	return &HealthHandler{
		driver: driver,
		store:  store,
		cache:  cache,
	}
}

func SetupHealthHandler(driver string, store Pinger, cache Pinger) {
	healthHandler = NewHealthHandler(driver, store, cache)
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

// CheckHealth answers 200 while the store responds and 503 otherwise. A cache
// failure is reported but does not fail the check.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	body := map[string]string{
		"status":  "ok",
		"storage": h.driver,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["storage_error"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			body["cache"] = "unreachable"
		} else {
			body["cache"] = "ok"
		}
	}

	return c.JSON(status, body)
}
