package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tunechat/internal/usecase"
)

type HealthHandler struct {
	sessions *usecase.SessionManager
	devMode  bool
}

func NewHealthHandler(sessions *usecase.SessionManager, devMode bool) *HealthHandler {
	return &HealthHandler{
		sessions: sessions,
		devMode:  devMode,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	backend := "firebase"
	if h.devMode {
		backend = "memory"
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "Server is running",
		"backend":  backend,
		"sessions": h.sessions.Len(),
		"time":     time.Now().Format(time.RFC3339),
	})
}
