package router

import (
	"github.com/labstack/echo/v4"

	"tunechat/internal/adapter/api/handler"
	"tunechat/internal/adapter/api/middleware"
)

// SetupWebSocketRouter sets up WebSocket routes. Browsers cannot set headers
// on the upgrade request, so the token may come from the query string.
func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	wsHandler := handler.GetWebSocketHandler()
	e.GET("/ws", wsHandler.HandleWebSocket, authMiddleware.AuthenticateQuery)
}
