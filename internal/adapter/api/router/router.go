package router

import (
	"github.com/labstack/echo/v4"

	"tunechat/internal/adapter/api/middleware"
	"tunechat/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *ratelimit.RateLimiter) {
	SetupConversationRouter(e, authMiddleware, rateLimiter)
	SetupGroupRouter(e, authMiddleware, rateLimiter)
	SetupWebSocketRouter(e, authMiddleware)
	SetupHealthRouter(e)
}
