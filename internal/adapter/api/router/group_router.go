package router

import (
	"github.com/labstack/echo/v4"

	"tunechat/internal/adapter/api/handler"
	"tunechat/internal/adapter/api/middleware"
	"tunechat/internal/infrastructure/ratelimit"
)

func SetupGroupRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rl *ratelimit.RateLimiter) {
	groupHandler := handler.GetGroupHandler()
	limit := middleware.RateLimit(rl, ratelimit.ActionGroup)

	group := e.Group("/v1/group", authMiddleware.Authenticate)
	group.GET("", groupHandler.GetGroup)
	group.PATCH("", groupHandler.UpdateGroup, limit)
	group.POST("/members", groupHandler.AddMember, limit)
	group.DELETE("/members/:uid", groupHandler.RemoveMember, limit)
	group.POST("/admins", groupHandler.PromoteAdmin, limit)
	group.DELETE("/admins/:uid", groupHandler.DemoteAdmin, limit)
}
