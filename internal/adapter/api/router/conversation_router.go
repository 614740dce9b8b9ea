package router

import (
	"github.com/labstack/echo/v4"

	"tunechat/internal/adapter/api/handler"
	"tunechat/internal/adapter/api/middleware"
	"tunechat/internal/infrastructure/ratelimit"
)

func SetupConversationRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rl *ratelimit.RateLimiter) {
	conversationHandler := handler.GetConversationHandler()

	conversation := e.Group("/v1/conversation", authMiddleware.Authenticate)
	conversation.GET("/messages", conversationHandler.GetMessages)
	conversation.POST("/messages", conversationHandler.SendText, middleware.RateLimit(rl, ratelimit.ActionSendMessage))
	conversation.POST("/tracks", conversationHandler.SendTrack, middleware.RateLimit(rl, ratelimit.ActionSendMessage))

	media := conversation.Group("/media")
	media.POST("", conversationHandler.SendMedia, middleware.RateLimit(rl, ratelimit.ActionSendMedia))
	media.POST("/:tempId/retry", conversationHandler.RetryMedia, middleware.RateLimit(rl, ratelimit.ActionSendMedia))
	media.DELETE("/:tempId", conversationHandler.DismissMedia)

	messages := conversation.Group("/messages/:id")
	messages.POST("/reactions", conversationHandler.ToggleReaction, middleware.RateLimit(rl, ratelimit.ActionReaction))
	messages.PATCH("", conversationHandler.EditMessage, middleware.RateLimit(rl, ratelimit.ActionMutation))
	messages.DELETE("", conversationHandler.UnsendMessage, middleware.RateLimit(rl, ratelimit.ActionMutation))

	conversation.PUT("/reply", conversationHandler.Reply)
	conversation.DELETE("/reply", conversationHandler.CancelReply)
	conversation.PUT("/typing", conversationHandler.SetTyping, middleware.RateLimit(rl, ratelimit.ActionTyping))
}
