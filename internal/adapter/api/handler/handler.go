package handler

import (
	"context"

	ws "tunechat/internal/infrastructure/websocket"
	"tunechat/internal/usecase"
)

var (
	conversationHandler *ConversationHandler
	groupHandler        *GroupHandler
	healthHandler       *HealthHandler
	webSocketHandler    *WebSocketHandler
)

type Config struct {
	MaxUploadBytes int64
	DevMode        bool
}

func Setup(ctx context.Context, sessions *usecase.SessionManager, wsManager *ws.Manager, cfg Config) {
	conversationHandler = NewConversationHandler(sessions, cfg.MaxUploadBytes)
	groupHandler = NewGroupHandler(sessions)
	healthHandler = NewHealthHandler(sessions, cfg.DevMode)
	webSocketHandler = NewWebSocketHandler(ctx, wsManager, sessions)
}

func GetConversationHandler() *ConversationHandler {
	return conversationHandler
}

func GetGroupHandler() *GroupHandler {
	return groupHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return webSocketHandler
}
