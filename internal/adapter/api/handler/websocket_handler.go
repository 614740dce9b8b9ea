package handler

import (
	"context"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "tunechat/internal/infrastructure/websocket"
	"tunechat/internal/usecase"
	"tunechat/pkg/errors"
	"tunechat/pkg/logger"
	"tunechat/pkg/response"
)

type WebSocketHandler struct {
	ctx       context.Context
	wsManager *ws.Manager
	sessions  *usecase.SessionManager
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewWebSocketHandler serves connections until ctx ends. The request context
// cannot be used since it is cancelled once the upgrade returns.
func NewWebSocketHandler(ctx context.Context, wsManager *ws.Manager, sessions *usecase.SessionManager) *WebSocketHandler {
	return &WebSocketHandler{
		ctx:       ctx,
		wsManager: wsManager,
		sessions:  sessions,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	userID, ok := c.Get("uid").(string)
	if !ok || userID == "" {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	session, err := h.sessions.Get(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed for %s: %v", userID, err)
		return nil
	}

	client := ws.NewClient(userID, conn)
	if !h.wsManager.Join(client) {
		conn.Close()
		return nil
	}

	views, unsubscribe := session.Conversation.Subscribe()
	go forwardViews(client, views)
	go func() {
		client.ReadPump(h.ctx, h.wsManager)
		unsubscribe()
	}()
	go client.WritePump()

	return nil
}

// forwardViews pushes every view change to the client until the subscription
// is closed.
func forwardViews(client *ws.Client, views <-chan usecase.View) {
	for view := range views {
		message, err := ws.Encode(ws.MessageTypeView, view)
		if err != nil {
			logger.Error("Failed to encode view for %s: %v", client.UserID, err)
			continue
		}
		if !client.Enqueue(message) {
			logger.Debug("View for %s dropped", client.UserID)
		}
	}
}
