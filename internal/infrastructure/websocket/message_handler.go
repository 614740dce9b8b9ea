package websocket

import (
	"context"
	"encoding/json"
	"time"

	"tunechat/pkg/logger"
)

// WebSocket Message Types
const (
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeTyping      = "typing"
	MessageTypeTypingStart = "typing_start"
	MessageTypeTypingStop  = "typing_stop"
	MessageTypeView        = "view"
	MessageTypeNotice      = "notice"
	MessageTypeError       = "error"
)

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp"`
}

type TypingData struct {
	Typing bool `json:"typing"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// CommandHandler executes commands sent over a connection on behalf of the
// connected user.
type CommandHandler interface {
	HandleTyping(ctx context.Context, userID string, typing bool) error
}

// Encode wraps data in an envelope of the given type.
func Encode(msgType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{
		Type:      msgType,
		Data:      raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendJSON encodes data and sends it to every connection of a user.
func (m *Manager) SendJSON(userID, msgType string, data interface{}) error {
	message, err := Encode(msgType, data)
	if err != nil {
		return err
	}
	m.SendToUser(userID, message)
	return nil
}

// HandleClientMessage processes incoming WebSocket messages
func (m *Manager) HandleClientMessage(ctx context.Context, client *Client, messageBytes []byte) {
	var wsMessage WSMessage
	if err := json.Unmarshal(messageBytes, &wsMessage); err != nil {
		logger.Debug("WebSocket: invalid frame from %s: %v", client.UserID, err)
		m.sendErrorToClient(client, "Invalid message format")
		return
	}

	switch wsMessage.Type {
	case MessageTypePing:
		m.sendToClient(client, MessageTypePong, struct{}{})

	case MessageTypeTyping:
		var data TypingData
		if err := json.Unmarshal(wsMessage.Data, &data); err != nil {
			m.sendErrorToClient(client, "Invalid typing payload")
			return
		}
		m.handleTyping(ctx, client, data.Typing)

	case MessageTypeTypingStart:
		m.handleTyping(ctx, client, true)

	case MessageTypeTypingStop:
		m.handleTyping(ctx, client, false)

	default:
		m.sendErrorToClient(client, "Unknown message type: "+wsMessage.Type)
	}
}

func (m *Manager) handleTyping(ctx context.Context, client *Client, typing bool) {
	if m.handler == nil {
		return
	}
	if err := m.handler.HandleTyping(ctx, client.UserID, typing); err != nil {
		m.sendErrorToClient(client, err.Error())
	}
}

func (m *Manager) sendToClient(client *Client, msgType string, data interface{}) {
	message, err := Encode(msgType, data)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s: %v", msgType, err)
		return
	}
	client.Enqueue(message)
}

func (m *Manager) sendErrorToClient(client *Client, errorMsg string) {
	m.sendToClient(client, MessageTypeError, ErrorData{Message: errorMsg})
}
