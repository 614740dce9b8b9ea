package repository

import (
	"context"

	"tunechat/internal/domain/entity"
)

// MessageRepository is the authoritative message store for one or more
// conversations. Subscribe pushes the full ordered list on every change.
type MessageRepository interface {
	Subscribe(ctx context.Context, conversationID string) (<-chan []entity.Message, error)
	Append(ctx context.Context, conversationID string, message entity.Message) (string, error)
	Update(ctx context.Context, conversationID, messageID string, fields map[string]interface{}) error
	Delete(ctx context.Context, conversationID, messageID string) error
	Get(ctx context.Context, conversationID, messageID string) (*entity.Message, error)
}
