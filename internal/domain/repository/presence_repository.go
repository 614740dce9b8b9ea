package repository

import (
	"context"

	"tunechat/internal/domain/entity"
)

type PresenceRepository interface {
	// Upsert merges the signal into the user's presence record.
	Upsert(ctx context.Context, conversationID string, signal entity.TypingSignal) error
	Delete(ctx context.Context, conversationID, userID string) error
	Subscribe(ctx context.Context, conversationID string) (<-chan []entity.TypingSignal, error)
}
