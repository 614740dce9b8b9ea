package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tunechat/internal/domain/entity"
	"tunechat/internal/domain/repository"
	"tunechat/pkg/errors"
	"tunechat/pkg/logger"
)

type firestorePresenceRepository struct {
	client *firestore.Client
}

func NewFirestorePresenceRepository(client *firestore.Client) repository.PresenceRepository {
	return &firestorePresenceRepository{
		client: client,
	}
}

func (r *firestorePresenceRepository) typing(conversationID string) *firestore.CollectionRef {
	return r.client.Collection(groupsCollection).Doc(conversationID).Collection("typing")
}

func (r *firestorePresenceRepository) Upsert(ctx context.Context, conversationID string, signal entity.TypingSignal) error {
	data := map[string]interface{}{
		"lastSentAt": signal.LastSentAt,
	}
	if signal.DisplayName != "" {
		data["displayName"] = signal.DisplayName
	}

	if _, err := r.typing(conversationID).Doc(signal.UserID).Set(ctx, data, firestore.MergeAll); err != nil {
		return errors.PresenceWriteFailed(err)
	}
	return nil
}

func (r *firestorePresenceRepository) Delete(ctx context.Context, conversationID, userID string) error {
	if _, err := r.typing(conversationID).Doc(userID).Delete(ctx); err != nil {
		return errors.PresenceWriteFailed(err)
	}
	return nil
}

func (r *firestorePresenceRepository) Subscribe(ctx context.Context, conversationID string) (<-chan []entity.TypingSignal, error) {
	it := r.typing(conversationID).Snapshots(ctx)
	out := make(chan []entity.TypingSignal, 1)

	go func() {
		defer close(out)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					logger.Warn("Presence listener for %s failed: %v", conversationID, err)
				}
				return
			}

			signals := decodeSignals(snap.Documents)
			select {
			case <-out:
			default:
			}
			out <- signals
		}
	}()

	return out, nil
}

func decodeSignals(docs *firestore.DocumentIterator) []entity.TypingSignal {
	defer docs.Stop()

	signals := []entity.TypingSignal{}
	for {
		doc, err := docs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Debug("Presence snapshot truncated: %v", err)
			break
		}

		var signal entity.TypingSignal
		if err := doc.DataTo(&signal); err != nil {
			continue
		}
		signal.UserID = doc.Ref.ID
		signals = append(signals, signal)
	}
	return signals
}
