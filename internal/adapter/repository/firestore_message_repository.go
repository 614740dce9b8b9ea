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

const groupsCollection = "groups"

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) messages(conversationID string) *firestore.CollectionRef {
	return r.client.Collection(groupsCollection).Doc(conversationID).Collection("messages")
}

// Subscribe streams the full ordered message list on every change until ctx
// is done or the listener fails.
func (r *firestoreMessageRepository) Subscribe(ctx context.Context, conversationID string) (<-chan []entity.Message, error) {
	it := r.messages(conversationID).OrderBy("timestamp", firestore.Asc).Snapshots(ctx)
	out := make(chan []entity.Message, 1)

	go func() {
		defer close(out)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					logger.Error("Message listener for %s failed: %v", conversationID, err)
				}
				return
			}

			list, err := decodeMessages(snap.Documents)
			if err != nil {
				logger.Error("Failed to decode messages for %s: %v", conversationID, err)
				continue
			}

			select {
			case <-out:
			default:
			}
			out <- list
		}
	}()

	return out, nil
}

func decodeMessages(docs *firestore.DocumentIterator) ([]entity.Message, error) {
	defer docs.Stop()

	list := []entity.Message{}
	for {
		doc, err := docs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Warn("Skipping malformed message %s: %v", doc.Ref.ID, err)
			continue
		}
		message.ID = doc.Ref.ID
		list = append(list, message)
	}
	return list, nil
}

func (r *firestoreMessageRepository) Append(ctx context.Context, conversationID string, message entity.Message) (string, error) {
	ref, _, err := r.messages(conversationID).Add(ctx, message.AuthoritativeRecord())
	if err != nil {
		return "", writeError("Failed to send message", err)
	}
	return ref.ID, nil
}

func (r *firestoreMessageRepository) Update(ctx context.Context, conversationID, messageID string, fields map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}

	if _, err := r.messages(conversationID).Doc(messageID).Update(ctx, updates); err != nil {
		return writeError("Failed to update message", err)
	}
	return nil
}

func (r *firestoreMessageRepository) Delete(ctx context.Context, conversationID, messageID string) error {
	if _, err := r.messages(conversationID).Doc(messageID).Delete(ctx, firestore.Exists); err != nil {
		return writeError("Failed to delete message", err)
	}
	return nil
}

func (r *firestoreMessageRepository) Get(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	doc, err := r.messages(conversationID).Doc(messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	message.ID = doc.Ref.ID
	return &message, nil
}

// writeError maps a failed Firestore write onto the engine's error taxonomy.
func writeError(message string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return errors.NotFound("Document", err)
	case codes.InvalidArgument:
		return errors.BadRequest(message, err)
	default:
		return errors.WriteRejected(message, err)
	}
}
