package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tunechat/internal/domain/entity"
	"tunechat/internal/domain/repository"
	"tunechat/pkg/errors"
)

type firestoreGroupRepository struct {
	client *firestore.Client
}

func NewFirestoreGroupRepository(client *firestore.Client) repository.GroupRepository {
	return &firestoreGroupRepository{
		client: client,
	}
}

func (r *firestoreGroupRepository) GetOrCreate(ctx context.Context, id string, defaults entity.Group) (*entity.Group, error) {
	ref := r.client.Collection(groupsCollection).Doc(id)

	var group entity.Group
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return err
			}
			group = defaults
			now := time.Now()
			group.CreatedAt = now
			group.UpdatedAt = now
			if group.Members == nil {
				group.Members = []string{}
			}
			if group.Admins == nil {
				group.Admins = []string{}
			}
			return tx.Create(ref, group)
		}
		return doc.DataTo(&group)
	})
	if err != nil {
		return nil, errors.Internal("Failed to load group", err)
	}

	group.ID = id
	return &group, nil
}

func (r *firestoreGroupRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	updates := []firestore.Update{{Path: "updatedAt", Value: time.Now()}}
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}

	if _, err := r.client.Collection(groupsCollection).Doc(id).Update(ctx, updates); err != nil {
		return writeError("Failed to update group", err)
	}
	return nil
}

func (r *firestoreGroupRepository) AddToSet(ctx context.Context, id, field string, values ...string) error {
	return r.updateSet(ctx, id, field, firestore.ArrayUnion(toInterfaces(values)...))
}

func (r *firestoreGroupRepository) RemoveFromSet(ctx context.Context, id, field string, values ...string) error {
	return r.updateSet(ctx, id, field, firestore.ArrayRemove(toInterfaces(values)...))
}

func (r *firestoreGroupRepository) updateSet(ctx context.Context, id, field string, transform interface{}) error {
	if field != "members" && field != "admins" {
		return errors.BadRequest("Unsupported set field "+field, nil)
	}
	_, err := r.client.Collection(groupsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: field, Value: transform},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return writeError("Failed to update group", err)
	}
	return nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
