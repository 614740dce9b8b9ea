package repository

import (
	"context"

	"tunechat/internal/domain/entity"
)

type GroupRepository interface {
	// GetOrCreate returns the group, creating it from defaults when absent.
	GetOrCreate(ctx context.Context, id string, defaults entity.Group) (*entity.Group, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	AddToSet(ctx context.Context, id, field string, values ...string) error
	RemoveFromSet(ctx context.Context, id, field string, values ...string) error
}
