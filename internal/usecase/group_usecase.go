package usecase

import (
	"context"
	"strings"

	"tunechat/internal/domain/entity"
	"tunechat/internal/domain/repository"
	"tunechat/pkg/errors"
	"tunechat/pkg/logger"
)

const defaultGroupName = "Global Chat"

// GroupUseCase manages the settings document of the shared conversation.
type GroupUseCase struct {
	groupRepo repository.GroupRepository
	groupID   string
	identity  entity.Identity
}

func NewGroupUseCase(groupRepo repository.GroupRepository, groupID string, identity entity.Identity) *GroupUseCase {
	return &GroupUseCase{
		groupRepo: groupRepo,
		groupID:   groupID,
		identity:  identity,
	}
}

type UpdateGroupInput struct {
	Name        *string
	Photo       *string
	Description *string
}

// Group returns the group document, creating it on first access and adding
// the local user to its members.
func (uc *GroupUseCase) Group(ctx context.Context) (*entity.Group, error) {
	group, err := uc.groupRepo.GetOrCreate(ctx, uc.groupID, entity.Group{
		Name:    defaultGroupName,
		Members: []string{uc.identity.UserID},
		Admins:  []string{},
	})
	if err != nil {
		return nil, err
	}

	if !group.IsMember(uc.identity.UserID) {
		if err := uc.groupRepo.AddToSet(ctx, uc.groupID, "members", uc.identity.UserID); err != nil {
			return nil, err
		}
		group.Members = append(group.Members, uc.identity.UserID)
		logger.Info("User %s joined group %s", uc.identity.UserID, uc.groupID)
	}
	return group, nil
}

func (uc *GroupUseCase) requireAdmin(ctx context.Context) (*entity.Group, error) {
	group, err := uc.Group(ctx)
	if err != nil {
		return nil, err
	}
	if !group.IsAdmin(uc.identity.UserID) {
		return nil, errors.Forbidden("Only group admins can change settings", nil)
	}
	return group, nil
}

func (uc *GroupUseCase) UpdateSettings(ctx context.Context, input UpdateGroupInput) (*entity.Group, error) {
	group, err := uc.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errors.BadRequest("Group name cannot be empty", nil)
		}
		fields["name"] = name
		group.Name = name
	}
	if input.Photo != nil {
		fields["photo"] = *input.Photo
		group.Photo = *input.Photo
	}
	if input.Description != nil {
		fields["description"] = *input.Description
		group.Description = *input.Description
	}
	if len(fields) == 0 {
		return group, nil
	}

	if err := uc.groupRepo.Update(ctx, uc.groupID, fields); err != nil {
		return nil, err
	}
	return group, nil
}

func (uc *GroupUseCase) Rename(ctx context.Context, name string) (*entity.Group, error) {
	return uc.UpdateSettings(ctx, UpdateGroupInput{Name: &name})
}

func (uc *GroupUseCase) SetPhoto(ctx context.Context, photoURL string) (*entity.Group, error) {
	return uc.UpdateSettings(ctx, UpdateGroupInput{Photo: &photoURL})
}

func (uc *GroupUseCase) SetDescription(ctx context.Context, description string) (*entity.Group, error) {
	return uc.UpdateSettings(ctx, UpdateGroupInput{Description: &description})
}

func (uc *GroupUseCase) AddMember(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.BadRequest("User id is required", nil)
	}
	if _, err := uc.requireAdmin(ctx); err != nil {
		return err
	}
	return uc.groupRepo.AddToSet(ctx, uc.groupID, "members", userID)
}

// RemoveMember also drops the user from the admins.
func (uc *GroupUseCase) RemoveMember(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.BadRequest("User id is required", nil)
	}
	group, err := uc.requireAdmin(ctx)
	if err != nil {
		return err
	}
	if isLastAdmin(group, userID) {
		return errors.BadRequest("A group needs at least one admin", nil)
	}
	if err := uc.groupRepo.RemoveFromSet(ctx, uc.groupID, "admins", userID); err != nil {
		return err
	}
	return uc.groupRepo.RemoveFromSet(ctx, uc.groupID, "members", userID)
}

func (uc *GroupUseCase) PromoteAdmin(ctx context.Context, userID string) error {
	group, err := uc.requireAdmin(ctx)
	if err != nil {
		return err
	}
	if !group.IsMember(userID) {
		return errors.BadRequest("User is not a member of this group", nil)
	}
	return uc.groupRepo.AddToSet(ctx, uc.groupID, "admins", userID)
}

func (uc *GroupUseCase) DemoteAdmin(ctx context.Context, userID string) error {
	group, err := uc.requireAdmin(ctx)
	if err != nil {
		return err
	}
	if isLastAdmin(group, userID) {
		return errors.BadRequest("A group needs at least one admin", nil)
	}
	return uc.groupRepo.RemoveFromSet(ctx, uc.groupID, "admins", userID)
}

// isLastAdmin reports whether removing userID would leave the group without
// admins, which reopens it to every member.
func isLastAdmin(group *entity.Group, userID string) bool {
	return len(group.Admins) == 1 && group.Admins[0] == userID
}
