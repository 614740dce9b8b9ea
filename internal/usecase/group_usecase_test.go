package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunechat/internal/domain/entity"
	"tunechat/internal/infrastructure/memstore"
	"tunechat/pkg/errors"
)

func TestGroupIsCreatedOnFirstAccess(t *testing.T) {
	store := memstore.New()
	uc := NewGroupUseCase(store.Groups(), testConversation, alice)

	group, err := uc.Group(context.Background())
	require.NoError(t, err)

	assert.Equal(t, testConversation, group.ID)
	assert.Equal(t, defaultGroupName, group.Name)
	assert.Equal(t, []string{"alice"}, group.Members)
	assert.Empty(t, group.Admins)
}

func TestSecondUserAutoJoins(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	_, err := NewGroupUseCase(store.Groups(), testConversation, alice).Group(ctx)
	require.NoError(t, err)

	bob := entity.Identity{UserID: "bob", DisplayName: "Bob"}
	group, err := NewGroupUseCase(store.Groups(), testConversation, bob).Group(ctx)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"alice", "bob"}, group.Members)
}

func TestOpenGroupAllowsAnyMemberToEdit(t *testing.T) {
	store := memstore.New()
	uc := NewGroupUseCase(store.Groups(), testConversation, alice)
	ctx := context.Background()

	group, err := uc.Rename(ctx, "  Late Night Listening  ")
	require.NoError(t, err)
	assert.Equal(t, "Late Night Listening", group.Name)

	_, err = uc.SetDescription(ctx, "b-sides only")
	require.NoError(t, err)

	group, err = uc.Group(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Late Night Listening", group.Name)
	assert.Equal(t, "b-sides only", group.Description)

	_, err = uc.Rename(ctx, " ")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
}

func TestAdminsGateSettings(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	owner := NewGroupUseCase(store.Groups(), testConversation, alice)
	require.NoError(t, owner.PromoteAdmin(ctx, "alice"))

	bob := NewGroupUseCase(store.Groups(), testConversation, entity.Identity{UserID: "bob"})
	_, err := bob.SetPhoto(ctx, "https://cdn/photo.jpg")
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	require.NoError(t, owner.PromoteAdmin(ctx, "bob"))
	_, err = bob.SetPhoto(ctx, "https://cdn/photo.jpg")
	require.NoError(t, err)

	require.NoError(t, owner.DemoteAdmin(ctx, "bob"))
	err = owner.DemoteAdmin(ctx, "alice")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
}

func TestRemoveMemberDropsAdminRole(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	uc := NewGroupUseCase(store.Groups(), testConversation, alice)

	require.NoError(t, uc.AddMember(ctx, "bob"))
	require.NoError(t, uc.PromoteAdmin(ctx, "alice"))
	require.NoError(t, uc.PromoteAdmin(ctx, "bob"))
	require.NoError(t, uc.RemoveMember(ctx, "bob"))

	group, err := uc.Group(ctx)
	require.NoError(t, err)
	assert.NotContains(t, group.Members, "bob")
	assert.NotContains(t, group.Admins, "bob")

	err = uc.PromoteAdmin(ctx, "stranger")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
}

func TestRemoveMemberKeepsLastAdmin(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	uc := NewGroupUseCase(store.Groups(), testConversation, alice)
	require.NoError(t, uc.AddMember(ctx, "bob"))
	require.NoError(t, uc.PromoteAdmin(ctx, "alice"))

	bob := NewGroupUseCase(store.Groups(), testConversation, entity.Identity{UserID: "bob", DisplayName: "Bob"})
	_, err := bob.Rename(ctx, "hijacked")
	require.True(t, errors.Is(err, errors.CodeForbidden))

	err = uc.RemoveMember(ctx, "alice")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	group, err := uc.Group(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, group.Admins)
	assert.Contains(t, group.Members, "alice")

	_, err = bob.Rename(ctx, "hijacked")
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}
