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

const testConversation = "global"

var alice = entity.Identity{UserID: "alice", DisplayName: "Alice"}

// seeded stores msg and returns a dispatcher whose local view is the store.
func seeded(t *testing.T, msgs ...entity.Message) (*memstore.Store, *MutationDispatcher, []string) {
	t.Helper()
	store := memstore.New()
	var ids []string
	for _, m := range msgs {
		id, err := store.Append(context.Background(), testConversation, m)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	lookup := func(id string) (entity.Message, bool) {
		for _, m := range store.Messages(testConversation) {
			if m.ID == id {
				return m, true
			}
		}
		return entity.Message{}, false
	}
	return store, NewMutationDispatcher(testConversation, alice, store, lookup), ids
}

func textFrom(sender, content string, ts int64) entity.Message {
	return entity.Message{SenderID: sender, SenderName: sender, Content: content, Type: entity.MessageTypeText, Timestamp: ts}
}

func TestToggleReactionTwiceRestoresSet(t *testing.T) {
	original := textFrom("bob", "hi", 1000)
	original.Reactions = []string{"🔥"}
	store, d, ids := seeded(t, original)
	ctx := context.Background()

	first, err := d.ToggleReaction(ctx, ids[0], "❤️")
	require.NoError(t, err)
	assert.Equal(t, []string{"🔥", "❤️"}, first)

	second, err := d.ToggleReaction(ctx, ids[0], "❤️")
	require.NoError(t, err)
	assert.Equal(t, []string{"🔥"}, second)

	assert.Equal(t, []string{"🔥"}, store.Messages(testConversation)[0].Reactions)
}

func TestEditAndUnsendRequireOwnership(t *testing.T) {
	store, d, ids := seeded(t, textFrom("bob", "hi", 1000))
	ctx := context.Background()
	before := store.Writes()

	err := d.EditMessage(ctx, ids[0], "changed")
	assert.True(t, errors.Is(err, errors.CodeStaleMutation))

	err = d.UnsendMessage(ctx, ids[0])
	assert.True(t, errors.Is(err, errors.CodeStaleMutation))

	assert.Equal(t, before, store.Writes())
	assert.Equal(t, "hi", store.Messages(testConversation)[0].Content)
}

func TestMutationsRejectOptimisticAndVanishedIDs(t *testing.T) {
	store, d, _ := seeded(t)
	ctx := context.Background()

	_, err := d.ToggleReaction(ctx, "optimistic-1000-abc", "❤️")
	assert.True(t, errors.Is(err, errors.CodeStaleMutation))

	err = d.EditMessage(ctx, "gone", "x")
	assert.True(t, errors.Is(err, errors.CodeStaleMutation))

	assert.Equal(t, 0, store.Writes())
}

func TestEditMarksMessageEdited(t *testing.T) {
	store, d, ids := seeded(t, textFrom("alice", "helo", 1000))

	require.NoError(t, d.EditMessage(context.Background(), ids[0], "hello"))

	msg := store.Messages(testConversation)[0]
	assert.Equal(t, "hello", msg.Content)
	assert.True(t, msg.IsEdited)
}

func TestUnsendDeletesRecord(t *testing.T) {
	store, d, ids := seeded(t, textFrom("alice", "oops", 1000))

	require.NoError(t, d.UnsendMessage(context.Background(), ids[0]))

	assert.Empty(t, store.Messages(testConversation))
}

func TestMutationWriteRejectionSurfaces(t *testing.T) {
	store, d, ids := seeded(t, textFrom("alice", "hi", 1000))
	store.FailNextWrite(assert.AnError)

	err := d.EditMessage(context.Background(), ids[0], "changed")

	assert.True(t, errors.Is(err, errors.CodeWriteRejected))
	assert.Equal(t, "hi", store.Messages(testConversation)[0].Content)
}

func TestReplyContextIsConsumedOnce(t *testing.T) {
	var r ReplyContext
	r.Arm(entity.Message{ID: "m1", SenderName: "Bob", Content: "hi", Type: entity.MessageTypeText})

	require.NotNil(t, r.Current())
	taken := r.Take()
	require.NotNil(t, taken)
	assert.Equal(t, "m1", taken.ID)
	assert.Nil(t, r.Take())
	assert.Nil(t, r.Current())
}
