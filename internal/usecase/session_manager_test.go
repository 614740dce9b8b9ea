package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunechat/internal/domain/entity"
	"tunechat/internal/infrastructure/memstore"
	"tunechat/pkg/errors"
)

func newSessions(t *testing.T, sink NoticeSink) (*SessionManager, *memstore.Store, *memstore.Blobs) {
	t.Helper()
	store := memstore.New()
	blobs := memstore.NewBlobs()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := NewSessionManager(ctx, SessionDeps{
		ConversationID: testConversation,
		Identities:     memstore.NewDirectory(alice),
		Messages:       store,
		Presence:       store.Presence(),
		Groups:         store.Groups(),
		Blobs:          blobs,
		Options:        Options{SweepInterval: 10 * time.Millisecond},
		Notices:        sink,
	})
	return m, store, blobs
}

func TestSessionsAreReusedPerUser(t *testing.T) {
	m, store, _ := newSessions(t, nil)
	ctx := context.Background()

	first, err := m.Get(ctx, "alice")
	require.NoError(t, err)
	again, err := m.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, "Alice", first.Conversation.Identity().DisplayName)

	bob, err := m.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", bob.Conversation.Identity().DisplayName)
	assert.Equal(t, 2, m.Len())

	group, err := first.Group.Group(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, group.Members)
	assert.Positive(t, store.Writes())

	_, err = m.Get(ctx, "")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestSessionsShareTheConversation(t *testing.T) {
	m, _, _ := newSessions(t, nil)
	ctx := context.Background()

	a, err := m.Get(ctx, "alice")
	require.NoError(t, err)
	b, err := m.Get(ctx, "bob")
	require.NoError(t, err)

	require.NoError(t, a.Conversation.SendText(ctx, "anyone up?"))
	require.Eventually(t, func() bool { return len(b.Conversation.Messages()) == 1 }, waitFor, tick)

	require.NoError(t, m.HandleTyping(ctx, "bob", true))
	require.Eventually(t, func() bool {
		users := a.Conversation.TypingUsers()
		return len(users) == 1 && users[0].UserID == "bob"
	}, waitFor, tick)
}

func TestSessionNoticesReachSink(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	m, _, blobs := newSessions(t, func(userID string, n Notice) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, userID+":"+string(n.Kind))
	})
	blobs.FailOn("a.jpg", fmt.Errorf("quota"))

	s, err := m.Get(context.Background(), "alice")
	require.NoError(t, err)
	_, err = s.Conversation.SendMedia(context.Background(), []entity.LocalFile{imageFile("a.jpg", 10)}, MediaAuto)
	require.Error(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1 && seen[0] == "alice:upload_failed"
	}, waitFor, tick)
}

func TestWaitReturnsAfterFinalPresenceDelete(t *testing.T) {
	store := memstore.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewSessionManager(ctx, SessionDeps{
		ConversationID: testConversation,
		Identities:     memstore.NewDirectory(alice),
		Messages:       store,
		Presence:       store.Presence(),
		Groups:         store.Groups(),
		Blobs:          memstore.NewBlobs(),
		Options:        Options{TypingIdle: time.Minute, SweepInterval: 10 * time.Millisecond},
	})
	require.NoError(t, m.HandleTyping(context.Background(), "alice", true))
	require.Eventually(t, func() bool {
		return len(store.Presence().Signals(testConversation)) == 1
	}, waitFor, tick)

	cancel()
	finished := make(chan struct{})
	go func() {
		m.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(waitFor):
		t.Fatal("Wait did not return")
	}
	assert.Empty(t, store.Presence().Signals(testConversation))
}
