package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedTyping struct {
	userID string
	typing bool
}

type fakeCommands struct {
	mu    sync.Mutex
	calls []recordedTyping
}

func (f *fakeCommands) HandleTyping(_ context.Context, userID string, typing bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedTyping{userID, typing})
	return nil
}

func decode(t *testing.T, raw []byte) WSMessage {
	t.Helper()
	var msg WSMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestSendToUserReachesEveryConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager()
	m.Start(ctx)

	a := NewClient("alice", nil)
	b := NewClient("alice", nil)
	other := NewClient("bob", nil)
	m.Register <- a
	m.Register <- b
	m.Register <- other
	require.Eventually(t, func() bool {
		return m.ClientCount("alice") == 2 && m.ClientCount("bob") == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.SendJSON("alice", MessageTypeNotice, map[string]string{"kind": "upload_failed"}))

	for _, c := range []*Client{a, b} {
		select {
		case raw := <-c.Send:
			assert.Equal(t, MessageTypeNotice, decode(t, raw).Type)
		case <-time.After(time.Second):
			t.Fatal("no message delivered")
		}
	}
	assert.Empty(t, other.Send)

	m.Unregister <- a
	require.Eventually(t, func() bool { return m.ClientCount("alice") == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, a.Enqueue([]byte("late")))
}

func TestHandleClientMessageRoutesTyping(t *testing.T) {
	m := NewManager()
	commands := &fakeCommands{}
	m.SetCommandHandler(commands)
	client := NewClient("alice", nil)

	m.HandleClientMessage(context.Background(), client, []byte(`{"type":"typing","data":{"typing":true}}`))
	m.HandleClientMessage(context.Background(), client, []byte(`{"type":"typing_stop"}`))

	assert.Equal(t, []recordedTyping{{"alice", true}, {"alice", false}}, commands.calls)
}

func TestHandleClientMessageAnswersPingAndRejectsGarbage(t *testing.T) {
	m := NewManager()
	client := NewClient("alice", nil)

	m.HandleClientMessage(context.Background(), client, []byte(`{"type":"ping"}`))
	assert.Equal(t, MessageTypePong, decode(t, <-client.Send).Type)

	m.HandleClientMessage(context.Background(), client, []byte(`not json`))
	assert.Equal(t, MessageTypeError, decode(t, <-client.Send).Type)

	m.HandleClientMessage(context.Background(), client, []byte(`{"type":"shout"}`))
	msg := decode(t, <-client.Send)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Contains(t, string(msg.Data), "shout")
}

func TestJoinAndLeaveAfterShutdownDoNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager()
	m.Start(ctx)

	live := NewClient("alice", nil)
	require.True(t, m.Join(live))
	cancel()

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("manager did not stop")
	}
	assert.False(t, live.Enqueue([]byte("late")))

	late := NewClient("bob", nil)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		assert.False(t, m.Join(late))
		m.Leave(late)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Join/Leave blocked after shutdown")
	}
	assert.False(t, late.Enqueue([]byte("late")))
	assert.Equal(t, 0, m.ClientCount("alice"))
}
