package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunechat/internal/domain/entity"
	ws "tunechat/internal/infrastructure/websocket"
	"tunechat/internal/usecase"
)

func TestForwardViewsWrapsEachView(t *testing.T) {
	client := ws.NewClient("alice", nil)
	views := make(chan usecase.View, 2)
	views <- usecase.View{Messages: []entity.Message{{ID: "m1", Content: "hi"}}}
	views <- usecase.View{TypingUsers: []entity.TypingSignal{{UserID: "bob"}}}
	close(views)

	forwardViews(client, views)

	require.Len(t, client.Send, 2)
	var first ws.WSMessage
	require.NoError(t, json.Unmarshal(<-client.Send, &first))
	assert.Equal(t, ws.MessageTypeView, first.Type)
	assert.Contains(t, string(first.Data), `"m1"`)

	var second ws.WSMessage
	require.NoError(t, json.Unmarshal(<-client.Send, &second))
	assert.Contains(t, string(second.Data), `"bob"`)
}
